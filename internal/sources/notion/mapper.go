package notion

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

// DefaultFeaturedTag is the normalized audience tag that marks a record
// for promotion.
const DefaultFeaturedTag = "destacar"

// Mapper converts raw database rows into domain opportunities.
// It is safe for concurrent use.
type Mapper struct {
	names       PropertyNames
	featuredTag string
	policy      *bluemonday.Policy
}

// NewMapper creates a mapper. An empty featuredTag selects
// DefaultFeaturedTag.
func NewMapper(names PropertyNames, featuredTag string) *Mapper {
	tag := taxonomy.Normalize(featuredTag)
	if tag == "" {
		tag = DefaultFeaturedTag
	}
	return &Mapper{
		names:       names,
		featuredTag: tag,
		policy:      bluemonday.StrictPolicy(),
	}
}

// Map converts one raw record. It returns ok=false without error when the
// record is not published. Missing or empty properties yield zero values;
// an error means a property was present but could not be decoded.
func (m *Mapper) Map(raw domain.RawRecord) (domain.Opportunity, bool, error) {
	props := rawProps(raw.Properties)

	publish, err := props.get(m.names.Publish)
	if err != nil {
		return domain.Opportunity{}, false, err
	}
	if !publish.Bool() {
		return domain.Opportunity{}, false, nil
	}

	var decodeErr error
	text := func(name string) string {
		p, err := props.get(name)
		if err != nil {
			if decodeErr == nil {
				decodeErr = err
			}
			return ""
		}
		return m.clean(p.Text())
	}
	names := func(name string) []string {
		p, err := props.get(name)
		if err != nil {
			if decodeErr == nil {
				decodeErr = err
			}
			return nil
		}
		return p.Names()
	}

	opp := domain.Opportunity{
		ID:          raw.ID,
		Title:       text(m.names.Title),
		Country:     text(m.names.Country),
		RichSummary: text(m.names.RichSummary),
		AISummary:   text(m.names.AISummary),
		Entity:      text(m.names.Entity),
		Category:    text(m.names.Category),
		URL:         strings.TrimSpace(text(m.names.URL)),
		Disciplines: taxonomy.NormalizeAll(names(m.names.Disciplines)),
		AIKeywords:  names(m.names.AIKeywords),
		AudienceTag: taxonomy.Normalize(text(m.names.Audience)),
	}
	if decodeErr != nil {
		return domain.Opportunity{}, false, decodeErr
	}
	if raw.CreatedTime != "" {
		opp.CreatedTime, err = time.Parse(time.RFC3339, raw.CreatedTime)
		if err != nil {
			return domain.Opportunity{}, false, fmt.Errorf("created_time %q: %w", raw.CreatedTime, err)
		}
	}

	opp.Domain = ExtractDomain(opp.URL)
	opp.FeaturedFlag = opp.AudienceTag == m.featuredTag

	top, err := props.get(m.names.Top)
	if err != nil {
		return domain.Opportunity{}, false, err
	}
	opp.TopFlag = top.Bool()

	closing, err := props.get(m.names.ClosingDate)
	if err != nil {
		return domain.Opportunity{}, false, err
	}
	opp.ClosingDate, err = domain.ParseDate(closing.DateStart())
	if err != nil {
		return domain.Opportunity{}, false, fmt.Errorf("property %q: %w", m.names.ClosingDate, err)
	}

	return opp, true, nil
}

// clean strips markup, unescapes entities and collapses whitespace.
func (m *Mapper) clean(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		s = html.UnescapeString(m.policy.Sanitize(s))
	}
	return strings.Join(strings.Fields(s), " ")
}

// ExtractDomain returns the lowercase host of rawURL without a leading
// "www.", or "" when no host can be found. A scheme is assumed if absent.
func ExtractDomain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return ""
	}
	return strings.TrimPrefix(host, "www.")
}

type rawProps map[string]json.RawMessage

// get decodes the named property. A missing or null property returns the
// zero Property.
func (p rawProps) get(name string) (Property, error) {
	raw, ok := p[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return Property{}, nil
	}
	var prop Property
	if err := json.Unmarshal(raw, &prop); err != nil {
		return Property{}, fmt.Errorf("property %q: %w", name, err)
	}
	return prop, nil
}
