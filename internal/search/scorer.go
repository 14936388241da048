package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

// Weights are the per-field relevance weights plus the two bonuses.
type Weights struct {
	Discipline  int
	RichSummary int
	AISummary   int
	Title       int
	Entity      int
	Category    int
	Country     int

	// GroupBonus is added per record discipline inside the group a term names.
	GroupBonus int
	// ExactMultiplier replaces the plain weight when a field equals the term.
	ExactMultiplier int
}

// DefaultWeights returns the stock weights.
func DefaultWeights() Weights {
	return Weights{
		Discipline:      4,
		RichSummary:     3,
		AISummary:       2,
		Title:           1,
		Entity:          1,
		Category:        1,
		Country:         1,
		GroupBonus:      3,
		ExactMultiplier: 2,
	}
}

// ParseWeights overrides DefaultWeights from "key=value" pairs separated by
// commas, e.g. "discipline=5,title=2". An empty string yields the defaults.
func ParseWeights(s string) (Weights, error) {
	w := DefaultWeights()
	fields := map[string]*int{
		"discipline":       &w.Discipline,
		"rich_summary":     &w.RichSummary,
		"ai_summary":       &w.AISummary,
		"title":            &w.Title,
		"entity":           &w.Entity,
		"category":         &w.Category,
		"country":          &w.Country,
		"group_bonus":      &w.GroupBonus,
		"exact_multiplier": &w.ExactMultiplier,
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Weights{}, fmt.Errorf("invalid weight %q: expected key=value", pair)
		}
		dst, known := fields[strings.TrimSpace(key)]
		if !known {
			return Weights{}, fmt.Errorf("unknown weight %q", key)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return Weights{}, fmt.Errorf("invalid value for weight %q: %q", key, value)
		}
		*dst = n
	}
	return w, nil
}

// Scorer computes term relevance against the weighted fields of an
// opportunity. It is stateless and safe for concurrent use.
type Scorer struct {
	weights  Weights
	taxonomy *taxonomy.Taxonomy
}

// NewScorer creates a scorer.
func NewScorer(w Weights, tax *taxonomy.Taxonomy) *Scorer {
	return &Scorer{weights: w, taxonomy: tax}
}

// Weights returns the configured weights.
func (s *Scorer) Weights() Weights { return s.weights }

// fields is the normalized view of one opportunity's weighted text.
type fields struct {
	disciplines []string
	text        [6]string
	weights     [6]int
}

func (s *Scorer) fieldsOf(o *domain.Opportunity) fields {
	return fields{
		disciplines: o.Disciplines,
		text: [6]string{
			taxonomy.Normalize(o.RichSummary),
			taxonomy.Normalize(o.AISummary),
			taxonomy.Normalize(o.Title),
			taxonomy.Normalize(o.Entity),
			taxonomy.Normalize(o.Category),
			taxonomy.Normalize(o.Country),
		},
		weights: [6]int{
			s.weights.RichSummary,
			s.weights.AISummary,
			s.weights.Title,
			s.weights.Entity,
			s.weights.Category,
			s.weights.Country,
		},
	}
}

// Score sums the score of every term against o. Terms must be normalized.
func (s *Scorer) Score(o *domain.Opportunity, terms []string) int {
	f := s.fieldsOf(o)
	total := 0
	for _, t := range terms {
		total += s.termScore(f, t) + s.groupBonus(f, t)
	}
	return total
}

// MatchAll reports whether every term matches at least one weighted field
// of o, and returns the summed score. Group membership alone does not
// count as a match.
func (s *Scorer) MatchAll(o *domain.Opportunity, terms []string) (int, bool) {
	f := s.fieldsOf(o)
	total := 0
	for _, t := range terms {
		ts := s.termScore(f, t)
		if ts == 0 {
			return 0, false
		}
		total += ts + s.groupBonus(f, t)
	}
	return total, true
}

// termScore adds, per field, ExactMultiplier*w on equality or w on a
// substring match.
func (s *Scorer) termScore(f fields, term string) int {
	if term == "" {
		return 0
	}

	score := 0
	best := 0
	for _, d := range f.disciplines {
		switch {
		case d == term:
			best = s.weights.ExactMultiplier * s.weights.Discipline
		case best == 0 && strings.Contains(d, term):
			best = s.weights.Discipline
		}
	}
	score += best

	for i, text := range f.text {
		switch {
		case text == "":
		case text == term:
			score += s.weights.ExactMultiplier * f.weights[i]
		case strings.Contains(text, term):
			score += f.weights[i]
		}
	}
	return score
}

func (s *Scorer) groupBonus(f fields, term string) int {
	if s.taxonomy == nil || !s.taxonomy.IsGroupName(term) {
		return 0
	}
	return s.weights.GroupBonus * s.taxonomy.Intersect(term, f.disciplines)
}
