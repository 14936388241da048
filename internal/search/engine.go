package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

// Query modes, reported in Result.Mode and used as a metrics label.
const (
	ModeClear      = "clear"
	ModeBrowse     = "browse"
	ModeGroup      = "group"
	ModeTerm       = "term"
	ModeAllTerms   = "all_terms"
	ModeDiscipline = "discipline"
)

// Params are the optional query inputs. Month is the raw user value.
type Params struct {
	Clear      bool
	Month      string
	NoDate     bool
	Query      string
	Discipline string
}

// Hit is one ranked opportunity.
type Hit struct {
	Opportunity *domain.Opportunity `json:"opportunity"`
	Score       int                 `json:"score"`
	PrefScore   int                 `json:"pref_score,omitempty"`
}

// Result is the ranked output of a query. Invalid input produces an empty
// result with diagnostics, never an error.
type Result struct {
	Items       []Hit    `json:"items"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Total       int      `json:"total"`
	Mode        string   `json:"mode"`
}

// Engine answers filtered, scored queries over one snapshot.
type Engine struct {
	scorer   *Scorer
	taxonomy *taxonomy.Taxonomy
}

// NewEngine creates an engine.
func NewEngine(scorer *Scorer, tax *taxonomy.Taxonomy) *Engine {
	return &Engine{scorer: scorer, taxonomy: tax}
}

// Taxonomy returns the discipline table used for expansion.
func (e *Engine) Taxonomy() *taxonomy.Taxonomy { return e.taxonomy }

// Search applies clear, month, noDate, query and discipline in that order.
func (e *Engine) Search(snap *domain.Snapshot, p Params) Result {
	if snap == nil {
		return newResult(ModeBrowse, nil)
	}
	if p.Clear {
		return newResult(ModeClear, unscored(snap.General))
	}

	base := snap.General

	if raw := strings.TrimSpace(p.Month); raw != "" {
		month, err := parseMonth(raw)
		if err != nil {
			return invalid(ModeBrowse, err.Error())
		}
		base = filterMonth(base, month, p.NoDate)
	} else if p.NoDate {
		base = filterNoDate(base)
	}

	hits := unscored(base)
	mode := ModeBrowse

	if terms := splitTerms(p.Query); len(terms) > 0 {
		hits, mode = e.applyQuery(hits, terms)
	}

	if name := strings.TrimSpace(p.Discipline); name != "" {
		group, ok := e.taxonomy.Group(name)
		if !ok {
			return invalid(ModeDiscipline, fmt.Sprintf("unknown discipline %q", name))
		}
		hits = e.inGroup(hits, group)
		if mode == ModeBrowse {
			mode = ModeDiscipline
		}
	}

	if mode != ModeBrowse {
		rank(hits)
	}
	return newResult(mode, hits)
}

func (e *Engine) applyQuery(hits []Hit, terms []string) ([]Hit, string) {
	if len(terms) > 1 {
		out := make([]Hit, 0, len(hits))
		for _, h := range hits {
			if score, ok := e.scorer.MatchAll(h.Opportunity, terms); ok {
				out = append(out, Hit{Opportunity: h.Opportunity, Score: h.Score + score})
			}
		}
		return out, ModeAllTerms
	}

	term := terms[0]
	if synonyms, err := e.taxonomy.GroupSynonyms(term); err == nil {
		return e.scoreAny(hits, synonyms), ModeGroup
	}
	return e.scoreAny(hits, terms), ModeTerm
}

// scoreAny keeps hits scoring above zero against any of terms.
func (e *Engine) scoreAny(hits []Hit, terms []string) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if score := e.scorer.Score(h.Opportunity, terms); score > 0 {
			out = append(out, Hit{Opportunity: h.Opportunity, Score: h.Score + score})
		}
	}
	return out
}

// inGroup keeps hits whose disciplines intersect the group, the same
// membership Facets counts. The text score only ranks them.
func (e *Engine) inGroup(hits []Hit, group taxonomy.Group) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if e.taxonomy.Intersect(group.Name, h.Opportunity.Disciplines) == 0 {
			continue
		}
		score := e.scorer.Score(h.Opportunity, group.Synonyms)
		out = append(out, Hit{Opportunity: h.Opportunity, Score: h.Score + score})
	}
	return out
}

// rank orders by descending score; ties keep snapshot order.
func rank(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

// splitTerms splits on commas and normalizes, dropping empty terms.
func splitTerms(q string) []string {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	var terms []string
	for _, part := range strings.Split(q, ",") {
		if t := taxonomy.Normalize(part); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func parseMonth(raw string) (time.Month, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 12 {
		return 0, fmt.Errorf("invalid month %q: expected 1-12", raw)
	}
	return time.Month(n), nil
}

// filterMonth keeps records closing in month. Records without a date are
// kept only when withNoDate is set.
func filterMonth(opps []*domain.Opportunity, month time.Month, withNoDate bool) []*domain.Opportunity {
	out := make([]*domain.Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.ClosingDate.IsNoDate() {
			if withNoDate {
				out = append(out, o)
			}
			continue
		}
		if o.ClosingDate.Month() == month {
			out = append(out, o)
		}
	}
	return out
}

func filterNoDate(opps []*domain.Opportunity) []*domain.Opportunity {
	out := make([]*domain.Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.ClosingDate.IsNoDate() {
			out = append(out, o)
		}
	}
	return out
}

func unscored(opps []*domain.Opportunity) []Hit {
	hits := make([]Hit, len(opps))
	for i, o := range opps {
		hits[i] = Hit{Opportunity: o}
	}
	return hits
}

func newResult(mode string, hits []Hit) Result {
	if hits == nil {
		hits = []Hit{}
	}
	return Result{Items: hits, Total: len(hits), Mode: mode}
}

func invalid(mode, diagnostic string) Result {
	r := newResult(mode, nil)
	r.Diagnostics = []string{diagnostic}
	return r
}
