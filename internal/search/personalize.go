package search

import (
	"sort"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

const (
	prefWeight   = 2
	maxPrefScore = 10
)

// Personalizer re-ranks hits by overlap with a user's preferred disciplines.
type Personalizer struct {
	taxonomy *taxonomy.Taxonomy
}

// NewPersonalizer creates a personalizer.
func NewPersonalizer(tax *taxonomy.Taxonomy) *Personalizer {
	return &Personalizer{taxonomy: tax}
}

// PrefScore is min(10, 2*|P ∩ groups of the record's disciplines| +
// 2*|P ∩ record disciplines|). prefs must be normalized.
func (p *Personalizer) PrefScore(o *domain.Opportunity, prefs map[string]struct{}) int {
	if len(prefs) == 0 {
		return 0
	}

	groups := make(map[string]struct{})
	direct := 0
	for _, d := range o.Disciplines {
		if _, ok := prefs[d]; ok {
			direct++
		}
		for _, g := range p.taxonomy.GroupsOf(d) {
			groups[g] = struct{}{}
		}
	}
	viaGroup := 0
	for g := range groups {
		if _, ok := prefs[g]; ok {
			viaGroup++
		}
	}

	return min(maxPrefScore, prefWeight*viaGroup+prefWeight*direct)
}

// Rank returns a new slice ordered by descending preference score, then
// closing date ascending with undated records last. Ties keep input order.
// The input slice is not modified.
func (p *Personalizer) Rank(hits []Hit, preferred []string) []Hit {
	prefs := make(map[string]struct{}, len(preferred))
	for _, d := range taxonomy.NormalizeAll(preferred) {
		prefs[d] = struct{}{}
	}

	out := make([]Hit, len(hits))
	for i, h := range hits {
		h.PrefScore = p.PrefScore(h.Opportunity, prefs)
		out[i] = h
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PrefScore != b.PrefScore {
			return a.PrefScore > b.PrefScore
		}
		ad, bd := a.Opportunity.ClosingDate, b.Opportunity.ClosingDate
		if ad.IsNoDate() != bd.IsNoDate() {
			return bd.IsNoDate()
		}
		return ad.Before(bd)
	})
	return out
}
