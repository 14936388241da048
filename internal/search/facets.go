package search

import "github.com/MrSnakeDoc/opportunities/internal/domain"

// FacetCount is the number of general-bucket records in one discipline group.
type FacetCount struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Facets counts, per group in configuration order, the general-bucket
// records whose disciplines intersect the group's synonyms. A record counts
// toward every group it intersects.
func (e *Engine) Facets(snap *domain.Snapshot) []FacetCount {
	groups := e.taxonomy.Groups()
	out := make([]FacetCount, len(groups))
	for i, g := range groups {
		out[i] = FacetCount{Name: g.Name, Label: g.Label}
	}
	if snap == nil {
		return out
	}

	for _, o := range snap.General {
		for i, g := range groups {
			if e.taxonomy.Intersect(g.Name, o.Disciplines) > 0 {
				out[i].Count++
			}
		}
	}
	return out
}
