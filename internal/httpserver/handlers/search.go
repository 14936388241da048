package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
	"github.com/MrSnakeDoc/opportunities/internal/search"
)

type bucketsResponse struct {
	SnapshotID  string                `json:"snapshot_id"`
	BuiltAt     time.Time             `json:"built_at"`
	General     []*domain.Opportunity `json:"general"`
	ClosingSoon []*domain.Opportunity `json:"closing_soon"`
	Featured    []*domain.Opportunity `json:"featured"`
}

// Opportunities returns the three buckets of the current snapshot.
func Opportunities(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := d.Catalog.Current(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, bucketsResponse{
			SnapshotID:  snap.ID,
			BuiltAt:     snap.BuiltAt.UTC(),
			General:     snap.General,
			ClosingSoon: snap.ClosingSoon,
			Featured:    snap.Featured,
		})
	}
}

// Search runs a ranked query against the current snapshot.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Catalog.Search(r.Context(), searchParams(r))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// Facets returns per-group record counts.
func Facets(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		facets, err := d.Catalog.Facets(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"facets": facets})
	}
}

// searchParams reads the query inputs. Malformed flags read as false; the
// engine reports malformed months and disciplines as diagnostics.
func searchParams(r *http.Request) search.Params {
	q := r.URL.Query()
	return search.Params{
		Clear:      flag(q.Get("clear")),
		Month:      strings.TrimSpace(q.Get("month")),
		NoDate:     flag(q.Get("no_date")),
		Query:      q.Get("q"),
		Discipline: strings.TrimSpace(q.Get("discipline")),
	}
}

func flag(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
