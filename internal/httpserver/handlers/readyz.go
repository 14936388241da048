package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready      bool       `json:"ready"`
	SnapshotID string     `json:"snapshot_id,omitempty"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
}

// Readyz answers 503 until a snapshot is available. It reads the cache
// only and never starts a rebuild.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := d.Catalog.Cached(r.Context())
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false})
			return
		}
		builtAt := snap.BuiltAt.UTC()
		writeJSON(w, http.StatusOK, readyzResponse{
			Ready:      true,
			SnapshotID: snap.ID,
			BuiltAt:    &builtAt,
		})
	}
}
