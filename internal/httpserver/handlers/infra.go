package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool               `json:"ok"`
	Records    *int               `json:"records,omitempty"`
	LastReload string             `json:"last_reload,omitempty"`
	Stats      *domain.BuildStats `json:"stats,omitempty"`
	Version    int                `json:"version,omitempty"`
	Mode       string             `json:"mode,omitempty"`
	Impact     string             `json:"impact,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type infraResponse struct {
	ServingMode string                     `json:"serving_mode"`
	Components  map[string]componentStatus `json:"components"`
}

// Infra reports the state of the snapshot, the shared cache and the
// discipline table.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"snapshot": snapshotStatus(r.Context(), d),
			"redis":    checkRedis(r.Context(), d),
			"taxonomy": {
				OK:      true,
				Version: d.Catalog.Taxonomy().Version(),
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			ServingMode: determineServingMode(components),
			Components:  components,
		})
	}
}

func snapshotStatus(ctx context.Context, d deps.Deps) componentStatus {
	snap, ok := d.Catalog.Cached(ctx)
	if !ok {
		return componentStatus{OK: false, LastReload: "never", Error: "no snapshot available"}
	}
	records := len(snap.General)
	stats := snap.Stats
	return componentStatus{
		OK:         true,
		Records:    &records,
		LastReload: snap.BuiltAt.UTC().Format("2006-01-02 15:04:05"),
		Stats:      &stats,
	}
}

func determineServingMode(components map[string]componentStatus) string {
	// Nothing to serve
	if snap, exists := components["snapshot"]; exists && !snap.OK {
		return "critical"
	}

	// Replicas cannot share snapshots or read saved items
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "optimal"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Redis == nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "snapshot-sharing-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Redis.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "snapshot-sharing-disabled",
			Error:  "unreachable",
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "snapshot-sharing-enabled",
	}
}
