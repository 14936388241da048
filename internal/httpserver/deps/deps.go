package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/metrics"
	"github.com/MrSnakeDoc/opportunities/internal/saved"
	"github.com/MrSnakeDoc/opportunities/internal/search"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

// Catalog is what the handlers need from catalog.Service.
type Catalog interface {
	Taxonomy() *taxonomy.Taxonomy
	Current(ctx context.Context) (*domain.Snapshot, error)
	Cached(ctx context.Context) (*domain.Snapshot, bool)
	Search(ctx context.Context, p search.Params) (search.Result, error)
	Facets(ctx context.Context) ([]search.FacetCount, error)
	Recommend(ctx context.Context, userID string, p search.Params) (search.Result, error)
	Preferences(ctx context.Context, userID string) (domain.UserPreference, error)
	SetPreferences(ctx context.Context, pref domain.UserPreference) (domain.UserPreference, error)
	Save(ctx context.Context, userID string, ids []string) (int, error)
	Unsave(ctx context.Context, userID, id string) (bool, error)
	Saved(ctx context.Context, userID string) (saved.List, error)
	Similar(ctx context.Context, userID string, limit int) ([]saved.SimilarHit, error)
}

// Pinger reports whether the shared cache answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	Catalog         Catalog
	Metrics         *metrics.Metrics // nil disables /metrics
	Redis           Pinger           // nil reports the cache as not configured
	AllowedHosts    []string         // Host headers allowed to call /reload
	AllowedCIDRS    []string         // IPs allowed to call /reload, /readyz and /infra
	TrustProxy      bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitPerMin int              // requests per minute per client IP on /api, 0 = unlimited
	RateLimitBurst  int
	ReloadTrigger   chan struct{} // Channel to trigger a manual snapshot rebuild
}
