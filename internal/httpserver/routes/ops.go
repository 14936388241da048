package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// registerOps mounts liveness, infra and metrics. Only /healthz is open to
// every client.
func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	guarded := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	guarded.Get("/infra", handlers.Infra(d))
	if d.Metrics != nil {
		guarded.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
}
