package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		if d.RateLimitPerMin > 0 {
			api.Use(mw.RateLimit(mw.RateLimitConfig{
				Burst:             d.RateLimitBurst,
				RefillPerIPPerMin: d.RateLimitPerMin,
				MaxEntries:        10000,
				TrustProxy:        d.TrustProxy,
			}))
		}

		api.Get("/opportunities", handlers.Opportunities(d))
		api.Get("/search", handlers.Search(d))
		api.Get("/facets", handlers.Facets(d))

		api.Route("/users/{userID}", func(u chi.Router) {
			u.Get("/recommendations", handlers.Recommendations(d))
			u.Get("/preferences", handlers.Preferences(d))
			u.Put("/preferences", handlers.SetPreferences(d))
			u.Get("/saved", handlers.Saved(d))
			u.Post("/saved", handlers.Save(d))
			u.Delete("/saved/{oppID}", handlers.Unsave(d))
			u.Get("/similar", handlers.Similar(d))
		})
	})
}
