package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SnowDream39/vocamap-backend/internal/auth"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	Auth           auth.Config
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter wires the middleware chain and every route onto a chi router.
func NewRouter(cfg RouterConfig, h *Handler) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	credentials := !slices.Contains(origins, "*")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(h.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Timeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))
	router.Use(auth.NewMiddleware(cfg.Auth).Wrap)

	router.Get("/healthz", healthz)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", h.listActivities)
			r.With(auth.Require).Post("/", h.createActivity)

			r.Get("/search", h.search)
			r.Get("/nearby", h.nearby)
			r.Get("/time-point", h.timePoint)
			r.Get("/time-period", h.timePeriod)
			r.Get("/by-owner", h.byOwner)
			r.Get("/by-participant", h.byParticipant)
			r.Get("/by-tag", h.byTag)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getActivity)
				r.Get("/participants", h.participants)

				r.Group(func(r chi.Router) {
					r.Use(auth.Require)
					r.Put("/", h.updateActivity)
					r.Patch("/", h.updateActivity)
					r.Delete("/", h.deleteActivity)
					r.Post("/join", h.join)
					r.Post("/leave", h.leave)
					r.Post("/tags", h.addTags)
				})
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/category", h.categoryTags)
			r.Get("/popular", h.popularArtistTags)

			r.Group(func(r chi.Router) {
				r.Use(auth.Require)
				r.Post("/artist", h.createArtistTag)
				r.Post("/category", h.createCategoryTag)
				r.Delete("/{id}", h.deleteTag)
			})
		})

		r.With(auth.Require).Post("/users/me/tags", h.addUserTags)
	})

	return router
}
