package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/albaliriagomez/proyectoReusetech/internal/api/middleware"
	"github.com/albaliriagomez/proyectoReusetech/internal/config"
	"github.com/albaliriagomez/proyectoReusetech/internal/handlers"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, rdb *redis.Client, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware first to capture all requests
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (pass-through when Redis is not configured)
	limiter := middleware.NewRateLimiter(rdb, logger, cfg.RateLimitWhitelist)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Messaging API
	r.Post("/api/messages", h.SendMessage)
	r.Get("/api/messages/{publicationID}/{userA}/{userB}", h.GetHistory)
	r.Get("/api/conversations/{userID}", h.GetConversations)

	// Realtime delivery
	r.Get("/ws", h.Websocket)

	return r
}
