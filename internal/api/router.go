package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/api/middleware"
	"github.com/DenisLeme/pitchlab/internal/config"
	"github.com/DenisLeme/pitchlab/internal/handlers"
)

// Digest endpoints share one fixed rate limit window per origin.
const (
	digestRateLimit  = 15
	digestRateWindow = 60 * time.Second
)

// NewRouter creates and configures the HTTP router. redisClient may be nil;
// the digest rate limiter then keeps its counters in process memory.
func NewRouter(cfg *config.Config, logger zerolog.Logger, h *handlers.Handler, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - the browser frontend runs on a different origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", h.CreateRoom)
		r.Get("/", h.ListRooms)

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/join", h.JoinRoom)
			r.Get("/messages", h.ListMessages)
			r.Post("/messages", h.PostMessage)
			r.Post("/ideas", h.CreateIdea)
			r.Get("/tags", h.RoomTags)
			r.Post("/typing", h.Typing)
			r.Get("/events", h.Events)
		})
	})

	r.Post("/ideas/{id}/vote", h.VoteIdea)
	r.Get("/messages/{id}/tags", h.MessageTags)

	// Digest endpoints carry the cost of a completion call, so only they
	// sit behind the rate limiter.
	limiter := middleware.NewRateLimiter(digestRateLimit, digestRateWindow, redisClient, logger, cfg.RateLimitWhitelist)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Post("/ai/summary", h.DigestSummary)
		r.Post("/ai/tags", h.DigestTags)
		r.Post("/ai/pitch", h.DigestPitch)
	})

	return r
}
