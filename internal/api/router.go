package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router, kept as a plain dependency-injection struct so tests can spin
// one up with httptest.NewServer without a real Registry.
type RouterConfig struct {
	Registry *Registry

	// RateLimiter is an optional pre-configured rate limiter. If nil, one
	// is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins. If nil,
	// uses a permissive localhost-only default suited to local dev.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks).
	DisableLogging bool
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It opens no listeners. When cfg.RateLimiter is nil it builds an
// IPRateLimiter, whose constructor starts that limiter's cleanup
// goroutine; with a RateLimiter supplied, no goroutine is started here.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)
	r.Use(metricsMiddleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{registry: cfg.Registry}

	r.Route("/battles", func(r chi.Router) {
		r.Post("/", h.handleCreateBattle)
		r.Post("/{id}/choice", h.handleChoice)
		r.Get("/{id}/request", h.handleGetRequest)
		r.Get("/{id}/log", h.handleGetLog)
		r.Get("/{id}/stream", h.handleStream)
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("battle engine running\n"))
	})

	return r
}
