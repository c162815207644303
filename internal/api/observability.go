package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels, to keep a
// malicious client from inflating label cardinality).
var (
	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "battle_turn_duration_seconds",
		Help:    "Time spent resolving one turn",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	activeBattles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "battle_active_count",
		Help: "Number of battles currently tracked by the registry",
	})

	battlesEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "battle_ended_total",
		Help: "Total battles that have reached a win/draw condition",
	})

	fxlangCallbackEvals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fxlang_callback_evaluations_total",
		Help: "Total fxlang callback evaluations run by the effect manager",
	})

	effectCacheHitRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "effect_cache_hit_ratio",
		Help: "Most recently observed effect-manager program cache hit ratio",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: "rate_limit", "origin", "ws_limit"

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket log-stream connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket log messages sent",
	})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be "127.0.0.1:6060" in production
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// StartDebugServer starts the internal observability server.
// CRITICAL: this MUST bind to localhost only, to prevent pprof-based DoS.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("[observability] debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("[observability] debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("[observability] debug server on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("[observability] debug server error: %v", err)
		}
	}()

	return nil
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTurnDuration records how long one AdvanceTurn call took.
func RecordTurnDuration(d time.Duration) { turnDuration.Observe(d.Seconds()) }

// UpdateActiveBattles sets the active-battle-count gauge.
func UpdateActiveBattles(count int) { activeBattles.Set(float64(count)) }

// RecordBattleEnded increments the battles-ended counter.
func RecordBattleEnded() { battlesEnded.Inc() }

// RecordCallbackEvals adds delta fxlang callback evaluations observed
// since the last call (the effect manager tracks a running total per
// battle; callers report the increase).
func RecordCallbackEvals(delta int64) {
	if delta > 0 {
		fxlangCallbackEvals.Add(float64(delta))
	}
}

// RecordEffectCacheRatio updates the cache-hit-ratio gauge from a
// hits/misses pair.
func RecordEffectCacheRatio(hits, misses int) {
	total := hits + misses
	if total == 0 {
		return
	}
	effectCacheHitRatio.Set(float64(hits) / float64(total))
}

// RecordConnectionRejected increments the rejection counter. reason must
// be one of: "rate_limit", "origin", "ws_limit".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates the WebSocket connection-count gauge.
func UpdateWSConnections(count int) { wsConnectionsActive.Set(float64(count)) }

// IncrementWSMessages increments the WebSocket message counter.
func IncrementWSMessages() { wsMessagesTotal.Inc() }

// metricsMiddleware records request latency/count for every route,
// recorded once per request.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordRequest(r.Method, routePattern(r), rw.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// routePattern returns the matched chi route pattern (e.g.
// "/battles/{id}/choice") so battle ids never become label values;
// requests that matched no route share the "unmatched" label.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
