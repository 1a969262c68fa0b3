package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	querybus "trendscout/application/queries/bus"
	"trendscout/interfaces/http/rest/handlers"
	"trendscout/interfaces/http/rest/middleware"
	pkgerrors "trendscout/pkg/errors"
	"trendscout/pkg/observability"
)

// APIVersion is reported in the X-API-Version header
const APIVersion = "v1"

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds the HTTP-facing settings
type RouterConfig struct {
	EnableCORS         bool
	AllowedOrigins     []string
	ExplorationTimeout time.Duration
	Debug              bool
}

// Router creates and configures the HTTP router
type Router struct {
	explore  handlers.ExploreCommandHandler
	insights handlers.InsightsCommandHandler
	queryBus *querybus.QueryBus
	metrics  *observability.Collector
	checks   map[string]ReadinessCheck
	config   RouterConfig
	logger   *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	explore handlers.ExploreCommandHandler,
	insights handlers.InsightsCommandHandler,
	queryBus *querybus.QueryBus,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		explore:  explore,
		insights: insights,
		queryBus: queryBus,
		metrics:  metrics,
		checks:   make(map[string]ReadinessCheck),
		config:   config,
		logger:   logger,
	}
}

// AddReadinessCheck registers a dependency probe for /ready
func (rt *Router) AddReadinessCheck(name string, check ReadinessCheck) {
	rt.checks[name] = check
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(versionMiddleware)

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.UserIDHeader},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.config.Debug)
	explorationHandler := handlers.NewExplorationHandler(
		rt.explore,
		rt.insights,
		rt.queryBus,
		errorHandler,
		rt.config.ExplorationTimeout,
		rt.logger,
	)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/explorations", func(r chi.Router) {
			r.Post("/", explorationHandler.CreateExploration)
			r.Get("/", explorationHandler.ListExplorations)
			r.Get("/{explorationID}", explorationHandler.GetExploration)
			r.Get("/{explorationID}/visualization", explorationHandler.GetVisualization)
			r.Post("/{explorationID}/insights", explorationHandler.GenerateInsights)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck runs every registered probe with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
			rt.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
		}
	}

	if len(failures) > 0 {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failures,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", APIVersion)
		next.ServeHTTP(w, r)
	})
}
