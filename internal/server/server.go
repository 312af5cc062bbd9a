// Package server provides the HTTP server and routing for FundGuard.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/fundguard/fundguard/internal/config"
	"github.com/fundguard/fundguard/internal/database"
	"github.com/fundguard/fundguard/internal/events"
	alertshandlers "github.com/fundguard/fundguard/internal/modules/alerts/handlers"
	compliancehandlers "github.com/fundguard/fundguard/internal/modules/compliance/handlers"
	fundshandlers "github.com/fundguard/fundguard/internal/modules/funds/handlers"
	ruleshandlers "github.com/fundguard/fundguard/internal/modules/rules/handlers"
	tradinghandlers "github.com/fundguard/fundguard/internal/modules/trading/handlers"
	universehandlers "github.com/fundguard/fundguard/internal/modules/universe/handlers"
)

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Config   *config.Config
	DB       *database.DB
	EventBus *events.Bus

	FundHandlers       *fundshandlers.Handler
	UniverseHandlers   *universehandlers.Handler
	RuleHandlers       *ruleshandlers.Handler
	AlertHandlers      *alertshandlers.Handler
	ComplianceHandlers *compliancehandlers.Handler
	TradingHandlers    *tradinghandlers.Handler
	SystemHandlers     *SystemHandlers
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	db             *database.DB
	cfg            *config.Config
	eventBus       *events.Bus
	funds          *fundshandlers.Handler
	universe       *universehandlers.Handler
	rules          *ruleshandlers.Handler
	alerts         *alertshandlers.Handler
	compliance     *compliancehandlers.Handler
	trading        *tradinghandlers.Handler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		db:             cfg.DB,
		cfg:            cfg.Config,
		eventBus:       cfg.EventBus,
		funds:          cfg.FundHandlers,
		universe:       cfg.UniverseHandlers,
		rules:          cfg.RuleHandlers,
		alerts:         cfg.AlertHandlers,
		compliance:     cfg.ComplianceHandlers,
		trading:        cfg.TradingHandlers,
		systemHandlers: cfg.SystemHandlers,
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check outside /api so load balancers can probe it unauthenticated
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (SSE)
		eventsStreamHandler := NewEventsStreamHandler(s.eventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		s.funds.RegisterRoutes(r)
		s.universe.RegisterRoutes(r)
		s.rules.RegisterRoutes(r)
		s.alerts.RegisterRoutes(r)
		s.compliance.RegisterRoutes(r)
		s.trading.RegisterRoutes(r)

		if s.systemHandlers != nil {
			s.systemHandlers.RegisterRoutes(r)
		}
	})
}

// handleHealth is a lightweight liveness probe. It pings the database so a
// wedged SQLite connection shows up as unhealthy rather than silently stalling
// trade submissions.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.db.Conn().PingContext(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Health check database ping failed")
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
