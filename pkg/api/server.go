// Package api wires the HTTP routes, middleware and metrics of the fair value service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	configAPI "fair_value/pkg/api/config"
	"fair_value/pkg/api/respond"
	screenerAPI "fair_value/pkg/api/screener"
	signalsAPI "fair_value/pkg/api/signals"
	valuationAPI "fair_value/pkg/api/valuation"
	watchlistAPI "fair_value/pkg/api/watchlist"
	"fair_value/pkg/core/config"
	"fair_value/pkg/core/store"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Deps are the collaborators the routes are served from.
type Deps struct {
	Config    *config.Config
	Builder   valuationAPI.ReportBuilder
	Watchlist store.Watchlist
	Screener  screenerAPI.Screener
}

// Server is the HTTP front end.
type Server struct {
	router  *mux.Router
	server  *http.Server
	metrics *Metrics
	cfg     *config.Config
}

// NewServer builds the router and the underlying http.Server.
func NewServer(deps Deps) *Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		router:  mux.NewRouter(),
		metrics: NewMetrics(),
		cfg:     cfg,
	}
	s.setupRoutes(deps)
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	valuation := valuationAPI.NewHandler(deps.Builder, deps.Watchlist, s.cfg.DefaultAssumptions())
	watchlist := watchlistAPI.NewHandler(deps.Watchlist)
	screener := screenerAPI.NewHandler(deps.Screener)
	cfgHandler := configAPI.NewHandler(s.cfg)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", cfgHandler.HandleConfig).Methods(http.MethodGet)

	api.HandleFunc("/valuation/dcf", valuation.HandleDCF).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/valuation/{ticker}", valuation.HandleReport).Methods(http.MethodGet)
	api.HandleFunc("/portfolio", valuation.HandlePortfolio).Methods(http.MethodGet)

	api.HandleFunc("/signals/rows", signalsAPI.HandleRows).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/signals/findings", signalsAPI.HandleFindings).Methods(http.MethodPost, http.MethodOptions)

	api.HandleFunc("/watchlist", watchlist.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/watchlist", watchlist.HandleAdd).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/watchlist/{ticker}", watchlist.HandleRemove).Methods(http.MethodDelete, http.MethodOptions)

	api.HandleFunc("/screener", screener.HandleScreen).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusNotFound, respond.ErrorBody{Error: "not found"})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestIDMiddleware propagates or assigns X-Request-ID.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs each request and records its metrics.
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		elapsed := time.Since(start)

		s.metrics.Observe(r, wrapper.statusCode, elapsed)
		log.Info().
			Str("request_id", RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", elapsed).
			Msg("request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.cfg.Server.AllowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestID returns the request id stored by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Start serves until the server is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// responseWrapper captures the status code for logging.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
