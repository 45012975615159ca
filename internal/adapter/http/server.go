package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fixora/tasktrail/internal/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig represents server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string

	// TrustedProxies may set the client address through X-Forwarded-For
	TrustedProxies []string

	// MetricsPath is served from Gatherer when both are set
	MetricsPath string
	Gatherer    prometheus.Gatherer

	// HealthCheck backs GET /health; nil always reports healthy
	HealthCheck func(ctx context.Context) error
}

// Handlers groups the route handlers mounted by the server
type Handlers struct {
	Auth     *AuthHandler
	Tasks    *TaskHandler
	Users    *UserHandler
	Teams    *TeamHandler
	Comments *CommentHandler
	History  *HistoryHandler
}

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	log    logger.Logger
}

// NewServer wires middleware and routes. Middleware runs in the order
// recovery, correlation id, request scope, client address, logging, CORS;
// protected routes then pass through RequireAuth.
func NewServer(config ServerConfig, handlers Handlers, auth *AuthMiddleware, metrics *Metrics, log logger.Logger) *Server {
	router := mux.NewRouter()

	router.Use(recoveryMiddleware(log))
	router.Use(correlationMiddleware)
	router.Use(requestScopeMiddleware)
	router.Use(clientIPMiddleware(config.TrustedProxies))
	router.Use(loggingMiddleware(log, metrics))
	router.Use(corsMiddleware(config.CORSOrigins))

	router.HandleFunc("/health", healthHandler(config.HealthCheck)).Methods(http.MethodGet)
	if config.MetricsPath != "" && config.Gatherer != nil {
		router.Handle(config.MetricsPath, promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Paths unknown to the protected subrouter fall through to the root router
	public := router
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(auth.RequireAuth)

	if handlers.Auth != nil {
		handlers.Auth.RegisterRoutes(public, protected)
	}
	if handlers.Tasks != nil {
		handlers.Tasks.RegisterRoutes(protected)
	}
	if handlers.Comments != nil {
		handlers.Comments.RegisterRoutes(protected)
	}
	if handlers.Users != nil {
		handlers.Users.RegisterRoutes(protected)
	}
	if handlers.Teams != nil {
		handlers.Teams.RegisterRoutes(protected)
	}
	if handlers.History != nil {
		handlers.History.RegisterRoutes(protected)
	}

	// Preflight requests must reach the CORS middleware even without a route
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return &Server{
		router: router,
		log:    log,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeErrorResponse(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service unavailable")
				return
			}
		}
		writeSuccess(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
	}
}
