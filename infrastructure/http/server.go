package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tripdesk/tripdesk/infrastructure/http/middleware"
	"github.com/tripdesk/tripdesk/infrastructure/http/response"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

// RouteRegistrar is implemented by every handler.
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

type ServerConfig struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	CorrelationHeader string
	// CORS is nil when cross-origin access is disabled.
	CORS *middleware.CORSConfig
	// Health contributes extra fields to GET /health.
	Health func(ctx context.Context) map[string]interface{}
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger logger.Logger
}

// NewRouter registers handlers and the shared middleware stack.
func NewRouter(config ServerConfig, log logger.Logger, handlers ...RouteRegistrar) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{"status": "healthy"}
		if config.Health != nil {
			for k, v := range config.Health(r.Context()) {
				data[k] = v
			}
		}
		response.Success(w, http.StatusOK, "success", data)
	}).Methods(http.MethodGet)

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	var handler http.Handler = router
	handler = middleware.RequestLogger(log)(handler)
	handler = middleware.Recovery(log)(handler)
	if config.CORS != nil {
		handler = middleware.CORS(*config.CORS)(handler)
	}
	return middleware.CorrelationID(config.CorrelationHeader)(handler)
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, log logger.Logger, handlers ...RouteRegistrar) *Server {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 15 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 15 * time.Second
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}
	return &Server{
		logger: log,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      NewRouter(config, log, handlers...),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
