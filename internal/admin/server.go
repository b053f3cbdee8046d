package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cloudwishcom/rcpt-verify/internal/metrics"
)

// Server exposes health and runtime counters over HTTP
type Server struct {
	addr    string
	enabled bool
	metrics *metrics.Registry
	logger  *zap.Logger
	srv     *http.Server
}

// NewServer creates a new admin server
func NewServer(addr string, enabled bool, registry *metrics.Registry, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		enabled: enabled,
		metrics: registry,
		logger:  logger,
	}
}

// Routes builds the admin router
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.metrics.Snapshot()); err != nil {
			s.logger.Error("Failed to encode stats", zap.Error(err))
		}
	})

	return r
}

// Start starts the admin server if it is enabled
func (s *Server) Start() error {
	if !s.enabled {
		s.logger.Debug("Admin server disabled")
		return nil
	}

	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	s.logger.Info("Admin server starting", zap.String("address", s.addr))

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Admin server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the admin server
func (s *Server) Stop() error {
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}
