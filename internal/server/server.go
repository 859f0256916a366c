package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"studyzone/internal/config"
	"studyzone/internal/logger"
	"studyzone/internal/metrics"
	rtr "studyzone/internal/router"
)

func Routes(h *rtr.Handlers, m *metrics.Metrics, l *zap.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		logger.Middleware(l), // Log API Request Calls
		m.Middleware,
	)

	router.Route("/", func(r chi.Router) {
		r.Mount("/", rtr.HealthRoutes())
		r.Method(http.MethodGet, "/metrics", m.Handler())
	})

	router.Route("/v1", func(r chi.Router) {
		r.Mount("/session", h.SessionRoutes())
		r.Mount("/courses", h.CourseRoutes())
	})

	return router
}

// Server is the HTTP front of the backend.
type Server struct {
	http            *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

func New(cfg *config.ServerConfig, router http.Handler, l *zap.Logger) *Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedHeaders:   []string{"Content-Type"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PATCH"},
		AllowCredentials: true,
	})

	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%v", cfg.Port),
			Handler:           c.Handler(router),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          l,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run listens on the configured port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then gives outstanding requests the shutdown
// timeout to finish. Request contexts derive from ctx, so streaming handlers end when it is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("server is listening", zap.String("addr", ln.Addr().String()))
		errs <- s.http.Serve(ln)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("could not stop server gracefully", zap.Error(err))
		if err := s.http.Close(); err != nil {
			return fmt.Errorf("could not force stop server: %w", err)
		}
	}
	return nil
}
