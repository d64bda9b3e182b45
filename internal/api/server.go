// Package api serves the SnapMed HTTP interface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/snapmed/internal/auth"
	"github.com/ppiankov/snapmed/internal/logging"
	"github.com/ppiankov/snapmed/internal/metrics"
	"github.com/ppiankov/snapmed/internal/model"
)

// Analyzer runs the enrichment pipeline
type Analyzer interface {
	Enrich(ctx context.Context, imageBase64 string) (*model.EnrichmentResult, error)
}

// HistoryStore persists and lists identifications
type HistoryStore interface {
	Append(ctx context.Context, ownerID string, lines []string, drugInfo *model.DrugMetadata) (string, error)
	ListByOwner(ctx context.Context, ownerID string) []model.HistoryRecord
}

// Server wires the routes to the pipeline, the store and the session gate
type Server struct {
	Echo *echo.Echo

	config   *model.Config
	analyzer Analyzer
	history  HistoryStore
	gate     auth.Gate
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

// Option configures a Server
type Option func(*Server)

// WithMetrics exposes /metrics when enabled in config
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a server and registers all routes
func New(cfg *model.Config, analyzer Analyzer, history HistoryStore, gate auth.Gate, opts ...Option) *Server {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	s := &Server{
		Echo:     echo.New(),
		config:   cfg,
		analyzer: analyzer,
		history:  history,
		gate:     gate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = s.handleError

	s.configureMiddleware()
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/health", s.health)
	s.Echo.POST("/analyze-base64", s.analyze, auth.OptionalAuth(s.gate, s.logger))

	history := s.Echo.Group("/api/history", auth.RequireAuth(s.gate, s.logger))
	history.POST("", s.saveHistory)
	history.GET("", s.listHistory)

	s.Echo.GET("/api/auth/session", s.checkSession)
	s.Echo.POST("/api/auth/logout", s.logout)

	if s.config.Server.Metrics && s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Server.Address,
		Handler:      s.Echo,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", srv.Addr).Info("server listening")
		errCh <- s.Echo.StartServer(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.requestLogger())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc:  s.allowOrigin,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestedWith},
	}))
	s.Echo.Use(middleware.BodyLimit(s.bodyLimit()))
}

// allowOrigin accepts configured origins. Outside production every origin is accepted.
func (s *Server) allowOrigin(origin string) (bool, error) {
	if !s.config.IsProduction() {
		return true, nil
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == origin {
			return true, nil
		}
	}
	s.logger.WithField("origin", origin).Warn("blocked by CORS")
	return false, nil
}

func (s *Server) bodyLimit() string {
	if s.config.Server.BodyLimit == "" {
		return "10M"
	}
	return s.config.Server.BodyLimit
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.logger.WithFields(logrus.Fields{
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.Round(time.Millisecond),
				"remote_ip": v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	})
}
