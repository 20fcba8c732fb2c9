// Package api serves article search, suggestions and health over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/letmevibethatforyou/wikisearch"
	"github.com/letmevibethatforyou/wikisearch/suggest"
)

// DefaultCORSOrigin is allowed when no origins are configured.
const DefaultCORSOrigin = "http://localhost:3000"

const (
	welcomeMessage  = "Welcome to the Wiki Search API."
	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP API in front of a wikisearch.Searcher.
type Server struct {
	echo      *echo.Echo
	searcher  wikisearch.Searcher
	suggester *suggest.Service
	logger    *slog.Logger
	origins   []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithSuggester replaces the suggestion service built on the searcher.
func WithSuggester(svc *suggest.Service) Option {
	return func(s *Server) {
		s.suggester = svc
	}
}

// New builds the API around searcher. Health checks use searcher's Ping when
// it implements wikisearch.Pinger.
func New(searcher wikisearch.Searcher, opts ...Option) *Server {
	s := &Server{
		searcher: searcher,
		logger:   slog.Default(),
		origins:  []string{DefaultCORSOrigin},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.suggester == nil {
		s.suggester = suggest.New(searcher, suggest.WithLogger(s.logger))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			s.logger.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	e.GET("/", s.root)
	e.GET("/api/health", s.health)
	e.GET("/api/search", s.searchGet)
	e.POST("/api/search", s.searchPost)
	e.GET("/api/suggest", s.suggest)

	s.echo = e
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "api listening", "addr", addr, "cors_origins", s.origins)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "api server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "api shutdown failed")
	}
	return nil
}

// ParseOrigins splits a comma separated origin list, optionally wrapped in
// brackets with quoted entries. An empty list yields DefaultCORSOrigin.
func ParseOrigins(raw string) []string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "[") && strings.HasSuffix(cleaned, "]") {
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	var origins []string
	for _, part := range strings.Split(cleaned, ",") {
		origin := strings.Trim(strings.TrimSpace(part), `"'`)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{DefaultCORSOrigin}
	}
	return origins
}
