// Package server exposes the impact engine over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"impactanalyzer/core/internal/engine"
)

// Options configures the HTTP server
type Options struct {
	Addr string

	// CORSOrigin, if set, is allowed to call the API from a browser.
	CORSOrigin string

	Logger *slog.Logger
}

// Server is the impactd HTTP front end
type Server struct {
	opts   Options
	logger *slog.Logger
	router *gin.Engine
}

// New builds the router: the API under /v1 and Prometheus metrics at /metrics.
func New(eng *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "server")

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware("impactd"), requestMiddleware())
	if opts.CORSOrigin != "" {
		router.Use(corsMiddleware(opts.CORSOrigin))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(eng, logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{opts: opts, logger: logger, router: router}
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving on %s: %w", s.opts.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
