// Package httpserver exposes the assistant services over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/javiermolinar/hassist/internal/assistant"
	"github.com/javiermolinar/hassist/internal/metrics"
)

// HTTPServer wraps the gin engine with graceful shutdown.
type HTTPServer struct {
	addr            string
	shutdownTimeout time.Duration
	engine          *gin.Engine
	log             zerolog.Logger
}

// New builds the server for the installations held by manager.
func New(addr string, shutdownTimeout time.Duration, manager *assistant.Manager, log zerolog.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	log = log.With().Str("component", "http").Logger()
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log), observe())

	h := &handlers{manager: manager, log: log}
	registerRoutes(engine, h)

	return &HTTPServer{
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		engine:          engine,
		log:             log,
	}
}

// Handler returns the underlying http.Handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerRoutes(engine *gin.Engine, h *handlers) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/v1")
	v1.GET("/entries", h.listEntries)

	entry := v1.Group("/entries/:id", h.loadEntry)
	entry.GET("/status", h.status)
	entry.GET("/conversations", h.conversations)
	entry.GET("/suggestions", h.suggestions)
	entry.POST("/suggestions", h.addSuggestion)
	entry.POST("/services/ask", h.ask)
	entry.POST("/services/analyze", h.analyze)
	entry.POST("/services/execute_suggestion", h.executeSuggestion)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
