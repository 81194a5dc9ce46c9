// Package http serves a read-mostly HTTP view of agentpay payment requests
// next to the MCP tools: health, Prometheus metrics, payment request lookup
// and on-demand reconciliation.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/logger"
	"github.com/x402-foundation/agentpay/metrics"
)

const shutdownTimeout = 5 * time.Second

// ServerOptions configures the HTTP surface
type ServerOptions struct {
	Logger         logger.Logger
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	MCPHandler     http.Handler
	RequestTimeout time.Duration
}

// Options is a functional option for NewServer
type Options func(*ServerOptions)

// WithLogger sets the logger used for request logs
func WithLogger(l logger.Logger) Options {
	return func(o *ServerOptions) {
		o.Logger = l
	}
}

// WithMetrics records a counter and latency per route
func WithMetrics(r metrics.Recorder) Options {
	return func(o *ServerOptions) {
		o.Metrics = r
	}
}

// WithMetricsHandler mounts h (usually promhttp) at /metrics
func WithMetricsHandler(h http.Handler) Options {
	return func(o *ServerOptions) {
		o.MetricsHandler = h
	}
}

// WithMCPHandler mounts an MCP SSE handler at /mcp/sse
func WithMCPHandler(h http.Handler) Options {
	return func(o *ServerOptions) {
		o.MCPHandler = h
	}
}

// WithRequestTimeout bounds every API request
func WithRequestTimeout(d time.Duration) Options {
	return func(o *ServerOptions) {
		o.RequestTimeout = d
	}
}

// Server is the gin backed HTTP surface
type Server struct {
	svc    *agentpay.Service
	opts   ServerOptions
	engine *gin.Engine
}

// NewServer builds the router over svc
func NewServer(svc *agentpay.Service, opts ...Options) *Server {
	o := ServerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	o.Logger = logger.OrNoop(o.Logger)
	o.Metrics = metrics.OrNoop(o.Metrics)

	s := &Server{svc: svc, opts: o}
	s.engine = s.routes()
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("http server listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", s.health)
	if s.opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(s.opts.MetricsHandler))
	}
	if s.opts.MCPHandler != nil {
		r.Any("/mcp/sse", gin.WrapH(s.opts.MCPHandler))
	}

	v1 := r.Group("/v1", s.timeout())
	v1.GET("/chains", s.listChains)
	v1.GET("/payments", s.listPayments)
	v1.GET("/payments/:id", s.getPayment)
	v1.POST("/payments/:id/check", s.checkPayment)
	return r
}
