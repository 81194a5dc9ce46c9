package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// observe logs every request and records per-route metrics
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		labels := map[string]string{"chain": c.Query("chain")}
		s.opts.Metrics.IncCounter("http_"+strconv.Itoa(status/100)+"xx", labels)
		s.opts.Metrics.ObserveLatency(c.Request.Method+" "+route, time.Since(start), labels)

		fields := map[string]any{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": time.Since(start),
		}
		if status >= 500 {
			s.opts.Logger.Warn("http request failed", fields)
			return
		}
		s.opts.Logger.Debug("http request", fields)
	}
}

// timeout bounds the request context when a request timeout is configured
func (s *Server) timeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.RequestTimeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
