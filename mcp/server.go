package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/logger"
)

// Default server identity
const (
	DefaultServerName    = "agentpay"
	DefaultServerVersion = "0.1.0"
)

// Server wraps an MCP server whose tools call an agentpay.Service
type Server struct {
	svc     *agentpay.Service
	server  *mcpsdk.Server
	log     logger.Logger
	timeout time.Duration
	impl    mcpsdk.Implementation
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the structured logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = logger.OrNoop(l)
	}
}

// WithTimeout bounds every tool call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithImplementation overrides the name and version reported to clients
func WithImplementation(name, version string) Option {
	return func(s *Server) {
		s.impl = mcpsdk.Implementation{Name: name, Version: version}
	}
}

// NewServer creates an MCP server and registers every agentpay tool on it
func NewServer(svc *agentpay.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("mcp: service is required")
	}
	s := &Server{
		svc:  svc,
		log:  logger.NoopLogger{},
		impl: mcpsdk.Implementation{Name: DefaultServerName, Version: DefaultServerVersion},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcpsdk.NewServer(&s.impl, nil)
	for _, def := range s.tools() {
		if err := s.register(def); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

// SSEHandler serves the tools over the MCP SSE transport
func (s *Server) SSEHandler() http.Handler {
	return mcpsdk.NewSSEHandler(func(*http.Request) *mcpsdk.Server {
		return s.server
	}, nil)
}

// Serve runs the server over stdio until ctx is done or the client disconnects
func Serve(ctx context.Context, s *Server) error {
	s.log.Info("mcp server listening on stdio", map[string]any{
		"name":    s.impl.Name,
		"version": s.impl.Version,
	})
	if err := s.server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}

func (s *Server) register(def toolDef) error {
	v, err := newArgValidator(def.schema)
	if err != nil {
		return fmt.Errorf("tool %s: %w", def.name, err)
	}

	s.server.AddTool(&mcpsdk.Tool{
		Name:        def.name,
		Description: def.description,
		InputSchema: def.schema,
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		var raw []byte
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}

		start := time.Now()
		out, err := def.handle(ctx, v, raw)
		if err != nil {
			s.log.Warn("tool call failed", map[string]any{
				"tool":     def.name,
				"error":    err,
				"duration": time.Since(start),
			})
			return errorResult(err), nil
		}
		s.log.Debug("tool call", map[string]any{
			"tool":     def.name,
			"duration": time.Since(start),
		})
		return jsonResult(out)
	})
	return nil
}
