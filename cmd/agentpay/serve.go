package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/config"
	agenthttp "github.com/x402-foundation/agentpay/http"
	"github.com/x402-foundation/agentpay/logger"
	"github.com/x402-foundation/agentpay/mcp"
	"github.com/x402-foundation/agentpay/metrics"
)

func serveCmd() *cobra.Command {
	var (
		httpAddr string
		envFile  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools on stdio",
		Long: `Serve the agentpay MCP tools on stdio.

With --http (or AGENTPAY_HTTP_ADDR) an HTTP server also exposes /healthz,
/metrics, the /v1 payment request API and the MCP SSE transport at /mcp/sse.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr = httpAddr
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address, e.g. localhost:8402 (overrides AGENTPAY_HTTP_ADDR)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Optional env file loaded before the environment is read")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	providers, closeProviders, err := buildProviders(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeProviders()

	opts := []agentpay.ServiceOption{
		agentpay.WithDefaultChain(cfg.Chain()),
		agentpay.WithLogger(zl),
		agentpay.WithMetrics(rec),
	}
	for _, p := range providers {
		opts = append(opts, agentpay.WithProvider(p))
	}
	svc := agentpay.NewService(opts...)

	mcpServer, err := mcp.NewServer(svc,
		mcp.WithLogger(zl),
		mcp.WithTimeout(cfg.RequestTimeout),
		mcp.WithImplementation(mcp.DefaultServerName, Version),
	)
	if err != nil {
		return err
	}

	zl.Info("agentpay starting", map[string]any{
		"version":       Version,
		"network":       cfg.Network,
		"default_chain": cfg.DefaultChain,
		"chains":        svc.SupportedChains(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// stdio EOF ends the process
		defer stop()
		return mcp.Serve(gctx, mcpServer)
	})
	if cfg.HTTPAddr != "" {
		httpServer := agenthttp.NewServer(svc,
			agenthttp.WithLogger(zl),
			agenthttp.WithMetrics(rec),
			agenthttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
			agenthttp.WithMCPHandler(mcpServer.SSEHandler()),
			agenthttp.WithRequestTimeout(cfg.RequestTimeout),
		)
		g.Go(func() error {
			return httpServer.ListenAndServe(gctx, cfg.HTTPAddr)
		})
	}
	return g.Wait()
}
