package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"serper-mcp/internal/adapter/gateway"
	"serper-mcp/internal/infra/config"
	"serper-mcp/internal/infra/logger"
	"serper-mcp/internal/infra/tracer"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Config
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if version != "" {
		cfg.Server.Version = version
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	// 3. Tools
	registry, err := initTools(cfg, log)
	if err != nil {
		return fmt.Errorf("tools: %w", err)
	}

	// 4. Serve
	log.Info("starting server",
		"name", cfg.Server.Name,
		"version", cfg.Server.Version,
		"endpoint", cfg.Search.Endpoint,
		"cache_ttl", cfg.Search.CacheTTL,
		"breaker", cfg.Search.Breaker.Enabled,
	)
	srv := gateway.NewMCPServer(cfg.Server.Name, cfg.Server.Version, registry, log)
	return srv.Serve(ctx)
}
