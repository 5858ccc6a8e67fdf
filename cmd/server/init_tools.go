package main

import (
	"log/slog"

	"serper-mcp/internal/adapter/tool"
	"serper-mcp/internal/infra/config"
)

// initTools wires the search backend and registers the three search tools.
func initTools(cfg *config.Config, log *slog.Logger) (*tool.Registry, error) {
	var backend tool.SearchBackend = tool.NewSerperBackend(tool.SerperConfig{
		APIKey:      cfg.Search.APIKey,
		Endpoint:    cfg.Search.Endpoint,
		Timeout:     cfg.Search.Timeout,
		MaxBodySize: cfg.Search.MaxBodySize,
	}, nil, log)

	if cfg.Search.Breaker.Enabled {
		backend = tool.NewBreakerBackend(backend, tool.BreakerConfig{
			MaxFailures: cfg.Search.Breaker.MaxFailures,
			Timeout:     cfg.Search.Breaker.Timeout,
			Interval:    cfg.Search.Breaker.Interval,
		}, log)
	}

	registry := tool.NewRegistry(log)
	if err := registry.RegisterAll(tool.NewSearchTools(backend, cfg.Search.CacheTTL, log)...); err != nil {
		return nil, err
	}
	return registry, nil
}
