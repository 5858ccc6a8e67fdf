package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateSearch(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	if cfg.Server.Name == "" {
		ve.Add("server.name must not be empty")
	}
	if cfg.Server.Version == "" {
		ve.Add("server.version must not be empty")
	}
}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if s.APIKey == "" {
		ve.Add("search.api_key is empty (set via %s)", EnvSearchAPIKey)
	}
	if u, err := url.Parse(s.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("search.endpoint %q must be an absolute http(s) URL", s.Endpoint)
	}
	if s.Timeout <= 0 {
		ve.Add("search.timeout must be > 0")
	}
	if s.CacheTTL < 0 {
		ve.Add("search.cache_ttl must be >= 0")
	}
	if s.MaxBodySize <= 0 {
		ve.Add("search.max_body_size must be > 0")
	}
	if s.Breaker.Enabled {
		if s.Breaker.MaxFailures == 0 {
			ve.Add("search.breaker.max_failures must be > 0 when the breaker is enabled")
		}
		if s.Breaker.Timeout <= 0 {
			ve.Add("search.breaker.timeout must be > 0 when the breaker is enabled")
		}
		if s.Breaker.Interval < 0 {
			ve.Add("search.breaker.interval must be >= 0")
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	l := cfg.Logger
	if !validLogLevels[strings.ToLower(l.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", l.Level)
	}
	if !validLogFormats[strings.ToLower(l.Format)] {
		ve.Add("logger.format %q is invalid (want: text, json)", l.Format)
	}
	// stdout carries the MCP stdio transport.
	if strings.EqualFold(l.Output, "stdout") {
		ve.Add("logger.output must not be stdout (reserved for the stdio transport)")
	}
}

var validTracerExporters = map[string]bool{
	"noop":   true,
	"stderr": true,
	"":       true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validTracerExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stderr)", cfg.Tracer.Exporter)
	}
}
