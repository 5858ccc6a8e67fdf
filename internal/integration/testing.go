package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// Config holds live test configuration from the environment.
type Config struct {
	SerperKey   string
	Endpoint    string
	TestTimeout time.Duration
}

// LoadConfig loads live test configuration from the environment.
func LoadConfig() *Config {
	endpoint := os.Getenv("SERPERMCP_SEARCH_ENDPOINT")
	if endpoint == "" {
		endpoint = "https://google.serper.dev/search"
	}
	return &Config{
		SerperKey:   os.Getenv("SERPER_API_KEY"),
		Endpoint:    endpoint,
		TestTimeout: 30 * time.Second,
	}
}

// SkipIfNoAPIKey skips the test if the Serper key is not set.
func SkipIfNoAPIKey(t *testing.T, key string) {
	t.Helper()
	if key == "" {
		t.Skip("Skipping live Serper test: SERPER_API_KEY not set")
	}
}

// SkipIfShort skips live tests in short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping live test in short mode")
	}
}

// NewTestContext creates a context with timeout for live tests.
func NewTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
