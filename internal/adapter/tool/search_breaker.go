package tool

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"serper-mcp/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// BreakerBackend wraps a SearchBackend with circuit breaker protection.
// When the upstream fails repeatedly the circuit opens and calls fail fast
// with domain.ErrCircuitOpen until the open timeout elapses.
type BreakerBackend struct {
	inner   SearchBackend
	breaker *gobreaker.CircuitBreaker[[]domain.SearchResult]
}

// NewBreakerBackend wraps inner with a circuit breaker.
// Zero-valued fields in cfg fall back to defaults.
func NewBreakerBackend(inner SearchBackend, cfg BreakerConfig, logger *slog.Logger) *BreakerBackend {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[[]domain.SearchResult](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Rejected credentials and caller cancellation say nothing about
		// upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrAuthInvalid) || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerBackend{inner: inner, breaker: cb}
}

func (b *BreakerBackend) Name() string { return b.inner.Name() }

// Search implements SearchBackend. Calls are routed through the circuit breaker.
func (b *BreakerBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	results, err := b.breaker.Execute(func() ([]domain.SearchResult, error) {
		return b.inner.Search(ctx, query, count)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.WrapOp("search:"+b.inner.Name(), domain.ErrCircuitOpen)
		}
		return nil, err
	}
	return results, nil
}

// State returns the current breaker state name ("closed", "open", "half-open").
func (b *BreakerBackend) State() string {
	return b.breaker.State().String()
}
