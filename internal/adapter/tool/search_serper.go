package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"serper-mcp/internal/domain"
)

const (
	defaultSerperTimeout  = 30 * time.Second
	defaultMaxBodySize    = 1 << 20 // 1MB
	maxErrorExcerptLength = 256
)

// serperRequest is the body of a Serper search call.
type serperRequest struct {
	Q string `json:"q"`
}

// serperResponse models the relevant portion of the Serper JSON response.
// Organic is kept raw because entries are not guaranteed to be objects.
type serperResponse struct {
	Organic json.RawMessage `json:"organic"`
}

// SerperConfig configures a SerperBackend.
type SerperConfig struct {
	APIKey      string
	Endpoint    string
	Timeout     time.Duration
	MaxBodySize int64
}

// SerperBackend searches Google via the Serper API.
type SerperBackend struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	maxBodySize int64
	logger      *slog.Logger
}

// NewSerperBackend creates a search backend backed by Serper. A nil client
// gets a default one with cfg.Timeout.
func NewSerperBackend(cfg SerperConfig, client *http.Client, logger *slog.Logger) *SerperBackend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSerperTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SerperBackend{
		client:      client,
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger,
	}
}

func (b *SerperBackend) Name() string { return "serper" }

func (b *SerperBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	payload, err := json.Marshal(serperRequest{Q: query})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBodySize))
	if err != nil {
		return nil, domain.NewSubSystemError("search", "Serper.Search", domain.ErrProviderError,
			fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, domain.NewSubSystemError("search", "Serper.Search", domain.ErrProviderError,
			"parse response: body is not a JSON object")
	}

	var sr serperResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, domain.NewSubSystemError("search", "Serper.Search", domain.ErrProviderError,
			fmt.Sprintf("parse response: %v", err))
	}

	results := parseOrganic(sr.Organic, count)
	b.logger.Debug("serper search completed", "query", query, "results", len(results))
	return results, nil
}

// transportError classifies a failed round trip. Deadline and timeout
// failures map to ErrTimeout so they are reported as transient.
func transportError(ctx context.Context, err error) error {
	var ne interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return domain.NewSubSystemError("search", "Serper.Search", domain.ErrTimeout, err.Error())
	}
	return domain.NewSubSystemError("search", "Serper.Search", domain.ErrProviderError,
		fmt.Sprintf("request failed: %v", err))
}

// statusError builds the error for a non-2xx upstream reply.
func statusError(status int, body []byte) error {
	excerpt := string(body)
	if len(excerpt) > maxErrorExcerptLength {
		excerpt = excerpt[:maxErrorExcerptLength] + "..."
	}
	detail := fmt.Sprintf("HTTP %d: %s", status, excerpt)

	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = domain.ErrAuthInvalid
	case status == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimit
	default:
		return domain.NewSubSystemError("search", "Serper.Search", domain.ErrProviderError, detail)
	}
	return domain.NewSubSystemError("search", "Serper.Search",
		fmt.Errorf("%w: %w", sentinel, domain.ErrProviderError), detail)
}

// parseOrganic maps the first count entries of the organic array. A missing,
// null or non-array value yields an empty slice and non-object entries are
// skipped.
func parseOrganic(raw json.RawMessage, count int) []domain.SearchResult {
	results := make([]domain.SearchResult, 0)
	if count <= 0 || len(raw) == 0 {
		return results
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return results
	}

	for _, e := range entries {
		if len(results) >= count {
			break
		}
		var item map[string]json.RawMessage
		if err := json.Unmarshal(e, &item); err != nil || item == nil {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:   fieldText(item["title"]),
			URL:     fieldText(item["link"]),
			Snippet: fieldText(item["snippet"]),
		})
	}
	return results
}

// fieldText returns the string value of a JSON field, nil when absent or
// null, and the raw JSON text for any other value.
func fieldText(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		text := string(raw)
		return &text
	}
	text := buf.String()
	return &text
}
