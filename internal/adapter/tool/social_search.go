package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"serper-mcp/internal/domain"
	"serper-mcp/internal/infra/tracer"
)

// Tool names advertised to MCP clients.
const (
	TopSearchResultsName = "get_top_search_results"
	TopTweetsName        = "get_top_tweets_via_serper"
	TopRedditPostsName   = "get_top_reddit_posts"
)

const maxCacheEntries = 100

// searchParameters is the JSON schema shared by the three search tools.
// limit stays string-typed so loosely typed callers keep working.
var searchParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"topic": {"type": "string", "description": "The search query or topic to retrieve results for."},
		"limit": {"type": "string", "default": "5", "description": "The maximum number of results to return. Default is 5."}
	},
	"required": ["topic"]
}`)

// cacheEntry holds cached search results with their expiration time.
type cacheEntry struct {
	results   []domain.SearchResult
	expiresAt time.Time
}

// SocialSearchTool searches one scope (the whole web, X.com or Reddit)
// through a SearchBackend and returns the top results as a JSON array.
type SocialSearchTool struct {
	name        string
	description string
	scope       domain.Scope
	backend     SearchBackend
	cacheTTL    time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewSocialSearchTool creates a search tool for scope. A cacheTTL of zero
// disables result caching.
func NewSocialSearchTool(name, description string, scope domain.Scope, backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) *SocialSearchTool {
	return &SocialSearchTool{
		name:        name,
		description: description,
		scope:       scope,
		backend:     backend,
		cacheTTL:    cacheTTL,
		logger:      logger,
		cache:       make(map[string]cacheEntry),
	}
}

// NewTopSearchResultsTool returns the plain web search tool.
func NewTopSearchResultsTool(backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) *SocialSearchTool {
	return NewSocialSearchTool(TopSearchResultsName,
		"Fetches the top organic Google search results for a topic using the Serper.dev API. "+
			"Returns a JSON list of objects with 'title', 'url' and 'snippet' keys, at most 'limit' entries (default 5).",
		domain.ScopeWeb, backend, cacheTTL, logger)
}

// NewTopTweetsTool returns the X.com search tool.
func NewTopTweetsTool(backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) *SocialSearchTool {
	return NewSocialSearchTool(TopTweetsName,
		"Retrieves top publicly visible tweets about a topic by searching X.com (formerly Twitter) through the Serper.dev API with a 'site:x.com' filter. "+
			"Returns a JSON list of tweet-like results with 'title', 'url' (link to the post on X.com) and 'snippet' keys, at most 'limit' entries (default 5).",
		domain.ScopeX, backend, cacheTTL, logger)
}

// NewTopRedditPostsTool returns the Reddit search tool.
func NewTopRedditPostsTool(backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) *SocialSearchTool {
	return NewSocialSearchTool(TopRedditPostsName,
		"Retrieves top Reddit posts or discussions about a topic through the Serper.dev API with a 'site:reddit.com' filter. "+
			"Returns a JSON list of results with 'title', 'url' (link to the thread) and 'snippet' keys, at most 'limit' entries (default 5).",
		domain.ScopeReddit, backend, cacheTTL, logger)
}

// NewSearchTools returns the three search tools sharing one backend.
func NewSearchTools(backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) []domain.Tool {
	return []domain.Tool{
		NewTopSearchResultsTool(backend, cacheTTL, logger),
		NewTopTweetsTool(backend, cacheTTL, logger),
		NewTopRedditPostsTool(backend, cacheTTL, logger),
	}
}

func (t *SocialSearchTool) Name() string        { return t.name }
func (t *SocialSearchTool) Description() string { return t.description }
func (t *SocialSearchTool) Scope() domain.Scope { return t.scope }

func (t *SocialSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.name,
		Description: t.description,
		Parameters:  searchParameters,
	}
}

type socialSearchParams struct {
	Topic *string         `json:"topic"`
	Limit json.RawMessage `json:"limit"`
}

var errTopicRequired = errors.New("'topic' is required")

func (t *SocialSearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool."+t.name, t.logger, params,
		func(ctx context.Context, span trace.Span, p socialSearchParams) (any, error) {
			if p.Topic == nil {
				return nil, fmt.Errorf("%w: %w", errTopicRequired, domain.ErrInvalidInput)
			}
			q := domain.Query{Topic: *p.Topic, Limit: ParseLimit(p.Limit)}
			query := t.scope.BuildQuery(q.Topic)

			span.SetAttributes(
				tracer.StringAttr("tool.query", query),
				tracer.StringAttr("tool.scope", string(t.scope)),
				tracer.IntAttr("tool.limit", q.Limit),
			)

			cacheKey := fmt.Sprintf("%s|%d", query, q.Limit)
			if cached, ok := t.getCached(cacheKey); ok {
				t.logger.Debug("search cache hit", "tool", t.name, "query", query)
				span.SetAttributes(tracer.StringAttr("tool.cache", "hit"))
				return cached, nil
			}

			results, err := t.backend.Search(ctx, query, q.Limit)
			if err != nil {
				return nil, err
			}
			if results == nil {
				results = []domain.SearchResult{}
			}
			if len(results) > max(q.Limit, 0) {
				results = results[:max(q.Limit, 0)]
			}

			t.putCache(cacheKey, results)
			t.logger.Debug("search completed", "tool", t.name, "query", query, "results", len(results))
			return results, nil
		},
	)
}

// getCached returns cached results if caching is enabled and the entry has
// not expired.
func (t *SocialSearchTool) getCached(key string) ([]domain.SearchResult, bool) {
	if t.cacheTTL <= 0 {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.cache[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(t.cache, key)
		return nil, false
	}
	return entry.results, true
}

// putCache stores results with the configured TTL.
func (t *SocialSearchTool) putCache(key string, results []domain.SearchResult) {
	if t.cacheTTL <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache[key] = cacheEntry{
		results:   results,
		expiresAt: time.Now().Add(t.cacheTTL),
	}

	// Lazy eviction once the cache grows.
	if len(t.cache) > maxCacheEntries {
		now := time.Now()
		for k, v := range t.cache {
			if now.After(v.expiresAt) {
				delete(t.cache, k)
			}
		}
	}
}
