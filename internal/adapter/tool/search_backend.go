package tool

import (
	"context"

	"serper-mcp/internal/domain"
)

// SearchBackend abstracts a web search engine.
type SearchBackend interface {
	// Search runs query upstream and returns at most count results in
	// upstream order. count <= 0 yields an empty slice.
	Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error)
	// Name returns the backend identifier (e.g. "serper").
	Name() string
}
