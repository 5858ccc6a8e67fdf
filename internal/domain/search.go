package domain

// DefaultLimit is the number of results returned when the caller's limit is
// absent or cannot be read as an integer.
const DefaultLimit = 5

// SearchResult is one normalized organic search hit. Any field may be nil when
// the upstream entry did not carry it; nil fields serialize as JSON null.
type SearchResult struct {
	Title   *string `json:"title"`
	URL     *string `json:"url"`
	Snippet *string `json:"snippet"`
}

// Query is a coerced search request for a single tool call.
type Query struct {
	Topic string
	Limit int
}

// Scope selects which slice of the web a query targets.
type Scope string

const (
	ScopeWeb    Scope = "web"
	ScopeX      Scope = "x"
	ScopeReddit Scope = "reddit"
)

// sitePrefixes holds the query prefix for each site-restricted scope.
var sitePrefixes = map[Scope]string{
	ScopeX:      "site:x.com ",
	ScopeReddit: "site:reddit.com ",
}

// BuildQuery returns the upstream query string for topic within the scope.
// The topic is passed through verbatim, including when it is empty.
func (s Scope) BuildQuery(topic string) string {
	return sitePrefixes[s] + topic
}

