package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serper-mcp/internal/adapter/tool"
	"serper-mcp/internal/domain"
)

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func strPtr(s string) *string { return &s }

type stubBackend struct {
	mu      sync.Mutex
	results []domain.SearchResult
	err     error
	queries []string
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Search(_ context.Context, query string, count int) ([]domain.SearchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, query)
	if b.err != nil {
		return nil, b.err
	}
	if count <= 0 {
		return []domain.SearchResult{}, nil
	}
	if count < len(b.results) {
		return b.results[:count], nil
	}
	return b.results, nil
}

// scriptedTool fails or panics on demand.
type scriptedTool struct {
	name  string
	err   error
	panic bool
}

func (s *scriptedTool) Name() string        { return s.name }
func (s *scriptedTool) Description() string { return "scripted" }
func (s *scriptedTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Description: "scripted", Parameters: json.RawMessage(`{"type":"object","properties":{}}`)}
}
func (s *scriptedTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	if s.panic {
		panic("scripted panic")
	}
	return nil, s.err
}

func newRegistry(t *testing.T, backend tool.SearchBackend, extra ...domain.Tool) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry(newTestLogger())
	require.NoError(t, reg.RegisterAll(tool.NewSearchTools(backend, 0, newTestLogger())...))
	require.NoError(t, reg.RegisterAll(extra...))
	return reg
}

func newTestClient(t *testing.T, s *MCPServer) *client.Client {
	t.Helper()
	c, err := client.NewInProcessClient(s.Server())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test-client", Version: "0.0.1"}
	res, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	require.Equal(t, "generate_medium_article", res.ServerInfo.Name)
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func textOf(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestMCPServerListsTools(t *testing.T) {
	s := NewMCPServer("generate_medium_article", "test", newRegistry(t, &stubBackend{}), newTestLogger())
	c := newTestClient(t, s)

	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tl := range res.Tools {
		names = append(names, tl.Name)
		assert.NotEmpty(t, tl.Description, tl.Name)
		assert.Equal(t, []string{"topic"}, tl.InputSchema.Required, tl.Name)

		limit, ok := tl.InputSchema.Properties["limit"].(map[string]any)
		require.True(t, ok, tl.Name)
		assert.Equal(t, "string", limit["type"])
		assert.Equal(t, "5", limit["default"])
	}
	assert.ElementsMatch(t, []string{
		"get_top_search_results",
		"get_top_tweets_via_serper",
		"get_top_reddit_posts",
	}, names)
}

func TestMCPServerCallReturnsJSONArray(t *testing.T) {
	backend := &stubBackend{results: []domain.SearchResult{
		{Title: strPtr("Go 1.22"), URL: strPtr("https://x.com/golang/status/1"), Snippet: strPtr("release")},
		{Title: strPtr("Second"), URL: strPtr("https://x.com/golang/status/2")},
	}}
	c := newTestClient(t, NewMCPServer("generate_medium_article", "test", newRegistry(t, backend), newTestLogger()))

	res := callTool(t, c, "get_top_tweets_via_serper", map[string]any{"topic": "golang", "limit": "1"})
	assert.False(t, res.IsError)
	assert.JSONEq(t, `[{"title":"Go 1.22","url":"https://x.com/golang/status/1","snippet":"release"}]`, textOf(res))
	assert.Equal(t, []string{"site:x.com golang"}, backend.queries)
}

func TestMCPServerLenientLimit(t *testing.T) {
	backend := &stubBackend{}
	c := newTestClient(t, NewMCPServer("generate_medium_article", "test", newRegistry(t, backend), newTestLogger()))

	for _, limit := range []any{"abc", 3, nil, true} {
		res := callTool(t, c, "get_top_reddit_posts", map[string]any{"topic": "golang", "limit": limit})
		assert.False(t, res.IsError, "limit %v: %s", limit, textOf(res))
		assert.Equal(t, "[]", textOf(res))
	}
}

func TestMCPServerMissingTopic(t *testing.T) {
	backend := &stubBackend{}
	c := newTestClient(t, NewMCPServer("generate_medium_article", "test", newRegistry(t, backend), newTestLogger()))

	res := callTool(t, c, "get_top_search_results", map[string]any{"limit": "2"})
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(res), "topic")
	assert.Empty(t, backend.queries)
}

func TestMCPServerUpstreamFailureIsToolError(t *testing.T) {
	backend := &stubBackend{err: domain.NewSubSystemError("search", "Serper.Search",
		errors.Join(domain.ErrAuthInvalid, domain.ErrProviderError), "HTTP 401: Unauthorized.")}
	c := newTestClient(t, NewMCPServer("generate_medium_article", "test", newRegistry(t, backend), newTestLogger()))

	res := callTool(t, c, "get_top_search_results", map[string]any{"topic": "golang"})
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(res), "HTTP 401")
	assert.NotContains(t, textOf(res), "transient")
}

func TestMCPServerToolGoError(t *testing.T) {
	failing := &scriptedTool{name: "failing", err: errors.New("boom")}
	c := newTestClient(t, NewMCPServer("generate_medium_article", "test", newRegistry(t, &stubBackend{}, failing), newTestLogger()))

	res := callTool(t, c, "failing", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(res), "tool execution failed")
	assert.Contains(t, textOf(res), "boom")
}

func TestMCPServerRecoversFromPanic(t *testing.T) {
	panicky := &scriptedTool{name: "panicky", panic: true}
	c := newTestClient(t, NewMCPServer("generate_medium_article", "test", newRegistry(t, &stubBackend{}, panicky), newTestLogger()))

	req := mcp.CallToolRequest{}
	req.Params.Name = "panicky"
	_, err := c.CallTool(context.Background(), req)
	assert.Error(t, err)

	// The server keeps serving after a panic.
	res := callTool(t, c, "get_top_search_results", map[string]any{"topic": "golang"})
	assert.False(t, res.IsError)
}

func TestToCallToolResult(t *testing.T) {
	ok := toCallToolResult(&domain.ToolResult{Content: "[]"})
	assert.False(t, ok.IsError)
	assert.Equal(t, "[]", textOf(ok))

	failed := toCallToolResult(&domain.ToolResult{Content: "bad", IsError: true})
	assert.True(t, failed.IsError)
	assert.Equal(t, "bad", textOf(failed))

	assert.False(t, toCallToolResult(nil).IsError)
}

// lockedBuffer is a goroutine-safe writer for the stdio transport.
type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeIOStdio(t *testing.T) {
	s := NewMCPServer("generate_medium_article", "test", newRegistry(t, &stubBackend{}), newTestLogger())

	in := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"` + mcp.LATEST_PROTOCOL_VERSION + `","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n")
	out := &lockedBuffer{}

	require.NoError(t, s.ServeIO(context.Background(), in, out))

	var ids []float64
	var toolCount int
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var msg struct {
			ID     float64 `json:"id"`
			Result struct {
				Tools []json.RawMessage `json:"tools"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &msg))
		ids = append(ids, msg.ID)
		if msg.ID == 2 {
			toolCount = len(msg.Result.Tools)
		}
	}
	assert.Equal(t, []float64{1, 2}, ids)
	assert.Equal(t, 3, toolCount)
}

func TestServeIOStopsOnCancel(t *testing.T) {
	s := NewMCPServer("generate_medium_article", "test", newRegistry(t, &stubBackend{}), newTestLogger())

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeIO(ctx, pr, io.Discard) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ServeIO did not stop after cancel")
	}
}
