package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"serper-mcp/internal/domain"
)

// MCPServer exposes the tools of a registry over the Model Context Protocol.
type MCPServer struct {
	srv    *server.MCPServer
	tools  domain.ToolExecutor
	logger *slog.Logger
}

// NewMCPServer builds an MCP server advertising every tool in tools.
// Handler panics are recovered by mcp-go and reported as tool errors.
func NewMCPServer(name, version string, tools domain.ToolExecutor, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		srv: server.NewMCPServer(name, version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		tools:  tools,
		logger: logger,
	}

	for _, t := range tools.List() {
		schema := t.Schema()
		s.srv.AddTool(mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Parameters), s.handler(t))
		logger.Debug("mcp tool exposed", "tool", schema.Name)
	}
	return s
}

// Server returns the underlying mcp-go server, e.g. for an in-process client.
func (s *MCPServer) Server() *server.MCPServer { return s.srv }

// handler adapts a domain.Tool to an mcp-go tool handler.
func (s *MCPServer) handler(t domain.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := t.Execute(ctx, args)
		if err != nil {
			err = fmt.Errorf("%s: %w: %w", t.Name(), domain.ErrToolFailure, err)
			s.logger.Error("tool execution failed", "tool", t.Name(), "error", err, "code", domain.ErrorCodeOf(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toCallToolResult(result), nil
	}
}

// toCallToolResult converts a domain result into a single text content block.
func toCallToolResult(r *domain.ToolResult) *mcp.CallToolResult {
	if r == nil {
		return mcp.NewToolResultText("")
	}
	if r.IsError {
		return mcp.NewToolResultError(r.Content)
	}
	return mcp.NewToolResultText(r.Content)
}

// Serve runs the stdio transport on the process's stdin/stdout until stdin
// closes or ctx is cancelled.
func (s *MCPServer) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the stdio transport over in and out. End of input and
// context cancellation are a clean shutdown.
func (s *MCPServer) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("mcp server listening on stdio", "tools", len(s.tools.List()))
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		s.logger.Info("mcp server stopped")
		return nil
	}
	return domain.NewDomainError("MCPServer.Serve", domain.ErrTransportDown, err.Error())
}
