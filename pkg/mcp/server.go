// Package mcp exposes the twine engine to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/calveg/twine/internal/engine"
	"github.com/calveg/twine/internal/store"
	"github.com/calveg/twine/internal/validation"
)

// TwineServerDeps holds the dependencies for creating a TwineServer.
// Store may be nil; the save/get/query tools then report unavailability.
type TwineServerDeps struct {
	Evaluator *engine.Evaluator
	Store     store.Store
	Validator *validation.PipelineValidator
	Logger    *slog.Logger
}

// TwineServer wraps an MCP server with twine-specific tool handlers.
type TwineServer struct {
	evaluator *engine.Evaluator
	store     store.Store
	validator *validation.PipelineValidator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewTwineServer creates a new TwineServer with all 5 tools registered.
func NewTwineServer(deps TwineServerDeps) *TwineServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &TwineServer{
		evaluator: deps.Evaluator,
		store:     deps.Store,
		validator: deps.Validator,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"twine",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Twine is a text transformation pipeline engine. Use twine.apply to run one transformation over a value, twine.run to evaluate a pipeline of wired nodes, twine.save to persist a named pipeline, twine.get to fetch one, and twine.query to list pipelines or past runs."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *TwineServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *TwineServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 5 registered MCP tools as ServerTool entries.
func (s *TwineServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: applyTool(), Handler: s.handleApply},
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: getTool(), Handler: s.handleGet},
		{Tool: queryTool(), Handler: s.handleQuery},
	}
}

// --- Tool definitions ---

func applyTool() mcp.Tool {
	return mcp.NewTool("twine.apply",
		mcp.WithDescription("Apply a single transformation to a value"),
		mcp.WithObject("transform", mcp.Required(), mcp.Description("Transformer object, e.g. {\"op\":\"split\",\"pattern\":\" \"}")),
		mcp.WithString("text", mcp.Description("Scalar text input (mutually exclusive with value)")),
		mcp.WithObject("value", mcp.Description("Structured input value envelope, e.g. {\"list\":[{\"text\":\"a\"}]}")),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("twine.run",
		mcp.WithDescription("Evaluate a pipeline of wired nodes"),
		mcp.WithString("pipeline", mcp.Description("Name of a saved pipeline to run")),
		mcp.WithObject("definition", mcp.Description("Inline pipeline definition (mutually exclusive with pipeline)")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("twine.save",
		mcp.WithDescription("Validate and persist a named pipeline definition"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
		mcp.WithObject("definition", mcp.Required(), mcp.Description("Pipeline definition object")),
	)
}

func getTool() mcp.Tool {
	return mcp.NewTool("twine.get",
		mcp.WithDescription("Fetch a saved pipeline definition"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Pipeline name")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("twine.query",
		mcp.WithDescription("List saved pipelines or past runs"),
		mcp.WithString("resource", mcp.Required(),
			mcp.Enum("pipelines", "runs"),
			mcp.Description("Type of resource to list"),
		),
		mcp.WithObject("filter", mcp.Description("Filter criteria (pipeline, limit)")),
	)
}
