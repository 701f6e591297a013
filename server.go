package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type queryAnswerer interface {
	Answer(ctx context.Context, query string) string
}

type corpusReindexer interface {
	Reingest(ctx context.Context) (IngestStats, error)
}

// NewRagServer exposes the query pipeline and the corpus rebuild as MCP
// tools. Query answers are plain text; the answerer never returns an
// error, failures arrive as user-facing messages.
func NewRagServer(answerer queryAnswerer, reindexer corpusReindexer) *server.MCPServer {
	queryTool := mcp.NewTool("legal_query",
		mcp.WithDescription("Answer questions about USCIS AAO decisions and U.S. immigration law, with citations to indexed decisions"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Legal question to answer"),
		))

	reindexTool := mcp.NewTool("reindex",
		mcp.WithDescription("Rebuild the decision index from the documents directory"))

	srv := server.NewMCPServer("LawRagBot", "0.1.0", server.WithToolCapabilities(false))

	srv.AddTool(queryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(answerer.Answer(ctx, q)), nil
	})

	srv.AddTool(reindexTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := reindexer.Reingest(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Reindexed %d documents (%d failed), %d chunks stored",
			stats.Succeeded, stats.Failed, stats.ChunksStored)), nil
	})

	return srv
}
