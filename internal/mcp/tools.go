package mcp

import (
	"context"

	"fincheck/internal/domain"
	"fincheck/internal/usecase"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Checker verifies a single claim.
type Checker interface {
	Check(ctx context.Context, claim string) (*usecase.CheckResult, error)
}

// Chatter answers chat messages and exposes session history.
type Chatter interface {
	Chat(ctx context.Context, req usecase.ChatRequest) (*usecase.ChatResponse, error)
	History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)
}

// NewServer creates an MCP server with the fincheck tools registered.
func NewServer(version string, checker Checker, chatter Chatter) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("fincheck", version)
	RegisterTools(server, checker, chatter)
	return server
}

// RegisterTools registers the check_claim, ask and session_history tools.
func RegisterTools(server *mcpserver.MCPServer, checker Checker, chatter Chatter) *Handlers {
	handlers := &Handlers{
		checker: checker,
		chatter: chatter,
	}

	server.AddTool(mcp.Tool{
		Name:        "check_claim",
		Description: "Fact-check a financial claim against the local evidence corpus, falling back to recent news when local evidence is weak. Returns a verdict (True, False, Misleading, Unverifiable), a confidence, reasoning, citations and the evidence used.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"claim": map[string]interface{}{
					"type":        "string",
					"description": "The financial claim to verify (at least 5 characters)",
				},
			},
			Required: []string{"claim"},
		},
	}, handlers.CheckClaim)

	server.AddTool(mcp.Tool{
		Name:        "ask",
		Description: "Ask a free-form financial question. The answer is grounded in retrieved evidence and keeps a short per-session history.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The question (at least 3 characters)",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session id from a previous answer, to continue the conversation",
				},
				"context": map[string]interface{}{
					"type":        "string",
					"description": "Optional context such as an earlier claim and its verdict",
				},
				"expand_online": map[string]interface{}{
					"type":        "boolean",
					"description": "Allow live news retrieval (default: server setting)",
				},
			},
			Required: []string{"message"},
		},
	}, handlers.Ask)

	server.AddTool(mcp.Tool{
		Name:        "session_history",
		Description: "Return the stored turns of a chat session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session id returned by ask",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.SessionHistory)

	return handlers
}
