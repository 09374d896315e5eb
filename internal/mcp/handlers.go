package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"fincheck/internal/usecase"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers implements the MCP tools on top of the use cases.
type Handlers struct {
	checker Checker
	chatter Chatter
}

// CheckClaim handles the check_claim tool.
func (h *Handlers) CheckClaim(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	claim, err := request.RequireString("claim")
	if err != nil {
		return mcp.NewToolResultError("claim argument is required and must be a string"), nil
	}
	if utf8.RuneCountInString(claim) < 5 {
		return mcp.NewToolResultError("claim must be at least 5 characters"), nil
	}

	res, err := h.checker.Check(ctx, claim)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}

	return jsonResult(res)
}

// Ask handles the ask tool.
func (h *Handlers) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required and must be a string"), nil
	}
	if utf8.RuneCountInString(message) < 3 {
		return mcp.NewToolResultError("message must be at least 3 characters"), nil
	}

	req := usecase.ChatRequest{
		Message:   message,
		SessionID: request.GetString("session_id", ""),
		Context:   request.GetString("context", ""),
	}
	if _, ok := request.GetArguments()["expand_online"]; ok {
		expand := request.GetBool("expand_online", true)
		req.ExpandOnline = &expand
	}

	res, err := h.chatter.Chat(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	return jsonResult(res)
}

// SessionHistory handles the session_history tool.
func (h *Handlers) SessionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	turns, err := h.chatter.History(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load history: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"session_id": id,
		"history":    turns,
		"count":      len(turns),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
