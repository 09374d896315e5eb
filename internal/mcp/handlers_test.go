package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"fincheck/internal/domain"
	"fincheck/internal/usecase"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	res *usecase.CheckResult
	err error
}

func (s *stubChecker) Check(ctx context.Context, claim string) (*usecase.CheckResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.res
	res.Claim = claim
	return &res, nil
}

type stubChatter struct {
	last    usecase.ChatRequest
	history []domain.ChatTurn
}

func (s *stubChatter) Chat(ctx context.Context, req usecase.ChatRequest) (*usecase.ChatResponse, error) {
	s.last = req
	return &usecase.ChatResponse{SessionID: "s-1", Result: domain.ChatResult{Answer: "ok", Citations: []string{}}}, nil
}

func (s *stubChatter) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	return s.history, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestCheckClaim(t *testing.T) {
	h := &Handlers{checker: &stubChecker{res: &usecase.CheckResult{
		Result: domain.VerdictResult{Verdict: domain.VerdictTrue, Confidence: 0.9, Citations: []string{}},
	}}}

	res, err := h.CheckClaim(context.Background(), callRequest("check_claim", map[string]any{"claim": "Apple raised its dividend"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out usecase.CheckResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "Apple raised its dividend", out.Claim)
	assert.Equal(t, domain.VerdictTrue, out.Result.Verdict)
}

func TestCheckClaimErrors(t *testing.T) {
	h := &Handlers{checker: &stubChecker{err: usecase.ErrNotReady}}

	res, err := h.CheckClaim(context.Background(), callRequest("check_claim", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.CheckClaim(context.Background(), callRequest("check_claim", map[string]any{"claim": "abc"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.CheckClaim(context.Background(), callRequest("check_claim", map[string]any{"claim": "Tesla cut prices"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "retriever not initialised")
}

func TestAskPassesOptionalArguments(t *testing.T) {
	chatter := &stubChatter{}
	h := &Handlers{chatter: chatter}

	res, err := h.Ask(context.Background(), callRequest("ask", map[string]any{
		"message":       "what changed?",
		"session_id":    "s-1",
		"context":       "claim: X",
		"expand_online": false,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Equal(t, "what changed?", chatter.last.Message)
	assert.Equal(t, "s-1", chatter.last.SessionID)
	assert.Equal(t, "claim: X", chatter.last.Context)
	require.NotNil(t, chatter.last.ExpandOnline)
	assert.False(t, *chatter.last.ExpandOnline)

	var out usecase.ChatResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "ok", out.Result.Answer)
}

func TestAskDefaults(t *testing.T) {
	chatter := &stubChatter{}
	h := &Handlers{chatter: chatter}

	res, err := h.Ask(context.Background(), callRequest("ask", map[string]any{"message": "why?"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Nil(t, chatter.last.ExpandOnline)
	assert.Empty(t, chatter.last.SessionID)

	res, err = h.Ask(context.Background(), callRequest("ask", map[string]any{"message": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSessionHistory(t *testing.T) {
	h := &Handlers{chatter: &stubChatter{history: []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "q"},
		{Role: domain.RoleAssistant, Content: "a"},
	}}}

	res, err := h.SessionHistory(context.Background(), callRequest("session_history", map[string]any{"session_id": "s-1"}))
	require.NoError(t, err)

	var out struct {
		SessionID string            `json:"session_id"`
		History   []domain.ChatTurn `json:"history"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "s-1", out.SessionID)
	assert.Equal(t, 2, out.Count)
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("test", &stubChecker{}, &stubChatter{})
	require.NotNil(t, s)
}
