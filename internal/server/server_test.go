package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fincheck/internal/adapter/logging"
	"fincheck/internal/domain"
	"fincheck/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	res    *usecase.CheckResult
	err    error
	claims []string
}

func (s *stubChecker) Check(ctx context.Context, claim string) (*usecase.CheckResult, error) {
	s.claims = append(s.claims, claim)
	return s.res, s.err
}

type stubChatter struct {
	res     *usecase.ChatResponse
	err     error
	last    usecase.ChatRequest
	history []domain.ChatTurn
}

func (s *stubChatter) Chat(ctx context.Context, req usecase.ChatRequest) (*usecase.ChatResponse, error) {
	s.last = req
	return s.res, s.err
}

func (s *stubChatter) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	return s.history, nil
}

type stubProbe bool

func (p stubProbe) Ready() bool { return bool(p) }

func newTestServer(checker Checker, chatter Chatter, ready bool) *Server {
	return New(checker, chatter, stubProbe(ready), Options{
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}, logging.Discard())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCheckReturnsPublicEvidenceShape(t *testing.T) {
	idx := 2
	checker := &stubChecker{res: &usecase.CheckResult{
		Claim:  "Tesla delivered more cars in Q3",
		Result: domain.VerdictResult{Verdict: "True", Confidence: 0.8, Reasoning: "r"},
		Evidence: []domain.EvidenceItem{
			{Text: "local", Source: "Reuters", ChunkIndex: &idx, Score: 0.9},
			{Text: "online", Source: "apnews.com", Score: 0.7, URL: "https://apnews.com/x", Title: "T"},
		},
		Expanded: true,
	}}
	s := newTestServer(checker, &stubChatter{}, true)

	rec := do(t, s, http.MethodPost, "/check", `{"text":"Tesla delivered more cars in Q3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	body := decode(t, rec)
	assert.Equal(t, "Tesla delivered more cars in Q3", body["claim"])
	result := body["result"].(map[string]any)
	assert.Equal(t, []any{}, result["citations"])

	evidence := body["evidence"].([]any)
	require.Len(t, evidence, 2)
	first := evidence[0].(map[string]any)
	assert.Equal(t, float64(2), first["chunk_index"])
	second := evidence[1].(map[string]any)
	assert.Nil(t, second["chunk_index"])
	assert.NotContains(t, second, "url")
	assert.NotContains(t, second, "title")
	assert.NotContains(t, body, "expanded")
}

func TestCheckValidation(t *testing.T) {
	checker := &stubChecker{}
	s := newTestServer(checker, &stubChatter{}, true)

	for _, body := range []string{`{"text":"abcd"}`, `{}`, `not json`, ``} {
		rec := do(t, s, http.MethodPost, "/check", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Contains(t, decode(t, rec), "detail")
	}
	assert.Empty(t, checker.claims)
}

func TestCheckErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not ready", usecase.ErrNotReady, http.StatusInternalServerError},
		{"unavailable", errors.Join(usecase.ErrUnavailable, errors.New("missing")), http.StatusInternalServerError},
		{"upstream", &usecase.UpstreamError{Err: errors.New("boom")}, http.StatusBadGateway},
		{"other", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&stubChecker{err: tt.err}, &stubChatter{}, true)
			rec := do(t, s, http.MethodPost, "/check", `{"text":"Apple beat estimates"}`)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	s := newTestServer(&stubChecker{err: &usecase.UpstreamError{Err: errors.New("boom")}}, &stubChatter{}, true)
	rec := do(t, s, http.MethodPost, "/check", `{"text":"Apple beat estimates"}`)
	assert.Equal(t, "LLM request failed: boom", decode(t, rec)["detail"])
}

func TestChatPassesOptionalFields(t *testing.T) {
	chatter := &stubChatter{res: &usecase.ChatResponse{
		SessionID: "s-1",
		Result:    domain.ChatResult{Answer: "yes"},
	}}
	s := newTestServer(&stubChecker{}, chatter, true)

	rec := do(t, s, http.MethodPost, "/chat",
		`{"message":"why?","session_id":"s-1","expand_online":false,"days":3,"context":"claim","keywords":["AAPL"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "why?", chatter.last.Message)
	assert.Equal(t, "s-1", chatter.last.SessionID)
	require.NotNil(t, chatter.last.ExpandOnline)
	assert.False(t, *chatter.last.ExpandOnline)
	require.NotNil(t, chatter.last.Days)
	assert.Equal(t, 3, *chatter.last.Days)
	assert.Equal(t, "claim", chatter.last.Context)
	assert.Equal(t, []string{"AAPL"}, chatter.last.Keywords)

	body := decode(t, rec)
	assert.Equal(t, "s-1", body["session_id"])
	assert.Equal(t, []any{}, body["evidence"])
	assert.Equal(t, []any{}, body["result"].(map[string]any)["citations"])
}

func TestChatDefaultsAndValidation(t *testing.T) {
	chatter := &stubChatter{res: &usecase.ChatResponse{SessionID: "new"}}
	s := newTestServer(&stubChecker{}, chatter, true)

	rec := do(t, s, http.MethodPost, "/chat", `{"message":"hey"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, chatter.last.ExpandOnline)
	assert.Nil(t, chatter.last.Days)

	rec = do(t, s, http.MethodPost, "/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/chat", `{"message":"hello","days":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHistory(t *testing.T) {
	chatter := &stubChatter{history: []domain.ChatTurn{{Role: domain.RoleUser, Content: "q"}}}
	s := newTestServer(&stubChecker{}, chatter, true)

	rec := do(t, s, http.MethodGet, "/chat/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "abc", body["session_id"])
	assert.Len(t, body["history"], 1)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(&stubChecker{}, &stubChatter{}, false)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/readyz", "").Code)

	s = newTestServer(&stubChecker{}, &stubChatter{}, true)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&stubChecker{}, &stubChatter{}, true)
	do(t, s, http.MethodGet, "/healthz", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fincheck_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&stubChecker{}, &stubChatter{}, true)

	req := httptest.NewRequest(http.MethodOptions, "/check", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
