package usecase

import (
	"context"
	"errors"
	"sync"

	"fincheck/internal/domain"
	"fincheck/internal/port"
)

type fakeRetriever struct {
	items []domain.EvidenceItem
	err   error
	calls int
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.EvidenceItem, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if len(r.items) > topK {
		return r.items[:topK], nil
	}
	return r.items, nil
}

// scriptedLLM returns replies in order. A reply with JSONErr set fails the
// JSON-mode attempt; PlainErr fails the plain attempt.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []llmReply
	requests []port.CompletionRequest
}

type llmReply struct {
	Content  string
	JSONErr  error
	PlainErr error
}

var errNoJSONMode = errors.New("response_format is not supported")

func (l *scriptedLLM) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, req)
	if len(l.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := l.replies[0]
	if req.JSONMode && r.JSONErr != nil {
		return "", r.JSONErr
	}
	l.replies = l.replies[1:]
	if !req.JSONMode && r.PlainErr != nil {
		return "", r.PlainErr
	}
	return r.Content, nil
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func (l *scriptedLLM) prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, r := range l.requests {
		out = append(out, r.Prompt)
	}
	return out
}

type fakeOnline struct {
	items   []domain.EvidenceItem
	queries []port.OnlineQuery
}

func (o *fakeOnline) FetchOnlineEvidence(ctx context.Context, q port.OnlineQuery) []domain.EvidenceItem {
	o.queries = append(o.queries, q)
	return o.items
}

type fakeKeywords struct{}

func (fakeKeywords) Extract(text string) []string { return []string{"KW"} }

func intPtr(i int) *int { return &i }

func localEvidence() []domain.EvidenceItem {
	return []domain.EvidenceItem{
		{Text: "Tesla delivered 435,000 vehicles in Q3.", Source: "reuters_tesla.txt", ChunkIndex: intPtr(0), Score: 0.82},
		{Text: "Deliveries beat analyst estimates.", Source: "ap_tesla.txt", ChunkIndex: intPtr(2), Score: 0.61},
	}
}

func onlineEvidence() []domain.EvidenceItem {
	return []domain.EvidenceItem{
		{Text: "Tesla Q3 deliveries\n\nrecord quarter", Source: "Reuters", Score: 0.7, URL: "https://reuters.com/x", Title: "Tesla Q3 deliveries"},
	}
}
