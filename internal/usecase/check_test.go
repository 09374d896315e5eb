package usecase

import (
	"context"
	"errors"
	"testing"

	"fincheck/internal/adapter/logging"
	"fincheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheck(r *fakeRetriever, online *fakeOnline, llm *scriptedLLM, fallback bool) *CheckUseCase {
	return NewCheckUseCase(r, online, fakeKeywords{}, llm, CheckConfig{
		TopK:            5,
		SupportedTh:     0.55,
		UncertainTh:     0.35,
		FallbackEnabled: fallback,
		OnlineDays:      14,
		OnlineTopK:      3,
	}, nil, logging.Discard())
}

func TestShouldExpand(t *testing.T) {
	u := newCheck(&fakeRetriever{}, nil, &scriptedLLM{}, true)

	assert.True(t, u.ShouldExpand(domain.VerdictResult{Verdict: "Unverifiable", Confidence: 0.99}))
	assert.True(t, u.ShouldExpand(domain.VerdictResult{Verdict: "unverifiable", Confidence: 0.99}))
	assert.True(t, u.ShouldExpand(domain.VerdictResult{Verdict: "True", Confidence: 0.54}))
	assert.False(t, u.ShouldExpand(domain.VerdictResult{Verdict: "True", Confidence: 0.95}))
	assert.False(t, u.ShouldExpand(domain.VerdictResult{Verdict: "False", Confidence: 0.55}))

	// between uncertain_th and supported_th is still weak
	assert.True(t, u.ShouldExpand(domain.VerdictResult{Verdict: "False", Confidence: 0.4}))

	disabled := newCheck(&fakeRetriever{}, nil, &scriptedLLM{}, false)
	assert.False(t, disabled.ShouldExpand(domain.VerdictResult{Verdict: "Unverifiable"}))
}

func TestCheckConfidentVerdictSkipsOnline(t *testing.T) {
	online := &fakeOnline{items: onlineEvidence()}
	llm := &scriptedLLM{replies: []llmReply{{Content: `{"verdict":"True","confidence":0.95,"reasoning":"matches","citations":["reuters_tesla.txt"]}`}}}

	res, err := newCheck(&fakeRetriever{items: localEvidence()}, online, llm, true).Check(context.Background(), "Tesla delivered 435k cars")
	require.NoError(t, err)

	assert.Equal(t, "True", res.Result.Verdict)
	assert.False(t, res.Expanded)
	assert.Len(t, res.Evidence, 2)
	assert.Empty(t, online.queries)
	assert.Len(t, llm.requests, 1)
}

func TestCheckWeakVerdictRetriesOnceWithOnline(t *testing.T) {
	online := &fakeOnline{items: onlineEvidence()}
	llm := &scriptedLLM{replies: []llmReply{
		{Content: `{"verdict":"Unverifiable","confidence":0.2,"reasoning":"not enough","citations":[]}`},
		{Content: `{"verdict":"Unverifiable","confidence":0.1,"reasoning":"still not enough","citations":[]}`},
		{Content: `{"verdict":"True","confidence":0.9}`},
	}}

	res, err := newCheck(&fakeRetriever{items: localEvidence()}, online, llm, true).Check(context.Background(), "Tesla claim")
	require.NoError(t, err)

	assert.True(t, res.Expanded)
	assert.Equal(t, "still not enough", res.Result.Reasoning)
	require.Len(t, res.Evidence, 3)
	assert.Equal(t, "reuters_tesla.txt", res.Evidence[0].Source)
	assert.Equal(t, "https://reuters.com/x", res.Evidence[2].URL)

	// exactly two verdict steps even though the second is weak too
	assert.Len(t, llm.requests, 2)
	require.Len(t, online.queries, 1)
	assert.Equal(t, []string{"KW"}, online.queries[0].Keywords)
	assert.Equal(t, 12, online.queries[0].MaxArticles)
	assert.Equal(t, 14, online.queries[0].Days)
	assert.Contains(t, llm.prompts()[1], "URL: https://reuters.com/x")
}

func TestCheckWeakVerdictWithoutOnlineEvidence(t *testing.T) {
	online := &fakeOnline{}
	llm := &scriptedLLM{replies: []llmReply{{Content: "I cannot determine this."}}}

	res, err := newCheck(&fakeRetriever{items: localEvidence()}, online, llm, true).Check(context.Background(), "claim")
	require.NoError(t, err)

	assert.False(t, res.Expanded)
	assert.Equal(t, "Unverifiable", res.Result.Verdict)
	assert.Equal(t, "I cannot determine this.", res.Result.Reasoning)
	assert.Len(t, res.Evidence, 2)
	assert.Len(t, online.queries, 1)
	assert.Len(t, llm.requests, 1)
}

func TestCheckFallbackDisabled(t *testing.T) {
	online := &fakeOnline{items: onlineEvidence()}
	llm := &scriptedLLM{replies: []llmReply{{Content: `{"verdict":"Unverifiable","confidence":0}`}}}

	res, err := newCheck(&fakeRetriever{}, online, llm, false).Check(context.Background(), "claim")
	require.NoError(t, err)
	assert.False(t, res.Expanded)
	assert.Empty(t, online.queries)
	assert.Contains(t, llm.prompts()[0], "No relevant evidence retrieved.")
}

func TestCheckRetrievalError(t *testing.T) {
	llm := &scriptedLLM{}
	_, err := newCheck(&fakeRetriever{err: ErrNotReady}, nil, llm, true).Check(context.Background(), "claim")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, llm.requests)
}

func TestCheckUpstreamError(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{JSONErr: errNoJSONMode, PlainErr: errors.New("502")}}}

	_, err := newCheck(&fakeRetriever{items: localEvidence()}, nil, llm, true).Check(context.Background(), "claim")
	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestCheckPlainModeVerdict(t *testing.T) {
	llm := &scriptedLLM{replies: []llmReply{{Content: "```json\n{\"verdict\":\"False\",\"confidence\":0.8}\n```", JSONErr: errNoJSONMode}}}

	res, err := newCheck(&fakeRetriever{items: localEvidence()}, nil, llm, true).Check(context.Background(), "claim")
	require.NoError(t, err)
	assert.Equal(t, "False", res.Result.Verdict)
	assert.Equal(t, 0.8, res.Result.Confidence)
}
