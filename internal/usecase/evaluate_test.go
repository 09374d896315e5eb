package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fincheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdictByClaim map[string]string

func (v verdictByClaim) Check(ctx context.Context, claim string) (*CheckResult, error) {
	verdict, ok := v[claim]
	if !ok {
		return nil, &UpstreamError{Err: errors.New("boom")}
	}
	return &CheckResult{Claim: claim, Result: domain.VerdictResult{Verdict: verdict}}, nil
}

func TestLoadClaims(t *testing.T) {
	csv := "\ufeffid,claim_text,label\n" +
		"1,Apple raised its dividend,True\n" +
		"2,  ,False\n" +
		"3,\"Tesla cut prices, again\",misleading\n" +
		"4,Short row\n"

	claims, err := LoadClaims(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []LabeledClaim{
		{Claim: "Apple raised its dividend", Label: "True"},
		{Claim: "Tesla cut prices, again", Label: "misleading"},
		{Claim: "Short row"},
	}, claims)
}

func TestLoadClaimsRequiresColumn(t *testing.T) {
	_, err := LoadClaims(strings.NewReader("text,label\nx,True\n"))
	assert.Error(t, err)

	_, err = LoadClaims(strings.NewReader(""))
	assert.Error(t, err)
}

func TestEvaluateAccuracy(t *testing.T) {
	checker := verdictByClaim{
		"a": "True",
		"b": "Misleading",
		"c": "False",
	}
	claims := []LabeledClaim{
		{Claim: "a", Label: "true"},
		{Claim: "b", Label: "False"},
		{Claim: "c"},
		{Claim: "d", Label: "True"},
	}

	var calls int
	report, err := Evaluate(context.Background(), checker, claims, func(done, total int) { calls++ })
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 1, report.Correct)
	assert.Equal(t, 1, report.Errors)
	assert.InDelta(t, 0.25, report.Accuracy, 1e-9)
	assert.Equal(t, 4, calls)
	require.Len(t, report.Results, 4)
	assert.True(t, report.Results[0].Correct)
	assert.False(t, report.Results[2].Correct)
	assert.Contains(t, report.Results[3].Error, "boom")
}

func TestEvaluateEmpty(t *testing.T) {
	report, err := Evaluate(context.Background(), verdictByClaim{}, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Accuracy)
}
