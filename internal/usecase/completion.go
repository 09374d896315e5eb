package usecase

import (
	"context"
	"log/slog"

	"fincheck/internal/adapter/metrics"
	"fincheck/internal/port"
)

// Completion token budgets.
const (
	VerdictMaxTokens = 600
	ChatMaxTokens    = 400
)

// CompleteStructured asks for a JSON-mode completion and, if that attempt
// fails for any reason, retries once without JSON mode. Only when both
// attempts fail is an *UpstreamError returned.
func CompleteStructured(ctx context.Context, llm port.ChatCompleter, prompt string, maxTokens int, logger *slog.Logger) (string, error) {
	req := port.CompletionRequest{
		Prompt:    prompt,
		MaxTokens: maxTokens,
		JSONMode:  true,
	}

	content, err := llm.Complete(ctx, req)
	metrics.RecordLLMAttempt(true, err)
	if err == nil {
		return content, nil
	}
	if logger != nil {
		logger.WarnContext(ctx, "JSON mode completion failed, retrying without it", "model", llm.ModelName(), "error", err)
	}

	req.JSONMode = false
	content, err = llm.Complete(ctx, req)
	metrics.RecordLLMAttempt(false, err)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	return content, nil
}
