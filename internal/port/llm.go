package port

import "context"

// ChatCompleter sends a single-message prompt to a chat model.
type ChatCompleter interface {
	// Complete returns the text of the first choice.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// CompletionRequest describes one completion attempt.
type CompletionRequest struct {
	Prompt    string
	MaxTokens int
	// JSONMode asks the model to return a single JSON object. Models or
	// gateways that do not support it reject the request.
	JSONMode bool
}
