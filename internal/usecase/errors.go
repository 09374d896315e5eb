package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by a retriever that has not been initialised.
	ErrNotReady = errors.New("retriever not initialised")

	// ErrUnavailable means the index artifact is missing or unusable.
	ErrUnavailable = errors.New("retrieval unavailable")
)

// NoDocumentsError is returned when a corpus yields no chunks to index.
type NoDocumentsError struct {
	Root string
}

func (e *NoDocumentsError) Error() string {
	return fmt.Sprintf("no documents to index under %s", e.Root)
}

// UpstreamError wraps a language model failure that survived the plain-mode
// retry.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("LLM request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
