package logging

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// QueryRecord is one line of the verdict audit log.
type QueryRecord struct {
	Time       time.Time `json:"time"`
	RequestID  string    `json:"request_id,omitempty"`
	Kind       string    `json:"kind"`
	Query      string    `json:"query"`
	Verdict    string    `json:"verdict,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Expanded   bool      `json:"expanded"`
	Evidence   int       `json:"evidence"`
	Sources    []string  `json:"sources,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// QueryLogger appends QueryRecords as JSON lines. A nil *QueryLogger is a
// no-op.
type QueryLogger struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

func NewQueryLogger(w io.Writer) *QueryLogger {
	return &QueryLogger{enc: json.NewEncoder(w)}
}

// OpenQueryLog opens path for appending, creating parent directories.
func OpenQueryLog(path string) (*QueryLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &QueryLogger{enc: json.NewEncoder(f), closer: f}, nil
}

func (l *QueryLogger) Log(rec QueryRecord) error {
	if l == nil {
		return nil
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(rec)
}

func (l *QueryLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
