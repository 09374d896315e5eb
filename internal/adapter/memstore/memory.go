package memstore

import (
	"context"
	"sync"
	"time"

	"fincheck/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxSessions = 10000
	defaultSessionTTL  = 24 * time.Hour
)

// SessionStore keeps chat histories in process memory. Each session has its
// own lock so that appends to one session never wait on another. Sessions
// idle for longer than the TTL, or beyond the size cap, are evicted least
// recently used first.
type SessionStore struct {
	mu       sync.Mutex // serialises get-or-create
	sessions *expirable.LRU[string, *session]
}

type session struct {
	mu      sync.Mutex
	history []domain.ChatTurn
}

func NewSessionStore(maxSessions int, ttl time.Duration) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		sessions: expirable.NewLRU[string, *session](maxSessions, nil, ttl),
	}
}

func (s *SessionStore) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		sess = &session{}
	}
	// re-adding refreshes the expiry of an active session
	s.sessions.Add(id, sess)
	return sess
}

// Append adds turns to the session in one step, keeps only the newest limit
// turns and returns a copy of the resulting history.
func (s *SessionStore) Append(ctx context.Context, sessionID string, turns []domain.ChatTurn, limit int) ([]domain.ChatTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess := s.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.history = append(sess.history, turns...)
	if limit > 0 && len(sess.history) > limit {
		trimmed := make([]domain.ChatTurn, limit)
		copy(trimmed, sess.history[len(sess.history)-limit:])
		sess.history = trimmed
	}

	return append([]domain.ChatTurn(nil), sess.history...), nil
}

func (s *SessionStore) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, ok := s.sessions.Peek(sessionID)
	if !ok {
		return nil, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return append([]domain.ChatTurn(nil), sess.history...), nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.sessions.Len()
}
