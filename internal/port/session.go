package port

import (
	"context"

	"fincheck/internal/domain"
)

// SessionStore keeps short chat histories keyed by session id.
type SessionStore interface {
	// Append adds turns to the session, keeps only the newest limit turns and
	// returns a copy of the resulting history. All turns land in one atomic
	// step per session id.
	Append(ctx context.Context, sessionID string, turns []domain.ChatTurn, limit int) ([]domain.ChatTurn, error)

	// History returns a copy of the session history, empty for unknown ids.
	History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)
}
