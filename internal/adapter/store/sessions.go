package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fincheck/internal/domain"
	"go.etcd.io/bbolt"
)

var bucketSessions = []byte("sessions")

// BoltSessionStore keeps chat histories in a bbolt file. Each Append runs in
// a single read-write transaction, which bbolt serialises.
type BoltSessionStore struct {
	db *bbolt.DB
}

func NewBoltSessionStore(path string) (*BoltSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}

	return &BoltSessionStore{db: db}, nil
}

func (s *BoltSessionStore) Append(ctx context.Context, sessionID string, turns []domain.ChatTurn, limit int) ([]domain.ChatTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var history []domain.ChatTurn
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if data := b.Get([]byte(sessionID)); data != nil {
			if err := json.Unmarshal(data, &history); err != nil {
				return fmt.Errorf("corrupt session %s: %w", sessionID, err)
			}
		}

		history = append(history, turns...)
		if limit > 0 && len(history) > limit {
			history = history[len(history)-limit:]
		}

		data, err := json.Marshal(history)
		if err != nil {
			return err
		}
		return b.Put([]byte(sessionID), data)
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (s *BoltSessionStore) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var history []domain.ChatTurn
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(sessionID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &history)
	})
	return history, err
}

func (s *BoltSessionStore) Close() error {
	return s.db.Close()
}
