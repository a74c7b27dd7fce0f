package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Keys used in sync_state.
const (
	KeyIdentity       = "identity.user_id"
	KeyLastSnapshotAt = "remote.last_snapshot_at"
)

// SetState stores a key/value pair in sync_state.
func (s *Queries) SetState(ctx context.Context, key, value string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	return err
}

// GetState returns the value stored under key, or "" if absent.
func (s *Queries) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if isNoRows(err) {
		return "", nil
	}
	return value, err
}

// DeleteState removes key from sync_state.
func (s *Queries) DeleteState(ctx context.Context, key string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM sync_state WHERE key = ?`, key)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
