package store

import (
	"context"
	"time"
)

// QueueProfilePush adds a profile push to the outbox. Payload is the
// JSON record that will be written to the remote directory.
func (s *Queries) QueueProfilePush(ctx context.Context, userID, payload string) (int64, error) {
	now := time.Now().UnixMilli()
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO profile_outbox (user_id, payload, status, created_at, updated_at)
		VALUES (?, ?, 'queued', ?, ?)`,
		userID, payload, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkPushSending updates an outbox entry to 'sending' status.
func (s *Queries) MarkPushSending(ctx context.Context, id int64) error {
	now := time.Now().UnixMilli()
	_, err := s.q.ExecContext(ctx, `UPDATE profile_outbox SET status = 'sending', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// RequeuePush puts an entry back to 'queued' without counting an attempt.
func (s *Queries) RequeuePush(ctx context.Context, id int64) error {
	now := time.Now().UnixMilli()
	_, err := s.q.ExecContext(ctx, `UPDATE profile_outbox SET status = 'queued', updated_at = ? WHERE id = ? AND status = 'sending'`, now, id)
	return err
}

// RequeueSendingPushes returns every 'sending' entry to 'queued'. Entries
// left 'sending' were claimed by a run that stopped mid-publish.
func (s *Queries) RequeueSendingPushes(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()
	res, err := s.q.ExecContext(ctx, `UPDATE profile_outbox SET status = 'queued', updated_at = ? WHERE status = 'sending'`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkPushSent updates an outbox entry to 'sent'.
func (s *Queries) MarkPushSent(ctx context.Context, id int64) error {
	now := time.Now().UnixMilli()
	_, err := s.q.ExecContext(ctx, `UPDATE profile_outbox SET status = 'sent', error_message = '', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// MarkPushFailed records a failed attempt. The entry goes back to 'queued'
// while attempts remain below maxAttempts and to 'failed' after that.
func (s *Queries) MarkPushFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error {
	now := time.Now().UnixMilli()
	_, err := s.q.ExecContext(ctx, `
		UPDATE profile_outbox SET
			attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'queued' END,
			error_message = ?,
			updated_at = ?
		WHERE id = ?`, maxAttempts, errMsg, now, id)
	return err
}

// PendingProfilePushes returns queued entries, oldest first.
func (s *Queries) PendingProfilePushes(ctx context.Context) ([]OutboxEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, payload, status, attempts, error_message
		FROM profile_outbox WHERE status = 'queued' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Payload, &e.Status, &e.Attempts, &e.ErrorMessage); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetProfilePush returns an outbox entry by id, or nil.
func (s *Queries) GetProfilePush(ctx context.Context, id int64) (*OutboxEntry, error) {
	var e OutboxEntry
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, payload, status, attempts, error_message
		FROM profile_outbox WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.Payload, &e.Status, &e.Attempts, &e.ErrorMessage)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
