package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const messageColumns = `message_id, chat_id, sender_id, sender_name, text, timestamp, type,
	media_path, media_thumbnail_path, media_size, media_duration, file_name,
	reply_to, reactions, is_read, is_delivered, is_sent, is_deleted`

func scanMessage(s scanner) (*Message, error) {
	var m Message
	var reactions string
	if err := s.Scan(&m.MessageID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Text, &m.Timestamp, &m.Type,
		&m.MediaPath, &m.MediaThumbnailPath, &m.MediaSize, &m.MediaDuration, &m.FileName,
		&m.ReplyTo, &reactions, &m.IsRead, &m.IsDelivered, &m.IsSent, &m.IsDeleted); err != nil {
		return nil, err
	}
	r, err := decodeReactions(reactions)
	if err != nil {
		return nil, fmt.Errorf("message %q: %w", m.MessageID, err)
	}
	m.Reactions = r
	return &m, nil
}

func encodeReactions(r map[string]string) (string, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode reactions: %w", err)
	}
	return string(b), nil
}

func decodeReactions(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var r map[string]string
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("decode reactions: %w", err)
	}
	if len(r) == 0 {
		return nil, nil
	}
	return r, nil
}

// UpsertMessage inserts a message or replaces the row with the same id.
func (s *Queries) UpsertMessage(ctx context.Context, m *Message) error {
	reactions, err := encodeReactions(m.Reactions)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.ChatID, m.SenderID, m.SenderName, m.Text, m.Timestamp, m.Type,
		m.MediaPath, m.MediaThumbnailPath, m.MediaSize, m.MediaDuration, m.FileName,
		m.ReplyTo, reactions, m.IsRead, m.IsDelivered, m.IsSent, m.IsDeleted)
	return err
}

// UpsertMessages stores a batch of messages with the same semantics as UpsertMessage.
func (s *Queries) UpsertMessages(ctx context.Context, msgs []Message) error {
	for i := range msgs {
		if err := s.UpsertMessage(ctx, &msgs[i]); err != nil {
			return fmt.Errorf("upsert message %q: %w", msgs[i].MessageID, err)
		}
	}
	return nil
}

// GetMessage returns a message by id, or nil if absent.
func (s *Queries) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	m, err := scanMessage(s.q.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE message_id = ?`, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListMessages returns every message of a chat in ascending timestamp order,
// soft-deleted ones included.
func (s *Queries) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	return s.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages WHERE chat_id = ? ORDER BY timestamp ASC`, chatID)
}

// ListActiveMessages returns the non-deleted messages of a chat in ascending timestamp order.
func (s *Queries) ListActiveMessages(ctx context.Context, chatID string) ([]Message, error) {
	return s.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages WHERE chat_id = ? AND is_deleted = 0 ORDER BY timestamp ASC`, chatID)
}

// GetLastMessage returns the newest message of a chat, or nil.
func (s *Queries) GetLastMessage(ctx context.Context, chatID string) (*Message, error) {
	m, err := scanMessage(s.q.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE chat_id = ? ORDER BY timestamp DESC LIMIT 1`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListUnreadMessages returns unread messages of a chat not sent by currentUserID.
func (s *Queries) ListUnreadMessages(ctx context.Context, chatID, currentUserID string) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = ? AND is_read = 0 AND sender_id != ?
		ORDER BY timestamp ASC`, chatID, currentUserID)
}

// ListMediaMessages returns the non-text messages of a chat, newest first.
func (s *Queries) ListMediaMessages(ctx context.Context, chatID string) ([]Message, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE type != 'TEXT' AND chat_id = ?
		ORDER BY timestamp DESC`, chatID)
}

// MarkMessagesAsRead sets is_read on every unread message of a chat that
// was not sent by currentUserID. Returns the number of rows changed.
func (s *Queries) MarkMessagesAsRead(ctx context.Context, chatID, currentUserID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE chat_id = ? AND sender_id != ? AND is_read = 0`, chatID, currentUserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkDelivered sets is_delivered on a message.
func (s *Queries) MarkDelivered(ctx context.Context, messageID string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE messages SET is_delivered = 1 WHERE message_id = ?`, messageID)
	return err
}

// MarkSent sets is_sent on a message.
func (s *Queries) MarkSent(ctx context.Context, messageID string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE messages SET is_sent = 1 WHERE message_id = ?`, messageID)
	return err
}

// MarkDeleted soft-deletes a message.
func (s *Queries) MarkDeleted(ctx context.Context, messageID string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE messages SET is_deleted = 1 WHERE message_id = ?`, messageID)
	return err
}

// DeleteMessage physically removes one message.
func (s *Queries) DeleteMessage(ctx context.Context, messageID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM messages WHERE message_id = ?`, messageID)
	return err
}

// DeleteMessagesByChat physically removes every message of a chat.
// Returns the number of rows removed.
func (s *Queries) DeleteMessagesByChat(ctx context.Context, chatID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Queries) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}
