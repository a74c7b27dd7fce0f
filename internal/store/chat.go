package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const chatColumns = `chat_id, other_user_id, other_user_name, other_user_profile_pic,
	last_message, last_message_time, last_message_type, unread_count,
	is_pinned, is_archived, is_muted`

func scanChat(s scanner) (*Chat, error) {
	var c Chat
	if err := s.Scan(&c.ChatID, &c.OtherUserID, &c.OtherUserName, &c.OtherUserProfilePic,
		&c.LastMessage, &c.LastMessageTime, &c.LastMessageType, &c.UnreadCount,
		&c.IsPinned, &c.IsArchived, &c.IsMuted); err != nil {
		return nil, err
	}
	return &c, nil
}

// ErrChatConflict is returned by UpsertChat when another chat already
// exists for the same counterpart.
var ErrChatConflict = errors.New("another chat exists for this user")

// UpsertChat inserts a chat or updates the row with the same chat id.
func (s *Queries) UpsertChat(ctx context.Context, c *Chat) error {
	var other string
	err := s.q.QueryRowContext(ctx,
		`SELECT chat_id FROM chats WHERE other_user_id = ? AND chat_id <> ?`,
		c.OtherUserID, c.ChatID).Scan(&other)
	switch {
	case err == nil:
		return fmt.Errorf("upsert chat %s: %w (%s)", c.ChatID, ErrChatConflict, other)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			other_user_id = excluded.other_user_id,
			other_user_name = excluded.other_user_name,
			other_user_profile_pic = excluded.other_user_profile_pic,
			last_message = excluded.last_message,
			last_message_time = excluded.last_message_time,
			last_message_type = excluded.last_message_type,
			unread_count = excluded.unread_count,
			is_pinned = excluded.is_pinned,
			is_archived = excluded.is_archived,
			is_muted = excluded.is_muted`,
		c.ChatID, c.OtherUserID, c.OtherUserName, c.OtherUserProfilePic,
		c.LastMessage, c.LastMessageTime, c.LastMessageType, c.UnreadCount,
		c.IsPinned, c.IsArchived, c.IsMuted)
	return err
}

// InsertChatIfAbsent inserts c unless a chat with the same counterpart
// exists, and returns the chat id that is stored for that counterpart.
func (s *Queries) InsertChatIfAbsent(ctx context.Context, c *Chat) (string, error) {
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(other_user_id) DO NOTHING`,
		c.ChatID, c.OtherUserID, c.OtherUserName, c.OtherUserProfilePic,
		c.LastMessage, c.LastMessageTime, c.LastMessageType, c.UnreadCount,
		c.IsPinned, c.IsArchived, c.IsMuted); err != nil {
		return "", err
	}
	var id string
	err := s.q.QueryRowContext(ctx, `SELECT chat_id FROM chats WHERE other_user_id = ?`, c.OtherUserID).Scan(&id)
	return id, err
}

// GetChat returns a chat by id, or nil if absent.
func (s *Queries) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	c, err := scanChat(s.q.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE chat_id = ?`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// GetChatByUserID returns the chat with the given counterpart, or nil.
func (s *Queries) GetChatByUserID(ctx context.Context, userID string) (*Chat, error) {
	c, err := scanChat(s.q.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE other_user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListChats returns every chat, pinned first, then most recent first.
func (s *Queries) ListChats(ctx context.Context) ([]Chat, error) {
	return s.queryChats(ctx, `SELECT `+chatColumns+` FROM chats ORDER BY is_pinned DESC, last_message_time DESC`)
}

// ListActiveChats returns the chats that are not archived, pinned first.
func (s *Queries) ListActiveChats(ctx context.Context) ([]Chat, error) {
	return s.queryChats(ctx, `SELECT `+chatColumns+` FROM chats WHERE is_archived = 0 ORDER BY is_pinned DESC, last_message_time DESC`)
}

// ListArchivedChats returns the archived chats, most recent first.
func (s *Queries) ListArchivedChats(ctx context.Context) ([]Chat, error) {
	return s.queryChats(ctx, `SELECT `+chatColumns+` FROM chats WHERE is_archived = 1 ORDER BY last_message_time DESC`)
}

// UpdateLastMessage rewrites the last-message cache of a chat.
func (s *Queries) UpdateLastMessage(ctx context.Context, chatID, message string, at int64, msgType string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE chats SET last_message = ?, last_message_time = ?, last_message_type = ?
		WHERE chat_id = ?`, message, at, msgType, chatID)
	return err
}

// IncrementUnreadCount adds one to the unread counter of a chat.
func (s *Queries) IncrementUnreadCount(ctx context.Context, chatID string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE chats SET unread_count = unread_count + 1 WHERE chat_id = ?`, chatID)
	return err
}

// ClearUnreadCount resets the unread counter of a chat.
func (s *Queries) ClearUnreadCount(ctx context.Context, chatID string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE chats SET unread_count = 0 WHERE chat_id = ?`, chatID)
	return err
}

// SetChatPinned flips the pinned flag.
func (s *Queries) SetChatPinned(ctx context.Context, chatID string, pinned bool) error {
	_, err := s.q.ExecContext(ctx, `UPDATE chats SET is_pinned = ? WHERE chat_id = ?`, pinned, chatID)
	return err
}

// SetChatArchived flips the archived flag.
func (s *Queries) SetChatArchived(ctx context.Context, chatID string, archived bool) error {
	_, err := s.q.ExecContext(ctx, `UPDATE chats SET is_archived = ? WHERE chat_id = ?`, archived, chatID)
	return err
}

// SetChatMuted flips the muted flag.
func (s *Queries) SetChatMuted(ctx context.Context, chatID string, muted bool) error {
	_, err := s.q.ExecContext(ctx, `UPDATE chats SET is_muted = ? WHERE chat_id = ?`, muted, chatID)
	return err
}

// DeleteChat removes a chat row. Its messages are left untouched.
func (s *Queries) DeleteChat(ctx context.Context, chatID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID)
	return err
}

func (s *Queries) queryChats(ctx context.Context, query string, args ...any) ([]Chat, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}
