package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/store"
)

// SaveChat inserts or updates a chat. A second chat for the same
// counterpart is refused with store.ErrChatConflict.
func (r *Repository) SaveChat(ctx context.Context, c model.Chat) error {
	row := chatToRow(c)
	if err := r.db.UpsertChat(ctx, &row); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	r.notify(c.ChatID, bus.KindChats)
	return nil
}

// GetChatByID returns a chat, or nil.
func (r *Repository) GetChatByID(ctx context.Context, chatID string) (*model.Chat, error) {
	row, err := r.db.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	c := chatFromRow(*row)
	return &c, nil
}

// GetChatByUserID returns the chat with a counterpart, or nil.
func (r *Repository) GetChatByUserID(ctx context.Context, userID string) (*model.Chat, error) {
	row, err := r.db.GetChatByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get chat by user: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	c := chatFromRow(*row)
	return &c, nil
}

// ListChats returns the chats that are not archived, pinned first and then
// most recent first.
func (r *Repository) ListChats(ctx context.Context) ([]model.Chat, error) {
	rows, err := r.db.ListActiveChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return mapRows(rows, chatFromRow), nil
}

// ListArchivedChats returns archived chats, most recent first.
func (r *Repository) ListArchivedChats(ctx context.Context) ([]model.Chat, error) {
	rows, err := r.db.ListArchivedChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archived chats: %w", err)
	}
	return mapRows(rows, chatFromRow), nil
}

// WatchChats emits ListChats after every change to chats.
func (r *Repository) WatchChats(ctx context.Context) (<-chan []model.Chat, error) {
	return watch(ctx, r, "chats", []string{bus.KindChats}, r.ListChats)
}

// WatchArchivedChats emits ListArchivedChats after every change to chats.
func (r *Repository) WatchArchivedChats(ctx context.Context) (<-chan []model.Chat, error) {
	return watch(ctx, r, "archived_chats", []string{bus.KindChats}, r.ListArchivedChats)
}

// CreateOrGetChat returns the id of the chat with otherUserID, creating it
// with zeroed counters when absent. Concurrent calls for the same
// counterpart resolve to one chat.
func (r *Repository) CreateOrGetChat(ctx context.Context, otherUserID, otherUserName string) (string, error) {
	if existing, err := r.db.GetChatByUserID(ctx, otherUserID); err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	} else if existing != nil {
		return existing.ChatID, nil
	}

	c := store.Chat{
		ChatID:          uuid.NewString(),
		OtherUserID:     otherUserID,
		OtherUserName:   otherUserName,
		LastMessageTime: r.nowMilli(),
		LastMessageType: string(model.TypeText),
	}
	if u, err := r.db.GetUser(ctx, otherUserID); err == nil && u != nil {
		c.OtherUserProfilePic = u.ProfilePicturePath
		if c.OtherUserName == "" {
			c.OtherUserName = u.Name
		}
	}
	id, err := r.db.InsertChatIfAbsent(ctx, &c)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	if id == c.ChatID {
		r.notify(id, bus.KindChats)
	}
	return id, nil
}

// UpdateLastMessage writes the summary of a chat's newest message.
func (r *Repository) UpdateLastMessage(ctx context.Context, chatID, text string, t model.MessageType) error {
	if err := r.db.UpdateLastMessage(ctx, chatID, text, r.nowMilli(), string(t)); err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	r.notify(chatID, bus.KindChats)
	return nil
}

// ClearUnreadCount resets a chat's unread counter.
func (r *Repository) ClearUnreadCount(ctx context.Context, chatID string) error {
	if err := r.db.ClearUnreadCount(ctx, chatID); err != nil {
		return fmt.Errorf("clear unread: %w", err)
	}
	r.notify(chatID, bus.KindChats)
	return nil
}

// SetPinned pins or unpins a chat.
func (r *Repository) SetPinned(ctx context.Context, chatID string, on bool) error {
	return r.setFlag(ctx, chatID, "pinned", on, r.db.SetChatPinned)
}

// SetArchived archives or restores a chat.
func (r *Repository) SetArchived(ctx context.Context, chatID string, on bool) error {
	return r.setFlag(ctx, chatID, "archived", on, r.db.SetChatArchived)
}

// SetMuted mutes or unmutes a chat.
func (r *Repository) SetMuted(ctx context.Context, chatID string, on bool) error {
	return r.setFlag(ctx, chatID, "muted", on, r.db.SetChatMuted)
}

func (r *Repository) setFlag(ctx context.Context, chatID, name string, on bool, set func(context.Context, string, bool) error) error {
	if err := r.requireChat(ctx, chatID); err != nil {
		return err
	}
	if err := set(ctx, chatID, on); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	r.notify(chatID, bus.KindChats)
	return nil
}

func (r *Repository) requireChat(ctx context.Context, chatID string) error {
	c, err := r.db.GetChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	return nil
}
