package repository

import (
	"context"
	"fmt"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
)

// GetMediaForMessage returns the media row attached to a message, or nil.
func (r *Repository) GetMediaForMessage(ctx context.Context, messageID string) (*model.MediaFile, error) {
	row, err := r.db.GetMediaByMessageID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	m := mediaFromRow(*row)
	return &m, nil
}

// ListChatMedia returns the media gallery of a chat, newest first.
func (r *Repository) ListChatMedia(ctx context.Context, chatID string) ([]model.MediaFile, error) {
	rows, err := r.db.ListMediaByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat media: %w", err)
	}
	return mapRows(rows, mediaFromRow), nil
}

// ListMediaByType returns every media row of type t, newest first.
func (r *Repository) ListMediaByType(ctx context.Context, t model.MessageType) ([]model.MediaFile, error) {
	rows, err := r.db.ListMediaByType(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return mapRows(rows, mediaFromRow), nil
}

// StorageUsage returns the bytes used by stored media.
func (r *Repository) StorageUsage(ctx context.Context) (int64, error) {
	n, err := r.files.StorageUsage(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage usage: %w", err)
	}
	return n, nil
}

// ClearStorage deletes every stored file and the media rows pointing at
// them. Messages keep their now dangling media paths.
func (r *Repository) ClearStorage(ctx context.Context) error {
	if err := r.files.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	if err := r.db.DeleteAllMedia(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	r.logger.Info("storage cleared")
	r.notify(nil, bus.KindMedia)
	return nil
}
