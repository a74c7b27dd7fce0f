package store

import (
	"context"
	"database/sql"
	"errors"
)

const mediaColumns = `media_id, message_id, file_path, file_type, file_name, file_size,
	mime_type, thumbnail_path, duration, width, height, timestamp`

func scanMedia(s scanner) (*MediaFile, error) {
	var m MediaFile
	if err := s.Scan(&m.MediaID, &m.MessageID, &m.FilePath, &m.FileType, &m.FileName, &m.FileSize,
		&m.MimeType, &m.ThumbnailPath, &m.Duration, &m.Width, &m.Height, &m.Timestamp); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMediaFile inserts a media row or replaces the one with the same id.
func (s *Queries) UpsertMediaFile(ctx context.Context, m *MediaFile) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO media_files (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MediaID, m.MessageID, m.FilePath, m.FileType, m.FileName, m.FileSize,
		m.MimeType, m.ThumbnailPath, m.Duration, m.Width, m.Height, m.Timestamp)
	return err
}

// GetMedia returns a media row by id, or nil.
func (s *Queries) GetMedia(ctx context.Context, mediaID string) (*MediaFile, error) {
	m, err := scanMedia(s.q.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE media_id = ?`, mediaID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetMediaByMessageID returns the media row attached to a message, or nil.
func (s *Queries) GetMediaByMessageID(ctx context.Context, messageID string) (*MediaFile, error) {
	m, err := scanMedia(s.q.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE message_id = ? LIMIT 1`, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListMediaByType returns media rows of one type, newest first.
func (s *Queries) ListMediaByType(ctx context.Context, fileType string) ([]MediaFile, error) {
	return s.queryMedia(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE file_type = ? ORDER BY timestamp DESC`, fileType)
}

// ListMedia returns every media row, newest first.
func (s *Queries) ListMedia(ctx context.Context) ([]MediaFile, error) {
	return s.queryMedia(ctx, `SELECT `+mediaColumns+` FROM media_files ORDER BY timestamp DESC`)
}

// ListMediaByChat returns the media rows of a chat's messages, newest first.
func (s *Queries) ListMediaByChat(ctx context.Context, chatID string) ([]MediaFile, error) {
	return s.queryMedia(ctx, `
		SELECT f.media_id, f.message_id, f.file_path, f.file_type, f.file_name, f.file_size,
			f.mime_type, f.thumbnail_path, f.duration, f.width, f.height, f.timestamp
		FROM media_files f
		JOIN messages m ON m.message_id = f.message_id
		WHERE m.chat_id = ?
		ORDER BY f.timestamp DESC`, chatID)
}

// DeleteMedia removes one media row.
func (s *Queries) DeleteMedia(ctx context.Context, mediaID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM media_files WHERE media_id = ?`, mediaID)
	return err
}

// DeleteMediaByMessageID removes the media rows attached to a message.
func (s *Queries) DeleteMediaByMessageID(ctx context.Context, messageID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM media_files WHERE message_id = ?`, messageID)
	return err
}

// DeleteMediaByChat removes the media rows of every message in a chat.
// It must run before the messages themselves are deleted.
func (s *Queries) DeleteMediaByChat(ctx context.Context, chatID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM media_files
		WHERE message_id IN (SELECT message_id FROM messages WHERE chat_id = ?)`, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAllMedia removes every media row.
func (s *Queries) DeleteAllMedia(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM media_files`)
	return err
}

func (s *Queries) queryMedia(ctx context.Context, query string, args ...any) ([]MediaFile, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []MediaFile
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
