package repository

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/files"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/store"
	"go.uber.org/zap"
)

// labelFor is the chat list summary of a message.
func labelFor(m model.Message) string {
	switch m.Type {
	case model.TypeText:
		return m.Text
	case model.TypeImage:
		return "📷 Photo"
	case model.TypeVideo:
		return "🎥 Video"
	case model.TypeAudio:
		return "🎤 Voice message"
	case model.TypeDocument:
		return "📄 " + m.FileName
	default:
		return "Message"
	}
}

// GetMessage returns a message, or nil.
func (r *Repository) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	row, err := r.db.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	m := messageFromRow(*row)
	return &m, nil
}

// ListMessages returns the visible messages of a chat, oldest first.
func (r *Repository) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := r.db.ListActiveMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return mapRows(rows, messageFromRow), nil
}

// WatchMessages emits ListMessages after every change to messages.
func (r *Repository) WatchMessages(ctx context.Context, chatID string) (<-chan []model.Message, error) {
	return watch(ctx, r, "messages", []string{bus.KindMessages}, func(ctx context.Context) ([]model.Message, error) {
		return r.ListMessages(ctx, chatID)
	})
}

// SaveMessage stores m as sent and delivered and refreshes the chat summary.
// An empty message id is generated.
func (r *Repository) SaveMessage(ctx context.Context, m model.Message) (model.Message, error) {
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	if m.Timestamp == 0 {
		m.Timestamp = r.nowMilli()
	}
	m.IsSent = true
	m.IsDelivered = true

	err := r.db.InTx(ctx, func(q *store.Queries) error {
		return r.writeMessage(ctx, q, m, nil)
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("save message: %w", err)
	}
	r.notify(m.ChatID, bus.KindMessages, bus.KindChats)
	return m, nil
}

// writeMessage upserts m, its media row when present, and the chat summary.
func (r *Repository) writeMessage(ctx context.Context, q *store.Queries, m model.Message, media *model.MediaFile) error {
	row := messageToRow(m)
	if err := q.UpsertMessage(ctx, &row); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	if media != nil {
		mrow := mediaToRow(*media)
		if err := q.UpsertMediaFile(ctx, &mrow); err != nil {
			return fmt.Errorf("upsert media: %w", err)
		}
	}
	if err := q.UpdateLastMessage(ctx, m.ChatID, labelFor(m), r.nowMilli(), string(m.Type)); err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}

// sender returns the signed-in user after checking that chatID exists.
func (r *Repository) sender(ctx context.Context, chatID string) (model.User, error) {
	me, ok := r.ident.Current()
	if !ok {
		return model.User{}, ErrNotAuthenticated
	}
	if err := r.requireChat(ctx, chatID); err != nil {
		return model.User{}, err
	}
	return me, nil
}

func (r *Repository) outgoing(me model.User, chatID string, t model.MessageType) model.Message {
	return model.Message{
		MessageID:   uuid.NewString(),
		ChatID:      chatID,
		SenderID:    me.UserID,
		SenderName:  me.Name,
		Timestamp:   r.nowMilli(),
		Type:        t,
		IsSent:      true,
		IsDelivered: true,
	}
}

// SendText sends a text message from the signed-in user.
func (r *Repository) SendText(ctx context.Context, chatID, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}
	me, err := r.sender(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	m := r.outgoing(me, chatID, model.TypeText)
	m.Text = text

	err = r.db.InTx(ctx, func(q *store.Queries) error {
		return r.writeMessage(ctx, q, m, nil)
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("send text: %w", err)
	}
	r.notify(chatID, bus.KindMessages, bus.KindChats)
	return m, nil
}

// SendImage stores img as a JPEG and sends it. caption becomes the message
// text; the chat summary is the photo label either way.
func (r *Repository) SendImage(ctx context.Context, chatID string, img io.Reader, caption string) (model.Message, error) {
	me, err := r.sender(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	saved, err := r.files.SaveImage(ctx, img, me.UserID)
	if err != nil {
		return model.Message{}, fmt.Errorf("send image: %w", err)
	}
	m := r.outgoing(me, chatID, model.TypeImage)
	m.Text = caption
	return r.sendMedia(ctx, m, saved, fmt.Sprintf("image_%d.jpg", m.Timestamp), 0)
}

// SendVideo copies video, extracts a thumbnail when possible and sends it.
func (r *Repository) SendVideo(ctx context.Context, chatID string, video io.Reader) (model.Message, error) {
	me, err := r.sender(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	saved, err := r.files.SaveVideo(ctx, video, me.UserID)
	if err != nil {
		return model.Message{}, fmt.Errorf("send video: %w", err)
	}
	m := r.outgoing(me, chatID, model.TypeVideo)
	return r.sendMedia(ctx, m, saved, fmt.Sprintf("video_%d.mp4", m.Timestamp), r.files.Duration(ctx, saved.Path))
}

// SendDocument copies doc under its original name and sends it.
func (r *Repository) SendDocument(ctx context.Context, chatID string, doc io.Reader, fileName string) (model.Message, error) {
	me, err := r.sender(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	saved, err := r.files.SaveDocument(ctx, doc, me.UserID, fileName)
	if err != nil {
		return model.Message{}, fmt.Errorf("send document: %w", err)
	}
	m := r.outgoing(me, chatID, model.TypeDocument)
	return r.sendMedia(ctx, m, saved, fileName, 0)
}

// SendVoice moves a finished recording into storage and sends it. When
// seconds is not positive the duration is probed from the file.
func (r *Repository) SendVoice(ctx context.Context, chatID, recordingPath string, seconds int64) (model.Message, error) {
	me, err := r.sender(ctx, chatID)
	if err != nil {
		return model.Message{}, err
	}
	saved, err := r.files.SaveAudio(ctx, recordingPath, me.UserID)
	if err != nil {
		return model.Message{}, fmt.Errorf("send voice: %w", err)
	}
	if seconds <= 0 {
		seconds = r.files.Duration(ctx, saved.Path)
	}
	m := r.outgoing(me, chatID, model.TypeAudio)
	return r.sendMedia(ctx, m, saved, fmt.Sprintf("voice_%d.m4a", m.Timestamp), seconds)
}

// sendMedia records a message whose payload is already on disk. If the
// transaction fails the files written for it are removed.
func (r *Repository) sendMedia(ctx context.Context, m model.Message, saved *files.Saved, fileName string, seconds int64) (model.Message, error) {
	m.MediaPath = saved.Path
	m.MediaThumbnail = saved.ThumbnailPath
	m.MediaSize = saved.Size
	m.MediaDuration = seconds
	if m.Type == model.TypeDocument {
		m.FileName = fileName
	}
	media := model.MediaFile{
		MediaID:       uuid.NewString(),
		MessageID:     m.MessageID,
		FilePath:      saved.Path,
		FileType:      m.Type,
		FileName:      fileName,
		FileSize:      saved.Size,
		MimeType:      files.MimeType(saved.Path),
		ThumbnailPath: saved.ThumbnailPath,
		Duration:      seconds,
		Width:         saved.Width,
		Height:        saved.Height,
		Timestamp:     m.Timestamp,
	}

	err := r.db.InTx(ctx, func(q *store.Queries) error {
		return r.writeMessage(ctx, q, m, &media)
	})
	if err != nil {
		r.removeFiles(saved.Path, saved.ThumbnailPath)
		return model.Message{}, fmt.Errorf("send %s: %w", strings.ToLower(string(m.Type)), err)
	}
	r.logger.Info("media sent",
		zap.String("chat_id", m.ChatID),
		zap.String("type", string(m.Type)),
		zap.Int64("size", saved.Size))
	r.notify(m.ChatID, bus.KindMessages, bus.KindChats, bus.KindMedia)
	return m, nil
}

func (r *Repository) removeFiles(paths ...string) {
	for _, p := range paths {
		if err := r.files.DeleteFile(p); err != nil {
			r.logger.Warn("failed to remove file", zap.String("path", p), zap.Error(err))
		}
	}
}

// ReceiveMessage stores an inbound message. The chat's unread counter is
// bumped unless a conversation view for it is open, in which case the
// message is stored as read.
func (r *Repository) ReceiveMessage(ctx context.Context, m model.Message) (model.Message, error) {
	if _, err := model.ParseMessageType(string(m.Type)); err != nil {
		return model.Message{}, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	if err := r.requireChat(ctx, m.ChatID); err != nil {
		return model.Message{}, err
	}
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	if m.Timestamp == 0 {
		m.Timestamp = r.nowMilli()
	}
	m.IsDelivered = true
	reading := r.isReading(m.ChatID)
	if reading {
		m.IsRead = true
	}

	err := r.db.InTx(ctx, func(q *store.Queries) error {
		if err := r.writeMessage(ctx, q, m, nil); err != nil {
			return err
		}
		if reading {
			return nil
		}
		return q.IncrementUnreadCount(ctx, m.ChatID)
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("receive message: %w", err)
	}
	r.notify(m.ChatID, bus.KindMessages, bus.KindChats)
	return m, nil
}

// MarkMessagesAsRead marks every message in chatID not sent by
// currentUserID as read and resets the chat's unread counter.
func (r *Repository) MarkMessagesAsRead(ctx context.Context, chatID, currentUserID string) error {
	err := r.db.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.MarkMessagesAsRead(ctx, chatID, currentUserID); err != nil {
			return err
		}
		return q.ClearUnreadCount(ctx, chatID)
	})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	r.notify(chatID, bus.KindMessages, bus.KindChats)
	return nil
}

// MarkDelivered flags a message as delivered.
func (r *Repository) MarkDelivered(ctx context.Context, messageID string) error {
	if err := r.db.MarkDelivered(ctx, messageID); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	r.notify(messageID, bus.KindMessages)
	return nil
}

// DeleteMessage hides a message from its thread. The row is kept.
func (r *Repository) DeleteMessage(ctx context.Context, messageID string) error {
	m, err := r.db.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if m == nil {
		return nil
	}
	if err := r.db.MarkDeleted(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	r.notify(m.ChatID, bus.KindMessages)
	return nil
}

// ClearChat removes every message of a chat and their media, then resets
// the chat summary. The chat itself stays. Returns the number of messages
// removed.
func (r *Repository) ClearChat(ctx context.Context, chatID string) (int64, error) {
	if err := r.requireChat(ctx, chatID); err != nil {
		return 0, err
	}
	media, err := r.db.ListMediaByChat(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("clear chat: %w", err)
	}

	var removed int64
	err = r.db.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.DeleteMediaByChat(ctx, chatID); err != nil {
			return err
		}
		n, err := q.DeleteMessagesByChat(ctx, chatID)
		if err != nil {
			return err
		}
		removed = n
		if err := q.UpdateLastMessage(ctx, chatID, "", r.nowMilli(), string(model.TypeText)); err != nil {
			return err
		}
		return q.ClearUnreadCount(ctx, chatID)
	})
	if err != nil {
		return 0, fmt.Errorf("clear chat: %w", err)
	}

	for _, f := range media {
		r.removeFiles(f.FilePath, f.ThumbnailPath)
	}
	r.logger.Info("chat cleared", zap.String("chat_id", chatID), zap.Int64("messages", removed), zap.Int("media", len(media)))
	r.notify(chatID, bus.KindMessages, bus.KindChats, bus.KindMedia)
	return removed, nil
}
