package repository

import (
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/store"
)

func userToRow(u model.User) store.User {
	return store.User{
		UserID:             u.UserID,
		Name:               u.Name,
		Email:              u.Email,
		ProfilePicturePath: u.ProfilePicture,
		Status:             u.Status,
		IsOnline:           u.IsOnline,
		LastSeen:           u.LastSeen,
		PhoneNumber:        u.PhoneNumber,
	}
}

func userFromRow(u store.User) model.User {
	return model.User{
		UserID:         u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicturePath,
		Status:         u.Status,
		IsOnline:       u.IsOnline,
		LastSeen:       u.LastSeen,
		PhoneNumber:    u.PhoneNumber,
	}
}

func chatToRow(c model.Chat) store.Chat {
	t := c.LastMessageType
	if t == "" {
		t = model.TypeText
	}
	return store.Chat{
		ChatID:              c.ChatID,
		OtherUserID:         c.OtherUserID,
		OtherUserName:       c.OtherUserName,
		OtherUserProfilePic: c.OtherUserProfilePic,
		LastMessage:         c.LastMessage,
		LastMessageTime:     c.LastMessageTime,
		LastMessageType:     string(t),
		UnreadCount:         c.UnreadCount,
		IsPinned:            c.IsPinned,
		IsArchived:          c.IsArchived,
		IsMuted:             c.IsMuted,
	}
}

func chatFromRow(c store.Chat) model.Chat {
	return model.Chat{
		ChatID:              c.ChatID,
		OtherUserID:         c.OtherUserID,
		OtherUserName:       c.OtherUserName,
		OtherUserProfilePic: c.OtherUserProfilePic,
		LastMessage:         c.LastMessage,
		LastMessageTime:     c.LastMessageTime,
		LastMessageType:     model.MessageType(c.LastMessageType),
		UnreadCount:         c.UnreadCount,
		IsPinned:            c.IsPinned,
		IsArchived:          c.IsArchived,
		IsMuted:             c.IsMuted,
	}
}

func messageToRow(m model.Message) store.Message {
	return store.Message{
		MessageID:          m.MessageID,
		ChatID:             m.ChatID,
		SenderID:           m.SenderID,
		SenderName:         m.SenderName,
		Text:               m.Text,
		Timestamp:          m.Timestamp,
		Type:               string(m.Type),
		MediaPath:          m.MediaPath,
		MediaThumbnailPath: m.MediaThumbnail,
		MediaSize:          m.MediaSize,
		MediaDuration:      m.MediaDuration,
		FileName:           m.FileName,
		ReplyTo:            m.ReplyTo,
		Reactions:          m.Reactions,
		IsRead:             m.IsRead,
		IsDelivered:        m.IsDelivered,
		IsSent:             m.IsSent,
		IsDeleted:          m.IsDeleted,
	}
}

func messageFromRow(m store.Message) model.Message {
	return model.Message{
		MessageID:      m.MessageID,
		ChatID:         m.ChatID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Text:           m.Text,
		Timestamp:      m.Timestamp,
		Type:           model.MessageType(m.Type),
		MediaPath:      m.MediaPath,
		MediaThumbnail: m.MediaThumbnailPath,
		MediaSize:      m.MediaSize,
		MediaDuration:  m.MediaDuration,
		FileName:       m.FileName,
		ReplyTo:        m.ReplyTo,
		Reactions:      m.Reactions,
		IsRead:         m.IsRead,
		IsDelivered:    m.IsDelivered,
		IsSent:         m.IsSent,
		IsDeleted:      m.IsDeleted,
	}
}

func mediaToRow(m model.MediaFile) store.MediaFile {
	return store.MediaFile{
		MediaID:       m.MediaID,
		MessageID:     m.MessageID,
		FilePath:      m.FilePath,
		FileType:      string(m.FileType),
		FileName:      m.FileName,
		FileSize:      m.FileSize,
		MimeType:      m.MimeType,
		ThumbnailPath: m.ThumbnailPath,
		Duration:      m.Duration,
		Width:         m.Width,
		Height:        m.Height,
		Timestamp:     m.Timestamp,
	}
}

func mediaFromRow(m store.MediaFile) model.MediaFile {
	return model.MediaFile{
		MediaID:       m.MediaID,
		MessageID:     m.MessageID,
		FilePath:      m.FilePath,
		FileType:      model.MessageType(m.FileType),
		FileName:      m.FileName,
		FileSize:      m.FileSize,
		MimeType:      m.MimeType,
		ThumbnailPath: m.ThumbnailPath,
		Duration:      m.Duration,
		Width:         m.Width,
		Height:        m.Height,
		Timestamp:     m.Timestamp,
	}
}

func contactToRow(c model.Contact) store.Contact {
	return store.Contact{
		ContactID:          c.ContactID,
		UserID:             c.UserID,
		Name:               c.Name,
		Email:              c.Email,
		PhoneNumber:        c.PhoneNumber,
		ProfilePicturePath: c.ProfilePicture,
		AddedAt:            c.AddedAt,
	}
}

func contactFromRow(c store.Contact) model.Contact {
	return model.Contact{
		ContactID:      c.ContactID,
		UserID:         c.UserID,
		Name:           c.Name,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		ProfilePicture: c.ProfilePicturePath,
		AddedAt:        c.AddedAt,
	}
}

// mapRows converts a slice of rows with fn. A nil slice maps to an empty one.
func mapRows[R, M any](rows []R, fn func(R) M) []M {
	out := make([]M, 0, len(rows))
	for _, row := range rows {
		out = append(out, fn(row))
	}
	return out
}
