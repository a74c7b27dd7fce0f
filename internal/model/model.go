// Package model holds the domain objects handed to callers of the repository.
package model

import "fmt"

// MessageType classifies a message payload.
type MessageType string

const (
	TypeText     MessageType = "TEXT"
	TypeImage    MessageType = "IMAGE"
	TypeVideo    MessageType = "VIDEO"
	TypeAudio    MessageType = "AUDIO"
	TypeDocument MessageType = "DOCUMENT"
	TypeLocation MessageType = "LOCATION"
	TypeContact  MessageType = "CONTACT"
)

var messageTypes = map[string]MessageType{
	"TEXT":     TypeText,
	"IMAGE":    TypeImage,
	"VIDEO":    TypeVideo,
	"AUDIO":    TypeAudio,
	"DOCUMENT": TypeDocument,
	"LOCATION": TypeLocation,
	"CONTACT":  TypeContact,
}

// ParseMessageType returns the MessageType named by s.
func ParseMessageType(s string) (MessageType, error) {
	t, ok := messageTypes[s]
	if !ok {
		return "", fmt.Errorf("unknown message type %q", s)
	}
	return t, nil
}

// IsMedia reports whether messages of this type carry a file.
func (t MessageType) IsMedia() bool {
	switch t {
	case TypeImage, TypeVideo, TypeAudio, TypeDocument:
		return true
	}
	return false
}

type User struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
	Status         string `json:"status"`
	IsOnline       bool   `json:"isOnline"`
	LastSeen       int64  `json:"lastSeen"`
	PhoneNumber    string `json:"phoneNumber"`
}

// Chat is a one-to-one conversation with OtherUserID. The last message
// fields summarize the newest message. IsTyping is never persisted.
type Chat struct {
	ChatID              string      `json:"chatId"`
	OtherUserID         string      `json:"otherUserId"`
	OtherUserName       string      `json:"otherUserName"`
	OtherUserProfilePic string      `json:"otherUserProfilePic"`
	LastMessage         string      `json:"lastMessage"`
	LastMessageTime     int64       `json:"lastMessageTime"`
	LastMessageType     MessageType `json:"lastMessageType"`
	UnreadCount         int         `json:"unreadCount"`
	IsPinned            bool        `json:"isPinned"`
	IsArchived          bool        `json:"isArchived"`
	IsMuted             bool        `json:"isMuted"`
	IsTyping            bool        `json:"isTyping"`
}

type Message struct {
	MessageID      string            `json:"messageId"`
	ChatID         string            `json:"chatId"`
	SenderID       string            `json:"senderId"`
	SenderName     string            `json:"senderName"`
	Text           string            `json:"text"`
	Timestamp      int64             `json:"timestamp"`
	Type           MessageType       `json:"type"`
	MediaPath      string            `json:"mediaPath"`
	MediaThumbnail string            `json:"mediaThumbnail"`
	MediaSize      int64             `json:"mediaSize"`
	MediaDuration  int64             `json:"mediaDuration"` // seconds
	FileName       string            `json:"fileName"`
	ReplyTo        string            `json:"replyTo"`
	Reactions      map[string]string `json:"reactions,omitempty"` // user id to emoji
	IsRead         bool              `json:"isRead"`
	IsDelivered    bool              `json:"isDelivered"`
	IsSent         bool              `json:"isSent"`
	IsDeleted      bool              `json:"isDeleted"`
}

type MediaFile struct {
	MediaID       string      `json:"mediaId"`
	MessageID     string      `json:"messageId"`
	FilePath      string      `json:"filePath"`
	FileType      MessageType `json:"fileType"`
	FileName      string      `json:"fileName"`
	FileSize      int64       `json:"fileSize"`
	MimeType      string      `json:"mimeType"`
	ThumbnailPath string      `json:"thumbnailPath"`
	Duration      int64       `json:"duration"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	Timestamp     int64       `json:"timestamp"`
}

// Contact marks a user as part of the local address book.
type Contact struct {
	ContactID      string `json:"contactId"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	ProfilePicture string `json:"profilePicture"`
	AddedAt        int64  `json:"addedAt"`
}
