package store

// User is a row of the users table.
type User struct {
	UserID             string
	Name               string
	Email              string
	ProfilePicturePath string
	Status             string
	IsOnline           bool
	LastSeen           int64
	PhoneNumber        string
}

// Chat is a row of the chats table. The last message fields cache the
// newest message of the conversation.
type Chat struct {
	ChatID              string
	OtherUserID         string
	OtherUserName       string
	OtherUserProfilePic string
	LastMessage         string
	LastMessageTime     int64
	LastMessageType     string
	UnreadCount         int
	IsPinned            bool
	IsArchived          bool
	IsMuted             bool
}

// Message is a row of the messages table. Media fields are only
// meaningful when Type is not TEXT.
type Message struct {
	MessageID          string
	ChatID             string
	SenderID           string
	SenderName         string
	Text               string
	Timestamp          int64
	Type               string
	MediaPath          string
	MediaThumbnailPath string
	MediaSize          int64
	MediaDuration      int64
	FileName           string
	ReplyTo            string
	Reactions          map[string]string // stored as a JSON string column
	IsRead             bool
	IsDelivered        bool
	IsSent             bool
	IsDeleted          bool
}

// MediaFile is a row of the media_files table.
type MediaFile struct {
	MediaID       string
	MessageID     string
	FilePath      string
	FileType      string
	FileName      string
	FileSize      int64
	MimeType      string
	ThumbnailPath string
	Duration      int64
	Width         int
	Height        int
	Timestamp     int64
}

// Contact is a row of the contacts table.
type Contact struct {
	ContactID          string
	UserID             string
	Name               string
	Email              string
	PhoneNumber        string
	ProfilePicturePath string
	AddedAt            int64
}

// OutboxEntry is a pending push of the local profile to the remote directory.
type OutboxEntry struct {
	ID           int64
	UserID       string
	Payload      string
	Status       string // queued, sending, sent, failed
	Attempts     int
	ErrorMessage string
}
