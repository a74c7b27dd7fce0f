package api

import (
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/view"
)

// Service names.
const (
	SessionServiceName = "vtexter.v1.SessionService"
	ChatServiceName    = "vtexter.v1.ChatService"
	MessageServiceName = "vtexter.v1.MessageService"
	ContactServiceName = "vtexter.v1.ContactService"
)

// Empty is the request or response of calls that carry nothing.
type Empty struct{}

// StatusResponse describes the session.
type StatusResponse struct {
	Session        string      `json:"session"`
	State          string      `json:"state"`
	SinceMs        int64       `json:"sinceMs"`
	LastError      string      `json:"lastError,omitempty"`
	LastSnapshotMs int64       `json:"lastSnapshotMs,omitempty"`
	UptimeMs       int64       `json:"uptimeMs"`
	Remote         string      `json:"remote"`
	User           *model.User `json:"user,omitempty"`
	Users          int64       `json:"users"`
	Chats          int64       `json:"chats"`
	Messages       int64       `json:"messages"`
	Media          int64       `json:"media"`
	Contacts       int64       `json:"contacts"`
}

// SignInRequest names the identity to sign in as.
type SignInRequest struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phoneNumber"`
}

// PathRequest points at a file on the daemon's host.
type PathRequest struct {
	Path string `json:"path"`
}

// PathResponse returns a stored file path.
type PathResponse struct {
	Path string `json:"path"`
}

// StorageResponse reports media storage usage.
type StorageResponse struct {
	Bytes  int64 `json:"bytes"`
	Images int   `json:"images"`
	Videos int   `json:"videos"`
	Audio  int   `json:"audio"`
	Docs   int   `json:"documents"`
}

// ChatListRequest selects the active or archived list.
type ChatListRequest struct {
	Archived bool `json:"archived"`
}

// ChatListResponse is one state of the chat list.
type ChatListResponse struct {
	Chats       []model.Chat `json:"chats"`
	TotalUnread int          `json:"totalUnread"`
}

func chatListResponse(s view.ChatListState) *ChatListResponse {
	return &ChatListResponse{Chats: s.Chats, TotalUnread: s.TotalUnread}
}

// OpenChatRequest names the counterpart of a chat.
type OpenChatRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// ChatRequest names a chat.
type ChatRequest struct {
	ChatID string `json:"chatId"`
}

// ChatResponse carries a chat id.
type ChatResponse struct {
	ChatID string `json:"chatId"`
}

// Chat flags accepted by SetFlag.
const (
	FlagPinned   = "pinned"
	FlagArchived = "archived"
	FlagMuted    = "muted"
)

// FlagRequest sets or clears a chat flag.
type FlagRequest struct {
	ChatID string `json:"chatId"`
	Flag   string `json:"flag"`
	On     bool   `json:"on"`
}

// TypingRequest sets a chat's typing flag.
type TypingRequest struct {
	ChatID string `json:"chatId"`
	Typing bool   `json:"typing"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// MediaListResponse is a media gallery.
type MediaListResponse struct {
	Media []model.MediaFile `json:"media"`
}

// MessagesResponse is a message thread.
type MessagesResponse struct {
	Messages []model.Message `json:"messages"`
}

// ConversationResponse is one state of an open conversation.
type ConversationResponse struct {
	Chat     model.Chat      `json:"chat"`
	Messages []model.Message `json:"messages"`
	Online   bool            `json:"online"`
	LastSeen int64           `json:"lastSeen"`
	Typing   bool            `json:"typing"`
}

func conversationResponse(s view.ConversationState) *ConversationResponse {
	return &ConversationResponse{
		Chat:     s.Chat,
		Messages: s.Messages,
		Online:   s.Online,
		LastSeen: s.LastSeen,
		Typing:   s.Typing,
	}
}

// SendTextRequest sends text to a chat.
type SendTextRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// SendFileRequest sends a file read from the daemon's host. Kind is one of
// IMAGE, VIDEO, DOCUMENT or AUDIO.
type SendFileRequest struct {
	ChatID   string `json:"chatId"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Caption  string `json:"caption"`
	FileName string `json:"fileName"`
}

// MessageRequest names a message.
type MessageRequest struct {
	MessageID string `json:"messageId"`
}

// QueryRequest filters a list; an empty query lists everything.
type QueryRequest struct {
	Query string `json:"query"`
}

// ContactsResponse is a contact list.
type ContactsResponse struct {
	Contacts []model.Contact `json:"contacts"`
}

// UsersResponse is a user list.
type UsersResponse struct {
	Users []model.User `json:"users"`
}

// UserRequest names a user.
type UserRequest struct {
	UserID string `json:"userId"`
}

// ContactRequest names a contact.
type ContactRequest struct {
	ContactID string `json:"contactId"`
}
