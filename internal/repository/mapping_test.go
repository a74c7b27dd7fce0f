package repository

import (
	"context"
	"reflect"
	"testing"

	"github.com/matheus3301/vtexter/internal/store"
)

func TestRowRoundTrip(t *testing.T) {
	user := store.User{UserID: "u1", Name: "Ana", Email: "a@x.io", ProfilePicturePath: "/p.jpg",
		Status: "busy", IsOnline: true, LastSeen: 123, PhoneNumber: "+55"}
	if got := userToRow(userFromRow(user)); got != user {
		t.Errorf("user: %+v != %+v", got, user)
	}

	chat := store.Chat{ChatID: "c1", OtherUserID: "u1", OtherUserName: "Ana", OtherUserProfilePic: "/p.jpg",
		LastMessage: "📷 Photo", LastMessageTime: 99, LastMessageType: "IMAGE", UnreadCount: 4,
		IsPinned: true, IsArchived: true, IsMuted: true}
	if got := chatToRow(chatFromRow(chat)); got != chat {
		t.Errorf("chat: %+v != %+v", got, chat)
	}

	msg := store.Message{MessageID: "m1", ChatID: "c1", SenderID: "u1", SenderName: "Ana", Text: "hi",
		Timestamp: 5, Type: "VIDEO", MediaPath: "/v.mp4", MediaThumbnailPath: "/t.jpg", MediaSize: 10,
		MediaDuration: 3, FileName: "v.mp4", ReplyTo: "m0", Reactions: map[string]string{"u2": "🔥"},
		IsRead: true, IsDelivered: true, IsSent: true, IsDeleted: true}
	if got := messageToRow(messageFromRow(msg)); !reflect.DeepEqual(got, msg) {
		t.Errorf("message: %+v != %+v", got, msg)
	}

	media := store.MediaFile{MediaID: "f1", MessageID: "m1", FilePath: "/v.mp4", FileType: "VIDEO",
		FileName: "v.mp4", FileSize: 10, MimeType: "video/mp4", ThumbnailPath: "/t.jpg", Duration: 3,
		Width: 640, Height: 480, Timestamp: 5}
	if got := mediaToRow(mediaFromRow(media)); got != media {
		t.Errorf("media: %+v != %+v", got, media)
	}

	contact := store.Contact{ContactID: "k1", UserID: "u1", Name: "Ana", Email: "a@x.io",
		PhoneNumber: "+55", ProfilePicturePath: "/p.jpg", AddedAt: 7}
	if got := contactToRow(contactFromRow(contact)); got != contact {
		t.Errorf("contact: %+v != %+v", got, contact)
	}
}

// The same round trip through the database and the repository read path.
func TestStoredRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg := store.Message{MessageID: "m1", ChatID: "c1", SenderID: "u1", Text: "hi", Timestamp: 5,
		Type: "TEXT", ReplyTo: "m0", Reactions: map[string]string{"u2": "👍"}, IsSent: true}
	if err := env.db.UpsertMessage(ctx, &msg); err != nil {
		t.Fatal(err)
	}
	got, err := env.repo.GetMessage(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if back := messageToRow(*got); !reflect.DeepEqual(back, msg) {
		t.Errorf("stored message: %+v != %+v", back, msg)
	}

	chat := store.Chat{ChatID: "c1", OtherUserID: "u1", LastMessageType: "TEXT", UnreadCount: 2, IsMuted: true}
	if err := env.db.UpsertChat(ctx, &chat); err != nil {
		t.Fatal(err)
	}
	c, _ := env.repo.GetChatByID(ctx, "c1")
	if back := chatToRow(*c); back != chat {
		t.Errorf("stored chat: %+v != %+v", back, chat)
	}
}
