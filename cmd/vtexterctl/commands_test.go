package main

import (
	"testing"

	"github.com/matheus3301/vtexter/internal/model"
)

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestMessageBody(t *testing.T) {
	tests := []struct {
		name string
		msg  model.Message
		want string
	}{
		{"text", model.Message{Type: model.TypeText, Text: "hi"}, "hi"},
		{"deleted", model.Message{Type: model.TypeText, Text: "hi", IsDeleted: true}, "(deleted)"},
		{"voice", model.Message{Type: model.TypeAudio, MediaPath: "/f/a.m4a", MediaDuration: 75}, "[audio 1:15] /f/a.m4a"},
		{"image caption", model.Message{Type: model.TypeImage, MediaPath: "/f/i.jpg", Text: "look"}, "[image] /f/i.jpg look"},
		{"document", model.Message{Type: model.TypeDocument, MediaPath: "/f/d", FileName: "cv.pdf"}, "[document cv.pdf] /f/d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageBody(tt.msg); got != tt.want {
				t.Errorf("messageBody = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChatMarks(t *testing.T) {
	if got := chatMarks(model.Chat{}); got != "" {
		t.Errorf("chatMarks(zero) = %q", got)
	}
	got := chatMarks(model.Chat{UnreadCount: 3, IsPinned: true, IsMuted: true})
	if got != " (3) [pinned] [muted]" {
		t.Errorf("chatMarks = %q", got)
	}
}
