package timefmt

import (
	"testing"
	"time"
)

// Wednesday.
var testNow = time.Date(2026, 3, 18, 14, 30, 0, 0, time.UTC)

func fixed() Formatter {
	return Formatter{Now: func() time.Time { return testNow }, Location: time.UTC}
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func TestChatTime(t *testing.T) {
	f := fixed()
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"today", time.Date(2026, 3, 18, 9, 5, 0, 0, time.UTC), "09:05"},
		{"yesterday", time.Date(2026, 3, 17, 23, 0, 0, 0, time.UTC), "Yesterday"},
		{"this week", time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), "Saturday"},
		{"this year", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), "02/01"},
		{"older", time.Date(2024, 12, 5, 10, 0, 0, 0, time.UTC), "05/12/24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ChatTime(ms(tt.at)); got != tt.want {
				t.Errorf("ChatTime = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageTime(t *testing.T) {
	got := fixed().MessageTime(ms(time.Date(2025, 7, 1, 22, 7, 0, 0, time.UTC)))
	if got != "22:07" {
		t.Errorf("MessageTime = %q, want 22:07", got)
	}
}

func TestDateHeader(t *testing.T) {
	f := fixed()
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 3, 18, 0, 1, 0, 0, time.UTC), "Today"},
		{time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC), "Yesterday"},
		{time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC), "February 05"},
		{time.Date(2024, 12, 5, 12, 0, 0, 0, time.UTC), "December 05, 2024"},
	}
	for _, tt := range tests {
		if got := f.DateHeader(ms(tt.at)); got != tt.want {
			t.Errorf("DateHeader(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestLastSeen(t *testing.T) {
	f := fixed()
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 3, 18, 8, 15, 0, 0, time.UTC), "last seen today at 08:15"},
		{time.Date(2026, 3, 17, 20, 0, 0, 0, time.UTC), "last seen yesterday at 20:00"},
		{time.Date(2026, 3, 1, 7, 45, 0, 0, time.UTC), "last seen 01/03/2026 at 07:45"},
	}
	for _, tt := range tests {
		if got := f.LastSeen(ms(tt.at)); got != tt.want {
			t.Errorf("LastSeen(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestRelative(t *testing.T) {
	f := fixed()
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{3 * 24 * time.Hour, "3 days ago"},
		{10 * 24 * time.Hour, "08/03"},
	}
	for _, tt := range tests {
		if got := f.Relative(ms(testNow.Add(-tt.ago))); got != tt.want {
			t.Errorf("Relative(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := map[int64]string{0: "0:00", 5: "0:05", 83: "1:23", 605: "10:05"}
	for in, want := range tests {
		if got := Duration(in); got != want {
			t.Errorf("Duration(%d) = %q, want %q", in, got, want)
		}
	}
}
