package model

import "testing"

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageType
		wantErr bool
		media   bool
	}{
		{"TEXT", TypeText, false, false},
		{"IMAGE", TypeImage, false, true},
		{"VIDEO", TypeVideo, false, true},
		{"AUDIO", TypeAudio, false, true},
		{"DOCUMENT", TypeDocument, false, true},
		{"LOCATION", TypeLocation, false, false},
		{"CONTACT", TypeContact, false, false},
		{"image", "", true, false},
		{"", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMessageType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if got.IsMedia() != tt.media {
				t.Errorf("IsMedia = %v, want %v", got.IsMedia(), tt.media)
			}
		})
	}
}
