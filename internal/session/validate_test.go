package session

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{DefaultSessionName, false},
		{"alice", false},
		{"campus-2026", false},
		{"lab_phone", false},
		{"x", false},
		{strings.Repeat("v", MaxNameLen), false},
		{"", true},
		{"Alice", true},
		{"alice phone", true},
		{"alice.vtexter", true},
		{strings.Repeat("v", MaxNameLen+1), true},
		{"alice@campus", true},
		{"../main", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
