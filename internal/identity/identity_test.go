package identity

import (
	"testing"

	"github.com/matheus3301/vtexter/internal/model"
)

func TestHolder(t *testing.T) {
	var h Holder
	if _, ok := h.Current(); ok {
		t.Fatal("zero holder should be signed out")
	}
	if h.UserID() != "" {
		t.Errorf("UserID = %q, want empty", h.UserID())
	}

	h.Set(model.User{UserID: "u1", Name: "Ana"})
	u, ok := h.Current()
	if !ok || u.Name != "Ana" || h.UserID() != "u1" {
		t.Errorf("Current = %+v, %v", u, ok)
	}

	// Mutating the returned copy does not leak back.
	u.Name = "changed"
	if again, _ := h.Current(); again.Name != "Ana" {
		t.Errorf("holder mutated through copy: %q", again.Name)
	}

	h.Clear()
	if _, ok := h.Current(); ok {
		t.Error("still signed in after Clear")
	}
}
