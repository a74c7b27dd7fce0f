// Package identity tracks the signed-in user of a session.
package identity

import (
	"sync"

	"github.com/matheus3301/vtexter/internal/model"
)

// Holder is the process-wide holder of the current identity. The zero
// value is signed out.
type Holder struct {
	mu   sync.RWMutex
	user *model.User
}

// Current returns the signed-in user.
func (h *Holder) Current() (model.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return model.User{}, false
	}
	return *h.user, true
}

// UserID returns the signed-in user id, or "".
func (h *Holder) UserID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return ""
	}
	return h.user.UserID
}

// Set replaces the current identity.
func (h *Holder) Set(u model.User) {
	h.mu.Lock()
	h.user = &u
	h.mu.Unlock()
}

// Clear signs out.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.user = nil
	h.mu.Unlock()
}
