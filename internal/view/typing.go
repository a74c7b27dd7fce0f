// Package view holds the per-screen controllers served to clients: they
// observe repository live queries and derive what a screen shows.
package view

import (
	"sync"

	"github.com/matheus3301/vtexter/internal/bus"
)

// TypingChange is the payload of a bus.KindTyping event.
type TypingChange struct {
	ChatID string
	Typing bool
}

// Typing holds the per-chat typing flags. Flags live in memory only.
type Typing struct {
	mu    sync.RWMutex
	chats map[string]bool
	bus   *bus.Bus
}

// NewTyping creates an empty registry.
func NewTyping(b *bus.Bus) *Typing {
	return &Typing{chats: make(map[string]bool), bus: b}
}

// Set updates the flag of chatID. An unchanged flag publishes nothing.
func (t *Typing) Set(chatID string, typing bool) {
	t.mu.Lock()
	if t.chats[chatID] == typing {
		t.mu.Unlock()
		return
	}
	if typing {
		t.chats[chatID] = true
	} else {
		delete(t.chats, chatID)
	}
	t.mu.Unlock()
	t.bus.Emit(bus.KindTyping, TypingChange{ChatID: chatID, Typing: typing})
}

// Is reports whether chatID is flagged as typing.
func (t *Typing) Is(chatID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chats[chatID]
}
