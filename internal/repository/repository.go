// Package repository is the only component that touches the local store and
// the file store. It converts rows to domain objects, groups multi-step
// writes into one transaction and announces committed writes on the bus so
// that live queries re-run.
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/files"
	"github.com/matheus3301/vtexter/internal/identity"
	"github.com/matheus3301/vtexter/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrNotAuthenticated is returned by writes that need a signed-in user.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrEmptyMessage is returned when a text message has no content.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrUnknownType is returned for a message type the operation cannot handle.
	ErrUnknownType = errors.New("unknown message type")
	// ErrChatNotFound is returned when a write targets a chat that does not exist.
	ErrChatNotFound = errors.New("chat not found")
	// ErrInvalidUserID is returned by SignIn for ids that are not a single
	// path element.
	ErrInvalidUserID = errors.New("invalid user id")
)

// Repository is the data façade of a session.
type Repository struct {
	db     *store.DB
	files  *files.Store
	bus    *bus.Bus
	ident  *identity.Holder
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	reading map[string]int // chat id -> open conversations
}

// New creates a repository over an opened, migrated database.
func New(db *store.DB, fs *files.Store, b *bus.Bus, ident *identity.Holder, logger *zap.Logger) *Repository {
	return &Repository{
		db:      db,
		files:   fs,
		bus:     b,
		ident:   ident,
		logger:  logger,
		now:     time.Now,
		reading: make(map[string]int),
	}
}

func (r *Repository) nowMilli() int64 {
	return r.now().UnixMilli()
}

// notify announces committed writes. Each kind is published once.
func (r *Repository) notify(payload any, kinds ...string) {
	for _, k := range kinds {
		r.bus.Emit(k, payload)
	}
}

// Counts reports row totals per table.
func (r *Repository) Counts(ctx context.Context) (*store.Counts, error) {
	return r.db.Counts(ctx)
}

// SetReading records that a conversation view for chatID is open or closed.
// Inbound messages for a chat being read do not bump its unread counter.
func (r *Repository) SetReading(chatID string, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if open {
		r.reading[chatID]++
		return
	}
	if r.reading[chatID] <= 1 {
		delete(r.reading, chatID)
		return
	}
	r.reading[chatID]--
}

func (r *Repository) isReading(chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reading[chatID] > 0
}
