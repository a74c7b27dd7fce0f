package remote

import (
	"context"
	"sync"

	"github.com/matheus3301/vtexter/internal/model"
)

// Memory is an in-process directory. It backs standalone sessions that
// have no server configured, and tests.
type Memory struct {
	mu       sync.Mutex
	records  map[string]Record
	watchers map[int]*memWatcher
	next     int
	closed   bool

	publishErr error
	watchErr   error
}

type memWatcher struct {
	ctx context.Context
	ch  chan Snapshot
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]Record),
		watchers: make(map[int]*memWatcher),
	}
}

// Watch emits the current content and every later change.
func (m *Memory) Watch(ctx context.Context) (<-chan Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	w := &memWatcher{ctx: ctx, ch: make(chan Snapshot, 1)}
	id := m.next
	m.next++
	m.watchers[id] = w
	w.ch <- snapshotOf(m.records)

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if _, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(w.ch)
		}
		m.mu.Unlock()
	}()
	return w.ch, nil
}

// Publish stores the record of u.
func (m *Memory) Publish(_ context.Context, u model.User) error {
	m.mu.Lock()
	err := m.publishErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.Put(RecordFromUser(u))
	return nil
}

// Put stores r as if another client had published it.
func (m *Memory) Put(r Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.UserID] = r
	m.broadcast()
}

// Delete removes the record of userID.
func (m *Memory) Delete(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	m.broadcast()
}

// Get returns the record of userID.
func (m *Memory) Get(userID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	return r, ok
}

// SetPublishError makes Publish fail with err until reset with nil.
func (m *Memory) SetPublishError(err error) {
	m.mu.Lock()
	m.publishErr = err
	m.mu.Unlock()
}

// SetWatchError makes Watch fail with err until reset with nil.
func (m *Memory) SetWatchError(err error) {
	m.mu.Lock()
	m.watchErr = err
	m.mu.Unlock()
}

// Fail ends every open watch with err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range m.watchers {
		send(w.ctx, w.ch, Snapshot{Err: err})
		delete(m.watchers, id)
		close(w.ch)
	}
}

// broadcast must be called with mu held.
func (m *Memory) broadcast() {
	s := snapshotOf(m.records)
	for _, w := range m.watchers {
		send(w.ctx, w.ch, s)
	}
}

// Close ends every watch.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, w := range m.watchers {
		delete(m.watchers, id)
		close(w.ch)
	}
	return nil
}
