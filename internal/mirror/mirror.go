// Package mirror keeps the local users and contacts tables in step with the
// remote directory while someone is signed in.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/remote"
	"github.com/matheus3301/vtexter/internal/repository"
	"github.com/matheus3301/vtexter/internal/status"
	"go.uber.org/zap"
)

var errWatchEnded = errors.New("directory watch ended")

// Applied is the payload of a bus.KindSnapshot event.
type Applied struct {
	Records int
	Written int
	At      time.Time
}

// Mirror subscribes to the directory and writes every snapshot through the
// repository. Failures are logged, the tables keep their last good content
// and the machine goes DEGRADED until the next snapshot lands.
type Mirror struct {
	repo    *repository.Repository
	dir     remote.Directory
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	// RetryMin and RetryMax bound the delay before re-subscribing.
	RetryMin time.Duration
	RetryMax time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped mirror.
func New(repo *repository.Repository, dir remote.Directory, m *status.Machine, b *bus.Bus, logger *zap.Logger) *Mirror {
	return &Mirror{
		repo:     repo,
		dir:      dir,
		machine:  m,
		bus:      b,
		logger:   logger,
		RetryMin: 500 * time.Millisecond,
		RetryMax: 30 * time.Second,
	}
}

// Start begins watching the directory. It does nothing if already running.
func (m *Mirror) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	m.restoreCheckpoint(ctx)
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
}

// Stop ends the watch and waits for it to exit.
func (m *Mirror) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a watch is active.
func (m *Mirror) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Follow starts and stops the mirror as the session identity changes,
// until ctx is done. The machine goes SIGNED_OUT while nobody is signed in.
func (m *Mirror) Follow(ctx context.Context) {
	ch, unsub := m.bus.Subscribe(bus.KindIdentity, 8)
	go func() {
		defer unsub()
		defer m.Stop()
		m.sync(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				m.sync(ctx)
			}
		}
	}()
}

func (m *Mirror) sync(ctx context.Context) {
	if _, ok := m.repo.CurrentUser(); ok {
		m.Start(ctx)
		return
	}
	m.Stop()
	if err := m.machine.Ensure(status.SignedOut); err != nil {
		m.logger.Warn("status transition failed", zap.Error(err))
	}
}

func (m *Mirror) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	delay := m.RetryMin
	for {
		if err := m.machine.Ensure(status.Connecting); err != nil {
			m.logger.Debug("status transition skipped", zap.Error(err))
		}
		applied, err := m.watchOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		m.fail(err)
		if applied {
			delay = m.RetryMin
		}
		m.logger.Info("directory watch retry scheduled", zap.Duration("in", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, m.RetryMax)
	}
}

// watchOnce consumes one directory subscription. It reports whether any
// snapshot was applied and the error that ended it.
func (m *Mirror) watchOnce(ctx context.Context) (bool, error) {
	ch, err := m.dir.Watch(ctx)
	if err != nil {
		return false, fmt.Errorf("watch directory: %w", err)
	}
	applied := false
	for {
		select {
		case <-ctx.Done():
			return applied, ctx.Err()
		case s, ok := <-ch:
			if !ok {
				return applied, errWatchEnded
			}
			if s.Err != nil {
				return applied, s.Err
			}
			if err := m.Apply(ctx, s); err != nil {
				if ctx.Err() != nil {
					return applied, ctx.Err()
				}
				m.fail(err)
				continue
			}
			applied = true
		}
	}
}

// Apply writes one snapshot into the local tables.
func (m *Mirror) Apply(ctx context.Context, s remote.Snapshot) error {
	if m.machine.Current() != status.Ready {
		if err := m.machine.Ensure(status.Syncing); err != nil {
			m.logger.Debug("status transition skipped", zap.Error(err))
		}
	}
	users := make([]model.User, 0, len(s.Records))
	for _, rec := range s.Records {
		users = append(users, rec.User())
	}
	n, err := m.repo.SyncDirectory(ctx, users)
	if err != nil {
		return err
	}
	at := time.Now()
	m.machine.RecordSnapshot(at)
	if err := m.machine.Ensure(status.Ready); err != nil {
		m.logger.Debug("status transition skipped", zap.Error(err))
	}
	m.bus.Emit(bus.KindSnapshot, Applied{Records: len(s.Records), Written: n, At: at})
	m.logger.Debug("directory snapshot applied",
		zap.Int("records", len(s.Records)),
		zap.Int("written", n))
	return nil
}

func (m *Mirror) fail(err error) {
	m.logger.Warn("directory sync failed", zap.Error(err))
	m.machine.Fail(err)
	m.bus.Emit(bus.KindSyncFailed, err)
}
