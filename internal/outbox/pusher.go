// Package outbox drains queued profile pushes to the remote directory.
package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/repository"
	"go.uber.org/zap"
)

// Publisher writes a profile to the remote directory.
type Publisher interface {
	Publish(ctx context.Context, u model.User) error
}

// PushResult is the payload of bus.KindPushSent and bus.KindPushFailed.
type PushResult struct {
	ID     int64
	UserID string
	Err    string
}

// Pusher drains the profile outbox. Pushes are attempted on every tick and
// as soon as one is queued; a failed push stays queued until it has failed
// repository.MaxPushAttempts times.
type Pusher struct {
	repo      *repository.Repository
	publisher Publisher
	bus       *bus.Bus
	logger    *zap.Logger
	interval  time.Duration

	mu     sync.Mutex // serializes drains
	cancel context.CancelFunc
}

// NewPusher creates a new outbox pusher.
func NewPusher(repo *repository.Repository, p Publisher, b *bus.Bus, logger *zap.Logger) *Pusher {
	return &Pusher{
		repo:      repo,
		publisher: p,
		bus:       b,
		logger:    logger,
		interval:  500 * time.Millisecond,
	}
}

// Start begins polling the outbox for pending pushes.
func (p *Pusher) Start(ctx context.Context) {
	if n, err := p.repo.RecoverPushes(ctx); err != nil {
		p.logger.Error("failed to recover interrupted pushes", zap.Error(err))
	} else if n > 0 {
		p.logger.Info("interrupted pushes requeued", zap.Int64("count", n))
	}
	ctx, p.cancel = context.WithCancel(ctx)
	queued, unsub := p.bus.Subscribe(bus.KindOutbox, 1)
	go func() {
		defer unsub()
		p.loop(ctx, queued)
	}()
}

// Stop stops the pusher loop.
func (p *Pusher) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pusher) loop(ctx context.Context, queued <-chan bus.Event) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Drain(ctx)
		case <-queued:
			p.Drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Drain attempts every pending push once.
func (p *Pusher) Drain(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, err := p.repo.PendingProfilePushes(ctx)
	if err != nil {
		p.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	// Outcomes are recorded even when ctx is cancelled mid-publish, so a
	// claimed push never stays 'sending'.
	markCtx := context.WithoutCancel(ctx)
	for _, push := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := p.repo.MarkPushSending(ctx, push.ID); err != nil {
			p.logger.Error("failed to mark sending", zap.Error(err), zap.Int64("push_id", push.ID))
			continue
		}

		if err := p.publisher.Publish(ctx, push.User); err != nil {
			if ctx.Err() != nil {
				if reqErr := p.repo.RequeuePush(markCtx, push.ID); reqErr != nil {
					p.logger.Error("failed to requeue push", zap.Error(reqErr), zap.Int64("push_id", push.ID))
				}
				return
			}
			p.logger.Warn("failed to push profile", zap.Error(err),
				zap.Int64("push_id", push.ID),
				zap.Int("attempt", push.Attempts+1))
			if markErr := p.repo.MarkPushFailed(markCtx, push.ID, err); markErr != nil {
				p.logger.Error("failed to mark failed", zap.Error(markErr), zap.Int64("push_id", push.ID))
			}
			p.bus.Emit(bus.KindPushFailed, PushResult{ID: push.ID, UserID: push.User.UserID, Err: err.Error()})
			continue
		}

		if err := p.repo.MarkPushSent(markCtx, push.ID); err != nil {
			p.logger.Error("failed to mark sent", zap.Error(err), zap.Int64("push_id", push.ID))
		}
		p.logger.Info("profile pushed", zap.String("user_id", push.User.UserID), zap.Bool("online", push.User.IsOnline))
		p.bus.Emit(bus.KindPushSent, PushResult{ID: push.ID, UserID: push.User.UserID})
	}
}
