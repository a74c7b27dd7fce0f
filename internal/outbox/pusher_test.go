package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/files"
	"github.com/matheus3301/vtexter/internal/identity"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/remote"
	"github.com/matheus3301/vtexter/internal/repository"
	"github.com/matheus3301/vtexter/internal/store"
	"go.uber.org/zap"
)

type testEnv struct {
	db   *store.DB
	repo *repository.Repository
	dir  *remote.Memory
	bus  *bus.Bus
	p    *Pusher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tmp := t.TempDir()
	db, err := store.Open(filepath.Join(tmp, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger, _ := zap.NewDevelopment()
	b := bus.New()
	repo := repository.New(db, files.New(filepath.Join(tmp, "files"), nil, logger), b, &identity.Holder{}, logger)
	dir := remote.NewMemory()
	return &testEnv{db: db, repo: repo, dir: dir, bus: b, p: NewPusher(repo, dir, b, logger)}
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	if _, err := e.repo.SignIn(context.Background(), model.User{UserID: "me", Name: "Me", Email: "me@x.io"}); err != nil {
		t.Fatal(err)
	}
}

func TestPusherPublishesSignIn(t *testing.T) {
	e := newTestEnv(t)
	ch, unsub := e.bus.Subscribe(bus.KindPushSent, 10)
	defer unsub()

	e.p.Start(context.Background())
	defer e.p.Stop()
	e.signIn(t)

	select {
	case evt := <-ch:
		res, ok := evt.Payload.(PushResult)
		if !ok {
			t.Fatalf("payload = %T, want PushResult", evt.Payload)
		}
		if res.UserID != "me" {
			t.Errorf("pushed user = %q, want me", res.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbox.sent")
	}

	rec, ok := e.dir.Get("me")
	if !ok {
		t.Fatal("record not published")
	}
	if rec.Name != "Me" || rec.Email != "me@x.io" || !rec.IsOnline {
		t.Errorf("record = %+v", rec)
	}
	if rec.Status != repository.DefaultStatus {
		t.Errorf("status = %q, want default", rec.Status)
	}

	pending, err := e.db.PendingProfilePushes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending, want 0 after push", len(pending))
	}
}

func TestPusherSignOutPublishesOffline(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.signIn(t)
	e.p.Drain(ctx)

	if err := e.repo.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	e.p.Drain(ctx)

	rec, ok := e.dir.Get("me")
	if !ok {
		t.Fatal("record not published")
	}
	if rec.IsOnline {
		t.Error("isOnline = true after sign out")
	}
	if rec.LastSeen == 0 {
		t.Error("lastSeen not set")
	}
}

func TestPusherRetriesThenGivesUp(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.dir.SetPublishError(errors.New("nats: timeout"))
	failures, unsub := e.bus.Subscribe(bus.KindPushFailed, 16)
	defer unsub()

	e.signIn(t)

	for i := 1; i < repository.MaxPushAttempts; i++ {
		e.p.Drain(ctx)
		entry, err := e.db.GetProfilePush(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if entry.Status != "queued" || entry.Attempts != i {
			t.Fatalf("after attempt %d: status=%s attempts=%d", i, entry.Status, entry.Attempts)
		}
	}
	e.p.Drain(ctx)

	entry, err := e.db.GetProfilePush(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != "failed" {
		t.Errorf("status = %q, want failed", entry.Status)
	}
	if entry.ErrorMessage != "nats: timeout" {
		t.Errorf("error_message = %q", entry.ErrorMessage)
	}
	if got := len(failures); got != repository.MaxPushAttempts {
		t.Errorf("failure events = %d, want %d", got, repository.MaxPushAttempts)
	}

	// Nothing left to attempt.
	e.dir.SetPublishError(nil)
	e.p.Drain(ctx)
	if _, ok := e.dir.Get("me"); ok {
		t.Error("failed push was published")
	}
}

func TestPusherRecoversAfterFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.dir.SetPublishError(errors.New("nats: no responders"))
	e.signIn(t)

	e.p.Drain(ctx)
	if _, ok := e.dir.Get("me"); ok {
		t.Fatal("published while directory failing")
	}

	e.dir.SetPublishError(nil)
	e.p.Drain(ctx)
	if _, ok := e.dir.Get("me"); !ok {
		t.Fatal("not published after recovery")
	}
	entry, err := e.db.GetProfilePush(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != "sent" || entry.Attempts != 1 {
		t.Errorf("entry = %+v, want sent after 1 failed attempt", entry)
	}
}

// cancellingPublisher cancels the drain mid-publish, as a daemon stop does.
type cancellingPublisher struct {
	cancel context.CancelFunc
}

func (c cancellingPublisher) Publish(ctx context.Context, _ model.User) error {
	c.cancel()
	return ctx.Err()
}

func TestDrainCancelledMidPublishRequeues(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPusher(e.repo, cancellingPublisher{cancel: cancel}, e.bus, zap.NewNop())
	p.Drain(ctx)

	pending, err := e.repo.PendingProfilePushes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	entry, err := e.db.GetProfilePush(context.Background(), pending[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != "queued" || entry.Attempts != 0 {
		t.Errorf("entry = %s/%d, want queued/0", entry.Status, entry.Attempts)
	}

	// The next run delivers it.
	e.p.Drain(context.Background())
	if rec, ok := e.dir.Get("me"); !ok || !rec.IsOnline {
		t.Errorf("record = %+v, %v after retry", rec, ok)
	}
}

func TestStartRecoversInterruptedPush(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	ctx := context.Background()

	pending, err := e.repo.PendingProfilePushes(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	// A run that stopped after claiming the push.
	if err := e.repo.MarkPushSending(ctx, pending[0].ID); err != nil {
		t.Fatal(err)
	}
	if left, _ := e.repo.PendingProfilePushes(ctx); len(left) != 0 {
		t.Fatalf("claimed push still pending: %+v", left)
	}

	ch, unsub := e.bus.Subscribe(bus.KindPushSent, 4)
	defer unsub()
	e.p.Start(ctx)
	defer e.p.Stop()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("interrupted push never sent")
	}
	entry, err := e.db.GetProfilePush(ctx, pending[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != "sent" {
		t.Errorf("status = %s, want sent", entry.Status)
	}
}
