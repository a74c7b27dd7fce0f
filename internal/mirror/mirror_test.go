package mirror

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
	"github.com/matheus3301/vtexter/internal/status"
	"github.com/matheus3301/vtexter/internal/store"
	"go.uber.org/zap"
)

type testEnv struct {
	repo    *repository.Repository
	db      *store.DB
	dir     *remote.Memory
	machine *status.Machine
	bus     *bus.Bus
	mirror  *Mirror
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

	logger := zap.NewNop()
	b := bus.New()
	repo := repository.New(db, files.New(filepath.Join(tmp, "files"), nil, logger), b, &identity.Holder{}, logger)
	dir := remote.NewMemory()
	machine := status.NewMachine(b)
	m := New(repo, dir, machine, b, logger)
	m.RetryMin = 10 * time.Millisecond
	m.RetryMax = 50 * time.Millisecond
	t.Cleanup(m.Stop)
	return &testEnv{repo: repo, db: db, dir: dir, machine: machine, bus: b, mirror: m}
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	if _, err := e.repo.SignIn(context.Background(), model.User{UserID: "me", Name: "Me"}); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func (e *testEnv) waitState(t *testing.T, want status.State) {
	t.Helper()
	waitFor(t, string(want), func() bool { return e.machine.Current() == want })
}

func (e *testEnv) contactCount(t *testing.T) int {
	t.Helper()
	c, err := e.repo.ListContacts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return len(c)
}

func TestFollowMirrorsDirectory(t *testing.T) {
	e := newTestEnv(t)
	e.dir.Put(remote.Record{UserID: "alice", Name: "Alice", Email: "alice@x.io", Status: "hi"})
	e.dir.Put(remote.Record{UserID: "bob", Name: "Bob"})
	e.dir.Put(remote.Record{UserID: "me", Name: "Someone Else"})
	e.signIn(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.mirror.Follow(ctx)

	e.waitState(t, status.Ready)

	alice, err := e.repo.GetUserByID(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if alice == nil || alice.Name != "Alice" || alice.Status != "hi" {
		t.Errorf("alice = %+v", alice)
	}
	if n := e.contactCount(t); n != 2 {
		t.Errorf("contacts = %d, want 2 (self skipped)", n)
	}
	me, _ := e.repo.GetUserByID(ctx, "me")
	if me == nil || me.Name != "Me" {
		t.Errorf("own profile overwritten: %+v", me)
	}
	if e.machine.Health().LastSnapshot.IsZero() {
		t.Error("LastSnapshot not recorded")
	}

	e.dir.Put(remote.Record{UserID: "carol", Name: "Carol"})
	waitFor(t, "carol", func() bool { return e.contactCount(t) == 3 })
}

func TestApplyIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	ctx := context.Background()
	snap := remote.Snapshot{Records: []remote.Record{
		{UserID: "alice", Name: "Alice"},
		{UserID: "bob", Name: "Bob"},
	}}

	if err := e.mirror.Apply(ctx, snap); err != nil {
		t.Fatal(err)
	}
	first, err := e.repo.ListContacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.mirror.Apply(ctx, snap); err != nil {
		t.Fatal(err)
	}
	second, err := e.repo.ListContacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("contacts = %d then %d, want 2 both times", len(first), len(second))
	}
	for i := range first {
		if first[i].ContactID != second[i].ContactID {
			t.Errorf("contact id changed: %s -> %s", first[i].ContactID, second[i].ContactID)
		}
	}
	counts, err := e.repo.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Users != 3 {
		t.Errorf("users = %d, want 3", counts.Users)
	}
}

func TestApplyEmitsSnapshotEvent(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	ch, unsub := e.bus.Subscribe(bus.KindSnapshot, 4)
	defer unsub()

	snap := remote.Snapshot{Records: []remote.Record{{UserID: "me"}, {UserID: "alice"}}}
	if err := e.mirror.Apply(context.Background(), snap); err != nil {
		t.Fatal(err)
	}
	select {
	case evt := <-ch:
		got, ok := evt.Payload.(Applied)
		if !ok {
			t.Fatalf("payload = %T, want Applied", evt.Payload)
		}
		if got.Records != 2 || got.Written != 1 {
			t.Errorf("applied = %+v, want 2 records, 1 written", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sync.snapshot")
	}
}

func TestWatchFailureKeepsLastGoodState(t *testing.T) {
	e := newTestEnv(t)
	e.dir.Put(remote.Record{UserID: "alice", Name: "Alice"})
	e.signIn(t)
	failures, unsub := e.bus.Subscribe(bus.KindSyncFailed, 4)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.mirror.Follow(ctx)
	e.waitState(t, status.Ready)

	e.dir.SetWatchError(errors.New("nats: no servers available"))
	e.dir.Fail(errors.New("nats: connection closed"))

	e.waitState(t, status.Degraded)
	if got := e.machine.Health().LastError; got == "" {
		t.Error("LastError empty while degraded")
	}
	select {
	case <-failures:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sync.failed")
	}
	if n := e.contactCount(t); n != 1 {
		t.Errorf("contacts = %d after failure, want 1", n)
	}

	e.dir.SetWatchError(nil)
	e.waitState(t, status.Ready)
	if got := e.machine.Health().LastError; got != "" {
		t.Errorf("LastError = %q after recovery", got)
	}
}

func TestSignOutStopsMirror(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.mirror.Follow(ctx)
	e.waitState(t, status.Ready)

	if err := e.repo.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	e.waitState(t, status.SignedOut)
	waitFor(t, "mirror stopped", func() bool { return !e.mirror.Running() })

	// Directory changes are no longer mirrored.
	e.dir.Put(remote.Record{UserID: "late", Name: "Late"})
	time.Sleep(50 * time.Millisecond)
	if n := e.contactCount(t); n != 0 {
		t.Errorf("contacts = %d after sign out, want 0", n)
	}
}

func TestFollowSignedOutAtStart(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.mirror.Follow(ctx)

	e.waitState(t, status.SignedOut)
	if e.mirror.Running() {
		t.Error("mirror running without identity")
	}

	e.signIn(t)
	e.waitState(t, status.Ready)
}

func TestStartRestoresCheckpoint(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	ctx := context.Background()
	if _, err := e.repo.SyncDirectory(ctx, []model.User{{UserID: "alice"}}); err != nil {
		t.Fatal(err)
	}
	want, err := e.repo.LastSnapshotAt(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// A fresh machine, as after a daemon restart.
	e.machine = status.NewMachine(e.bus)
	e.mirror = New(e.repo, remote.NewMemory(), e.machine, e.bus, zap.NewNop())
	e.mirror.restoreCheckpoint(ctx)
	if got := e.machine.Health().LastSnapshot; !got.Equal(want) {
		t.Errorf("LastSnapshot = %v, want %v", got, want)
	}
}
