package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/store"
	"go.uber.org/zap"
)

// MaxPushAttempts bounds retries of a queued profile push.
const MaxPushAttempts = 5

// SyncDirectory mirrors remote users into users and contacts in one
// transaction. Records for the signed-in user are skipped. Returns the
// number of users written.
func (r *Repository) SyncDirectory(ctx context.Context, users []model.User) (int, error) {
	self := r.ident.UserID()
	n := 0
	err := r.db.InTx(ctx, func(q *store.Queries) error {
		n = 0
		for _, u := range users {
			if u.UserID == "" || u.UserID == self {
				continue
			}
			row := userToRow(u)
			if err := q.UpsertUser(ctx, &row); err != nil {
				return fmt.Errorf("upsert user %s: %w", u.UserID, err)
			}
			c := r.contactRow(u)
			if err := q.UpsertContact(ctx, &c); err != nil {
				return fmt.Errorf("upsert contact %s: %w", u.UserID, err)
			}
			n++
		}
		return q.SetState(ctx, store.KeyLastSnapshotAt, strconv.FormatInt(r.nowMilli(), 10))
	})
	if err != nil {
		return 0, fmt.Errorf("sync directory: %w", err)
	}
	if n > 0 {
		r.notify(nil, bus.KindUsers, bus.KindContacts)
	}
	return n, nil
}

// LastSnapshotAt returns when the directory was last mirrored, or the zero
// time if never.
func (r *Repository) LastSnapshotAt(ctx context.Context) (time.Time, error) {
	v, err := r.db.GetState(ctx, store.KeyLastSnapshotAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("last snapshot: %w", err)
	}
	if v == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("last snapshot %q: %w", v, err)
	}
	return time.UnixMilli(ms), nil
}

// ProfilePush is a queued publication of the local profile.
type ProfilePush struct {
	ID       int64
	User     model.User
	Attempts int
}

func queuePush(ctx context.Context, q *store.Queries, u model.User) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if _, err := q.QueueProfilePush(ctx, u.UserID, string(payload)); err != nil {
		return fmt.Errorf("queue profile push: %w", err)
	}
	return nil
}

// QueueProfilePush queues a publication of the signed-in profile.
func (r *Repository) QueueProfilePush(ctx context.Context) error {
	me, ok := r.ident.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	if err := queuePush(ctx, r.db.Queries, me); err != nil {
		return err
	}
	r.notify(me.UserID, bus.KindOutbox)
	return nil
}

// PendingProfilePushes returns queued pushes, oldest first.
func (r *Repository) PendingProfilePushes(ctx context.Context) ([]ProfilePush, error) {
	entries, err := r.db.PendingProfilePushes(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending pushes: %w", err)
	}
	out := make([]ProfilePush, 0, len(entries))
	for _, e := range entries {
		var u model.User
		if err := json.Unmarshal([]byte(e.Payload), &u); err != nil {
			// A payload that cannot be decoded will never succeed.
			if markErr := r.db.MarkPushFailed(ctx, e.ID, "bad payload: "+err.Error(), 0); markErr != nil {
				r.logger.Error("failed to mark bad push", zap.Error(markErr), zap.Int64("push_id", e.ID))
			}
			continue
		}
		out = append(out, ProfilePush{ID: e.ID, User: u, Attempts: e.Attempts})
	}
	return out, nil
}

// MarkPushSending claims a push before it is attempted.
func (r *Repository) MarkPushSending(ctx context.Context, id int64) error {
	return r.db.MarkPushSending(ctx, id)
}

// RequeuePush releases a claimed push without counting an attempt.
func (r *Repository) RequeuePush(ctx context.Context, id int64) error {
	return r.db.RequeuePush(ctx, id)
}

// RecoverPushes requeues pushes left claimed by an interrupted run and
// reports how many there were.
func (r *Repository) RecoverPushes(ctx context.Context) (int64, error) {
	n, err := r.db.RequeueSendingPushes(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover pushes: %w", err)
	}
	return n, nil
}

// MarkPushSent completes a push.
func (r *Repository) MarkPushSent(ctx context.Context, id int64) error {
	return r.db.MarkPushSent(ctx, id)
}

// MarkPushFailed records a failed attempt. The push is retried until it
// has failed MaxPushAttempts times.
func (r *Repository) MarkPushFailed(ctx context.Context, id int64, cause error) error {
	return r.db.MarkPushFailed(ctx, id, cause.Error(), MaxPushAttempts)
}
