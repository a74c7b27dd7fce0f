package repository

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/store"
)

// DefaultStatus is the status given to a profile that has none.
const DefaultStatus = "Hey there! I'm using VTexter"

// SaveUser inserts or replaces a user.
func (r *Repository) SaveUser(ctx context.Context, u model.User) error {
	row := userToRow(u)
	if err := r.db.UpsertUser(ctx, &row); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	r.notify(u.UserID, bus.KindUsers)
	return nil
}

// GetUserByID returns a user, or nil if unknown.
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	row, err := r.db.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	u := userFromRow(*row)
	return &u, nil
}

// ListUsers returns every known user ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return mapRows(rows, userFromRow), nil
}

// WatchUsers emits the user list after every change to users.
func (r *Repository) WatchUsers(ctx context.Context) (<-chan []model.User, error) {
	return watch(ctx, r, "users", []string{bus.KindUsers}, r.ListUsers)
}

// SearchUsers matches query against name and email.
func (r *Repository) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	rows, err := r.db.SearchUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return mapRows(rows, userFromRow), nil
}

// UpdateUserOnlineStatus sets a user's presence with last seen at now.
func (r *Repository) UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error {
	if err := r.db.UpdateUserOnlineStatus(ctx, userID, online, r.nowMilli()); err != nil {
		return fmt.Errorf("update online status: %w", err)
	}
	r.notify(userID, bus.KindUsers)
	return nil
}

// SaveProfilePicture stores a new picture for the signed-in user and
// queues a profile push so other clients see it.
func (r *Repository) SaveProfilePicture(ctx context.Context, img io.Reader) (string, error) {
	me, ok := r.ident.Current()
	if !ok {
		return "", ErrNotAuthenticated
	}
	saved, err := r.files.SaveProfilePicture(ctx, img, me.UserID)
	if err != nil {
		return "", fmt.Errorf("save profile picture: %w", err)
	}
	me.ProfilePicture = saved.Path

	err = r.db.InTx(ctx, func(q *store.Queries) error {
		row := userToRow(me)
		if err := q.UpsertUser(ctx, &row); err != nil {
			return err
		}
		return queuePush(ctx, q, me)
	})
	if err != nil {
		return "", fmt.Errorf("save profile picture: %w", err)
	}
	r.ident.Set(me)
	r.notify(me.UserID, bus.KindUsers, bus.KindOutbox)
	return saved.Path, nil
}

// SignIn makes u the session identity, stores it and queues an online
// profile push. Empty name and status get defaults.
func (r *Repository) SignIn(ctx context.Context, u model.User) (model.User, error) {
	if u.UserID == "" {
		return model.User{}, fmt.Errorf("sign in: %w", ErrNotAuthenticated)
	}
	if strings.ContainsAny(u.UserID, `/\`) || u.UserID == "." || u.UserID == ".." {
		return model.User{}, fmt.Errorf("sign in %q: %w", u.UserID, ErrInvalidUserID)
	}
	if u.Name == "" {
		u.Name = "User"
	}
	if u.Status == "" {
		u.Status = DefaultStatus
	}
	// Keep a picture saved earlier on this device.
	if existing, err := r.db.GetUser(ctx, u.UserID); err == nil && existing != nil && u.ProfilePicture == "" {
		u.ProfilePicture = existing.ProfilePicturePath
	}
	u.IsOnline = true
	u.LastSeen = r.nowMilli()

	err := r.db.InTx(ctx, func(q *store.Queries) error {
		row := userToRow(u)
		if err := q.UpsertUser(ctx, &row); err != nil {
			return err
		}
		if err := q.SetState(ctx, store.KeyIdentity, u.UserID); err != nil {
			return err
		}
		return queuePush(ctx, q, u)
	})
	if err != nil {
		return model.User{}, fmt.Errorf("sign in: %w", err)
	}
	r.ident.Set(u)
	r.notify(u.UserID, bus.KindUsers, bus.KindOutbox, bus.KindIdentity)
	return u, nil
}

// SignOut marks the identity offline, queues that push and forgets it.
func (r *Repository) SignOut(ctx context.Context) error {
	me, ok := r.ident.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	me.IsOnline = false
	me.LastSeen = r.nowMilli()

	err := r.db.InTx(ctx, func(q *store.Queries) error {
		if err := q.UpdateUserOnlineStatus(ctx, me.UserID, false, me.LastSeen); err != nil {
			return err
		}
		if err := q.DeleteState(ctx, store.KeyIdentity); err != nil {
			return err
		}
		return queuePush(ctx, q, me)
	})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	r.ident.Clear()
	r.notify(me.UserID, bus.KindUsers, bus.KindOutbox, bus.KindIdentity)
	return nil
}

// RestoreIdentity loads the identity persisted by a previous SignIn.
// It reports false when nobody is signed in.
func (r *Repository) RestoreIdentity(ctx context.Context) (bool, error) {
	id, err := r.db.GetState(ctx, store.KeyIdentity)
	if err != nil {
		return false, fmt.Errorf("restore identity: %w", err)
	}
	if id == "" {
		return false, nil
	}
	row, err := r.db.GetUser(ctx, id)
	if err != nil {
		return false, fmt.Errorf("restore identity: %w", err)
	}
	if row == nil {
		return false, nil
	}
	r.ident.Set(userFromRow(*row))
	return true, nil
}

// CurrentUser returns the signed-in user.
func (r *Repository) CurrentUser() (model.User, bool) {
	return r.ident.Current()
}
