package store

import (
	"context"
	"database/sql"
	"errors"
)

const userColumns = `user_id, name, email, profile_picture_path, status, is_online, last_seen, phone_number`

func scanUser(s scanner) (*User, error) {
	var u User
	if err := s.Scan(&u.UserID, &u.Name, &u.Email, &u.ProfilePicturePath, &u.Status, &u.IsOnline, &u.LastSeen, &u.PhoneNumber); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser inserts a user or replaces the existing row with the same id.
func (s *Queries) UpsertUser(ctx context.Context, u *User) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.Name, u.Email, u.ProfilePicturePath, u.Status, u.IsOnline, u.LastSeen, u.PhoneNumber)
	return err
}

// UpdateUser overwrites the mutable fields of an existing user.
func (s *Queries) UpdateUser(ctx context.Context, u *User) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, profile_picture_path = ?, status = ?,
			is_online = ?, last_seen = ?, phone_number = ?
		WHERE user_id = ?`,
		u.Name, u.Email, u.ProfilePicturePath, u.Status, u.IsOnline, u.LastSeen, u.PhoneNumber, u.UserID)
	return err
}

// UpdateUserOnlineStatus sets the presence fields of a user.
func (s *Queries) UpdateUserOnlineStatus(ctx context.Context, userID string, online bool, lastSeen int64) error {
	_, err := s.q.ExecContext(ctx, `UPDATE users SET is_online = ?, last_seen = ? WHERE user_id = ?`, online, lastSeen, userID)
	return err
}

// SetUserProfilePicture points a user at a new local profile picture.
func (s *Queries) SetUserProfilePicture(ctx context.Context, userID, path string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE users SET profile_picture_path = ? WHERE user_id = ?`, path, userID)
	return err
}

// GetUser returns a user by id, or nil if absent.
func (s *Queries) GetUser(ctx context.Context, userID string) (*User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ListUsers returns all users ordered by name.
func (s *Queries) ListUsers(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
}

// SearchUsers returns users whose name or email contains query.
func (s *Queries) SearchUsers(ctx context.Context, query string) ([]User, error) {
	return s.queryUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE name LIKE '%' || ? || '%' OR email LIKE '%' || ? || '%'
		ORDER BY name ASC`, query, query)
}

// DeleteUser removes a user row.
func (s *Queries) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	return err
}

func (s *Queries) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
