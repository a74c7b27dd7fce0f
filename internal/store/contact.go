package store

import (
	"context"
	"database/sql"
	"errors"
)

const contactColumns = `contact_id, user_id, name, email, phone_number, profile_picture_path, added_at`

func scanContact(s scanner) (*Contact, error) {
	var c Contact
	if err := s.Scan(&c.ContactID, &c.UserID, &c.Name, &c.Email, &c.PhoneNumber, &c.ProfilePicturePath, &c.AddedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertContact inserts a contact or refreshes the one already stored for
// the same user. The existing contact id and added_at are kept so that
// repeated mirroring of the same user is idempotent.
func (s *Queries) UpsertContact(ctx context.Context, c *Contact) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone_number = excluded.phone_number,
			profile_picture_path = excluded.profile_picture_path`,
		c.ContactID, c.UserID, c.Name, c.Email, c.PhoneNumber, c.ProfilePicturePath, c.AddedAt)
	return err
}

// GetContact returns a contact by id, or nil.
func (s *Queries) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	c, err := scanContact(s.q.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE contact_id = ?`, contactID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// GetContactByUserID returns the contact for a user, or nil.
func (s *Queries) GetContactByUserID(ctx context.Context, userID string) (*Contact, error) {
	c, err := scanContact(s.q.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListContacts returns every contact ordered by name.
func (s *Queries) ListContacts(ctx context.Context) ([]Contact, error) {
	return s.queryContacts(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY name ASC`)
}

// SearchContacts matches query as a substring of name or email.
func (s *Queries) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	return s.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE name LIKE '%' || ? || '%' OR email LIKE '%' || ? || '%'
		ORDER BY name ASC`, query, query)
}

// DeleteContact removes a contact by id.
func (s *Queries) DeleteContact(ctx context.Context, contactID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM contacts WHERE contact_id = ?`, contactID)
	return err
}

func (s *Queries) queryContacts(ctx context.Context, query string, args ...any) ([]Contact, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
