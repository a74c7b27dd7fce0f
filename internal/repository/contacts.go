package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/matheus3301/vtexter/internal/bus"
	"github.com/matheus3301/vtexter/internal/model"
	"github.com/matheus3301/vtexter/internal/store"
)

func (r *Repository) contactRow(u model.User) store.Contact {
	return contactToRow(model.Contact{
		ContactID:      uuid.NewString(),
		UserID:         u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber,
		ProfilePicture: u.ProfilePicture,
		AddedAt:        r.nowMilli(),
	})
}

// SaveContact adds u to the address book, or refreshes the existing entry.
func (r *Repository) SaveContact(ctx context.Context, u model.User) error {
	row := r.contactRow(u)
	if err := r.db.UpsertContact(ctx, &row); err != nil {
		return fmt.Errorf("save contact: %w", err)
	}
	r.notify(u.UserID, bus.KindContacts)
	return nil
}

// GetContactByUserID returns the address book entry of a user, or nil.
func (r *Repository) GetContactByUserID(ctx context.Context, userID string) (*model.Contact, error) {
	row, err := r.db.GetContactByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	c := contactFromRow(*row)
	return &c, nil
}

// ListContacts returns the address book ordered by name.
func (r *Repository) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := r.db.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return mapRows(rows, contactFromRow), nil
}

// WatchContacts emits ListContacts after every change to contacts.
func (r *Repository) WatchContacts(ctx context.Context) (<-chan []model.Contact, error) {
	return watch(ctx, r, "contacts", []string{bus.KindContacts}, r.ListContacts)
}

// SearchContacts matches query against contact name and email.
func (r *Repository) SearchContacts(ctx context.Context, query string) ([]model.Contact, error) {
	rows, err := r.db.SearchContacts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return mapRows(rows, contactFromRow), nil
}

// DeleteContact removes an address book entry.
func (r *Repository) DeleteContact(ctx context.Context, contactID string) error {
	if err := r.db.DeleteContact(ctx, contactID); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	r.notify(contactID, bus.KindContacts)
	return nil
}
