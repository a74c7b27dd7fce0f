// Package remote is the server-held directory of user profiles and
// presence that every client publishes to and mirrors from.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/matheus3301/vtexter/internal/model"
)

// ErrClosed is returned by a directory after Close.
var ErrClosed = errors.New("directory closed")

// Record is the stored value of one user, keyed by user id.
type Record struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Status         string `json:"status"`
	ProfilePicture string `json:"profilePicture"`
	IsOnline       bool   `json:"isOnline"`
	LastSeen       int64  `json:"lastSeen"`
}

// Snapshot is the full content of the directory at one point, or the
// error that ended a watch.
type Snapshot struct {
	Records []Record
	Err     error
}

// Directory is a remote user directory.
type Directory interface {
	// Watch emits a full snapshot now and after every change. A snapshot
	// carrying Err is the last one; the channel is closed after it.
	Watch(ctx context.Context) (<-chan Snapshot, error)
	// Publish writes the record of u.
	Publish(ctx context.Context, u model.User) error
	Close() error
}

// RecordFromUser builds the record published for u.
func RecordFromUser(u model.User) Record {
	return Record{
		UserID:         u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		Status:         u.Status,
		ProfilePicture: u.ProfilePicture,
		IsOnline:       u.IsOnline,
		LastSeen:       u.LastSeen,
	}
}

// User maps the record to a domain user.
func (r Record) User() model.User {
	return model.User{
		UserID:         r.UserID,
		Name:           r.Name,
		Email:          r.Email,
		Status:         r.Status,
		ProfilePicture: r.ProfilePicture,
		IsOnline:       r.IsOnline,
		LastSeen:       r.LastSeen,
	}
}

// decodeRecord reads a record stored under key. Fields that are missing or
// of the wrong type take their zero value; only a value that is not a JSON
// object is an error. The key is the user id.
func decodeRecord(key string, data []byte) (Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("decode record %q: %w", key, err)
	}
	if raw == nil {
		return Record{}, fmt.Errorf("decode record %q: not an object", key)
	}
	rec := Record{UserID: key}
	rec.Name, _ = raw["name"].(string)
	rec.Email, _ = raw["email"].(string)
	rec.Status, _ = raw["status"].(string)
	rec.ProfilePicture, _ = raw["profilePicture"].(string)
	rec.IsOnline, _ = raw["isOnline"].(bool)
	if ls, ok := raw["lastSeen"].(float64); ok {
		rec.LastSeen = int64(ls)
	}
	return rec, nil
}

func encodeRecord(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record %q: %w", r.UserID, err)
	}
	return b, nil
}

// snapshotOf orders records by user id.
func snapshotOf(records map[string]Record) Snapshot {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return Snapshot{Records: out}
}

// send delivers s, replacing a snapshot the reader has not taken yet.
// Error snapshots are never replaced.
func send(ctx context.Context, ch chan Snapshot, s Snapshot) bool {
	select {
	case old := <-ch:
		if old.Err != nil {
			ch <- old
			return false
		}
	default:
	}
	select {
	case ch <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
