// Package timefmt renders millisecond timestamps the way chat lists and
// conversations show them.
package timefmt

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Formatter formats timestamps relative to Now in Location.
type Formatter struct {
	Now      func() time.Time
	Location *time.Location
}

// Default uses the wall clock and the local zone.
var Default = Formatter{Now: time.Now, Location: time.Local}

func (f Formatter) at(ms int64) time.Time {
	return time.UnixMilli(ms).In(f.Location)
}

func (f Formatter) now() time.Time {
	return f.Now().In(f.Location)
}

func sameDay(a, b time.Time) bool {
	ay, ad := a.Year(), a.YearDay()
	by, bd := b.Year(), b.YearDay()
	return ay == by && ad == bd
}

func yesterday(t, now time.Time) bool {
	return sameDay(t, now.AddDate(0, 0, -1))
}

// ChatTime is the chat-list stamp: "15:04" today, "Yesterday", the weekday
// within a week, "02/01" within the year and "02/01/06" before that.
func (f Formatter) ChatTime(ms int64) string {
	t, now := f.at(ms), f.now()
	diff := now.Sub(t)
	switch {
	case diff < day && sameDay(t, now):
		return t.Format("15:04")
	case diff < 2*day && yesterday(t, now):
		return "Yesterday"
	case diff < 7*day:
		return t.Format("Monday")
	case t.Year() == now.Year():
		return t.Format("02/01")
	default:
		return t.Format("02/01/06")
	}
}

// MessageTime is the stamp under a message bubble.
func (f Formatter) MessageTime(ms int64) string {
	return f.at(ms).Format("15:04")
}

// DateHeader separates days in a conversation.
func (f Formatter) DateHeader(ms int64) string {
	t, now := f.at(ms), f.now()
	switch {
	case sameDay(t, now):
		return "Today"
	case yesterday(t, now):
		return "Yesterday"
	case t.Year() == now.Year():
		return t.Format("January 02")
	default:
		return t.Format("January 02, 2006")
	}
}

// LastSeen describes when a user was last online.
func (f Formatter) LastSeen(ms int64) string {
	t, now := f.at(ms), f.now()
	clock := t.Format("15:04")
	switch {
	case sameDay(t, now):
		return "last seen today at " + clock
	case yesterday(t, now):
		return "last seen yesterday at " + clock
	default:
		return "last seen " + t.Format("02/01/2006") + " at " + clock
	}
}

// Relative is "just now", "N minutes ago" and so on up to a week, then
// ChatTime.
func (f Formatter) Relative(ms int64) string {
	diff := f.now().Sub(f.at(ms))
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return ago(int64(diff/time.Minute), "minute")
	case diff < day:
		return ago(int64(diff/time.Hour), "hour")
	case diff < 7*day:
		return ago(int64(diff/day), "day")
	default:
		return f.ChatTime(ms)
	}
}

func ago(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// Duration renders seconds as "m:ss".
func Duration(seconds int64) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ChatTime formats with Default.
func ChatTime(ms int64) string { return Default.ChatTime(ms) }

// MessageTime formats with Default.
func MessageTime(ms int64) string { return Default.MessageTime(ms) }

// DateHeader formats with Default.
func DateHeader(ms int64) string { return Default.DateHeader(ms) }

// LastSeen formats with Default.
func LastSeen(ms int64) string { return Default.LastSeen(ms) }

// Relative formats with Default.
func Relative(ms int64) string { return Default.Relative(ms) }
