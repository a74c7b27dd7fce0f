package view

import "context"

// offer sends v on ch, replacing a value the reader has not taken yet.
// ch must have a buffer of one and a single sender.
func offer[T any](ctx context.Context, ch chan T, v T) bool {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
