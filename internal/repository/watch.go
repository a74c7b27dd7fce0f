package repository

import (
	"context"

	"go.uber.org/zap"
)

// watch runs load once and again after every bus event whose kind starts
// with one of kinds, sending each result on the returned channel. A slow
// reader only ever sees the newest result. The channel is closed when ctx
// is done.
func watch[T any](ctx context.Context, r *Repository, name string, kinds []string, load func(context.Context) (T, error)) (<-chan T, error) {
	// Subscribe before the first load so no write between the two is missed.
	events, unsub := r.bus.SubscribeMany(kinds, 1)
	first, err := load(ctx)
	if err != nil {
		unsub()
		return nil, err
	}

	out := make(chan T, 1)
	out <- first
	go func() {
		defer close(out)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case <-events:
			}
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn("live query reload failed", zap.String("query", name), zap.Error(err))
				continue
			}
			// Replace a result the reader has not picked up yet.
			select {
			case <-out:
			default:
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
