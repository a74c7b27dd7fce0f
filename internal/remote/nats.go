package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/vtexter/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// NATSConfig selects the server and bucket of the directory.
type NATSConfig struct {
	URL    string
	Bucket string
	Name   string // client connection name
}

// NATSDirectory stores records in a JetStream key-value bucket.
type NATSDirectory struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// DialNATS connects to the server and opens the bucket, creating it if it
// does not exist yet.
func DialNATS(ctx context.Context, cfg NATSConfig, logger *zap.Logger) (*NATSDirectory, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("directory disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("directory reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.KeyValue(ctx, cfg.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "vtexter user directory",
			History:     1,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info("directory connected", zap.String("url", cfg.URL), zap.String("bucket", cfg.Bucket))
	return &NATSDirectory{nc: nc, kv: kv, logger: logger}, nil
}

// Watch follows every key of the bucket. The first snapshot is emitted
// once the initial values have been replayed.
func (d *NATSDirectory) Watch(ctx context.Context) (<-chan Snapshot, error) {
	if d.isClosed() {
		return nil, ErrClosed
	}
	w, err := d.kv.WatchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		defer func() { _ = w.Stop() }()

		records := make(map[string]Record)
		initialized := false
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-w.Updates():
				if !ok {
					if ctx.Err() == nil {
						send(ctx, out, Snapshot{Err: errors.New("directory watch ended")})
					}
					return
				}
				// A nil entry marks the end of the initial values.
				if entry == nil {
					initialized = true
					send(ctx, out, snapshotOf(records))
					continue
				}
				d.apply(records, entry)
				if initialized {
					send(ctx, out, snapshotOf(records))
				}
			}
		}
	}()
	return out, nil
}

func (d *NATSDirectory) apply(records map[string]Record, entry jetstream.KeyValueEntry) {
	switch entry.Operation() {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		delete(records, entry.Key())
	default:
		rec, err := decodeRecord(entry.Key(), entry.Value())
		if err != nil {
			d.logger.Warn("skipping directory record", zap.String("key", entry.Key()), zap.Error(err))
			return
		}
		records[entry.Key()] = rec
	}
}

// Publish puts the record of u under its user id.
func (d *NATSDirectory) Publish(ctx context.Context, u model.User) error {
	if d.isClosed() {
		return ErrClosed
	}
	b, err := encodeRecord(RecordFromUser(u))
	if err != nil {
		return err
	}
	if _, err := d.kv.Put(ctx, u.UserID, b); err != nil {
		return fmt.Errorf("publish %s: %w", u.UserID, err)
	}
	return nil
}

func (d *NATSDirectory) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close drains the connection.
func (d *NATSDirectory) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.nc.Drain()
}
