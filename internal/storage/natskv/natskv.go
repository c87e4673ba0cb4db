// Package natskv is a cloud replica that keeps the snapshot under a single
// key of a NATS JetStream key-value bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"myday/internal/fsutil"
	"myday/internal/model"
	"myday/internal/storage"
)

const (
	// DefaultBucket is used when no bucket name is configured.
	DefaultBucket = "MYDAY"
	// DefaultKey is the key holding the snapshot.
	DefaultKey = "snapshot"

	bucketHistory = 5
)

// bucket is the part of jetstream.KeyValue the replica needs.
type bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// Replica implements storage.Replica on a KV bucket.
type Replica struct {
	name   string
	kv     bucket
	key    string
	conn   *nats.Conn
	logger *slog.Logger
	now    func() time.Time
}

var _ storage.Replica = (*Replica)(nil)

// Open connects to url, creates the bucket when it does not exist and returns
// a replica reading and writing key. Close releases the connection.
func Open(ctx context.Context, url, bucketName, key string, logger *slog.Logger) (*Replica, error) {
	if bucketName == "" {
		bucketName = DefaultBucket
	}
	conn, err := nats.Connect(url, nats.Name("myday"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	kv, err := getOrCreateBucket(ctx, js, bucketName)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open bucket %s: %w", bucketName, err)
	}
	r := New(kv, key, logger)
	r.conn = conn
	return r, nil
}

// New wraps an already opened bucket.
func New(kv bucket, key string, logger *slog.Logger) *Replica {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{name: "nats", kv: kv, key: key, logger: logger, now: time.Now}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "myday snapshots",
		History:     bucketHistory,
	})
}

// SetNowFunc overrides the clock used for quarantine keys.
func (r *Replica) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.now = now
}

func (r *Replica) Name() string { return r.name }

// LoadSnapshot reads the snapshot. A missing key is an empty snapshot. A value
// that does not decode is copied to <key>.corrupt.<timestamp> and treated as
// empty. A legacy value is rewritten in the current format.
func (r *Replica) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	entry, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return model.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}

	snap, format, err := storage.Decode(entry.Value())
	if err != nil {
		aside := fmt.Sprintf("%s.corrupt.%s", r.key, r.now().Format(fsutil.QuarantineLayout))
		if _, perr := r.kv.Put(ctx, aside, entry.Value()); perr != nil {
			r.logger.Warn("quarantine unreadable snapshot", "key", r.key, "error", perr)
		}
		r.logger.Warn("snapshot unreadable, starting empty", "key", r.key, "cause", err, "quarantined", aside)
		return model.NewSnapshot(), nil
	}
	changed := snap.Normalize()
	if format != storage.FormatCurrent || changed {
		if format != storage.FormatCurrent {
			r.logger.Info("upgrading legacy snapshot", "key", r.key, "format", format.String())
		}
		if err := r.PersistSnapshot(ctx, snap); err != nil {
			r.logger.Warn("write back upgraded snapshot", "key", r.key, "error", err)
		}
	}
	return snap, nil
}

// PersistSnapshot stores snap under the replica key.
func (r *Replica) PersistSnapshot(ctx context.Context, snap *model.Snapshot) error {
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}
	if _, err := r.kv.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("put %s: %w", r.key, err)
	}
	return nil
}

// Close drains the connection opened by Open. It is a no-op for replicas
// built with New.
func (r *Replica) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}
