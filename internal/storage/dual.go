package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"myday/internal/merge"
	"myday/internal/model"
)

// ReplicaError is the failure of one replica during a Dual operation.
type ReplicaError struct {
	Op      string // "load" or "persist"
	Replica string
	Err     error
}

func (e *ReplicaError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Replica, e.Err)
}

func (e *ReplicaError) Unwrap() error { return e.Err }

// FailedReplicas returns the names of the replicas that failed in err, which
// may be a single ReplicaError or several joined with errors.Join.
func FailedReplicas(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var names []string
		for _, e := range joined.Unwrap() {
			names = append(names, FailedReplicas(e)...)
		}
		return names
	}
	var re *ReplicaError
	if errors.As(err, &re) {
		return []string{re.Replica}
	}
	return nil
}

// Dual keeps a local and an optional cloud replica converged. Neither side is
// authoritative: every load merges both and writes the result back to both.
type Dual struct {
	Local  Replica
	Cloud  Replica
	logger *slog.Logger
}

// NewDual pairs local with cloud. cloud may be nil for local-only use.
func NewDual(local, cloud Replica, logger *slog.Logger) *Dual {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dual{Local: local, Cloud: cloud, logger: logger}
}

func (d *Dual) replicas() []Replica {
	if d.Cloud == nil {
		return []Replica{d.Local}
	}
	return []Replica{d.Local, d.Cloud}
}

// Load reads both replicas concurrently, merges them and writes the merged
// snapshot back to every replica whose content differs from it. A replica
// that fails to load counts as empty. The merged snapshot is always returned;
// the error joins the replica failures and is informational.
func (d *Dual) Load(ctx context.Context) (*model.Snapshot, error) {
	reps := d.replicas()
	snaps := make([]*model.Snapshot, len(reps))
	errs := make([]error, len(reps))

	var g errgroup.Group
	for i, r := range reps {
		g.Go(func() error {
			snap, err := r.LoadSnapshot(ctx)
			if err != nil {
				d.logger.Warn("replica load failed, treating as empty", "replica", r.Name(), "error", err)
				errs[i] = &ReplicaError{Op: "load", Replica: r.Name(), Err: err}
				return nil
			}
			snaps[i] = snap
			return nil
		})
	}
	_ = g.Wait()

	var merged *model.Snapshot
	if len(reps) == 1 {
		merged = merge.Snapshots(snaps[0], nil)
	} else {
		merged = merge.Snapshots(snaps[0], snaps[1])
	}

	want, err := Encode(merged)
	if err != nil {
		return merged, errors.Join(append(errs, err)...)
	}
	var stale []Replica
	for i, r := range reps {
		if snaps[i] != nil {
			if have, err := Encode(snaps[i]); err == nil && bytes.Equal(have, want) {
				continue
			}
		}
		stale = append(stale, r)
	}
	if err := d.persist(ctx, merged, stale); err != nil {
		errs = append(errs, err)
	}
	return merged, errors.Join(errs...)
}

// Persist writes snap to every replica concurrently. Each failure is logged
// and the failures are returned joined.
func (d *Dual) Persist(ctx context.Context, snap *model.Snapshot) error {
	return d.persist(ctx, snap, d.replicas())
}

func (d *Dual) persist(ctx context.Context, snap *model.Snapshot, reps []Replica) error {
	errs := make([]error, len(reps))

	var g errgroup.Group
	for i, r := range reps {
		g.Go(func() error {
			if err := r.PersistSnapshot(ctx, snap); err != nil {
				d.logger.Warn("replica persist failed", "replica", r.Name(), "error", err)
				errs[i] = &ReplicaError{Op: "persist", Replica: r.Name(), Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
