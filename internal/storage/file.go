package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"myday/internal/fsutil"
	"myday/internal/model"
)

// FileReplica keeps a snapshot in a single JSON file.
//
// Loading is forgiving: legacy layouts are upgraded and written back in the
// current layout, and a file that no longer decodes is moved aside as
// <file>.corrupt.<timestamp> and replaced by its .bak copy, or by an empty
// snapshot when there is no usable backup.
type FileReplica struct {
	name   string
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileReplica returns a replica stored at path. A nil logger uses
// slog.Default().
func NewFileReplica(name, path string, logger *slog.Logger) *FileReplica {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileReplica{name: name, path: path, logger: logger, now: time.Now}
}

// NewDirReplica stores the snapshot as snapshot.json inside dir.
func NewDirReplica(name, dir string, logger *slog.Logger) *FileReplica {
	return NewFileReplica(name, filepath.Join(dir, SnapshotFile), logger)
}

// SetNowFunc overrides the clock used for quarantine names. Passing nil
// resets it to time.Now.
func (r *FileReplica) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.now = now
}

func (r *FileReplica) Name() string { return r.name }

// Path returns the snapshot file.
func (r *FileReplica) Path() string { return r.path }

// LoadSnapshot reads and normalizes the snapshot. A missing file yields an
// empty snapshot.
func (r *FileReplica) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fsutil.ReadIfExists(r.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if data == nil {
		return model.NewSnapshot(), nil
	}

	snap, format, err := Decode(data)
	if err != nil {
		return r.recoverCorrupt(ctx, err)
	}
	changed := snap.Normalize()
	if format != FormatCurrent || changed {
		if format != FormatCurrent {
			r.logger.Info("upgrading legacy snapshot", "replica", r.name, "path", r.path, "format", format.String())
		}
		if err := r.PersistSnapshot(ctx, snap); err != nil {
			r.logger.Warn("write back upgraded snapshot", "replica", r.name, "error", err)
		}
	}
	return snap, nil
}

func (r *FileReplica) recoverCorrupt(ctx context.Context, cause error) (*model.Snapshot, error) {
	if bak, _ := fsutil.ReadIfExists(r.path + ".bak"); len(bak) > 0 {
		if snap, _, err := Decode(bak); err == nil {
			snap.Normalize()
			dest, qerr := fsutil.Quarantine(r.path, r.now())
			r.logger.Warn("snapshot unreadable, recovered from backup",
				"replica", r.name, "path", r.path, "cause", cause, "quarantined", dest)
			if qerr == nil {
				if err := r.PersistSnapshot(ctx, snap); err != nil {
					r.logger.Warn("write recovered snapshot", "replica", r.name, "error", err)
				}
			}
			return snap, nil
		}
	}

	dest, qerr := fsutil.Quarantine(r.path, r.now())
	if qerr != nil {
		r.logger.Warn("quarantine unreadable snapshot", "replica", r.name, "error", qerr)
	}
	r.logger.Warn("snapshot unreadable, starting empty",
		"replica", r.name, "path", r.path, "cause", cause, "quarantined", dest)
	return model.NewSnapshot(), nil
}

// PersistSnapshot writes snap atomically, keeping the previous content in
// <file>.bak.
func (r *FileReplica) PersistSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("persist nil snapshot")
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, dataDirPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	fsutil.BestEffortBackup(r.path, dataFilePerm)
	if err := fsutil.WriteFileAtomic(r.path, data, dataFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}
