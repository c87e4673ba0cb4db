// Package storage persists snapshots. A Replica is one place a snapshot
// lives (a JSON file, a synced folder, a NATS bucket); Dual keeps a local and
// a cloud replica converged through the conflict-aware merge.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"myday/internal/fsutil"
	"myday/internal/model"
)

const (
	dataDirPerm  os.FileMode = 0700
	dataFilePerm os.FileMode = 0600
)

// SnapshotFile is the name of the snapshot inside a data directory.
const SnapshotFile = "snapshot.json"

// Replica is a full-snapshot store.
type Replica interface {
	Name() string
	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)
	PersistSnapshot(ctx context.Context, snap *model.Snapshot) error
}

// ItemReplica is a store that only understands tasks. Older sync targets
// expose this capability; wrap them with ItemsOnly.
type ItemReplica interface {
	Name() string
	LoadTasks(ctx context.Context) ([]model.Task, error)
	SaveTasks(ctx context.Context, tasks []model.Task) error
}

// ItemsOnly adapts an ItemReplica to Replica. Loaded snapshots carry only
// tasks; their list ids are kept verbatim and resolved by the merge against
// the other side's lists.
func ItemsOnly(r ItemReplica) Replica {
	return itemsAdapter{r}
}

type itemsAdapter struct {
	r ItemReplica
}

func (a itemsAdapter) Name() string { return a.r.Name() }

func (a itemsAdapter) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	tasks, err := a.r.LoadTasks(ctx)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return &model.Snapshot{
		SchemaVersion: model.SchemaVersion,
		Tasks:         tasks,
		Lists:         []model.List{},
		Groups:        []model.Group{},
	}, nil
}

func (a itemsAdapter) PersistSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return a.r.SaveTasks(ctx, snap.Tasks)
}

// ItemsFile is an ItemReplica kept as a version 1 {schemaVersion, items}
// JSON file.
type ItemsFile struct {
	name string
	path string
}

// NewItemsFile returns an ItemsFile at path.
func NewItemsFile(name, path string) *ItemsFile {
	return &ItemsFile{name: name, path: path}
}

func (f *ItemsFile) Name() string { return f.name }

// Path returns the backing file.
func (f *ItemsFile) Path() string { return f.path }

// LoadTasks returns the stored tasks; a missing file has none.
func (f *ItemsFile) LoadTasks(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fsutil.ReadIfExists(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if data == nil {
		return nil, nil
	}
	snap, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	return snap.Tasks, nil
}

// SaveTasks replaces the stored tasks.
func (f *ItemsFile) SaveTasks(ctx context.Context, tasks []model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeItems(tasks)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), dataDirPerm); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(f.path), err)
	}
	fsutil.BestEffortBackup(f.path, dataFilePerm)
	if err := fsutil.WriteFileAtomic(f.path, data, dataFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}
