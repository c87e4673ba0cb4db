package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myday/internal/model"
)

var t0 = time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)

// createTestReplica creates a FileReplica inside a temporary directory with a
// fixed clock.
func createTestReplica(t *testing.T) *FileReplica {
	t.Helper()
	r := NewDirReplica("local", t.TempDir(), nil)
	r.SetNowFunc(func() time.Time { return t0 })
	return r
}

func sampleSnapshot() *model.Snapshot {
	snap := model.NewSnapshot()
	snap.Lists = append(snap.Lists, model.List{ID: "work", Title: "Work", ManualOrder: 1, UpdatedAt: t0})
	a := model.NewTask("write report", t0)
	a.ID = "a"
	a.ListID = "work"
	a.ManualOrder = 1
	a.Tags = []model.Tag{{ID: "t1", Name: "work", Color: model.TagBlue}}
	due := t0.Add(48 * time.Hour)
	a.DueDate = &due
	b := model.NewTask("buy milk", t0.Add(time.Minute))
	b.ID = "b"
	b.ManualOrder = 1
	b.SetCompleted(true, t0.Add(2*time.Minute))
	snap.Tasks = []model.Task{a, b}
	snap.Profile = model.Profile{DisplayName: "me", UpdatedAt: t0}
	return snap
}

// =============================================================================
// Codec
// =============================================================================

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		format    Format
		wantTasks []string
		wantErr   error
	}{
		{
			name:      "current snapshot",
			input:     `{"schema_version":2,"tasks":[{"id":"a","title":"one"}],"lists":[]}`,
			format:    FormatCurrent,
			wantTasks: []string{"one"},
		},
		{
			name:      "tasks file without version",
			input:     `{"tasks":[{"id":"t_1","text":"legacy text","done":true}]}`,
			format:    FormatCurrent,
			wantTasks: []string{"legacy text"},
		},
		{
			name:      "versioned items",
			input:     `{"schemaVersion":1,"items":[{"id":"a","title":"one"},{"id":"b","title":"two"}]}`,
			format:    FormatVersioned,
			wantTasks: []string{"one", "two"},
		},
		{
			name:      "versioned items with snake key",
			input:     `{"schema_version":1,"items":[{"id":"a","title":"one"}]}`,
			format:    FormatVersioned,
			wantTasks: []string{"one"},
		},
		{
			name:      "bare list",
			input:     ` [{"id":"a","title":"one","tags":["x"]}]`,
			format:    FormatBareList,
			wantTasks: []string{"one"},
		},
		{name: "empty", input: "  \n", wantErr: ErrEmptyPayload},
		{name: "empty object", input: `{}`, wantErr: ErrUnknownFormat},
		{name: "number", input: `42`, wantErr: ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, format, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			titles := []string{}
			for _, task := range snap.Tasks {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.wantTasks, titles)
		})
	}
}

func TestDecodeRejectsBrokenJSON(t *testing.T) {
	for _, input := range []string{`{"tasks":[`, `[{"id":1}]`, `{"items":{"id":"a"}}`} {
		_, _, err := Decode([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestDecodeLegacyDefaults(t *testing.T) {
	snap, _, err := Decode([]byte(`[{"id":"a","text":"x","done":true,"updated_at":"2026-02-09T10:00:00Z","priority":"urgent"}]`))
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	task := snap.Tasks[0]
	assert.True(t, task.IsCompleted)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.DefaultListID, task.ListID)
	assert.Equal(t, t0, task.CreatedAt.UTC())
}

// =============================================================================
// FileReplica
// =============================================================================

func TestFileReplicaMissingFile(t *testing.T) {
	r := createTestReplica(t)
	snap, err := r.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Tasks)
	require.Len(t, snap.Lists, 1)
	assert.Equal(t, model.DefaultListID, snap.Lists[0].ID)
	_, err = os.Stat(r.Path())
	assert.True(t, os.IsNotExist(err), "loading must not create the file")
}

func TestFileReplicaRoundTripIsStable(t *testing.T) {
	ctx := context.Background()
	r := createTestReplica(t)
	require.NoError(t, r.PersistSnapshot(ctx, sampleSnapshot()))
	first, err := os.ReadFile(r.Path())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		snap, err := r.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.NoError(t, r.PersistSnapshot(ctx, snap))
		again, err := os.ReadFile(r.Path())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestFileReplicaPermissions(t *testing.T) {
	r := NewFileReplica("local", filepath.Join(t.TempDir(), "nested", "dir", SnapshotFile), nil)
	require.NoError(t, r.PersistSnapshot(context.Background(), model.NewSnapshot()))
	info, err := os.Stat(r.Path())
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, dataFilePerm, info.Mode().Perm())
	}
}

func TestFileReplicaUpgradesLegacyLayout(t *testing.T) {
	ctx := context.Background()
	r := createTestReplica(t)
	legacy := `{"schemaVersion":1,"items":[{"id":"a","title":"old","list_id":"gone"}]}`
	require.NoError(t, os.WriteFile(r.Path(), []byte(legacy), 0o600))

	snap, err := r.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, model.SchemaVersion, snap.SchemaVersion)
	assert.Equal(t, model.DefaultListID, snap.Tasks[0].ListID)

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	_, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FormatCurrent, format, "legacy file is rewritten in place")

	bak, err := os.ReadFile(r.Path() + ".bak")
	require.NoError(t, err)
	assert.Equal(t, legacy, string(bak))
}

func TestFileReplicaRecoversFromBackup(t *testing.T) {
	ctx := context.Background()
	r := createTestReplica(t)
	good, err := Encode(sampleSnapshot())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(r.Path()+".bak", good, 0o600))
	require.NoError(t, os.WriteFile(r.Path(), []byte("{not json"), 0o600))

	snap, err := r.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Tasks, 2)

	quarantined, err := os.ReadFile(r.Path() + ".corrupt.20260209-100000")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(quarantined))

	data, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, string(good), string(data))
}

func TestFileReplicaResetsWithoutBackup(t *testing.T) {
	r := createTestReplica(t)
	require.NoError(t, os.WriteFile(r.Path(), []byte("garbage"), 0o600))

	snap, err := r.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Tasks)
	assert.True(t, snap.HasList(model.DefaultListID))

	_, err = os.Stat(r.Path() + ".corrupt.20260209-100000")
	assert.NoError(t, err)
}

func TestFileReplicaHonorsCancelledContext(t *testing.T) {
	r := createTestReplica(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, r.PersistSnapshot(ctx, model.NewSnapshot()), context.Canceled)
}

// =============================================================================
// Items-only replicas
// =============================================================================

func TestItemsOnlyRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewItemsFile("cloud", filepath.Join(t.TempDir(), "items.json"))
	rep := ItemsOnly(f)
	assert.Equal(t, "cloud", rep.Name())

	snap, err := rep.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Tasks)

	require.NoError(t, rep.PersistSnapshot(ctx, sampleSnapshot()))
	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	_, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersioned, format)

	snap, err = rep.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "work", snap.Tasks[0].ListID, "list ids are kept verbatim")
	assert.Empty(t, snap.Lists)
}

// =============================================================================
// Dual
// =============================================================================

type failingReplica struct{ name string }

func (f failingReplica) Name() string { return f.name }

func (f failingReplica) LoadSnapshot(context.Context) (*model.Snapshot, error) {
	return nil, errors.New("offline")
}

func (f failingReplica) PersistSnapshot(context.Context, *model.Snapshot) error {
	return errors.New("offline")
}

func TestDualLoadMergesAndWritesBothSides(t *testing.T) {
	ctx := context.Background()
	local := createTestReplica(t)
	cloud := NewDirReplica("cloud", t.TempDir(), nil)

	l := sampleSnapshot()
	c := model.NewSnapshot()
	remoteA := l.Tasks[0].Clone()
	remoteA.Title = "write the report"
	remoteA.UpdatedAt = t0.Add(time.Hour)
	extra := model.NewTask("from phone", t0)
	extra.ID = "c"
	c.Tasks = []model.Task{remoteA, extra}
	require.NoError(t, local.PersistSnapshot(ctx, l))
	require.NoError(t, cloud.PersistSnapshot(ctx, c))

	merged, err := NewDual(local, cloud, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, merged.Tasks, 3)
	assert.Equal(t, "write the report", merged.Tasks[0].Title)
	assert.Equal(t, "c", merged.Tasks[2].ID)

	localData, err := os.ReadFile(local.Path())
	require.NoError(t, err)
	cloudData, err := os.ReadFile(cloud.Path())
	require.NoError(t, err)
	assert.Equal(t, string(localData), string(cloudData))
}

func TestDualLoadDegradesOnReplicaFailure(t *testing.T) {
	ctx := context.Background()
	local := createTestReplica(t)
	require.NoError(t, local.PersistSnapshot(ctx, sampleSnapshot()))

	merged, err := NewDual(local, failingReplica{name: "cloud"}, nil).Load(ctx)
	require.NotNil(t, merged)
	assert.Len(t, merged.Tasks, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load cloud")
	assert.Contains(t, err.Error(), "persist cloud")

	reloaded, lerr := local.LoadSnapshot(ctx)
	require.NoError(t, lerr)
	assert.Len(t, reloaded.Tasks, 2)
}

func TestDualLocalOnly(t *testing.T) {
	ctx := context.Background()
	local := createTestReplica(t)
	d := NewDual(local, nil, nil)

	snap, err := d.Load(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HasList(model.DefaultListID))

	snap.Tasks = append(snap.Tasks, model.NewTask("x", t0))
	require.NoError(t, d.Persist(ctx, snap))
	again, err := d.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, again.Tasks, 1)
}

func TestDualLoadSkipsUpToDateReplicas(t *testing.T) {
	ctx := context.Background()
	local := createTestReplica(t)
	cloud := NewDirReplica("cloud", t.TempDir(), nil)
	d := NewDual(local, cloud, nil)
	require.NoError(t, d.Persist(ctx, sampleSnapshot()))

	// The first write has nothing to back up, so a .bak only appears if Load
	// rewrites a replica.
	_, err := d.Load(ctx)
	require.NoError(t, err)

	_, err = os.Stat(cloud.Path() + ".bak")
	assert.True(t, os.IsNotExist(err), "an identical replica is not rewritten")
	_, err = os.Stat(local.Path() + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestFailedReplicas(t *testing.T) {
	err := errors.Join(
		&ReplicaError{Op: "load", Replica: "cloud", Err: errors.New("x")},
		&ReplicaError{Op: "persist", Replica: "cloud", Err: errors.New("y")},
	)
	assert.Equal(t, []string{"cloud", "cloud"}, FailedReplicas(err))
	assert.Nil(t, FailedReplicas(nil))
	assert.Nil(t, FailedReplicas(errors.New("plain")))
}
