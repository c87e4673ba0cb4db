package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"myday/internal/model"
	"myday/internal/storage"
)

var baseTime = time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)

// newTestManager returns a manager whose clock advances one second per
// backup.
func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	m := NewManager(dir, "1.2.0-test")
	tick := baseTime
	m.SetNowFunc(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})
	return m
}

// writeSnapshot stores a snapshot with the given task titles in dir.
func writeSnapshot(t *testing.T, dir string, titles ...string) {
	t.Helper()
	snap := model.NewSnapshot()
	for _, title := range titles {
		snap.Tasks = append(snap.Tasks, model.NewTask(title, baseTime))
	}
	data, err := storage.Encode(snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, storage.SnapshotFile), data, 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

// readTitles returns the task titles of the snapshot in dir.
func readTitles(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, storage.SnapshotFile))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	snap, _, err := storage.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var out []string
	for _, task := range snap.Tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestManager_Create(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Task 1", "Task 2")
	manager := newTestManager(t, dir)

	name, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if name != "2026-02-11_093001_000" {
		t.Errorf("name = %q", name)
	}

	backupPath := filepath.Join(dir, BackupsDir, name)
	if _, err := os.Stat(filepath.Join(backupPath, storage.SnapshotFile)); err != nil {
		t.Errorf("snapshot not backed up: %v", err)
	}

	info, err := manager.Get(name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if info.Stats["tasks"] != 2 {
		t.Errorf("tasks = %d, want 2", info.Stats["tasks"])
	}
	if info.Stats["lists"] != 1 {
		t.Errorf("lists = %d, want 1 (the default list)", info.Stats["lists"])
	}
	if !info.CreatedAt.Equal(baseTime.Add(time.Second)) {
		t.Errorf("CreatedAt = %v", info.CreatedAt)
	}
}

func TestManager_CreateSameMillisecond(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir, "1.0.0")
	manager.SetNowFunc(func() time.Time { return baseTime })

	first, err := manager.Create()
	if err != nil {
		t.Fatal(err)
	}
	second, err := manager.Create()
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("backups share the name %q", first)
	}
}

func TestManager_List(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Task 1")
	manager := newTestManager(t, dir)

	backups, err := manager.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("Expected 0 backups, got %d", len(backups))
	}

	name1, _ := manager.Create()
	name2, _ := manager.Create()

	// Stray files and foreign directories are ignored.
	_ = os.WriteFile(filepath.Join(dir, BackupsDir, "notes.txt"), nil, 0o600)
	_ = os.Mkdir(filepath.Join(dir, BackupsDir, "junk"), 0o700)

	backups, err = manager.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("Expected 2 backups, got %d", len(backups))
	}
	if backups[0].Name != name2 || backups[1].Name != name1 {
		t.Errorf("order = %s, %s; want newest first", backups[0].Name, backups[1].Name)
	}
}

func TestManager_Restore(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Task 1", "Task 2")
	manager := newTestManager(t, dir)

	name, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	writeSnapshot(t, dir, "New Task")

	safety, err := manager.Restore(name)
	if err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if got := readTitles(t, dir); len(got) != 2 {
		t.Errorf("titles after restore = %v", got)
	}

	// The safety backup holds the state that was replaced.
	info, err := manager.Get(safety)
	if err != nil {
		t.Fatalf("safety backup: %v", err)
	}
	if info.Stats["tasks"] != 1 {
		t.Errorf("safety backup tasks = %d, want 1", info.Stats["tasks"])
	}
}

func TestManager_RestoreLatest(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Original")
	manager := newTestManager(t, dir)

	if _, err := manager.Create(); err != nil {
		t.Fatal(err)
	}
	writeSnapshot(t, dir, "Modified")
	latest, err := manager.Create()
	if err != nil {
		t.Fatal(err)
	}
	writeSnapshot(t, dir, "Final")

	restored, _, err := manager.RestoreLatest()
	if err != nil {
		t.Fatalf("RestoreLatest() error: %v", err)
	}
	if restored != latest {
		t.Errorf("restored %s, want %s", restored, latest)
	}
	if got := readTitles(t, dir); len(got) != 1 || got[0] != "Modified" {
		t.Errorf("titles = %v, want [Modified]", got)
	}
}

func TestManager_RestoreLatestWithoutBackups(t *testing.T) {
	if _, _, err := newTestManager(t, t.TempDir()).RestoreLatest(); err == nil {
		t.Error("expected an error without backups")
	}
}

func TestManager_RestoreRejectsCorruptBackup(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Keep me")
	manager := newTestManager(t, dir)

	name, err := manager.Create()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, BackupsDir, name, storage.SnapshotFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Restore(name); err == nil {
		t.Fatal("expected an error for a corrupt backup")
	}
	if got := readTitles(t, dir); len(got) != 1 || got[0] != "Keep me" {
		t.Errorf("live data changed: %v", got)
	}
	if backups, _ := manager.List(); len(backups) != 1 {
		t.Errorf("no safety backup expected when validation fails, have %d backups", len(backups))
	}
}

func TestManager_RestoreNonexistent(t *testing.T) {
	manager := newTestManager(t, t.TempDir())

	if _, err := manager.Restore("2026-01-01_000000_000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	for _, bad := range []string{"", "nonexistent-backup", "../2026-01-01_000000_000"} {
		if _, err := manager.Restore(bad); err == nil {
			t.Errorf("Restore(%q) should fail", bad)
		}
	}
}

func TestManager_Delete(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Task 1")
	manager := newTestManager(t, dir)

	name, err := manager.Create()
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Delete(name); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if backups, _ := manager.List(); len(backups) != 0 {
		t.Errorf("Expected 0 backups after delete, got %d", len(backups))
	}
	if err := manager.Delete(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestManager_Prune(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "Task 1")
	manager := newTestManager(t, dir)

	var names []string
	for range 5 {
		name, err := manager.Create()
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		names = append(names, name)
	}

	deleted, err := manager.Prune(2)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted, got %d", deleted)
	}

	backups, _ := manager.List()
	if len(backups) != 2 || backups[0].Name != names[4] || backups[1].Name != names[3] {
		t.Errorf("remaining = %+v, want the two newest", backups)
	}

	if _, err := manager.Prune(-1); err == nil {
		t.Error("negative keep should fail")
	}
}

func TestManager_CreateWithEmptyData(t *testing.T) {
	manager := newTestManager(t, t.TempDir())

	name, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	info, err := manager.Get(name)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if info.Stats["tasks"] != 0 {
		t.Errorf("tasks = %d, want 0", info.Stats["tasks"])
	}

	// Restoring an empty backup leaves the data directory alone.
	if _, err := manager.Restore(name); err != nil {
		t.Errorf("Restore() error: %v", err)
	}
}

func TestManager_ListWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	manager := newTestManager(t, dir)

	legacy := filepath.Join(dir, BackupsDir, "2025-12-15_143022")
	if err := os.MkdirAll(legacy, 0o700); err != nil {
		t.Fatal(err)
	}

	backups, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(backups))
	}
	want := time.Date(2025, 12, 15, 14, 30, 22, 0, time.UTC)
	if !backups[0].CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", backups[0].CreatedAt, want)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name    string
		want    time.Time
		wantErr bool
	}{
		{"2026-02-11_093001_250", time.Date(2026, 2, 11, 9, 30, 1, 250e6, time.UTC), false},
		{"2026-02-11_093001", time.Date(2026, 2, 11, 9, 30, 1, 0, time.UTC), false},
		{"2026-02-11_093001_25", time.Time{}, true},
		{"2026-02-11_093001_abc", time.Time{}, true},
		{"backup", time.Time{}, true},
	}
	for _, tc := range tests {
		got, err := parseName(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseName(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && !got.Equal(tc.want) {
			t.Errorf("parseName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
