// Package backup keeps timestamped copies of the local snapshot so a bad
// merge or import can be rolled back.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"myday/internal/fsutil"
	"myday/internal/model"
	"myday/internal/storage"
)

const (
	ManifestVersion = "2.0"
	ManifestFile    = "manifest.json"
	BackupsDir      = "backups"

	nameLayout = "2006-01-02_150405"
)

// ErrNotFound is returned for a backup name that does not exist.
var ErrNotFound = errors.New("backup not found")

// dataFiles are copied into every backup.
var dataFiles = []string{storage.SnapshotFile}

// Manager creates, lists and restores backups of a data directory.
type Manager struct {
	dataDir    string
	backupDir  string
	appVersion string
	now        func() time.Time
}

// Manifest describes one backup.
type Manifest struct {
	Version    string         `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	AppVersion string         `json:"app_version"`
	Format     string         `json:"format,omitempty"`
	Files      []string       `json:"files"`
	Stats      map[string]int `json:"stats"`
}

// Info summarizes a backup for listing.
type Info struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Stats     map[string]int
}

// NewManager returns a manager for dataDir. Backups live in
// dataDir/backups.
func NewManager(dataDir, appVersion string) *Manager {
	return &Manager{
		dataDir:    dataDir,
		backupDir:  filepath.Join(dataDir, BackupsDir),
		appVersion: appVersion,
		now:        time.Now,
	}
}

// SetNowFunc overrides the clock used to name backups.
func (m *Manager) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	m.now = now
}

// Create copies the snapshot into a new backup and returns its name. A data
// directory without a snapshot yields an empty backup.
func (m *Manager) Create() (string, error) {
	if err := os.MkdirAll(m.backupDir, 0o700); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	// Names are unique to the millisecond; a clash moves the stamp forward.
	now := m.now().Truncate(time.Millisecond)
	var name, backupPath string
	for {
		name = fmt.Sprintf("%s_%03d", now.Format(nameLayout), now.Nanosecond()/1e6)
		backupPath = filepath.Join(m.backupDir, name)
		err := os.Mkdir(backupPath, 0o700)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create backup: %w", err)
		}
		now = now.Add(time.Millisecond)
	}

	manifest := Manifest{
		Version:    ManifestVersion,
		CreatedAt:  now,
		AppVersion: m.appVersion,
		Stats:      map[string]int{},
	}
	for _, filename := range dataFiles {
		data, err := fsutil.ReadIfExists(filepath.Join(m.dataDir, filename))
		if err != nil {
			_ = os.RemoveAll(backupPath)
			return "", fmt.Errorf("read %s: %w", filename, err)
		}
		if data == nil {
			continue
		}
		if err := fsutil.WriteFileAtomic(filepath.Join(backupPath, filename), data, 0o600); err != nil {
			_ = os.RemoveAll(backupPath)
			return "", fmt.Errorf("copy %s: %w", filename, err)
		}
		manifest.Files = append(manifest.Files, filename)

		// Stats are best effort: a snapshot the decoder rejects is still
		// worth keeping.
		if snap, format, err := storage.Decode(data); err == nil {
			manifest.Format = format.String()
			addStats(manifest.Stats, snap.Tasks, len(snap.Lists), len(snap.Groups))
		}
	}

	if err := writeJSON(filepath.Join(backupPath, ManifestFile), manifest); err != nil {
		_ = os.RemoveAll(backupPath)
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return name, nil
}

// List returns all backups, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := m.info(entry.Name())
		if err != nil {
			continue
		}
		backups = append(backups, *info)
	}
	slices.SortFunc(backups, func(a, b Info) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return backups, nil
}

// Get returns one backup.
func (m *Manager) Get(name string) (*Info, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(m.backupDir, name)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return m.info(name)
}

func (m *Manager) info(name string) (*Info, error) {
	backupPath := filepath.Join(m.backupDir, name)
	var manifest Manifest
	if err := readJSON(filepath.Join(backupPath, ManifestFile), &manifest); err != nil {
		createdAt, parseErr := parseName(name)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid backup: %s", name)
		}
		manifest.CreatedAt = createdAt
		manifest.Stats = map[string]int{}
	}
	return &Info{
		Name:      name,
		Path:      backupPath,
		CreatedAt: manifest.CreatedAt,
		Stats:     manifest.Stats,
	}, nil
}

// Restore replaces the snapshot with the one in backup name. The current
// snapshot is backed up first and its name is returned. The app must not be
// running, or its next save overwrites the restored file.
func (m *Manager) Restore(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	backupPath := filepath.Join(m.backupDir, name)
	if _, err := os.Stat(backupPath); err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	var manifest Manifest
	if err := readJSON(filepath.Join(backupPath, ManifestFile), &manifest); err != nil {
		manifest.Files = dataFiles
	}

	// Validate before touching the live data.
	payload := make(map[string][]byte, len(manifest.Files))
	for _, filename := range manifest.Files {
		if !slices.Contains(dataFiles, filename) {
			return "", fmt.Errorf("backup %s lists unexpected file %q", name, filename)
		}
		data, err := fsutil.ReadIfExists(filepath.Join(backupPath, filename))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filename, err)
		}
		if data == nil {
			continue
		}
		if _, _, err := storage.Decode(data); err != nil {
			return "", fmt.Errorf("backup %s: %s is unreadable: %w", name, filename, err)
		}
		payload[filename] = data
	}

	safety, err := m.Create()
	if err != nil {
		return "", fmt.Errorf("create safety backup: %w", err)
	}
	for filename, data := range payload {
		if err := fsutil.WriteFileAtomic(filepath.Join(m.dataDir, filename), data, 0o600); err != nil {
			return safety, fmt.Errorf("restore %s (safety backup: %s): %w", filename, safety, err)
		}
	}
	return safety, nil
}

// RestoreLatest restores the newest backup.
func (m *Manager) RestoreLatest() (restored, safety string, err error) {
	backups, err := m.List()
	if err != nil {
		return "", "", err
	}
	if len(backups) == 0 {
		return "", "", errors.New("no backups available")
	}
	safety, err = m.Restore(backups[0].Name)
	return backups[0].Name, safety, err
}

// Delete removes a backup.
func (m *Manager) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	backupPath := filepath.Join(m.backupDir, name)
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return os.RemoveAll(backupPath)
}

// Prune keeps the keep newest backups and deletes the rest. It returns how
// many were deleted.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New("keep must be non-negative")
	}
	backups, err := m.List()
	if err != nil || len(backups) <= keep {
		return 0, err
	}
	deleted := 0
	for _, b := range backups[keep:] {
		if err := m.Delete(b.Name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func validateName(name string) error {
	if name == "" {
		return errors.New("backup name is required")
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid backup name: %q", name)
	}
	if _, err := parseName(name); err != nil {
		return fmt.Errorf("invalid backup name: %q", name)
	}
	return nil
}

// parseName reads the timestamp out of a backup name. Names without the
// millisecond suffix are accepted too.
func parseName(name string) (time.Time, error) {
	base, ms, found := strings.Cut(name, "_")
	if !found {
		return time.Time{}, fmt.Errorf("invalid backup name %q", name)
	}
	clock, msPart, hasMS := strings.Cut(ms, "_")
	t, err := time.Parse(nameLayout, base+"_"+clock)
	if err != nil || !hasMS {
		return t, err
	}
	n, err := strconv.Atoi(msPart)
	if err != nil || len(msPart) != 3 || n < 0 {
		return time.Time{}, fmt.Errorf("invalid milliseconds in %q", name)
	}
	return t.Add(time.Duration(n) * time.Millisecond), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o600)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func addStats(stats map[string]int, tasks []model.Task, lists, groups int) {
	stats["tasks"] += len(tasks)
	for _, t := range tasks {
		if t.IsCompleted {
			stats["completed"]++
		}
	}
	stats["lists"] += lists
	stats["groups"] += groups
}
