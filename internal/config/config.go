// Package config loads the myday configuration from
// $XDG_CONFIG_HOME/myday/config.yaml (falling back to ~/.config/myday). Keys
// missing from the file keep their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"myday/internal/fsutil"
	"myday/internal/notify"
)

// Cloud replica kinds.
const (
	CloudNone  = "none"
	CloudDir   = "dir"   // full snapshot in a synced folder
	CloudItems = "items" // versioned item list in a synced folder
	CloudNATS  = "nats"  // NATS JetStream key-value bucket
)

// Config represents the application configuration.
type Config struct {
	// DataDir holds the local snapshot (default ~/.myday).
	DataDir string `yaml:"data_dir,omitempty"`

	// Locale selects the quick-add language: "" detects, "zh" or "en".
	Locale string `yaml:"locale,omitempty"`

	// TimeZone is an IANA zone name for day boundaries; empty is the system zone.
	TimeZone string `yaml:"time_zone,omitempty"`

	// PersistDebounce is the quiet period before a write, e.g. "400ms".
	PersistDebounce time.Duration `yaml:"persist_debounce,omitempty"`

	Cloud CloudConfig `yaml:"cloud,omitempty"`
	Theme ThemeConfig `yaml:"theme,omitempty"`
	Keys  KeysConfig  `yaml:"keys,omitempty"`
	UX    UXConfig    `yaml:"ux,omitempty"`
	Sync  SyncConfig  `yaml:"sync,omitempty"`

	// Notify configures due-date reminders.
	Notify notify.Config `yaml:"notify,omitempty"`
}

// CloudConfig selects the second replica.
type CloudConfig struct {
	Kind    string `yaml:"kind,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Key     string `yaml:"key,omitempty"`

	// Watch re-syncs when another device rewrites the folder replica.
	Watch         bool          `yaml:"watch,omitempty"`
	WatchDebounce time.Duration `yaml:"watch_debounce,omitempty"`
}

// SyncConfig defines git synchronization of the data directory. Its fields
// match gitsync.Config.
type SyncConfig struct {
	Enabled       bool   `yaml:"enabled"`
	AutoCommit    bool   `yaml:"auto_commit"`
	AutoPush      bool   `yaml:"auto_push"`
	PullOnStartup bool   `yaml:"pull_on_startup"`
	CommitMessage string `yaml:"commit_message,omitempty"`
}

// ThemeConfig defines colors as hex strings. Empty means terminal default.
type ThemeConfig struct {
	Primary string `yaml:"primary,omitempty"`
	Accent  string `yaml:"accent,omitempty"`
	Muted   string `yaml:"muted,omitempty"`
	Danger  string `yaml:"danger,omitempty"`
	Text    string `yaml:"text,omitempty"`
}

// KeysConfig overrides key bindings. Each field is a comma-separated list,
// e.g. "j,down". Empty keeps the built-in binding.
type KeysConfig struct {
	Quit      string `yaml:"quit,omitempty"`
	Help      string `yaml:"help,omitempty"`
	Up        string `yaml:"up,omitempty"`
	Down      string `yaml:"down,omitempty"`
	Top       string `yaml:"top,omitempty"`
	Bottom    string `yaml:"bottom,omitempty"`
	NextList  string `yaml:"next_list,omitempty"`
	PrevList  string `yaml:"prev_list,omitempty"`
	Add       string `yaml:"add,omitempty"`
	Toggle    string `yaml:"toggle,omitempty"`
	Important string `yaml:"important,omitempty"`
	MyDay     string `yaml:"my_day,omitempty"`
	Delete    string `yaml:"delete,omitempty"`
	Search    string `yaml:"search,omitempty"`
	Sort      string `yaml:"sort,omitempty"`
	Undo      string `yaml:"undo,omitempty"`
	Sync      string `yaml:"sync,omitempty"`
	Confirm   string `yaml:"confirm,omitempty"`
	Cancel    string `yaml:"cancel,omitempty"`
}

// UXConfig defines user experience settings.
type UXConfig struct {
	ConfirmDeletions      bool `yaml:"confirm_deletions"`
	ShowCompleted         bool `yaml:"show_completed"`
	NarrowLayoutThreshold int  `yaml:"narrow_layout_threshold,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir:         defaultDataDir(),
		PersistDebounce: 400 * time.Millisecond,
		Cloud: CloudConfig{
			Kind:          CloudNone,
			Bucket:        "MYDAY",
			Key:           "snapshot",
			WatchDebounce: 500 * time.Millisecond,
		},
		Theme: ThemeConfig{
			Primary: "#2563EB", // Blue
			Accent:  "#F59E0B", // Amber
			Muted:   "#6B7280", // Gray
			Danger:  "#DC2626", // Red
		},
		UX: UXConfig{
			ConfirmDeletions:      true,
			NarrowLayoutThreshold: 80,
		},
		Sync: SyncConfig{
			AutoCommit:    true,
			CommitMessage: "auto",
		},
		Notify: notify.DefaultConfig(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".myday"
	}
	return filepath.Join(home, ".myday")
}

// Path returns the default config file path, or "" when no home directory
// can be found.
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "myday", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "myday", "config.yaml")
}

// Load reads the config file at path, or at Path() when path is empty. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := fsutil.ReadIfExists(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return cfg, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	// Decoding onto the defaults only touches keys present in the file.
	if err := doc.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// A folder without an explicit kind means a snapshot folder.
	if !yamlHasPath(&doc, "cloud", "kind") && yamlHasPath(&doc, "cloud", "dir") {
		cfg.Cloud.Kind = CloudDir
	}
	if !yamlHasPath(&doc, "cloud", "kind") && yamlHasPath(&doc, "cloud", "nats_url") {
		cfg.Cloud.Kind = CloudNATS
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Locale {
	case "", "zh", "en":
	default:
		errs = append(errs, fmt.Errorf("locale %q: must be zh or en", c.Locale))
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("time_zone: %w", err))
		}
	}
	if c.PersistDebounce < 0 {
		errs = append(errs, errors.New("persist_debounce must not be negative"))
	}
	switch c.Cloud.Kind {
	case "", CloudNone:
	case CloudDir, CloudItems:
		if c.Cloud.Dir == "" {
			errs = append(errs, fmt.Errorf("cloud kind %q needs cloud.dir", c.Cloud.Kind))
		}
	case CloudNATS:
		if c.Cloud.NATSURL == "" {
			errs = append(errs, errors.New("cloud kind \"nats\" needs cloud.nats_url"))
		}
		if c.Cloud.Watch {
			errs = append(errs, errors.New("cloud.watch only applies to folder replicas"))
		}
	default:
		errs = append(errs, fmt.Errorf("cloud kind %q: must be none, dir, items or nats", c.Cloud.Kind))
	}
	if c.Notify.LeadTime < 0 {
		errs = append(errs, errors.New("notify.lead_time must not be negative"))
	}
	if c.Notify.Interval < 0 {
		errs = append(errs, errors.New("notify.interval must not be negative"))
	}
	return errors.Join(errs...)
}

func yamlHasPath(doc *yaml.Node, path ...string) bool {
	n := doc
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	for _, key := range path {
		if n == nil || n.Kind != yaml.MappingNode {
			return false
		}
		var next *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if k := n.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
				next = n.Content[i+1]
				break
			}
		}
		if next == nil {
			return false
		}
		n = next
	}
	return true
}

// Save writes the configuration to path, or to Path() when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return errors.New("no config path: home directory unknown")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o600)
}

// GetDataDir returns the data directory with a leading ~ expanded.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandHome(c.DataDir)
}

// GetCloudDir returns the cloud folder with a leading ~ expanded.
func (c *Config) GetCloudDir() string {
	return ExpandHome(c.Cloud.Dir)
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// ExpandHome replaces a leading "~" or "~/" with the home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}
