// Package gitsync versions the data directory with git. Saves reported by
// the store are batched into one commit with a message describing what
// changed, for example "Complete task: Review PR".
package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"myday/internal/fsutil"
	"myday/internal/store"
)

// Config holds git sync configuration.
type Config struct {
	Enabled       bool   `yaml:"enabled"`
	AutoCommit    bool   `yaml:"auto_commit"`
	AutoPush      bool   `yaml:"auto_push"`
	PullOnStartup bool   `yaml:"pull_on_startup"`
	CommitMessage string `yaml:"commit_message"` // "auto" or a fixed message
}

// DefaultConfig returns the default sync configuration.
func DefaultConfig() Config {
	return Config{
		AutoCommit:    true,
		CommitMessage: "auto",
	}
}

var (
	ErrNotInstalled = errors.New("git is not installed")
	ErrNotRepo      = errors.New("not a git repository, run 'myday git init' first")
	ErrNoRemote     = errors.New("no remote configured, add one with 'myday git remote <url>'")
)

// Status is a summary of the repository state.
type Status struct {
	IsRepo       bool
	HasRemote    bool
	RemoteName   string
	RemoteURL    string
	Branch       string
	Ahead        int
	Behind       int
	HasChanges   bool
	LastCommitAt *time.Time
}

const (
	defaultGitTimeout  = 10 * time.Second
	pullPushGitTimeout = 60 * time.Second
	commitGitTimeout   = 15 * time.Second
)

const gitignore = `# myday data directory
*.bak
*.corrupt.*
*.tmp
`

// Repo runs git in the data directory.
type Repo struct {
	dir    string
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	pending  []store.SaveContext
	timer    *time.Timer
	debounce time.Duration

	// opMu serializes git invocations so they never fight over index.lock.
	opMu sync.Mutex
}

// New returns a Repo for dir.
func New(dir string, cfg Config, logger *slog.Logger) *Repo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repo{
		dir:      dir,
		cfg:      cfg,
		logger:   logger,
		debounce: 2 * time.Second,
	}
}

// IsGitInstalled reports whether git is on PATH.
func IsGitInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether the data directory is a git repository.
func (r *Repo) IsRepo() bool {
	info, err := os.Stat(filepath.Join(r.dir, ".git"))
	return err == nil && info.IsDir()
}

// Init creates the repository with a .gitignore for backup and quarantine
// files.
func (r *Repo) Init(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if !IsGitInstalled() {
		return ErrNotInstalled
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}
	if _, err := r.git(ctx, commitGitTimeout, "init"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(r.dir, ".gitignore"), []byte(gitignore), 0o600); err != nil {
		return fmt.Errorf("write .gitignore: %w", err)
	}
	if _, err := r.git(ctx, defaultGitTimeout, "add", ".gitignore"); err != nil {
		return fmt.Errorf("stage .gitignore: %w", err)
	}
	if _, err := r.git(ctx, commitGitTimeout, "-c", "commit.gpgsign=false", "commit", "-m", "Initialize myday data repository"); err != nil {
		if !isNothingToCommit(err) {
			return fmt.Errorf("initial commit: %w", err)
		}
	}
	r.logger.Info("initialized git repository", "dir", r.dir)
	return nil
}

// Status returns the current repository state. Fields that git cannot answer
// are left zero.
func (r *Repo) Status(ctx context.Context) (*Status, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	st := &Status{IsRepo: r.IsRepo()}
	if !st.IsRepo {
		return st, nil
	}

	if out, err := r.git(ctx, defaultGitTimeout, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		st.Branch = strings.TrimSpace(out)
	}
	if out, err := r.git(ctx, defaultGitTimeout, "remote", "-v"); err == nil && strings.TrimSpace(out) != "" {
		st.HasRemote = true
		// "origin\tgit@host:repo.git (fetch)"
		first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
		if parts := strings.Fields(first); len(parts) >= 2 {
			st.RemoteName, st.RemoteURL = parts[0], parts[1]
		}
	}
	if out, err := r.git(ctx, defaultGitTimeout, "status", "--porcelain"); err == nil {
		st.HasChanges = strings.TrimSpace(out) != ""
	}
	if st.HasRemote && st.Branch != "" {
		upstream := st.RemoteName + "/" + st.Branch
		if out, err := r.git(ctx, defaultGitTimeout, "rev-list", "--left-right", "--count", st.Branch+"..."+upstream); err == nil {
			fmt.Sscanf(strings.TrimSpace(out), "%d\t%d", &st.Ahead, &st.Behind)
		}
	}
	if out, err := r.git(ctx, defaultGitTimeout, "log", "-1", "--format=%ci"); err == nil && strings.TrimSpace(out) != "" {
		if t, err := time.Parse("2006-01-02 15:04:05 -0700", strings.TrimSpace(out)); err == nil {
			st.LastCommitAt = &t
		}
	}
	return st, nil
}

// Commit stages files and commits them with a message built from changes.
// Nothing is committed when the files are unchanged.
func (r *Repo) Commit(ctx context.Context, files []string, changes []store.SaveContext) error {
	r.opMu.Lock()
	committed, err := r.commitLocked(ctx, files, changes)
	r.opMu.Unlock()
	if err != nil || !committed || !r.cfg.AutoPush {
		return err
	}
	if err := r.Push(ctx); err != nil {
		return fmt.Errorf("committed locally, but push failed: %w", err)
	}
	return nil
}

func (r *Repo) commitLocked(ctx context.Context, files []string, changes []store.SaveContext) (bool, error) {
	if !r.IsRepo() {
		return false, ErrNotRepo
	}
	if len(files) == 0 {
		return false, nil
	}
	if _, err := r.git(ctx, defaultGitTimeout, append([]string{"add", "--"}, files...)...); err != nil {
		return false, fmt.Errorf("stage files: %w", err)
	}
	staged, err := r.git(ctx, defaultGitTimeout, "diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("check staged changes: %w", err)
	}
	if strings.TrimSpace(staged) == "" {
		return false, nil
	}
	msg := r.commitMessage(files, changes)
	if _, err := r.git(ctx, commitGitTimeout, "-c", "commit.gpgsign=false", "commit", "-m", msg); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("committed", "message", msg, "files", len(files))
	return true, nil
}

// Pull rebases local commits onto the remote.
func (r *Repo) Pull(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.requireRemoteLocked(ctx); err != nil {
		return err
	}
	if _, err := r.git(ctx, pullPushGitTimeout, "pull", "--rebase"); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// Push pushes local commits to the remote.
func (r *Repo) Push(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if err := r.requireRemoteLocked(ctx); err != nil {
		return err
	}
	if _, err := r.git(ctx, pullPushGitTimeout, "push"); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

func (r *Repo) requireRemoteLocked(ctx context.Context) error {
	if !r.IsRepo() {
		return ErrNotRepo
	}
	out, err := r.git(ctx, defaultGitTimeout, "remote")
	if err != nil || strings.TrimSpace(out) == "" {
		return ErrNoRemote
	}
	return nil
}

// SetRemote adds the named remote, or points it at url if it exists.
func (r *Repo) SetRemote(ctx context.Context, name, url string) error {
	if name == "" || url == "" {
		return errors.New("remote name and URL are required")
	}
	r.opMu.Lock()
	defer r.opMu.Unlock()
	if !r.IsRepo() {
		return ErrNotRepo
	}
	out, _ := r.git(ctx, defaultGitTimeout, "remote")
	verb := "add"
	if slices.Contains(strings.Fields(out), name) {
		verb = "set-url"
	}
	if _, err := r.git(ctx, defaultGitTimeout, "remote", verb, name, url); err != nil {
		return fmt.Errorf("remote %s: %w", verb, err)
	}
	return nil
}

// OnSave queues a store save for a debounced commit. It matches the
// signature of store.SetOnSave.
func (r *Repo) OnSave(sc store.SaveContext) {
	if !r.cfg.Enabled || !r.cfg.AutoCommit || !r.IsRepo() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, sc)
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		if err := r.Flush(context.Background()); err != nil {
			r.logger.Warn("auto-commit failed", "error", err)
		}
	})
}

// Flush commits queued saves now.
func (r *Repo) Flush(ctx context.Context) error {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	changes := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(changes) == 0 {
		return nil
	}
	var files []string
	for _, c := range changes {
		if c.Filename != "" && !slices.Contains(files, c.Filename) {
			files = append(files, c.Filename)
		}
	}
	slices.Sort(files)
	return r.Commit(ctx, files, changes)
}

// commitMessage prefers a configured message, then the change descriptions,
// then the file names.
func (r *Repo) commitMessage(files []string, changes []store.SaveContext) string {
	if r.cfg.CommitMessage != "" && r.cfg.CommitMessage != "auto" {
		return r.cfg.CommitMessage
	}
	switch len(changes) {
	case 0:
		if len(files) == 1 {
			return "Update " + files[0]
		}
		return fmt.Sprintf("Update %d files", len(files))
	case 1:
		return describe(changes[0])
	}
	first := changes[0]
	for _, c := range changes[1:] {
		if c.Operation != first.Operation || c.ItemType != first.ItemType {
			return fmt.Sprintf("Update: %d changes", len(changes))
		}
	}
	// "Complete 3 tasks"
	return fmt.Sprintf("%s %d %ss", verb(first.Operation), len(changes), first.ItemType)
}

var verbs = map[string]string{
	"uncomplete": "Reopen",
	"myday":      "Plan",
	"repeat":     "Schedule next",
}

func verb(op string) string {
	if v, ok := verbs[op]; ok {
		return v
	}
	if op == "" {
		return "Update"
	}
	return strings.ToUpper(op[:1]) + op[1:]
}

func describe(c store.SaveContext) string {
	if c.ItemName == "" {
		return verb(c.Operation) + " " + c.ItemType
	}
	return fmt.Sprintf("%s %s: %s", verb(c.Operation), c.ItemType, c.ItemName)
}

func (r *Repo) git(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	cmd.Env = envWithOverrides(os.Environ(), map[string]string{
		"GIT_TERMINAL_PROMPT": "0",
		"GIT_ASKPASS":         "",
		"SSH_ASKPASS":         "",
	})
	cmd.Stdin = bytes.NewReader(nil)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("git %s timed out after %s", strings.Join(args, " "), timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.New(msg)
	}
	return stdout.String(), nil
}

func envWithOverrides(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if v, found := overrides[k]; ok && found {
			out = append(out, k+"="+v)
			seen[k] = true
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		if !seen[k] {
			out = append(out, k+"="+v)
		}
	}
	return out
}

func isNothingToCommit(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nothing to commit") ||
		strings.Contains(msg, "nothing added to commit") ||
		strings.Contains(msg, "no changes added to commit")
}
