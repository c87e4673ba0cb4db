package gitsync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myday/internal/store"
)

func skipIfNoGit(t *testing.T) {
	t.Helper()
	if !IsGitInstalled() {
		t.Skip("git not installed")
	}
}

// createTestRepo returns an initialized repository in a temp dir. Author
// identity comes from the environment so the user's git config is untouched.
func createTestRepo(t *testing.T, cfg Config) (*Repo, string) {
	t.Helper()
	skipIfNoGit(t)
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")

	dir := t.TempDir()
	r := New(dir, cfg, nil)
	require.NoError(t, r.Init(context.Background()))
	return r, dir
}

func writeData(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func lastMessage(t *testing.T, r *Repo) string {
	t.Helper()
	out, err := r.git(context.Background(), defaultGitTimeout, "log", "-1", "--format=%s")
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func commitCount(t *testing.T, r *Repo) string {
	t.Helper()
	out, err := r.git(context.Background(), defaultGitTimeout, "rev-list", "--count", "HEAD")
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

// =============================================================================
// Repository
// =============================================================================

func TestInit(t *testing.T) {
	r, dir := createTestRepo(t, DefaultConfig())
	assert.True(t, r.IsRepo())

	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"*.bak", "*.corrupt.*", "*.tmp"} {
		assert.Contains(t, string(content), pattern)
	}
	assert.Equal(t, "Initialize myday data repository", lastMessage(t, r))

	// A second init is harmless.
	require.NoError(t, r.Init(context.Background()))
}

func TestStatus(t *testing.T) {
	skipIfNoGit(t)
	plain := New(t.TempDir(), DefaultConfig(), nil)
	st, err := plain.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.IsRepo)

	r, dir := createTestRepo(t, DefaultConfig())
	st, err = r.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsRepo)
	assert.NotEmpty(t, st.Branch)
	assert.False(t, st.HasRemote)
	assert.False(t, st.HasChanges)
	assert.NotNil(t, st.LastCommitAt)

	writeData(t, dir, "snapshot.json", `{}`)
	st, err = r.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.HasChanges)
}

func TestCommitWithChanges(t *testing.T) {
	r, dir := createTestRepo(t, DefaultConfig())
	writeData(t, dir, "snapshot.json", `{"tasks":[]}`)

	err := r.Commit(context.Background(), []string{"snapshot.json"}, []store.SaveContext{
		{Filename: "snapshot.json", Operation: "complete", ItemType: "task", ItemName: "Review PR"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Complete task: Review PR", lastMessage(t, r))

	// Unchanged content makes no commit.
	before := commitCount(t, r)
	require.NoError(t, r.Commit(context.Background(), []string{"snapshot.json"}, nil))
	assert.Equal(t, before, commitCount(t, r))
}

func TestCommitErrors(t *testing.T) {
	skipIfNoGit(t)
	r := New(t.TempDir(), DefaultConfig(), nil)
	assert.ErrorIs(t, r.Commit(context.Background(), []string{"snapshot.json"}, nil), ErrNotRepo)

	repo, _ := createTestRepo(t, DefaultConfig())
	assert.NoError(t, repo.Commit(context.Background(), nil, nil))
	assert.ErrorIs(t, repo.Pull(context.Background()), ErrNoRemote)
	assert.ErrorIs(t, repo.Push(context.Background()), ErrNoRemote)
}

func TestSetRemote(t *testing.T) {
	r, _ := createTestRepo(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, r.SetRemote(ctx, "origin", "https://example.com/a.git"))
	require.NoError(t, r.SetRemote(ctx, "origin", "https://example.com/b.git"))

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.HasRemote)
	assert.Equal(t, "origin", st.RemoteName)
	assert.Equal(t, "https://example.com/b.git", st.RemoteURL)

	assert.Error(t, r.SetRemote(ctx, "", "x"))
}

func TestPushToBareRemote(t *testing.T) {
	r, dir := createTestRepo(t, DefaultConfig())
	ctx := context.Background()

	remote := t.TempDir()
	bare := New(remote, DefaultConfig(), nil)
	_, err := bare.git(ctx, defaultGitTimeout, "init", "--bare")
	require.NoError(t, err)

	require.NoError(t, r.SetRemote(ctx, "origin", remote))
	branch, err := r.git(ctx, defaultGitTimeout, "rev-parse", "--abbrev-ref", "HEAD")
	require.NoError(t, err)
	_, err = r.git(ctx, pullPushGitTimeout, "push", "-u", "origin", strings.TrimSpace(branch))
	require.NoError(t, err)

	writeData(t, dir, "snapshot.json", `{}`)
	require.NoError(t, r.Commit(ctx, []string{"snapshot.json"}, nil))
	require.NoError(t, r.Push(ctx))
	require.NoError(t, r.Pull(ctx))

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Ahead)
	assert.Zero(t, st.Behind)
}

// =============================================================================
// Auto-commit
// =============================================================================

func TestOnSaveDebounces(t *testing.T) {
	r, dir := createTestRepo(t, Config{Enabled: true, AutoCommit: true})
	r.debounce = 50 * time.Millisecond
	writeData(t, dir, "snapshot.json", `{"n":1}`)

	for _, name := range []string{"a", "b", "c"} {
		r.OnSave(store.SaveContext{Filename: "snapshot.json", Operation: "add", ItemType: "task", ItemName: name})
	}

	require.Eventually(t, func() bool { return commitCount(t, r) == "2" }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Add 3 tasks", lastMessage(t, r))
}

func TestOnSaveDisabled(t *testing.T) {
	r, dir := createTestRepo(t, Config{Enabled: false, AutoCommit: true})
	writeData(t, dir, "snapshot.json", `{}`)

	r.OnSave(store.SaveContext{Filename: "snapshot.json", Operation: "add", ItemType: "task"})
	require.NoError(t, r.Flush(context.Background()))

	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.HasChanges)
}

func TestFlushCommitsImmediately(t *testing.T) {
	r, dir := createTestRepo(t, Config{Enabled: true, AutoCommit: true})
	r.debounce = time.Hour
	writeData(t, dir, "snapshot.json", `{}`)

	r.OnSave(store.SaveContext{Filename: "snapshot.json", Operation: "delete", ItemType: "list", ItemName: "Work"})
	require.NoError(t, r.Flush(context.Background()))

	st, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.HasChanges)
	assert.Equal(t, "Delete list: Work", lastMessage(t, r))
}

func TestCustomCommitMessage(t *testing.T) {
	r, dir := createTestRepo(t, Config{Enabled: true, CommitMessage: "sync"})
	writeData(t, dir, "snapshot.json", `{}`)
	require.NoError(t, r.Commit(context.Background(), []string{"snapshot.json"}, []store.SaveContext{{Operation: "add", ItemType: "task"}}))
	assert.Equal(t, "sync", lastMessage(t, r))
}

func TestCommitMessage(t *testing.T) {
	r := New("", DefaultConfig(), nil)
	task := func(op, name string) store.SaveContext {
		return store.SaveContext{Filename: "snapshot.json", Operation: op, ItemType: "task", ItemName: name}
	}

	tests := []struct {
		name    string
		files   []string
		changes []store.SaveContext
		want    string
	}{
		{"one file", []string{"snapshot.json"}, nil, "Update snapshot.json"},
		{"many files", []string{"a", "b"}, nil, "Update 2 files"},
		{"single", nil, []store.SaveContext{task("add", "Buy milk")}, "Add task: Buy milk"},
		{"reopen", nil, []store.SaveContext{task("uncomplete", "Buy milk")}, "Reopen task: Buy milk"},
		{"no name", nil, []store.SaveContext{{Operation: "update", ItemType: "prefs"}}, "Update prefs"},
		{"same op", nil, []store.SaveContext{task("complete", "a"), task("complete", "b")}, "Complete 2 tasks"},
		{"mixed", nil, []store.SaveContext{task("add", "a"), task("delete", "b")}, "Update: 2 changes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.commitMessage(tc.files, tc.changes))
		})
	}
}

func TestEnvWithOverrides(t *testing.T) {
	got := envWithOverrides([]string{"A=1", "GIT_ASKPASS=x", "weird"}, map[string]string{"GIT_ASKPASS": "", "NEW": "2"})
	assert.ElementsMatch(t, []string{"A=1", "GIT_ASKPASS=", "weird", "NEW=2"}, got)
}
