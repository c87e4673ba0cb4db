package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"myday/internal/config"
	"myday/internal/gitsync"
	"myday/internal/model"
	"myday/internal/storage"
	"myday/internal/storage/natskv"
	"myday/internal/store"
)

// itemsFile is the task list kept in an "items" cloud folder.
const itemsFile = "items.json"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

// env is the loaded configuration of one command run.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// load reads the config file and sets up logging to w.
func (g *globalFlags) load(w io.Writer) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	logger := newLogger(g.logLevel, w)
	slog.SetDefault(logger)
	return &env{cfg: cfg, logger: logger}, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// session is an open store with the replicas and git hook behind it.
type session struct {
	env   *env
	store *store.Store
	git   *gitsync.Repo

	// watchPath is the cloud file to watch, empty unless the cloud
	// replica is a folder.
	watchPath string

	closers []func() error
}

// openSession builds the replicas from the config and opens the store.
func openSession(ctx context.Context, e *env) (*session, error) {
	cfg := e.cfg
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}
	s := &session{env: e}

	if cfg.Sync.Enabled && gitsync.IsGitInstalled() {
		s.git = gitsync.New(cfg.GetDataDir(), gitConfig(cfg), e.logger)
		if cfg.Sync.PullOnStartup && s.git.IsRepo() {
			// Local data is still usable when the pull fails.
			if err := s.git.Pull(ctx); err != nil {
				e.logger.Warn("Git pull failed", "error", err)
			}
		}
	}

	local := storage.NewDirReplica("local", cfg.GetDataDir(), e.logger)
	cloud, err := s.cloudReplica(ctx)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, storage.NewDual(local, cloud, e.logger), store.Options{
		Calendar: model.NewCalendar(loc),
		Locale:   cfg.Locale,
		Debounce: cfg.PersistDebounce,
		Logger:   e.logger,
	})
	if err != nil {
		_ = s.closeReplicas()
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.store = st
	if s.git != nil && cfg.Sync.AutoCommit && s.git.IsRepo() {
		st.SetOnSave(s.git.OnSave)
	}
	return s, nil
}

func (s *session) cloudReplica(ctx context.Context) (storage.Replica, error) {
	cfg := s.env.cfg
	switch cfg.Cloud.Kind {
	case "", config.CloudNone:
		return nil, nil
	case config.CloudDir:
		r := storage.NewDirReplica("cloud", cfg.GetCloudDir(), s.env.logger)
		s.watchPath = r.Path()
		return r, nil
	case config.CloudItems:
		f := storage.NewItemsFile("cloud", filepath.Join(cfg.GetCloudDir(), itemsFile))
		s.watchPath = f.Path()
		return storage.ItemsOnly(f), nil
	case config.CloudNATS:
		r, err := natskv.Open(ctx, cfg.Cloud.NATSURL, cfg.Cloud.Bucket, cfg.Cloud.Key, s.env.logger)
		if err != nil {
			return nil, fmt.Errorf("open nats replica: %w", err)
		}
		s.closers = append(s.closers, r.Close)
		return r, nil
	}
	return nil, fmt.Errorf("unknown cloud kind %q", cfg.Cloud.Kind)
}

// Close flushes the store, commits pending git changes and releases the
// replicas.
func (s *session) Close(ctx context.Context) error {
	var errs []error
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("save: %w", err))
	}
	if s.git != nil {
		if err := s.git.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("git: %w", err))
		}
	}
	if err := s.closeReplicas(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *session) closeReplicas() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func gitConfig(cfg *config.Config) gitsync.Config {
	return gitsync.Config{
		Enabled:       cfg.Sync.Enabled,
		AutoCommit:    cfg.Sync.AutoCommit,
		AutoPush:      cfg.Sync.AutoPush,
		PullOnStartup: cfg.Sync.PullOnStartup,
		CommitMessage: cfg.Sync.CommitMessage,
	}
}

// withSession loads the config, opens a session, runs fn and closes the
// session. The close error is reported when fn succeeds.
func withSession(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, s *session) error) (err error) {
	e, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, e)
	if err != nil {
		return err
	}
	defer func() {
		// The run context may be cancelled by now; saving must still happen.
		if cerr := s.Close(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}
