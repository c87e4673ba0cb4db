package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"myday/internal/model"
	"myday/internal/notify"
	"myday/internal/ui"
	"myday/internal/watch"
)

// logFile receives log output while the full-screen UI owns the terminal.
const logFile = "myday.log"

func runTUI(cmd *cobra.Command, g *globalFlags) error {
	e, err := g.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	dataDir := e.cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dataDir, logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	e.logger = newLogger(g.logLevel, f)
	slog.SetDefault(e.logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := openSession(ctx, e)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}()

	cfg := e.cfg
	appCfg := &ui.AppConfig{
		Keys:                  &cfg.Keys,
		ConfirmDeletions:      cfg.UX.ConfirmDeletions,
		ShowCompleted:         cfg.UX.ShowCompleted,
		NarrowLayoutThreshold: cfg.UX.NarrowLayoutThreshold,
	}

	if cfg.Cloud.Watch && s.watchPath != "" {
		w, err := watch.New(s.watchPath, cfg.Cloud.WatchDebounce, e.logger)
		if err != nil {
			return fmt.Errorf("watch cloud folder: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch cloud folder: %w", err)
		}
		defer w.Stop()
		appCfg.Changes = w.Changes()
	}

	if cfg.Notify.Enabled {
		st := s.store
		r := notify.NewReminder(notify.New(), cfg.Notify, st.Calendar(), e.logger)
		go func() {
			_ = r.Run(ctx, func() []model.Task { return st.Snapshot().Tasks }, st.Now)
		}()
	}

	return ui.Run(s.store, ui.NewStyles(cfg), appCfg)
}
