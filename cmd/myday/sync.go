package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"myday/internal/config"
	"myday/internal/gitsync"
	"myday/internal/storage"
	"myday/internal/watch"
)

func syncCmd(g *globalFlags) *cobra.Command {
	var watchFlag bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge the local data with the cloud replica",
		Long: `Merge the local snapshot with the configured cloud replica and write
the result to both. With --watch, keep running and merge again whenever
another device rewrites the cloud folder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				out := cmd.OutOrStdout()
				if err := syncOnce(ctx, s); err != nil {
					return err
				}
				if kind := s.env.cfg.Cloud.Kind; kind == "" || kind == config.CloudNone {
					fmt.Fprintln(out, "No cloud replica configured; local data reloaded.")
				} else {
					fmt.Fprintf(out, "Synced %d tasks with the %s replica.\n", len(s.store.Snapshot().Tasks), s.env.cfg.Cloud.Kind)
				}
				if !watchFlag {
					return nil
				}
				if s.watchPath == "" {
					return errors.New("--watch needs a folder cloud replica (kind dir or items)")
				}
				return watchAndSync(ctx, s, cmd)
			})
		},
	}
	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Keep running and sync on every cloud change")
	return cmd
}

// syncOnce merges the replicas. A replica that failed is reported and the
// merge of the rest is kept.
func syncOnce(ctx context.Context, s *session) error {
	err := s.store.Sync(ctx)
	if failed := storage.FailedReplicas(err); len(failed) > 0 {
		s.env.logger.Warn("Sync degraded", "replicas", failed, "error", err)
		return nil
	}
	return err
}

func watchAndSync(ctx context.Context, s *session, cmd *cobra.Command) error {
	cfg := s.env.cfg
	w, err := watch.New(s.watchPath, cfg.Cloud.WatchDebounce, s.env.logger)
	if err != nil {
		return fmt.Errorf("watch cloud folder: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", s.watchPath)
	err = watch.Run(ctx, w, func(ctx context.Context, c watch.Change) {
		if err := syncOnce(ctx, s); err != nil {
			s.env.logger.Error("Sync failed", "error", err)
			return
		}
		// The merge may have rewritten the file; that is not a remote change.
		if data, err := os.ReadFile(s.watchPath); err == nil {
			w.Observe(data)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s synced (%d tasks)\n", time.Now().Format("15:04:05"), len(s.store.Snapshot().Tasks))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func gitCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Version the data directory with git",
		Long: `Keep the data directory in a git repository. With sync.enabled and
sync.auto_commit in the config, every save is committed with a message
describing the change, e.g. "Complete task: Review PR".`,
	}

	open := func(cmd *cobra.Command) (*gitsync.Repo, string, error) {
		if !gitsync.IsGitInstalled() {
			return nil, "", gitsync.ErrNotInstalled
		}
		e, err := g.load(cmd.ErrOrStderr())
		if err != nil {
			return nil, "", err
		}
		dir := e.cfg.GetDataDir()
		return gitsync.New(dir, gitConfig(e.cfg), e.logger), dir, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Initialize a repository in the data directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, dir, err := open(cmd)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if repo.IsRepo() {
					fmt.Fprintf(out, "Git repository already initialized in %s\n", dir)
					return nil
				}
				if err := repo.Init(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(out, "Initialized git repository in %s\n\n", dir)
				fmt.Fprintln(out, "Next steps:")
				fmt.Fprintln(out, "  myday git remote <url>")
				fmt.Fprintln(out, "  and set sync.enabled: true in the config")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the repository state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, dir, err := open(cmd)
				if err != nil {
					return err
				}
				st, err := repo.Status(cmd.Context())
				if err != nil {
					return err
				}
				printGitStatus(cmd, st, dir)
				return nil
			},
		},
		&cobra.Command{
			Use:   "commit",
			Short: "Commit the current snapshot",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, _, err := open(cmd)
				if err != nil {
					return err
				}
				if err := repo.Commit(cmd.Context(), []string{storage.SnapshotFile}, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Committed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Pull and rebase onto the remote",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, _, err := open(cmd)
				if err != nil {
					return err
				}
				if err := repo.Pull(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Pull complete.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "push",
			Short: "Push local commits",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				repo, _, err := open(cmd)
				if err != nil {
					return err
				}
				if err := repo.Push(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Push complete.")
				return nil
			},
		},
	)

	var remoteName string
	remote := &cobra.Command{
		Use:   "remote URL",
		Short: "Set the remote repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := open(cmd)
			if err != nil {
				return err
			}
			if err := repo.SetRemote(cmd.Context(), remoteName, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Remote %q set to %s\n", remoteName, args[0])
			return nil
		},
	}
	remote.Flags().StringVar(&remoteName, "name", "origin", "Remote name")
	cmd.AddCommand(remote)
	return cmd
}

func printGitStatus(cmd *cobra.Command, st *gitsync.Status, dir string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Git Sync Status"))
	fmt.Fprintf(out, "Data dir:    %s\n", dir)
	if !st.IsRepo {
		fmt.Fprintln(out, "Repository:  not initialized")
		fmt.Fprintln(out, "\nRun 'myday git init' to initialize.")
		return
	}
	fmt.Fprintf(out, "Branch:      %s\n", st.Branch)
	if st.HasRemote {
		fmt.Fprintf(out, "Remote:      %s (%s)\n", st.RemoteName, st.RemoteURL)
		if st.Ahead > 0 || st.Behind > 0 {
			fmt.Fprintf(out, "Status:      %d ahead, %d behind\n", st.Ahead, st.Behind)
		} else {
			fmt.Fprintln(out, "Status:      up to date")
		}
	} else {
		fmt.Fprintln(out, "Remote:      not configured")
	}
	if st.HasChanges {
		fmt.Fprintln(out, "Changes:     uncommitted changes present")
	} else {
		fmt.Fprintln(out, "Changes:     clean")
	}
	if st.LastCommitAt != nil {
		fmt.Fprintf(out, "Last commit: %s\n", timeAgo(*st.LastCommitAt, time.Now()))
	}
}
