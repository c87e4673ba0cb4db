package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"myday/internal/backup"
)

func backupCmd(g *globalFlags) *cobra.Command {
	manager := func(cmd *cobra.Command) (*backup.Manager, error) {
		e, err := g.load(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		return backup.NewManager(e.cfg.GetDataDir(), version), nil
	}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the local snapshot",
		Long: `Create a timestamped copy of the local snapshot in <data dir>/backups.
Use the subcommands to list, restore and prune backups.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			name, err := m.Create()
			if err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
			info, err := m.Get(name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Backup created: %s\n", name)
			fmt.Fprintf(out, "  Tasks: %d (%d completed), Lists: %d\n",
				info.Stats["tasks"], info.Stats["completed"], info.Stats["lists"])
			fmt.Fprintf(out, "  Location: %s\n", info.Path)
			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List backups, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			backups, err := m.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups available.")
				fmt.Fprintln(out, "Run 'myday backup' to create one.")
				return nil
			}
			fmt.Fprintln(out, "Available backups:")
			now := time.Now()
			for _, b := range backups {
				fmt.Fprintf(out, "  %s  (%s)  Tasks: %d, Lists: %d\n",
					b.Name, timeAgo(b.CreatedAt, now), b.Stats["tasks"], b.Stats["lists"])
			}
			return nil
		},
	}

	var latest bool
	restore := &cobra.Command{
		Use:   "restore [NAME]",
		Short: "Restore a backup",
		Long: `Replace the local snapshot with a backup. The current snapshot is backed
up first. Quit the interactive view before restoring, or its next save
overwrites the restored data.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if latest == (len(args) == 1) {
				return errors.New("give a backup name or --latest")
			}
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			var restored, safety string
			if latest {
				restored, safety, err = m.RestoreLatest()
			} else {
				restored = args[0]
				safety, err = m.Restore(restored)
			}
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Restored %s\n", restored)
			fmt.Fprintf(out, "  Previous data saved as %s\n", safety)
			return nil
		},
	}
	restore.Flags().BoolVar(&latest, "latest", false, "Restore the newest backup")

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			n, err := m.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d backup(s), kept up to %d.\n", n, keep)
			return nil
		},
	}
	prune.Flags().IntVar(&keep, "keep", 10, "Number of backups to keep")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete one backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager(cmd)
			if err != nil {
				return err
			}
			if err := m.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, restore, prune, del)
	return cmd
}
