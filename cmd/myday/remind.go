package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"myday/internal/model"
	"myday/internal/notify"
)

func remindCmd(g *globalFlags) *cobra.Command {
	var (
		watchFlag bool
		send      bool
	)
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Show or send reminders for tasks coming due",
		Long: `List the open tasks that are overdue, due today, or due within the
configured lead time (notify.lead_time). With --send they are also shown as
desktop notifications; with --watch the check repeats every notify.interval
until interrupted, sending each reminder once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				cfg := s.env.cfg.Notify
				st := s.store
				out := cmd.OutOrStdout()

				if !watchFlag {
					alerts := notify.DueAlerts(st.Snapshot().Tasks, st.Now(), cfg.LeadTime, st.Calendar())
					if len(alerts) == 0 {
						fmt.Fprintln(out, "Nothing due.")
						return nil
					}
					for _, a := range alerts {
						fmt.Fprintf(out, "%s  %s  (%s)\n", shortID(a.TaskID), a.Title, a.Body)
					}
					if !send {
						return nil
					}
					_, err := notify.NewReminder(notify.New(), cfg, st.Calendar(), s.env.logger).
						Check(st.Snapshot().Tasks, st.Now())
					return err
				}

				n := notify.New()
				if !n.IsSupported() {
					return errors.New("desktop notifications are not supported here (need osascript or notify-send)")
				}
				r := notify.NewReminder(n, cfg, st.Calendar(), s.env.logger)
				fmt.Fprintln(out, "Watching due dates (Ctrl+C to stop)")
				err := r.Run(ctx, func() []model.Task {
					// Pick up edits made by other processes.
					if err := syncOnce(ctx, s); err != nil {
						s.env.logger.Warn("Reload failed", "error", err)
					}
					return st.Snapshot().Tasks
				}, st.Now)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Keep running and send reminders as tasks come due")
	cmd.Flags().BoolVar(&send, "send", false, "Also send desktop notifications")
	return cmd
}
