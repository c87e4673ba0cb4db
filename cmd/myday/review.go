package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"myday/internal/fsutil"
	"myday/internal/reports"
)

func reviewCmd(g *globalFlags) *cobra.Command {
	var (
		weekly bool
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "review [YYYY-MM-DD]",
		Short: "Summarize a day or a week",
		Long: `Print the daily summary (completed, added, due, overdue, My Day, streak
and suggestions for today) or, with --weekly, the review of the week
containing the date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format = strings.ToLower(format); format {
			case "md":
				format = "markdown"
			case "markdown", "json":
			default:
				return fmt.Errorf("invalid format %q: use markdown or json", format)
			}
			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				cal := s.store.Calendar()
				day := s.store.Now()
				if len(args) == 1 {
					d, err := time.ParseInLocation("2006-01-02", args[0], cal.Location)
					if err != nil {
						return fmt.Errorf("invalid date %q: use YYYY-MM-DD", args[0])
					}
					day = d
				}

				report, err := renderReport(reports.NewGenerator(s.store), day, weekly, format)
				if err != nil {
					return err
				}
				if output == "" {
					fmt.Fprint(cmd.OutOrStdout(), report)
					return nil
				}
				if dir := filepath.Dir(output); dir != "." {
					if err := os.MkdirAll(dir, 0o700); err != nil {
						return fmt.Errorf("create output directory: %w", err)
					}
				}
				if err := fsutil.WriteFileAtomic(output, []byte(report), 0o600); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&weekly, "weekly", "w", false, "Review the whole week")
	f.StringVarP(&format, "format", "f", "markdown", "Output format: markdown or json")
	f.StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func renderReport(gen *reports.Generator, day time.Time, weekly bool, format string) (string, error) {
	if weekly {
		r := gen.GenerateWeekly(day)
		if format == "json" {
			data, err := reports.FormatWeeklyJSON(r)
			return string(data) + "\n", err
		}
		return reports.FormatWeeklyMarkdown(r), nil
	}
	r := gen.GenerateDaily(day)
	if format == "json" {
		data, err := reports.FormatDailyJSON(r)
		return string(data) + "\n", err
	}
	return reports.FormatDailyMarkdown(r), nil
}
