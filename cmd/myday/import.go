package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"myday/internal/importer"
)

// previewLimit caps the tasks listed by a dry run.
const previewLimit = 20

func importCmd(g *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FORMAT FILE",
		Short: "Import tasks from another app",
		Long: `Import tasks from another app. Projects become lists; unknown projects
are created.

Formats:
    todoist      Todoist CSV backup
    taskwarrior  output of 'task export'`,
		Example: `  myday import todoist backup.csv
  task export > tasks.json && myday import taskwarrior tasks.json
  myday import --dry-run todoist backup.csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			loc, err := e.cfg.Location()
			if err != nil {
				return err
			}
			format := strings.ToLower(args[0])
			imp := importer.GetImporter(format, loc)
			if imp == nil {
				return fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(importer.SupportedFormats(), ", "))
			}

			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			out := cmd.OutOrStdout()
			if dryRun {
				tasks, err := imp.Preview(file)
				if err != nil {
					return fmt.Errorf("parse %s: %w", args[1], err)
				}
				printPreview(cmd, tasks)
				return nil
			}

			return withSession(cmd, g, func(ctx context.Context, s *session) error {
				res, err := importer.Import(imp, file, s.store)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				fmt.Fprintln(out, "Import complete!")
				fmt.Fprintf(out, "  Imported: %d tasks\n", res.Imported)
				if res.ListsCreated > 0 {
					fmt.Fprintf(out, "  Lists:    %d created\n", res.ListsCreated)
				}
				if len(res.Errors) > 0 {
					fmt.Fprintf(out, "  Errors:   %d\n", len(res.Errors))
					for _, msg := range res.Errors {
						fmt.Fprintf(out, "    - %s\n", msg)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview the import without changing anything")
	return cmd
}

func printPreview(cmd *cobra.Command, tasks []importer.PreviewTask) {
	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found to import.")
		return
	}
	fmt.Fprintf(out, "Preview: %d tasks to import\n", len(tasks))
	for _, t := range tasks[:min(len(tasks), previewLimit)] {
		var details []string
		if t.Project != "" {
			details = append(details, t.Project)
		}
		if t.Priority != "" {
			details = append(details, string(t.Priority))
		}
		if t.DueDate != nil {
			details = append(details, t.DueDate.Format("2006-01-02"))
		}
		if t.Done {
			details = append(details, "done")
		}
		line := "  " + t.Title
		if len(details) > 0 {
			line += " (" + strings.Join(details, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
	if len(tasks) > previewLimit {
		fmt.Fprintf(out, "  ... and %d more\n", len(tasks)-previewLimit)
	}
	fmt.Fprintln(out, "\nRun without --dry-run to import.")
}
