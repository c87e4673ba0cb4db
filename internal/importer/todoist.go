package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"myday/internal/model"
)

// TodoistImporter reads Todoist CSV exports. Rows of TYPE "task" are
// imported; section and note rows are skipped. "@label" words in CONTENT
// become tags.
type TodoistImporter struct {
	Location *time.Location
}

// Name returns the importer name.
func (t *TodoistImporter) Name() string {
	return "todoist"
}

// Preview parses the export without importing anything.
func (t *TodoistImporter) Preview(r io.Reader) ([]PreviewTask, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		cols[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"TYPE", "CONTENT"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	var tasks []PreviewTask
	for row := 2; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return tasks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", row, err)
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		if !strings.EqualFold(field("TYPE"), "task") {
			continue
		}
		task := PreviewTask{
			Priority: mapTodoistPriority(field("PRIORITY")),
			Project:  field("PROJECT"),
			Notes:    field("DESCRIPTION"),
			DueDate:  parseTodoistDate(field("DATE"), t.Location),
		}
		task.Title, task.Tags = splitLabels(field("CONTENT"))
		if task.Title == "" {
			continue
		}
		tasks = append(tasks, task)
	}
}

// mapTodoistPriority converts Todoist priority, where 1 is urgent and 4 is
// normal. Anything else is medium.
func mapTodoistPriority(priority string) model.Priority {
	switch strings.TrimSpace(priority) {
	case "1", "2":
		return model.PriorityHigh
	case "4":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// splitLabels removes "@label" words from content and returns them as tags.
func splitLabels(content string) (title string, labels []string) {
	var words []string
	for _, w := range strings.Fields(content) {
		if len(w) > 1 && strings.HasPrefix(w, "@") {
			labels = append(labels, w[1:])
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), labels
}

// parseTodoistDate parses the date formats Todoist exports, at midnight in
// loc.
func parseTodoistDate(dateStr string, loc *time.Location) *time.Time {
	if dateStr == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	formats := []string{
		"2006-01-02",
		"Jan 2 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"January 2, 2006",
		"01/02/2006",
		"02/01/2006",
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, loc); err == nil {
			return &t
		}
	}

	return nil
}
