package importer

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"myday/internal/model"
)

// TaskwarriorImporter reads "task export" output, either a JSON array or
// one object per line. Deleted tasks are skipped; annotations become notes.
type TaskwarriorImporter struct {
	Location *time.Location
}

type taskwarriorTask struct {
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Project     string   `json:"project"`
	Priority    string   `json:"priority"`
	Due         string   `json:"due"`
	Tags        []string `json:"tags"`
	Annotations []struct {
		Description string `json:"description"`
	} `json:"annotations"`
}

// Name returns the importer name.
func (t *TaskwarriorImporter) Name() string {
	return "taskwarrior"
}

// Preview parses the export without importing anything.
func (t *TaskwarriorImporter) Preview(r io.Reader) ([]PreviewTask, error) {
	loc := t.Location
	if loc == nil {
		loc = time.Local
	}
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	dec := json.NewDecoder(br)
	array := first == '['
	if array {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("parse JSON array: %w", err)
		}
	}

	var tasks []PreviewTask
	for n := 1; ; n++ {
		if array && !dec.More() {
			break
		}
		var tw taskwarriorTask
		err := dec.Decode(&tw)
		if !array && errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode task %d: %w", n, err)
		}
		if task, ok := previewFromTaskwarrior(tw, loc); ok {
			tasks = append(tasks, task)
		}
	}
	if array {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("parse JSON array: %w", err)
		}
	}
	return tasks, nil
}

// peekNonSpace skips leading whitespace and returns the next byte without
// consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\n', '\r':
			_, _ = br.ReadByte()
		default:
			return b[0], nil
		}
	}
}

func previewFromTaskwarrior(tw taskwarriorTask, loc *time.Location) (PreviewTask, bool) {
	title := strings.TrimSpace(tw.Description)
	if tw.Status == "deleted" || title == "" {
		return PreviewTask{}, false
	}
	task := PreviewTask{
		Title:    title,
		Project:  tw.Project,
		Priority: mapTaskwarriorPriority(tw.Priority),
		Done:     tw.Status == "completed",
		Tags:     tw.Tags,
		DueDate:  parseTaskwarriorDate(tw.Due, loc),
	}
	var notes []string
	for _, a := range tw.Annotations {
		if d := strings.TrimSpace(a.Description); d != "" {
			notes = append(notes, "- "+d)
		}
	}
	task.Notes = strings.Join(notes, "\n")
	return task, true
}

// mapTaskwarriorPriority converts H, M and L. Unset is medium.
func mapTaskwarriorPriority(priority string) model.Priority {
	switch strings.ToUpper(strings.TrimSpace(priority)) {
	case "H":
		return model.PriorityHigh
	case "L":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// parseTaskwarriorDate parses Taskwarrior's ISO 8601 basic format
// (20140928T211124Z) and a few extended forms, converted to loc.
func parseTaskwarriorDate(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		"20060102T150405Z",
		"20060102T150405",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.In(loc)
			return &t
		}
	}
	return nil
}
