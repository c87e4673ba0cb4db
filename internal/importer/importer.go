// Package importer migrates tasks from Todoist CSV and Taskwarrior JSON
// exports into the store. Projects become lists, created on first use.
package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"myday/internal/model"
	"myday/internal/store"
)

// Result contains statistics about an import operation.
type Result struct {
	Imported     int      // tasks created
	ListsCreated int      // lists created for unknown projects
	Errors       []string // one entry per task that failed
}

// PreviewTask is a parsed task before import.
type PreviewTask struct {
	Title    string
	Project  string
	Priority model.Priority
	DueDate  *time.Time
	Done     bool
	Tags     []string
	Notes    string
}

// Sink receives imported tasks. *store.Store satisfies it.
type Sink interface {
	CreateTask(d store.Draft) (model.Task, error)
	SetCompleted(id string, done bool) (model.Task, error)
	Lists() []model.List
	CreateList(title, icon string) (model.List, error)
}

// Importer parses one export format.
type Importer interface {
	// Preview parses the export without importing anything.
	Preview(r io.Reader) ([]PreviewTask, error)

	// Name returns the format name, e.g. "todoist".
	Name() string
}

// GetImporter returns the importer for format, or nil. Dates without a zone
// are read in loc; nil means the local zone.
func GetImporter(format string, loc *time.Location) Importer {
	if loc == nil {
		loc = time.Local
	}
	switch format {
	case "todoist":
		return &TodoistImporter{Location: loc}
	case "taskwarrior":
		return &TaskwarriorImporter{Location: loc}
	default:
		return nil
	}
}

// SupportedFormats returns the list of supported import formats.
func SupportedFormats() []string {
	return []string{"todoist", "taskwarrior"}
}

// Import parses r with imp and adds every task to sink. A task that cannot
// be added is recorded in Result.Errors and the import continues.
func Import(imp Importer, r io.Reader, sink Sink) (*Result, error) {
	tasks, err := imp.Preview(r)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	lists := make(map[string]string) // folded title -> id
	for _, l := range sink.Lists() {
		lists[strings.ToLower(l.Title)] = l.ID
	}

	for _, pt := range tasks {
		listID, err := resolveList(sink, lists, pt.Project, res)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: project %q: %v", pt.Title, pt.Project, err))
		}
		task, err := sink.CreateTask(store.Draft{
			Title:    pt.Title,
			Notes:    pt.Notes,
			ListID:   listID,
			Priority: pt.Priority,
			DueDate:  pt.DueDate,
			Tags:     pt.Tags,
		})
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", pt.Title, err))
			continue
		}
		if pt.Done {
			if _, err := sink.SetCompleted(task.ID, true); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("complete %s: %v", pt.Title, err))
			}
		}
		res.Imported++
	}
	return res, nil
}

func resolveList(sink Sink, lists map[string]string, project string, res *Result) (string, error) {
	project = strings.TrimSpace(project)
	if project == "" || strings.EqualFold(project, "inbox") {
		return model.DefaultListID, nil
	}
	key := strings.ToLower(project)
	if id, ok := lists[key]; ok {
		return id, nil
	}
	l, err := sink.CreateList(project, "")
	if err != nil {
		return model.DefaultListID, err
	}
	lists[key] = l.ID
	res.ListsCreated++
	return l.ID, nil
}
