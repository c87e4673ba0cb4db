package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"myday/internal/model"
)

// Format identifies which on-disk layout a payload was decoded from.
type Format int

const (
	// FormatCurrent is the snapshot record {schema_version, tasks, lists, ...}.
	FormatCurrent Format = iota
	// FormatVersioned is the version 1 record {schemaVersion, items}.
	FormatVersioned
	// FormatBareList is a plain JSON array of tasks.
	FormatBareList
)

func (f Format) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatVersioned:
		return "versioned"
	case FormatBareList:
		return "bare-list"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

var (
	// ErrEmptyPayload is returned by Decode for blank input.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrUnknownFormat is returned by Decode when no known layout matches.
	ErrUnknownFormat = errors.New("unrecognized snapshot format")
)

// Decode reads a snapshot from any layout the app has ever written. The
// returned snapshot is not normalized.
func Decode(data []byte) (*model.Snapshot, Format, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, FormatCurrent, ErrEmptyPayload
	}

	switch data[0] {
	case '[':
		var tasks []model.Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, FormatBareList, fmt.Errorf("decode task list: %w", err)
		}
		return &model.Snapshot{SchemaVersion: 1, Tasks: tasks}, FormatBareList, nil
	case '{':
	default:
		return nil, FormatCurrent, ErrUnknownFormat
	}

	var probe struct {
		SchemaVersion *int            `json:"schema_version"`
		LegacyVersion *int            `json:"schemaVersion"`
		Items         json.RawMessage `json:"items"`
		Tasks         json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, FormatCurrent, fmt.Errorf("decode snapshot: %w", err)
	}

	switch {
	case probe.Items != nil && probe.Tasks == nil:
		var tasks []model.Task
		if err := json.Unmarshal(probe.Items, &tasks); err != nil {
			return nil, FormatVersioned, fmt.Errorf("decode items: %w", err)
		}
		version := 1
		switch {
		case probe.LegacyVersion != nil:
			version = *probe.LegacyVersion
		case probe.SchemaVersion != nil:
			version = *probe.SchemaVersion
		}
		return &model.Snapshot{SchemaVersion: version, Tasks: tasks}, FormatVersioned, nil
	case probe.Tasks != nil || probe.SchemaVersion != nil:
		var snap model.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, FormatCurrent, fmt.Errorf("decode snapshot: %w", err)
		}
		return &snap, FormatCurrent, nil
	}
	return nil, FormatCurrent, ErrUnknownFormat
}

// Encode renders a snapshot in the current layout.
func Encode(snap *model.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

type itemsRecord struct {
	SchemaVersion int          `json:"schemaVersion"`
	Items         []model.Task `json:"items"`
}

func encodeItems(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.MarshalIndent(itemsRecord{SchemaVersion: 1, Items: tasks}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	return append(data, '\n'), nil
}
