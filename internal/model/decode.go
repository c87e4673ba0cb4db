package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// UnmarshalJSON decodes a task written by any earlier version of the app.
// Tags may be bare strings, legacy keys (text, done, description) are
// accepted, and fields added later fall back to their documented defaults.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		Tags        json.RawMessage `json:"tags"`
		IsCompleted *bool           `json:"is_completed"`
		Text        *string         `json:"text"`
		Done        *bool           `json:"done"`
		Description *string         `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)

	if t.Title == "" && raw.Text != nil {
		t.Title = *raw.Text
	}
	switch {
	case raw.IsCompleted != nil:
		t.IsCompleted = *raw.IsCompleted
	case raw.Done != nil:
		t.IsCompleted = *raw.Done
	}
	if t.Notes == "" && raw.Description != nil {
		t.Notes = *raw.Description
	}

	tags, err := decodeTags(raw.Tags)
	if err != nil {
		return fmt.Errorf("decode tags of task %s: %w", t.ID, err)
	}
	t.Tags = tags

	t.applyDefaults()
	return nil
}

func (t *Task) applyDefaults() {
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Repeat.Valid() {
		t.Repeat = RepeatNone
	}
	if t.ListID == "" {
		t.ListID = DefaultListID
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}
	switch {
	case t.IsCompleted && t.CompletedAt == nil:
		at := t.UpdatedAt
		t.CompletedAt = &at
	case !t.IsCompleted && t.CompletedAt != nil:
		t.CompletedAt = nil
	}
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == "" {
			t.Subtasks[i].ID = derivedID("subtask:" + t.ID + ":" + strconv.Itoa(i))
		}
	}
}

// UnmarshalJSON accepts both {id,name,color} objects and bare strings.
func (tag *Tag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*tag = Tag{Name: name}
	} else {
		type plain Tag
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*tag = Tag(p)
	}
	if !tag.Color.Valid() {
		tag.Color = DefaultTagColor
	}
	if tag.ID == "" {
		tag.ID = derivedID("tag:" + NormalizeTagName(tag.Name))
	}
	return nil
}

func decodeTags(raw json.RawMessage) ([]Tag, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var tags []Tag
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// derivedID gives data decoded without ids a stable identity, so decoding the
// same legacy bytes twice yields the same ids.
func derivedID(seed string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
