package model

import "time"

// SchemaVersion is the current on-disk snapshot version.
// Version 1 was the flat {schemaVersion, items} record.
const SchemaVersion = 2

// Profile holds the user's identity settings.
type Profile struct {
	DisplayName string    `json:"display_name,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppPrefs holds application preferences that travel with the data.
type AppPrefs struct {
	Locale        string    `json:"locale,omitempty"`
	TimeZone      string    `json:"time_zone,omitempty"`
	DefaultSort   string    `json:"default_sort,omitempty"`
	ShowCompleted bool      `json:"show_completed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot is the unit of persistence.
type Snapshot struct {
	SchemaVersion int      `json:"schema_version"`
	Tasks         []Task   `json:"tasks"`
	Lists         []List   `json:"lists"`
	Groups        []Group  `json:"groups"`
	Profile       Profile  `json:"profile"`
	AppPrefs      AppPrefs `json:"app_prefs"`
}

// NewSnapshot returns an empty, normalized snapshot.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.Normalize()
	return s
}

// Normalize enforces the structural invariants: the default list exists and
// is first when it had to be reinserted, every task references an existing
// list, and slices are non-nil. It reports whether anything changed.
func (s *Snapshot) Normalize() bool {
	changed := false
	if s.SchemaVersion != SchemaVersion {
		s.SchemaVersion = SchemaVersion
		changed = true
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.Lists == nil {
		s.Lists = []List{}
	}
	if s.Groups == nil {
		s.Groups = []Group{}
	}

	if !s.HasList(DefaultListID) {
		s.Lists = append([]List{DefaultList()}, s.Lists...)
		changed = true
	}

	for i := range s.Tasks {
		if !s.HasList(s.Tasks[i].ListID) {
			s.Tasks[i].ListID = DefaultListID
			changed = true
		}
	}
	return changed
}

// HasList reports whether a list with id exists.
func (s *Snapshot) HasList(id string) bool {
	for _, l := range s.Lists {
		if l.ID == id {
			return true
		}
	}
	return false
}

// TaskIndex returns the position of the task with id, or -1.
func (s *Snapshot) TaskIndex(id string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		out.Tasks[i] = t.Clone()
	}
	out.Lists = append([]List{}, s.Lists...)
	out.Groups = append([]Group{}, s.Groups...)
	return &out
}
