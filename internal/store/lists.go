package store

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"myday/internal/model"
)

const maxListTitleLen = 60

func validateListTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxListTitleLen {
		return "", fmt.Errorf("list title (max %d): %w", maxListTitleLen, ErrTooLong)
	}
	return title, nil
}

func (s *Store) listIndexLocked(id string) int {
	for i := range s.snap.Lists {
		if s.snap.Lists[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) groupIndexLocked(id string) int {
	for i := range s.snap.Groups {
		if s.snap.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateList adds a user list at the end.
func (s *Store) CreateList(title, icon string) (model.List, error) {
	title, err := validateListTitle(title)
	if err != nil {
		return model.List{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.List{}, err
	}
	var hi float64
	for _, l := range s.snap.Lists {
		hi = max(hi, l.ManualOrder)
	}
	l := model.List{
		ID:          model.NewID(),
		Title:       title,
		Icon:        strings.TrimSpace(icon),
		ManualOrder: hi + 1,
		UpdatedAt:   s.Now(),
	}
	s.snap.Lists = append(s.snap.Lists, l)
	s.changedLocked("add", "list", l.Title)
	return l, nil
}

// RenameList changes a list title.
func (s *Store) RenameList(id, title string) (model.List, error) {
	title, err := validateListTitle(title)
	if err != nil {
		return model.List{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.List{}, err
	}
	i := s.listIndexLocked(id)
	if i < 0 {
		return model.List{}, fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	s.snap.Lists[i].Title = title
	s.snap.Lists[i].UpdatedAt = s.Now()
	s.changedLocked("rename", "list", title)
	return s.snap.Lists[i], nil
}

// DeleteList removes a user list. Its tasks move to the end of the default
// list. The default list cannot be deleted.
func (s *Store) DeleteList(id string) error {
	if id == model.DefaultListID {
		return ErrDefaultList
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	i := s.listIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("list %s: %w", id, ErrNotFound)
	}
	removed := s.snap.Lists[i]
	s.snap.Lists = append(s.snap.Lists[:i:i], s.snap.Lists[i+1:]...)

	now := s.Now()
	next := model.NextManualOrder(s.snap.Tasks, model.DefaultListID)
	model.CompactManualOrder(s.snap.Tasks, id)
	for j := range s.snap.Tasks {
		t := &s.snap.Tasks[j]
		if t.ListID != id {
			continue
		}
		t.ListID = model.DefaultListID
		t.ManualOrder += next - 1
		t.Touch(now)
	}
	s.changedLocked("delete", "list", removed.Title)
	return nil
}

// SetListGroup files a list under a group, or ungroups it when groupID is
// empty.
func (s *Store) SetListGroup(listID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	i := s.listIndexLocked(listID)
	if i < 0 {
		return fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	if groupID != "" && s.groupIndexLocked(groupID) < 0 {
		return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if s.snap.Lists[i].GroupID == groupID {
		return nil
	}
	s.snap.Lists[i].GroupID = groupID
	s.snap.Lists[i].UpdatedAt = s.Now()
	s.changedLocked("group", "list", s.snap.Lists[i].Title)
	return nil
}

// CreateGroup adds a list group at the end.
func (s *Store) CreateGroup(title string) (model.Group, error) {
	title, err := validateListTitle(title)
	if err != nil {
		return model.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Group{}, err
	}
	var hi float64
	for _, g := range s.snap.Groups {
		hi = max(hi, g.ManualOrder)
	}
	g := model.Group{ID: model.NewID(), Title: title, ManualOrder: hi + 1, UpdatedAt: s.Now()}
	s.snap.Groups = append(s.snap.Groups, g)
	s.changedLocked("add", "group", g.Title)
	return g, nil
}

// SetGroupCollapsed folds or unfolds a group in the sidebar.
func (s *Store) SetGroupCollapsed(id string, collapsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	i := s.groupIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if s.snap.Groups[i].IsCollapsed == collapsed {
		return nil
	}
	s.snap.Groups[i].IsCollapsed = collapsed
	s.snap.Groups[i].UpdatedAt = s.Now()
	s.changedLocked("collapse", "group", s.snap.Groups[i].Title)
	return nil
}

// DeleteGroup removes a group; its lists become ungrouped.
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	i := s.groupIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	removed := s.snap.Groups[i]
	s.snap.Groups = append(s.snap.Groups[:i:i], s.snap.Groups[i+1:]...)
	now := s.Now()
	for j := range s.snap.Lists {
		if s.snap.Lists[j].GroupID == id {
			s.snap.Lists[j].GroupID = ""
			s.snap.Lists[j].UpdatedAt = now
		}
	}
	s.changedLocked("delete", "group", removed.Title)
	return nil
}

// UpdateProfile sets the display name.
func (s *Store) UpdateProfile(displayName string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.Profile{}, err
	}
	s.snap.Profile.DisplayName = strings.TrimSpace(displayName)
	s.snap.Profile.UpdatedAt = s.Now()
	s.changedLocked("update", "profile", s.snap.Profile.DisplayName)
	return s.snap.Profile, nil
}

// UpdatePrefs applies fn to the preferences and stamps them.
func (s *Store) UpdatePrefs(fn func(p *model.AppPrefs)) (model.AppPrefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return model.AppPrefs{}, err
	}
	fn(&s.snap.AppPrefs)
	s.snap.AppPrefs.UpdatedAt = s.Now()
	s.changedLocked("update", "prefs", "preferences")
	return s.snap.AppPrefs, nil
}
