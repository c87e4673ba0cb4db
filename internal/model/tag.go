package model

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// TagColor is the display colour of a tag.
type TagColor string

const (
	TagGray   TagColor = "gray"
	TagRed    TagColor = "red"
	TagOrange TagColor = "orange"
	TagYellow TagColor = "yellow"
	TagGreen  TagColor = "green"
	TagBlue   TagColor = "blue"
	TagPurple TagColor = "purple"
	TagPink   TagColor = "pink"
)

// DefaultTagColor is used for tags decoded without a colour.
const DefaultTagColor = TagGray

var tagColors = map[TagColor]bool{
	TagGray: true, TagRed: true, TagOrange: true, TagYellow: true,
	TagGreen: true, TagBlue: true, TagPurple: true, TagPink: true,
}

// Valid reports whether c is a known colour.
func (c TagColor) Valid() bool {
	return tagColors[c]
}

// Tag labels a task. Two tags mean the same thing when their normalized names
// are equal, regardless of id.
type Tag struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Color TagColor `json:"color"`
}

// NewTag returns a tag with a fresh id. Unknown colours fall back to gray.
func NewTag(name string, color TagColor) Tag {
	if !color.Valid() {
		color = DefaultTagColor
	}
	return Tag{ID: NewID(), Name: strings.TrimSpace(name), Color: color}
}

// Fold case-folds s for case-insensitive comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// NormalizeTagName trims and case-folds a tag name.
func NormalizeTagName(name string) string {
	return Fold(strings.TrimSpace(name))
}

// SortTags orders tags case-insensitively by name, in place.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		return NormalizeTagName(tags[i].Name) < NormalizeTagName(tags[j].Name)
	})
}

// TagCatalog scans every task and returns one tag per normalized name, sorted
// case-insensitively. The first occurrence of a name wins.
func TagCatalog(tasks []Task) []Tag {
	seen := make(map[string]bool)
	var out []Tag
	for _, t := range tasks {
		for _, tag := range t.Tags {
			key := NormalizeTagName(tag.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, tag)
		}
	}
	SortTags(out)
	return out
}
