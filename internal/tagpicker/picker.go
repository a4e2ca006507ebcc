// Package tagpicker models the tag selector on the upload form.
//
// A Picker splits the tag catalog into two disjoint ordered lists: the tags
// the user has selected, in the order they were added, and the tags still
// available to pick. Pickers are immutable; Select and Deselect return a new
// Picker and leave the receiver untouched.
package tagpicker

import (
	"errors"
	"fmt"

	"tilepacks.dev/internal/models"
)

var (
	// ErrFull is returned when selecting past the selection limit
	ErrFull = errors.New("tag selection is full")
	// ErrUnavailable is returned when selecting a tag that is not in the remaining pool
	ErrUnavailable = errors.New("tag is not available")
	// ErrIndex is returned when deselecting an index outside the selection
	ErrIndex = errors.New("selection index out of range")
)

// Picker is the selected/remaining partition of a tag catalog
type Picker struct {
	limit     int
	selected  []models.Tag
	remaining []models.Tag
}

// New returns a picker with nothing selected and the whole catalog remaining
func New(catalog []models.Tag, limit int) Picker {
	return Picker{
		limit:     limit,
		remaining: clone(catalog),
	}
}

// Restore rebuilds a picker from the selected and remaining tag names posted
// back by a form. Names missing from the catalog are dropped. When the posted
// pool does not account for every unselected catalog tag, for example after
// the catalog changed, the remaining pool falls back to catalog order.
func Restore(catalog []models.Tag, selected, remaining []string, limit int) Picker {
	byName := make(map[string]models.Tag, len(catalog))
	for _, tag := range catalog {
		byName[tag.Name] = tag
	}

	p := Picker{limit: limit}
	taken := make(map[string]bool, len(selected))
	for _, name := range selected {
		tag, ok := byName[name]
		if !ok || taken[name] || len(p.selected) >= limit {
			continue
		}
		taken[name] = true
		p.selected = append(p.selected, tag)
	}

	pooled := make(map[string]bool, len(remaining))
	for _, name := range remaining {
		tag, ok := byName[name]
		if !ok || taken[name] || pooled[name] {
			continue
		}
		pooled[name] = true
		p.remaining = append(p.remaining, tag)
	}

	if len(p.selected)+len(p.remaining) != len(catalog) {
		p.remaining = p.remaining[:0]
		for _, tag := range catalog {
			if !taken[tag.Name] {
				p.remaining = append(p.remaining, tag)
			}
		}
	}
	return p
}

// Select moves the named tag from the remaining pool to the end of the selection
func (p Picker) Select(name string) (Picker, error) {
	if p.Full() {
		return p, ErrFull
	}
	idx := indexOf(p.remaining, name)
	if idx < 0 {
		return p, fmt.Errorf("%w: %q", ErrUnavailable, name)
	}

	next := Picker{
		limit:     p.limit,
		selected:  append(clone(p.selected), p.remaining[idx]),
		remaining: without(p.remaining, idx),
	}
	return next, nil
}

// Deselect moves the selected tag at index i to the end of the remaining pool.
// The other selected tags keep their relative order.
func (p Picker) Deselect(i int) (Picker, error) {
	if i < 0 || i >= len(p.selected) {
		return p, fmt.Errorf("%w: %d", ErrIndex, i)
	}

	next := Picker{
		limit:     p.limit,
		selected:  without(p.selected, i),
		remaining: append(clone(p.remaining), p.selected[i]),
	}
	return next, nil
}

// Selected returns the selected tags in the order they were added
func (p Picker) Selected() []models.Tag {
	return clone(p.selected)
}

// Remaining returns every unselected tag
func (p Picker) Remaining() []models.Tag {
	return clone(p.remaining)
}

// Available returns the tags the picker offers, which is nothing once the
// selection is full.
func (p Picker) Available() []models.Tag {
	if p.Full() {
		return nil
	}
	return p.Remaining()
}

// Full reports whether the selection has reached the limit
func (p Picker) Full() bool {
	return len(p.selected) >= p.limit
}

// SelectedNames returns the names of the selected tags
func (p Picker) SelectedNames() []string {
	return names(p.selected)
}

// RemainingNames returns the names of the remaining tags
func (p Picker) RemainingNames() []string {
	return names(p.remaining)
}

func indexOf(tags []models.Tag, name string) int {
	for i, tag := range tags {
		if tag.Name == name {
			return i
		}
	}
	return -1
}

func without(tags []models.Tag, i int) []models.Tag {
	out := make([]models.Tag, 0, len(tags)-1)
	out = append(out, tags[:i]...)
	return append(out, tags[i+1:]...)
}

func clone(tags []models.Tag) []models.Tag {
	return append([]models.Tag(nil), tags...)
}

func names(tags []models.Tag) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = tag.Name
	}
	return out
}
