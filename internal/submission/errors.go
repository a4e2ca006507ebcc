package submission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Form field names, shared by the HTML form, the JSON API and the upload payload
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldTiles         = "tiles"
	FieldImage         = "image"
	FieldTags          = "tags"
	FieldHumanVerified = "humanVerified"
)

// User-facing messages for tile payload failures
const (
	MsgInvalidJSON     = "Invalid JSON"
	MsgInvalidTileData = "Invalid tile data"
)

var (
	// ErrInvalidJSON is returned when tile text is not syntactically valid JSON
	ErrInvalidJSON = errors.New("invalid json")
	// ErrInvalidTileData is returned when parsed tiles do not match the tile schema
	ErrInvalidTileData = errors.New("invalid tile data")
)

// ValidationError collects every failing field of a submission.
// Each field maps to one or more user-facing messages.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Has reports whether the field has at least one error
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// First returns the first message for a field, or ""
func (e *ValidationError) First(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// FieldNames returns the failing field names in sorted order
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.FieldNames(), ", ")
}

// TagResolutionError reports a selected tag name that is missing from the catalog
type TagResolutionError struct {
	Name string
}

func (e *TagResolutionError) Error() string {
	return fmt.Sprintf("tag %q not found in catalog", e.Name)
}
