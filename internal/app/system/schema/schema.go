// Package schema describes content collections and turns JSON request bodies
// into MongoDB documents.
//
// A Schema lists the fields a collection accepts, which of them are required
// on create, their defaults, enumerations and the list filters the collection
// exposes. ParseCreate builds a full document with defaults applied;
// ParsePatch builds a merge update that only touches the keys present in the
// payload, so an explicit false, 0 or "" is written while an absent key is
// left alone.
package schema

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson"
)

// Kind is the stored type of a field.
type Kind int

const (
	// String is plain text, trimmed of surrounding whitespace.
	String Kind = iota
	// HTML is rich text, passed through the HTML sanitizer.
	HTML
	// Int is a whole number.
	Int
	// Bool is true or false; strings like "true" are rejected.
	Bool
	// Strings is a list of strings.
	Strings
	// Time is an RFC 3339 timestamp or a YYYY-MM-DD date.
	Time
	// Object is an embedded document described by Field.Fields.
	Object
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case HTML:
		return "html"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Strings:
		return "strings"
	case Time:
		return "time"
	case Object:
		return "object"
	}
	return "unknown"
}

// SlugField is the key that holds the human-readable identifier of
// slug-addressable collections.
const SlugField = "slug"

// Field declares one key of a document.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Enum restricts a String field to a closed set of values.
	Enum []string
	// Pattern restricts a String field to matching values.
	Pattern *regexp.Regexp
	// MaxLen caps the rune length of String and HTML values (0 = no cap).
	MaxLen int
	// Min and Max bound Int values when set.
	Min, Max *int
	// Rules are extra ozzo-validation rules run on the decoded value, such
	// as is.Email or is.URL.
	Rules []validation.Rule

	// Default is applied on create when the key is absent. A func() any is
	// called for every document.
	Default any

	// Fields describes the keys of an Object field.
	Fields []Field
}

// Filter maps a list query parameter to an equality match on a field.
type Filter struct {
	Param string
	Field string
	Kind  Kind // String, Bool or Int

	// Default is used when the parameter is absent. Empty means no filter.
	Default string
}

// Schema describes one content collection.
type Schema struct {
	// Name is the singular display name used in messages ("Project").
	Name       string
	Collection string

	// SlugSource names the field a slug is derived from. Collections with a
	// SlugSource are addressable by slug and carry a unique slug index.
	SlugSource string

	Fields  []Field
	Filters []Filter
	Sort    bson.D

	// Timestamps enables createdAt/updatedAt management.
	Timestamps bool
}

// Slugged reports whether documents are addressable by slug.
func (s *Schema) Slugged() bool {
	return s.SlugSource != ""
}

// Field returns the top-level field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Bound returns a pointer to n, for Field.Min and Field.Max.
func Bound(n int) *int {
	return &n
}

// Now returns the current UTC time at the precision MongoDB stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
