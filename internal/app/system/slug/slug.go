// Package slug derives and checks URL-safe identifiers for content documents.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Pattern matches a canonical slug: lowercase alphanumerics separated by
	// single hyphens, no leading or trailing hyphen.
	Pattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Derive builds a slug from a title. The result may be empty when the title
// has no ASCII letters or digits.
//
//	Derive("100 Trees Planted at Chimwasongwe!") == "100-trees-planted-at-chimwasongwe"
func Derive(title string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return Pattern.MatchString(s)
}
