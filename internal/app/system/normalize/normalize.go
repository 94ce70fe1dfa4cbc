// Package normalize canonicalizes the strings the service compares or
// stores as keys: emails, roles, statuses and config lists.
package normalize

import "strings"

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Email returns the canonical form used for storage, policy checks and
// rate-limit keys.
func Email(s string) string { return key(s) }

// Role returns the canonical form of a user role.
func Role(s string) string { return key(s) }

// Status returns the canonical form of a user status.
func Status(s string) string { return key(s) }

// Name trims s and collapses runs of whitespace to one space.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims a query string value.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// List splits a comma-separated config value into canonical items,
// dropping blanks and repeats.
func List(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = key(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
