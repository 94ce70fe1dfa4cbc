// Package htmlsanitize cleans rich text submitted by the admin editor
// (blog content, program and project descriptions, team bios) before it is
// stored. The public site renders these fields as HTML.
package htmlsanitize

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once

	loadingAttr = regexp.MustCompile(`^(lazy|eager)$`)
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()

		policy.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
		policy.AllowAttrs("colspan", "rowspan").OnElements("th", "td")

		policy.AllowElements("u", "s", "sub", "sup", "mark", "figure", "figcaption")
		policy.AllowAttrs("loading").Matching(loadingAttr).OnElements("img")

		// Links to other sites open in a new tab with rel="noopener".
		policy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return policy
}

// Sanitize removes scripts, event handlers, unsafe URLs and unknown elements
// while keeping the formatting the editor produces. Plain text passes
// through with HTML special characters escaped. Sanitize is idempotent.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return getPolicy().Sanitize(html)
}
