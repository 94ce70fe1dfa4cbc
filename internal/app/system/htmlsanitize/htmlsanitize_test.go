package htmlsanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "plain text",
			input:    "Boreholes for 3 villages",
			contains: []string{"Boreholes for 3 villages"},
		},
		{
			name:     "editor formatting kept",
			input:    "<h2>Phase II</h2><p>Hello <strong>Mtsiliza</strong></p><ul><li>one</li></ul>",
			contains: []string{"<h2>Phase II</h2>", "<strong>Mtsiliza</strong>", "<ul><li>one</li></ul>"},
		},
		{
			name:     "script removed",
			input:    "<p>Hello</p><script>alert('xss')</script>",
			contains: []string{"<p>Hello</p>"},
			excludes: []string{"<script", "alert"},
		},
		{
			name:     "event handler removed",
			input:    `<p onclick="alert('xss')">Click</p>`,
			contains: []string{"<p>Click</p>"},
			excludes: []string{"onclick"},
		},
		{
			name:     "javascript url removed",
			input:    `<a href="javascript:alert('xss')">Link</a>`,
			contains: []string{"Link"},
			excludes: []string{"javascript:"},
		},
		{
			name:     "iframe removed",
			input:    `<iframe src="https://evil.example"></iframe><p>Content</p>`,
			contains: []string{"<p>Content</p>"},
			excludes: []string{"<iframe", "evil.example"},
		},
		{
			name:     "style element and attribute removed",
			input:    `<style>body{display:none}</style><p style="color:red">Content</p>`,
			contains: []string{"<p>Content</p>"},
			excludes: []string{"<style", "display:none", "color:red"},
		},
		{
			name:     "image kept with lazy loading",
			input:    `<img src="https://cdn.example.org/a.jpg" alt="Well" loading="lazy" onerror="x()">`,
			contains: []string{`src="https://cdn.example.org/a.jpg"`, `alt="Well"`, `loading="lazy"`},
			excludes: []string{"onerror"},
		},
		{
			name:     "unknown loading value dropped",
			input:    `<img src="/files/a.jpg" loading="whenever">`,
			excludes: []string{"loading"},
		},
		{
			name:     "table kept",
			input:    "<table><tr><td colspan=\"2\">Cell</td></tr></table>",
			contains: []string{"<table>", `<td colspan="2">Cell</td>`},
		},
		{
			name:     "figure kept",
			input:    "<figure><img src=\"/files/a.jpg\"><figcaption>Opening day</figcaption></figure>",
			contains: []string{"<figure>", "<figcaption>Opening day</figcaption>"},
		},
		{
			name:     "data attributes removed",
			input:    `<div data-id="123">Content</div>`,
			contains: []string{"Content"},
			excludes: []string{"data-id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestSanitize_Empty(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
}

func TestSanitize_ExternalLinks(t *testing.T) {
	got := Sanitize(`<a href="https://partner.example.org">Partner</a>`)
	assert.Contains(t, got, `target="_blank"`)
	assert.Contains(t, got, "noopener")

	got = Sanitize(`<a href="/projects/clean-water">Project</a>`)
	assert.NotContains(t, got, `target="_blank"`)
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello <strong>World</strong></p>",
		`<a href="https://partner.example.org">Partner</a>`,
		"Fish & chips < 5",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitize_FormattingElements(t *testing.T) {
	for _, tag := range []string{"strong", "em", "u", "s", "sub", "sup", "mark", "blockquote", "code", "pre"} {
		t.Run(tag, func(t *testing.T) {
			assert.Contains(t, Sanitize("<"+tag+">x</"+tag+">"), "<"+tag+">")
		})
	}
}
