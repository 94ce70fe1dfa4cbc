package spa

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ThemeStyleID is the id of the <style> element carrying the theme colors.
const ThemeStyleID = "site-theme"

// Head is the settings-derived metadata written into index.html.
type Head struct {
	Title          string
	Description    string
	Keywords       []string
	PrimaryColor   string
	SecondaryColor string
}

// HeadFrom builds the head metadata for the current settings.
func HeadFrom(s *models.SiteSettings) Head {
	if s == nil {
		return Head{}
	}
	return Head{
		Title:          s.Title(),
		Description:    s.SEO.MetaDescription,
		Keywords:       s.SEO.Keywords,
		PrimaryColor:   s.Theme.PrimaryColor,
		SecondaryColor: s.Theme.SecondaryColor,
	}
}

// themeCSS returns the :root rule for the theme colors, or "" when neither
// color is a valid hex color.
func (h Head) themeCSS() string {
	var decls []string
	if resources.ColorPattern.MatchString(h.PrimaryColor) {
		decls = append(decls, "--primary-color: "+h.PrimaryColor+";")
	}
	if resources.ColorPattern.MatchString(h.SecondaryColor) {
		decls = append(decls, "--secondary-color: "+h.SecondaryColor+";")
	}
	if len(decls) == 0 {
		return ""
	}
	return ":root { " + strings.Join(decls, " ") + " }"
}

// Inject rewrites the <head> of an HTML document. The title is replaced,
// the description and keywords meta tags are upserted so exactly one of
// each remains, and the theme style element is replaced, or removed when no
// valid color is set. An empty title, description or keyword list leaves the
// existing tag alone.
func Inject(doc []byte, h Head) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse index.html: %w", err)
	}
	head := find(root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
	if head == nil {
		return nil, fmt.Errorf("index.html has no head element")
	}

	if h.Title != "" {
		title := upsert(head, func(n *html.Node) bool { return n.DataAtom == atom.Title }, func() *html.Node {
			return element(atom.Title)
		})
		setText(title, h.Title)
	}
	if h.Description != "" {
		upsertMeta(head, "description", h.Description)
	}
	if len(h.Keywords) > 0 {
		upsertMeta(head, "keywords", strings.Join(h.Keywords, ", "))
	}

	isTheme := func(n *html.Node) bool { return n.DataAtom == atom.Style && attr(n, "id") == ThemeStyleID }
	if css := h.themeCSS(); css != "" {
		style := upsert(head, isTheme, func() *html.Node {
			n := element(atom.Style)
			n.Attr = []html.Attribute{{Key: "id", Val: ThemeStyleID}}
			return n
		})
		setText(style, css)
	} else {
		removeAll(head, isTheme)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("render index.html: %w", err)
	}
	return buf.Bytes(), nil
}

func upsertMeta(head *html.Node, name, content string) {
	match := func(n *html.Node) bool {
		return n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "name"), name)
	}
	meta := upsert(head, match, func() *html.Node {
		n := element(atom.Meta)
		n.Attr = []html.Attribute{{Key: "name", Val: name}}
		return n
	})
	setAttr(meta, "content", content)
}

// upsert keeps the first child of head matching match, removes the rest,
// and appends a new element from create when none matched.
func upsert(head *html.Node, match func(*html.Node) bool, create func() *html.Node) *html.Node {
	var keep *html.Node
	for c := head.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && match(c) {
			if keep == nil {
				keep = c
			} else {
				head.RemoveChild(c)
			}
		}
		c = next
	}
	if keep == nil {
		keep = create()
		head.AppendChild(keep)
	}
	return keep
}

func removeAll(head *html.Node, match func(*html.Node) bool) {
	for c := head.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && match(c) {
			head.RemoveChild(c)
		}
		c = next
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func setText(n *html.Node, text string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
