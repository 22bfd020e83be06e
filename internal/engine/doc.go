package engine

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/vjovkovs/epubnorm/internal/template"
)

// Doc is one in-progress output XHTML document: the parsed chapter
// template plus a handle on its main content container.
type Doc struct {
	// ID is the section/file base name ("chapter003", "copyright").
	ID    string
	Title string

	root      *html.Node
	container *html.Node
	// header is the synthesized <h1>, nil when none was added. A doc
	// whose container holds nothing beyond the header is considered
	// empty and is never flushed.
	header *html.Node
}

// newDoc instantiates the chapter template for the given id and title.
func newDoc(id, title, lang string) (*Doc, error) {
	text := template.Apply(template.Chapter, map[string]string{
		"id":    id,
		"title": escapeText(title),
		"lang":  escapeAttr(lang),
	})
	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, errors.Wrap(err, "parse chapter template")
	}
	container := findElement(root, "section")
	if container == nil {
		return nil, errors.New("chapter template has no section container")
	}
	return &Doc{ID: id, Title: title, root: root, container: container}, nil
}

// SetHeader appends the synthesized chapter heading.
func (d *Doc) SetHeader(h *html.Node) {
	d.appendWithNewline(h)
	d.header = h
}

// Append adds a transcribed block to the main container.
func (d *Doc) Append(n *html.Node) {
	d.appendWithNewline(n)
}

func (d *Doc) appendWithNewline(n *html.Node) {
	d.container.AppendChild(n)
	d.container.AppendChild(&html.Node{Type: html.TextNode, Data: "\n"})
}

// Container returns the main content element.
func (d *Doc) Container() *html.Node {
	return d.container
}

// HasContent reports whether the container holds anything beyond the
// synthesized header and whitespace.
func (d *Doc) HasContent() bool {
	for c := d.container.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if c != d.header {
				return true
			}
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return true
			}
		}
	}
	return false
}

// LastBlock returns the container's last element child, nil when the
// container holds only the header or nothing.
func (d *Doc) LastBlock() *html.Node {
	for c := d.container.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			if c == d.header {
				return nil
			}
			return c
		}
	}
	return nil
}

// Render serializes the document as XHTML.
func (d *Doc) Render(w io.Writer) error {
	return renderXHTML(w, d.root)
}

// findElement depth-first searches for the first element with the tag.
func findElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if m := findElement(c, tag); m != nil {
			return m
		}
	}
	return nil
}
