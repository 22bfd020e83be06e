package output

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/vjovkovs/epubnorm/internal/template"
)

// GenerateTOCXHTML renders the EPUB3 nav document with one entry per
// main file in spine order, writes it to the staging tree and registers
// it. Call after all content files have been added.
func (c *Context) GenerateTOCXHTML() error {
	c.SortFilesForSpine()

	var entries strings.Builder
	for _, f := range c.files {
		if !f.IsMain() || f.Xhtml.Subtype == SubtypeToc {
			continue
		}
		fmt.Fprintf(&entries, "      <li><a href=\"%s\">%s</a></li>\n",
			html.EscapeString(f.Href), html.EscapeString(f.Xhtml.Title))
	}

	text := template.Apply(template.TocXHTML, map[string]string{
		"lang":    c.Language,
		"entries": entries.String(),
	})
	dest, err := c.StagePath("toc.xhtml")
	if err != nil {
		return err
	}
	if err := writeText(dest, text); err != nil {
		return err
	}
	c.AddFile(&File{
		ID:        "toc",
		Href:      "toc.xhtml",
		Path:      dest,
		MediaType: "application/xhtml+xml",
		Xhtml: &XhtmlInfo{
			Title:   "Table of Contents",
			Subtype: SubtypeToc,
		},
	})
	return nil
}

// GenerateTOCNCX renders the NCX fallback with one navPoint per main
// file in spine order.
func (c *Context) GenerateTOCNCX() error {
	c.SortFilesForSpine()

	var navpoints strings.Builder
	playOrder := 0
	for _, f := range c.files {
		if !f.IsMain() {
			continue
		}
		playOrder++
		fmt.Fprintf(&navpoints, `    <navPoint id="navPoint-%d" playOrder="%d">
      <navLabel>
        <text>%s</text>
      </navLabel>
      <content src="%s"/>
    </navPoint>
`, playOrder, playOrder, html.EscapeString(f.Xhtml.Title), html.EscapeString(f.Href))
	}

	text := template.Apply(template.TocNCX, map[string]string{
		"uid":       html.EscapeString(c.UID),
		"title":     html.EscapeString(c.Title),
		"navpoints": navpoints.String(),
	})
	dest, err := c.StagePath("toc.ncx")
	if err != nil {
		return err
	}
	if err := writeText(dest, text); err != nil {
		return err
	}
	c.AddFile(&File{
		ID:        "ncx",
		Href:      "toc.ncx",
		Path:      dest,
		MediaType: "application/x-dtbncx+xml",
	})
	return nil
}
