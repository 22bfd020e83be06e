package engine

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// voidElements are serialized self-closing; everything else gets an
// explicit end tag so the output stays well-formed XML.
var voidElements = map[string]bool{
	"br": true, "img": true, "hr": true, "link": true, "meta": true,
	"input": true, "col": true, "area": true, "base": true, "wbr": true,
}

// renderXHTML serializes a parsed tree as polyglot XHTML. The x/net
// html renderer emits HTML5 (unclosed void elements, HTML-only named
// escapes), which EPUB readers reject, so the small subset we emit is
// serialized here instead.
func renderXHTML(w io.Writer, n *html.Node) error {
	bw, ok := w.(interface{ WriteString(string) (int, error) })
	if !ok {
		bw = stringWriter{w}
	}
	return renderNode(bw, n)
}

type stringWriter struct{ io.Writer }

func (s stringWriter) WriteString(t string) (int, error) { return s.Write([]byte(t)) }

func renderNode(w interface{ WriteString(string) (int, error) }, n *html.Node) error {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := renderNode(w, c); err != nil {
				return err
			}
		}
		return nil
	case html.DoctypeNode:
		_, err := w.WriteString("<!DOCTYPE html>\n")
		return errors.WithStack(err)
	case html.CommentNode:
		// The HTML parser stores the template's XML declaration as a
		// "bogus comment" starting with '?'; restore it verbatim.
		if strings.HasPrefix(n.Data, "?") {
			_, err := w.WriteString("<" + n.Data + ">\n")
			return errors.WithStack(err)
		}
		_, err := w.WriteString("<!--" + n.Data + "-->")
		return errors.WithStack(err)
	case html.TextNode:
		_, err := w.WriteString(escapeText(n.Data))
		return errors.WithStack(err)
	case html.ElementNode:
		// handled below
	default:
		return nil
	}

	if _, err := w.WriteString("<" + n.Data); err != nil {
		return errors.WithStack(err)
	}
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + key
		}
		if _, err := w.WriteString(" " + key + `="` + escapeAttr(a.Val) + `"`); err != nil {
			return errors.WithStack(err)
		}
	}
	if voidElements[n.Data] {
		_, err := w.WriteString("/>")
		return errors.WithStack(err)
	}
	if _, err := w.WriteString(">"); err != nil {
		return errors.WithStack(err)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := renderNode(w, c); err != nil {
			return err
		}
	}
	_, err := w.WriteString("</" + n.Data + ">")
	return errors.WithStack(err)
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeText(s string) string { return textEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
