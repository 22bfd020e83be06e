package engine

import (
	"strings"

	"golang.org/x/net/html"
)

// Style is the computed-style view of a source element: the style
// properties the transcriber acts on, already merged from tag defaults,
// publisher class rules and inline style.
type Style map[string]string

// StyleResolver supplies computed styles for source elements. The
// default implementation is table-driven; a publisher module provides
// the class rules of its known stylesheet.
type StyleResolver interface {
	// Resolve returns the computed style of n.
	Resolve(n *html.Node) Style
	// Handled reports whether a CSS class is known (either mapped to
	// style rules or intentionally ignored). Unknown classes surface
	// as diagnostics so new publisher quirks get discovered.
	Handled(class string) bool
}

// tagDefaults are the intrinsic styles of semantic source tags.
var tagDefaults = map[string]Style{
	"b":      {"font-weight": "bold"},
	"strong": {"font-weight": "bold"},
	"i":      {"font-style": "italic"},
	"em":     {"font-style": "italic"},
	"sup":    {"vertical-align": "super"},
	"sub":    {"vertical-align": "sub"},
	"u":      {"text-decoration": "underline"},
	"s":      {"text-decoration": "line-through"},
	"strike": {"text-decoration": "line-through"},
	"del":    {"text-decoration": "line-through"},
	"center": {"text-align": "center"},
}

// TableResolver resolves computed style from a publisher's class-rule
// table plus inline style attributes.
type TableResolver struct {
	// Classes maps a stylesheet class to its style rules.
	Classes map[string]Style
	// Ignored lists classes that carry no semantics we transcribe
	// (purely layout/publisher bookkeeping); they are safe to drop.
	Ignored map[string]bool
}

func (r *TableResolver) Resolve(n *html.Node) Style {
	style := Style{}
	if def, ok := tagDefaults[n.Data]; ok {
		for k, v := range def {
			style[k] = v
		}
	}
	for _, class := range splitClasses(getAttr(n, "class")) {
		if rules, ok := r.Classes[class]; ok {
			for k, v := range rules {
				style[k] = v
			}
		}
	}
	for k, v := range parseInlineStyle(getAttr(n, "style")) {
		style[k] = v
	}
	return style
}

func (r *TableResolver) Handled(class string) bool {
	if _, ok := r.Classes[class]; ok {
		return true
	}
	return r.Ignored[class]
}

func parseInlineStyle(style string) Style {
	if style == "" {
		return nil
	}
	out := Style{}
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(strings.ToLower(k))
		v = strings.TrimSpace(strings.ToLower(v))
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

func splitClasses(attr string) []string {
	return strings.Fields(attr)
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
