package engine

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// handledProps are the inline style properties transcription acts on.
var handledProps = map[string]bool{
	"font-weight":     true,
	"font-style":      true,
	"vertical-align":  true,
	"text-decoration": true,
	"text-align":      true,
}

// ignoredProps carry no semantics worth keeping; dropping them is not
// worth a diagnostic.
var ignoredProps = map[string]bool{
	"margin": true, "margin-top": true, "margin-bottom": true,
	"margin-left": true, "margin-right": true,
	"padding": true, "padding-top": true, "padding-bottom": true,
	"padding-left": true, "padding-right": true,
	"text-indent": true, "line-height": true,
	"font-size": true, "font-family": true,
	"width": true, "height": true,
}

// mergeRe matches a block whose text ends in a word character plus a
// trailing space, the signature of a sentence split across source
// paragraphs.
var mergeRe = regexp.MustCompile(`\w $`)

// elemTracker is the output insertion state of one block transcription:
// top is the block element, current the node children are appended to.
type elemTracker struct {
	top     *html.Node
	current *html.Node
}

// Transcriber transforms source paragraph subtrees into normalized
// output blocks, driven by computed style.
type Transcriber struct {
	log      zerolog.Logger
	styles   StyleResolver
	canMerge func(prev, next *html.Node) bool
}

func NewTranscriber(log zerolog.Logger, styles StyleResolver, canMerge func(prev, next *html.Node) bool) *Transcriber {
	if styles == nil {
		styles = &TableResolver{}
	}
	return &Transcriber{log: log, styles: styles, canMerge: canMerge}
}

// AppendBlock transcribes one source block element and appends the
// result to the document's main container, merging continuation
// paragraphs into the previous block where the split looks accidental.
func (t *Transcriber) AppendBlock(d *Doc, src *html.Node) {
	tag := "p"
	if src.Data == "blockquote" {
		tag = "blockquote"
	}
	block := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}

	tr := &elemTracker{top: block, current: block}
	t.applyBlockStyle(src, block)
	t.transcribeChildren(src, tr)

	prev := d.LastBlock()
	if t.shouldMerge(prev, block) {
		spliceChildren(prev, block)
		return
	}
	d.Append(block)
}

// shouldMerge reports whether block continues prev mid-sentence.
func (t *Transcriber) shouldMerge(prev, block *html.Node) bool {
	if prev == nil || strings.TrimSpace(nodeText(block)) == "" {
		return false
	}
	if !mergeRe.MatchString(nodeText(prev)) {
		return false
	}
	if t.canMerge != nil && !t.canMerge(prev, block) {
		return false
	}
	return true
}

// applyBlockStyle maps the source block's own alignment onto the output
// block's class and reports unknown classes.
func (t *Transcriber) applyBlockStyle(src, block *html.Node) {
	t.reportUnknown(src)
	style := t.styles.Resolve(src)
	switch style["text-align"] {
	case "center":
		addClass(block, "section-marking")
	case "right":
		addClass(block, "signature")
	}
}

// transcribeChildren walks src's children, emitting text nodes as-is
// and wrapping element subtrees in the semantic tags their computed
// style implies. An element producing no wrapper is elided and its
// children spliced into the current insertion point.
func (t *Transcriber) transcribeChildren(src *html.Node, tr *elemTracker) {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			tr.current.AppendChild(&html.Node{Type: html.TextNode, Data: c.Data})
		case html.ElementNode:
			t.transcribeElement(c, tr)
		}
	}
}

func (t *Transcriber) transcribeElement(src *html.Node, tr *elemTracker) {
	switch src.Data {
	case "br":
		tr.current.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		return
	case "img":
		// Images are split out by the segmentation walk before blocks
		// reach the transcriber.
		t.log.Warn().Msg("inline image inside transcribed block, skipping")
		return
	}

	t.reportUnknown(src)
	style := t.styles.Resolve(src)

	switch style["text-align"] {
	case "center":
		addClass(tr.top, "section-marking")
	case "right":
		addClass(tr.top, "signature")
	}

	saved := tr.current
	for _, tag := range wrapperTags(style) {
		if ancestorHasTag(tr.current, tag, tr.top) {
			continue
		}
		w := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
		tr.current.AppendChild(w)
		tr.current = w
	}
	t.transcribeChildren(src, tr)
	tr.current = saved
}

// wrapperTags maps a computed style to the semantic wrappers it
// implies, outermost first.
func wrapperTags(style Style) []string {
	var tags []string
	if w := style["font-weight"]; w == "bold" || w == "bolder" || w == "600" || w == "700" || w == "800" || w == "900" {
		tags = append(tags, "strong")
	}
	if s := style["font-style"]; s == "italic" || s == "oblique" {
		tags = append(tags, "em")
	}
	switch style["vertical-align"] {
	case "super":
		tags = append(tags, "sup")
	case "sub":
		tags = append(tags, "sub")
	}
	if d := style["text-decoration"]; d != "" {
		if strings.Contains(d, "underline") {
			tags = append(tags, "u")
		}
		if strings.Contains(d, "line-through") {
			tags = append(tags, "s")
		}
	}
	return tags
}

// reportUnknown logs classes and inline style properties outside the
// known-handled sets. Never silently dropped without trace; this is how
// new publisher quirks get discovered.
func (t *Transcriber) reportUnknown(n *html.Node) {
	for _, class := range splitClasses(getAttr(n, "class")) {
		if !t.styles.Handled(class) {
			t.log.Warn().Str("tag", n.Data).Str("class", class).Msg("unknown class")
		}
	}
	for prop := range parseInlineStyle(getAttr(n, "style")) {
		if !handledProps[prop] && !ignoredProps[prop] {
			t.log.Warn().Str("tag", n.Data).Str("property", prop).Msg("unhandled style property")
		}
	}
}

// ancestorHasTag walks the output parent chain from n up to and
// including stop, reporting whether any ancestor already supplies tag.
func ancestorHasTag(n *html.Node, tag string, stop *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && cur.Data == tag {
			return true
		}
		if cur == stop {
			break
		}
	}
	return false
}

// spliceChildren moves all of src's children to the end of dest.
func spliceChildren(dest, src *html.Node) {
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		dest.AppendChild(c)
		c = next
	}
}

func addClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			if !hasClass(a.Val, class) {
				n.Attr[i].Val = a.Val + " " + class
			}
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

func hasClass(attr, class string) bool {
	for _, c := range splitClasses(attr) {
		if c == class {
			return true
		}
	}
	return false
}

// nodeText concatenates the text content of a subtree.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
