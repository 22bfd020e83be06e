package engine

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/vjovkovs/epubnorm/internal/model"
)

func chapterInfo(first, second string) *model.EntryInfo {
	return &model.EntryInfo{Type: model.EntryText, FirstLine: first, SecondLine: second}
}

func parseBlock(t *testing.T, fragment string) *html.Node {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<html><body>" + fragment + "</body></html>"))
	require.NoError(t, err)
	sel := doc.Find("body").Children().First()
	require.Equal(t, 1, sel.Length())
	return sel.Nodes[0]
}

func renderDoc(t *testing.T, d *Doc) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, d.Render(&b))
	return b.String()
}

func testDoc(t *testing.T) *Doc {
	t.Helper()
	d, err := newDoc("chapter001", "Chapter 1", "en")
	require.NoError(t, err)
	return d
}

func TestTranscribeDoubleWrapAvoidance(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t,
		`<p><strong>already <span style="font-weight: bold">bold</span></strong></p>`))

	out := renderDoc(t, d)
	assert.Equal(t, 1, strings.Count(out, "<strong>"),
		"an ancestor already supplying the semantic must not be re-wrapped")
	assert.Contains(t, out, "already bold")
}

func TestTranscribeSemanticWrappers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{"bold tag", `<p><b>x</b></p>`, "<strong>x</strong>"},
		{"italic inline style", `<p><span style="font-style: italic">x</span></p>`, "<em>x</em>"},
		{"superscript", `<p><sup>x</sup></p>`, "<sup>x</sup>"},
		{"underline", `<p><u>x</u></p>`, "<u>x</u>"},
		{"strikethrough", `<p><span style="text-decoration: line-through">x</span></p>`, "<s>x</s>"},
		{"bold italic", `<p><b><i>x</i></b></p>`, "<strong><em>x</em></strong>"},
		{"line break", `<p>a<br/>b</p>`, "a<br/>b"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := testDoc(t)
			tr := NewTranscriber(zerolog.Nop(), nil, nil)
			tr.AppendBlock(d, parseBlock(t, tt.fragment))
			assert.Contains(t, renderDoc(t, d), tt.want)
		})
	}
}

func TestTranscribeUnstyledSpanElided(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p>one <span>two</span> three</p>`))

	out := renderDoc(t, d)
	assert.NotContains(t, out, "<span")
	assert.Contains(t, out, "one two three")
}

func TestTranscribeAlignmentClasses(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p style="text-align: center">* * *</p>`))
	tr.AppendBlock(d, parseBlock(t, `<p style="text-align: right">The Author</p>`))

	out := renderDoc(t, d)
	assert.Contains(t, out, `<p class="section-marking">* * *</p>`)
	assert.Contains(t, out, `<p class="signature">The Author</p>`)
}

func TestTranscribeChildAlignmentMarksParent(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p><span style="text-align: center">fin</span></p>`))

	assert.Contains(t, renderDoc(t, d), `<p class="section-marking">fin</p>`)
}

func TestTranscribeClassTable(t *testing.T) {
	t.Parallel()

	styles := &TableResolver{
		Classes: map[string]Style{"charheading": {"font-weight": "bold"}},
	}
	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), styles, nil)
	tr.AppendBlock(d, parseBlock(t, `<p><span class="charheading">Anna:</span> hi</p>`))

	assert.Contains(t, renderDoc(t, d), "<strong>Anna:</strong>")
}

func TestMergeContinuationParagraphs(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p>He said </p>`))
	tr.AppendBlock(d, parseBlock(t, `<p>hello.</p>`))

	out := renderDoc(t, d)
	assert.Contains(t, out, "<p>He said hello.</p>")
	assert.Equal(t, 1, strings.Count(out, "<p>"))
}

func TestMergeSkippedAfterCompleteSentence(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p>He said hello.</p>`))
	tr.AppendBlock(d, parseBlock(t, `<p>Then he left.</p>`))

	assert.Equal(t, 2, strings.Count(renderDoc(t, d), "<p>"))
}

func TestMergeVeto(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	veto := func(prev, next *html.Node) bool { return false }
	tr := NewTranscriber(zerolog.Nop(), nil, veto)
	tr.AppendBlock(d, parseBlock(t, `<p>He said </p>`))
	tr.AppendBlock(d, parseBlock(t, `<p>hello.</p>`))

	assert.Equal(t, 2, strings.Count(renderDoc(t, d), "<p>"))
}

func TestDocHasContent(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	assert.False(t, d.HasContent())

	d.SetHeader(DefaultChapterHeader(chapterInfo("Chapter 1:", "Start")))
	assert.False(t, d.HasContent(), "a synthesized header alone is not content")

	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p>Text.</p>`))
	assert.True(t, d.HasContent())
}

func TestRenderXHTMLShape(t *testing.T) {
	t.Parallel()

	d := testDoc(t)
	tr := NewTranscriber(zerolog.Nop(), nil, nil)
	tr.AppendBlock(d, parseBlock(t, `<p>a &amp; b<br/>c</p>`))

	out := renderDoc(t, d)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<br/>")
	assert.Contains(t, out, "a &amp; b")
	assert.Contains(t, out, `<section epub:type="bodymatter chapter" id="chapter001">`)
}
