package engine

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vjovkovs/epubnorm/internal/model"
	"github.com/vjovkovs/epubnorm/internal/output"
)

// TextID is the generated identity of one output text file: its base
// file/section name plus placement metadata. A non-zero Implicit
// replaces the run's implicit image type; UndoChapter revokes the
// speculative chapter increment made during the reset step (copyright
// and afterword pages are interstitial, not numbered chapters).
type TextID struct {
	Base        string
	Subtype     output.Subtype
	Implicit    model.ImageType
	UndoChapter bool
}

// ImageID is the generated identity of one emitted image page.
type ImageID struct {
	// Base is the destination base name, shared by the copied image and
	// its wrapper page ("insert007").
	Base string
	// Class is the class set on the page's wrapping div.
	Class string
	Type  model.ImageType
}

// Hooks is the per-publisher behavior of the segmentation engine. Zero
// fields take the documented defaults; the struct is resolved once at
// engine construction, never inline.
type Hooks struct {
	// HeaderSearchCount bounds how many leading body children are
	// inspected for an in-body title (default 5).
	HeaderSearchCount int
	// SkipElements is the number of leading body children skipped
	// outright (default 0).
	SkipElements int

	// Styles resolves computed style for transcription. Default: a
	// TableResolver with only tag defaults.
	Styles StyleResolver

	// IsTitle reports whether s is the entry's heading. A non-empty
	// second return overrides the entry title (in-body heading text
	// wins over the declared title). Default: exact or substring match
	// against the known title, else any <h1>.
	IsTitle func(s *goquery.Selection, info *model.EntryInfo) (bool, string)

	// DetermineReset decides whether this entry starts a fresh
	// chapter/sequence group. Default: always true. Publishers override
	// it to keep multi-file galleries as one logical entry.
	DetermineReset func(info *model.EntryInfo) bool

	// TextIDData names the next text output file. increasedChapter
	// reports whether the reset step speculatively bumped the chapter
	// tracker for this document.
	TextIDData func(tr *output.Trackers, info *model.EntryInfo, increasedChapter bool) TextID

	// ImageIDData names the next image page given the current implicit
	// image type. The default advances the matching category tracker.
	ImageIDData func(tr *output.Trackers, info *model.EntryInfo, implicit model.ImageType) ImageID

	// ChapterHeader synthesizes the <h1> for a chapter's first
	// sub-chapter, nil for none. Default: FirstLine plus an optional
	// chapter-subtitle span, nothing for image-only entries.
	ChapterHeader func(info *model.EntryInfo) *html.Node

	// CheckElement, when non-nil, excludes matching body children from
	// the walk (publisher page-break markers and the like).
	CheckElement func(s *goquery.Selection) bool

	// CanMerge may veto the continuation-paragraph merge pass.
	CanMerge func(prev, next *html.Node) bool
}

// withDefaults resolves unset hooks to their defaults.
func (h Hooks) withDefaults() Hooks {
	if h.HeaderSearchCount == 0 {
		h.HeaderSearchCount = 5
	}
	if h.Styles == nil {
		h.Styles = &TableResolver{}
	}
	if h.IsTitle == nil {
		h.IsTitle = defaultIsTitle
	}
	if h.DetermineReset == nil {
		h.DetermineReset = func(*model.EntryInfo) bool { return true }
	}
	if h.TextIDData == nil {
		h.TextIDData = DefaultTextIDData
	}
	if h.ImageIDData == nil {
		h.ImageIDData = DefaultImageIDData
	}
	if h.ChapterHeader == nil {
		h.ChapterHeader = DefaultChapterHeader
	}
	return h
}

func defaultIsTitle(s *goquery.Selection, info *model.EntryInfo) (bool, string) {
	text := strings.TrimSpace(s.Text())
	title := strings.TrimSpace(info.Title)
	if text != "" && title != "" {
		if strings.EqualFold(text, title) || containsFold(text, title) {
			return true, ""
		}
	}
	if goquery.NodeName(s) == "h1" {
		// The in-body heading text wins over the declared title.
		return true, text
	}
	return false, ""
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// DefaultTextIDData names text files chapter%03d (with a _%d sub-chapter
// suffix) and special-cases the interstitial copyright and afterword
// pages, which keep fixed names and revoke any speculative chapter
// increment.
func DefaultTextIDData(tr *output.Trackers, info *model.EntryInfo, increasedChapter bool) TextID {
	lower := strings.ToLower(info.Title)
	switch {
	case strings.Contains(lower, "copyright"):
		return TextID{
			Base:        "copyright",
			Subtype:     output.SubtypeCredits,
			Implicit:    model.ImageFrontmatter,
			UndoChapter: true,
		}
	case strings.Contains(lower, "afterword"):
		return TextID{
			Base:        "afterword",
			Subtype:     output.SubtypeText,
			Implicit:    model.ImageBackmatter,
			UndoChapter: true,
		}
	}

	base := fmt.Sprintf("chapter%03d", tr.Value(output.TrackerChapter))
	if sub := tr.Value(output.TrackerSubChapter); sub > 0 {
		base += fmt.Sprintf("_%d", sub)
	}
	return TextID{Base: base, Subtype: output.SubtypeText}
}

// DefaultImageIDData numbers images per category tracker; an entry
// classified as a cover overrides the implicit type.
func DefaultImageIDData(tr *output.Trackers, info *model.EntryInfo, implicit model.ImageType) ImageID {
	if info.ImgType == model.ImageCover {
		return ImageID{Base: "cover", Class: "cover", Type: model.ImageCover}
	}
	switch implicit {
	case model.ImageFrontmatter:
		n := tr.Increment(output.TrackerFrontmatter)
		return ImageID{Base: fmt.Sprintf("frontmatter%03d", n), Class: "frontmatter", Type: implicit}
	case model.ImageBackmatter:
		n := tr.Increment(output.TrackerBackmatter)
		return ImageID{Base: fmt.Sprintf("backmatter%03d", n), Class: "backmatter", Type: implicit}
	default:
		n := tr.Increment(output.TrackerInsert)
		return ImageID{Base: fmt.Sprintf("insert%03d", n), Class: "insert", Type: model.ImageInsert}
	}
}

// DefaultChapterHeader renders FirstLine with the optional subtitle on
// a second line. Image-only entries get no synthesized header.
func DefaultChapterHeader(info *model.EntryInfo) *html.Node {
	if info.Type == model.EntryImage || info.FirstLine == "" {
		return nil
	}
	h1 := &html.Node{Type: html.ElementNode, Data: "h1", DataAtom: atom.H1}
	h1.AppendChild(&html.Node{Type: html.TextNode, Data: info.FirstLine})
	if info.SecondLine != "" {
		h1.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		span := &html.Node{
			Type: html.ElementNode, Data: "span", DataAtom: atom.Span,
			Attr: []html.Attribute{{Key: "class", Val: "chapter-subtitle"}},
		}
		span.AppendChild(&html.Node{Type: html.TextNode, Data: info.SecondLine})
		h1.AppendChild(span)
	}
	return h1
}
