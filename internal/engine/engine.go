// Package engine holds the content segmentation state machine: the
// per-document walk that regroups a source chapter's body children into
// normalized output XHTML documents, splitting on embedded images and
// tracking chapter/sub-chapter/sequence counters.
package engine

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vjovkovs/epubnorm/internal/model"
	"github.com/vjovkovs/epubnorm/internal/output"
	"github.com/vjovkovs/epubnorm/internal/template"
	"github.com/vjovkovs/epubnorm/internal/util"
)

// Engine runs the segmentation state machine for one conversion run.
// It carries the implicit image type and last-processed kind across
// documents and must not be shared between runs.
type Engine struct {
	log   zerolog.Logger
	hooks Hooks
	trans *Transcriber

	// implicit is the image category applied to images encountered
	// without explicit classification; set by entry detection and
	// persisted until a later entry changes it.
	implicit model.ImageType
	// last remembers whether the previous document ended by emitting
	// an image page.
	last model.ProcessedKind
}

// New builds an engine with the publisher's hooks resolved against the
// documented defaults.
func New(log zerolog.Logger, hooks Hooks) *Engine {
	hooks = hooks.withDefaults()
	return &Engine{
		log:   log,
		hooks: hooks,
		trans: NewTranscriber(log, hooks.Styles, hooks.CanMerge),
	}
}

// docRun is the mutable state of one ProcessDocument call.
type docRun struct {
	out    *output.Context
	info   *model.EntryInfo
	srcDir string
	// global is the ordering value stamped on every file this document
	// emits, so the group stays adjacent in the sorted spine.
	global int
	tid    TextID
	cur    *Doc
	err    error
}

// ProcessDocument segments one source document into zero or more output
// files registered with out. A document that does not match the
// publisher's assumed shape aborts with an error; survivable oddities
// are logged and skipped.
func (e *Engine) ProcessDocument(out *output.Context, info *model.EntryInfo, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return errors.WithStack(err)
	}
	doc, err := goquery.NewDocumentFromReader(f)
	f.Close()
	if err != nil {
		return errors.Wrapf(err, "parse %s", filepath.Base(srcPath))
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return errors.Errorf("engine: %s has no body element", filepath.Base(srcPath))
	}
	children := body.Children()
	tr := out.Trackers

	// Carryover: an insert image inside running text starts a new
	// sub-chapter page when the surrounding text resumes.
	if e.last == model.ProcessedImage {
		e.last = model.ProcessedNone
		if e.implicit == model.ImageInsert {
			tr.Increment(output.TrackerSubChapter)
		}
	}
	if info.ImgType != model.ImageNone {
		e.implicit = info.ImgType
	}

	hasTitle := e.sniffTitle(children, info)

	increasedChapter := false
	if (e.implicit != model.ImageInsert || hasTitle) && e.hooks.DetermineReset(info) {
		tr.Reset(output.TrackerSeq)
		tr.Reset(output.TrackerSubChapter)
		if hasTitle {
			e.implicit = model.ImageInsert
			tr.Increment(output.TrackerChapter)
			increasedChapter = true
		}
	}

	r := &docRun{
		out:    out,
		info:   info,
		srcDir: filepath.Dir(srcPath),
		global: tr.Increment(output.TrackerGlobal),
	}

	r.tid = e.hooks.TextIDData(tr, info, increasedChapter)
	if r.tid.Implicit != model.ImageNone {
		e.implicit = r.tid.Implicit
	}
	if r.tid.UndoChapter && increasedChapter {
		tr.Decrement(output.TrackerChapter)
	}

	r.cur, err = newDoc(r.tid.Base, info.Title, out.Language)
	if err != nil {
		return err
	}
	if tr.Value(output.TrackerSubChapter) == 0 {
		if h := e.hooks.ChapterHeader(info); h != nil {
			r.cur.SetHeader(h)
		}
	}

	children.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i < e.hooks.SkipElements {
			return true
		}
		if e.hooks.CheckElement != nil && e.hooks.CheckElement(s) {
			return true
		}
		if goquery.NodeName(s) == "img" || s.Find("img").Length() > 0 {
			r.err = e.handleImage(r, s)
			return r.err == nil
		}
		r.err = e.handleText(r, i, s)
		return r.err == nil
	})
	if r.err != nil {
		return r.err
	}

	// Final flush; a document ending on an image leaves an empty doc
	// behind, which is discarded silently.
	if r.cur.HasContent() {
		return e.flushText(r)
	}
	return nil
}

// sniffTitle inspects the leading body children for the entry's
// heading. A detected in-body heading string overrides the declared
// title.
func (e *Engine) sniffTitle(children *goquery.Selection, info *model.EntryInfo) bool {
	found := false
	children.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= e.hooks.HeaderSearchCount {
			return false
		}
		ok, detected := e.hooks.IsTitle(s, info)
		if ok {
			if detected != "" {
				info.Title = detected
			}
			found = true
			return false
		}
		return true
	})
	return found
}

// handleText transcribes one plain block child into the open document.
func (e *Engine) handleText(r *docRun, i int, s *goquery.Selection) error {
	tag := goquery.NodeName(s)
	switch tag {
	case "p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
	case "div":
		if s.Children().Length() == 0 && strings.TrimSpace(s.Text()) == "" {
			return nil
		}
		e.log.Warn().Str("tag", tag).Msg("unhandled element, skipping")
		return nil
	default:
		e.log.Warn().Str("tag", tag).Msg("unhandled element, skipping")
		return nil
	}

	if strings.TrimSpace(s.Text()) == "" && !r.cur.HasContent() {
		return nil
	}
	// The heading line itself must not be duplicated into the body;
	// only attempted near the top of a chapter's first sub-chapter.
	if i < e.hooks.HeaderSearchCount && r.out.Trackers.Value(output.TrackerSubChapter) == 0 {
		if ok, _ := e.hooks.IsTitle(s, r.info); ok {
			return nil
		}
	}
	e.trans.AppendBlock(r.cur, s.Nodes[0])
	return nil
}

// handleImage flushes any open text, copies the image and emits its
// one-image wrapper page. A still-empty open document is reused for the
// text that follows instead of being written out.
func (e *Engine) handleImage(r *docRun, s *goquery.Selection) error {
	tr := r.out.Trackers

	flushed := false
	if r.cur.HasContent() {
		if err := e.flushText(r); err != nil {
			return err
		}
		tr.Increment(output.TrackerSubChapter)
		flushed = true
	}

	imgSel := s
	if goquery.NodeName(s) != "img" {
		imgSel = s.Find("img").First()
	}
	src, ok := imgSel.Attr("src")
	if !ok || src == "" {
		return errors.New("engine: img element without src")
	}
	if decoded, err := url.QueryUnescape(src); err == nil {
		src = decoded
	}
	srcPath := filepath.Join(r.srcDir, filepath.FromSlash(path.Clean(src)))

	iid := e.hooks.ImageIDData(tr, r.info, e.implicit)
	img, _, err := r.out.CopyImage(srcPath, iid.Base)
	if err != nil {
		return err
	}

	if err := e.emitImagePage(r, iid, img); err != nil {
		return err
	}
	e.last = model.ProcessedImage

	if flushed {
		r.tid = e.hooks.TextIDData(tr, r.info, false)
		r.cur, err = newDoc(r.tid.Base, r.info.Title, r.out.Language)
		if err != nil {
			return err
		}
	}
	return nil
}

// emitImagePage instantiates the image template and registers the page.
func (e *Engine) emitImagePage(r *docRun, iid ImageID, img *output.File) error {
	tr := r.out.Trackers
	text := template.Apply(template.ImagePage, map[string]string{
		"id":       iid.Base,
		"title":    escapeText(r.info.Title),
		"lang":     escapeAttr(r.out.Language),
		"epubtype": epubType(iid.Type),
		"imgclass": escapeAttr(iid.Class),
		"imgfile":  escapeAttr(path.Base(img.Href)),
	})
	href := path.Join("Text", iid.Base+".xhtml")
	dest, err := r.out.StagePath(href)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return errors.WithStack(err)
	}

	seq := tr.Value(output.TrackerSeq)
	tr.Increment(output.TrackerSeq)
	r.out.AddFile(&output.File{
		ID:        util.ManifestID(iid.Base),
		Href:      href,
		Path:      dest,
		MediaType: "application/xhtml+xml",
		Xhtml: &output.XhtmlInfo{
			Title:          r.info.Title,
			SeqIndex:       seq,
			GlobalSeqIndex: r.global,
			Subtype:        output.SubtypeImg,
			ImgClass:       iid.Class,
			ImgType:        iid.Type,
		},
	})
	return nil
}

// flushText writes the open document and registers it with the next
// local sequence index.
func (e *Engine) flushText(r *docRun) error {
	tr := r.out.Trackers
	href := path.Join("Text", r.cur.ID+".xhtml")
	dest, err := r.out.StagePath(href)
	if err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return errors.WithStack(err)
	}
	err = r.cur.Render(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "write %s", href)
	}

	seq := tr.Value(output.TrackerSeq)
	tr.Increment(output.TrackerSeq)
	r.out.AddFile(&output.File{
		ID:        util.ManifestID(r.cur.ID),
		Href:      href,
		Path:      dest,
		MediaType: "application/xhtml+xml",
		Xhtml: &output.XhtmlInfo{
			Title:          r.cur.Title,
			SeqIndex:       seq,
			GlobalSeqIndex: r.global,
			Subtype:        r.tid.Subtype,
		},
	})
	return nil
}

// epubType maps an image category to the page's epub:type value.
func epubType(t model.ImageType) string {
	switch t {
	case model.ImageCover:
		return "cover"
	case model.ImageFrontmatter:
		return "frontmatter"
	case model.ImageBackmatter:
		return "backmatter"
	default:
		return "bodymatter"
	}
}
