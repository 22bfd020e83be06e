package output

import (
	"sort"

	"github.com/vjovkovs/epubnorm/internal/model"
)

// Subtype categorizes an XHTML output file for spine placement.
type Subtype int

const (
	SubtypeText Subtype = iota
	SubtypeCover
	SubtypeCredits
	SubtypeToc
	SubtypeImg
)

func (s Subtype) String() string {
	switch s {
	case SubtypeCover:
		return "cover"
	case SubtypeCredits:
		return "credits"
	case SubtypeToc:
		return "toc"
	case SubtypeImg:
		return "img"
	}
	return "text"
}

// XhtmlInfo carries the ordering and navigation metadata of an XHTML
// output file. Plain files (images, stylesheets, NCX) have none.
type XhtmlInfo struct {
	Title string
	// SeqIndex is the position within a same-title sequence; 0 marks
	// the main file that appears in the table of contents.
	SeqIndex int
	// GlobalSeqIndex is the position among all source documents; ties
	// within one document are broken by SeqIndex.
	GlobalSeqIndex int
	Subtype        Subtype
	// ImgClass and ImgType are set only for Subtype == SubtypeImg.
	ImgClass string
	ImgType  model.ImageType
}

// File is one registered output file. Created by the segmentation
// engine or the packaging step each time a DOM is flushed to disk, and
// immutable once registered with the Context.
type File struct {
	// ID is the unique manifest identifier (an XML-safe token).
	ID string
	// Href is the path relative to the OEBPS directory, e.g.
	// "Text/chapter001.xhtml".
	Href string
	// Path is the absolute staging path on disk.
	Path      string
	MediaType string
	// Xhtml is nil for plain files.
	Xhtml *XhtmlInfo
}

// IsMain reports whether this file heads a same-title sequence and so
// gets a TOC/nav entry.
func (f *File) IsMain() bool {
	return f.Xhtml != nil && f.Xhtml.SeqIndex == 0
}

// spineRank buckets files by subtype precedence. Non-XHTML files come
// before everything: they are excluded from spine and TOC but must
// serialize first positionally.
func spineRank(f *File) int {
	if f.Xhtml == nil {
		return 0
	}
	x := f.Xhtml
	switch {
	case x.Subtype == SubtypeCover,
		x.Subtype == SubtypeImg && x.ImgType == model.ImageCover:
		return 1
	case x.Subtype == SubtypeToc:
		return 2
	case x.Subtype == SubtypeImg && x.ImgType == model.ImageFrontmatter:
		return 3
	case x.Subtype == SubtypeImg && x.ImgType == model.ImageBackmatter:
		return 5
	case x.Subtype == SubtypeCredits:
		return 6
	default:
		return 4
	}
}

// sortForSpine stably orders files by subtype precedence, then by
// (globalSeqIndex, seqIndex). Applying it twice yields the same order
// as applying it once.
func sortForSpine(files []*File) {
	sort.SliceStable(files, func(i, j int) bool {
		ri, rj := spineRank(files[i]), spineRank(files[j])
		if ri != rj {
			return ri < rj
		}
		if files[i].Xhtml == nil || files[j].Xhtml == nil {
			return false // preserve registration order for plain files
		}
		xi, xj := files[i].Xhtml, files[j].Xhtml
		if xi.GlobalSeqIndex != xj.GlobalSeqIndex {
			return xi.GlobalSeqIndex < xj.GlobalSeqIndex
		}
		return xi.SeqIndex < xj.SeqIndex
	})
}
