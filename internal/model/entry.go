// Package model holds the shared types passed between the classifier,
// the segmentation engine and the output context.
package model

// EntryType is the coarse category of one source document.
type EntryType int

const (
	// EntryIgnore marks documents that produce no output (e.g. the
	// source table of contents, which is regenerated).
	EntryIgnore EntryType = iota
	// EntryText marks running chapter text.
	EntryText
	// EntryImage marks image-only pages (cover, inserts, galleries).
	EntryImage
)

func (t EntryType) String() string {
	switch t {
	case EntryIgnore:
		return "ignore"
	case EntryText:
		return "text"
	case EntryImage:
		return "image"
	}
	return "unknown"
}

// ImageType is the category applied to an image encountered without
// explicit per-image classification. It drives which numbering tracker
// and placement rule applies, and persists across documents until a
// later entry changes it.
type ImageType int

const (
	ImageNone ImageType = iota
	ImageFrontmatter
	ImageInsert
	ImageBackmatter
	ImageCover
)

func (t ImageType) String() string {
	switch t {
	case ImageFrontmatter:
		return "frontmatter"
	case ImageInsert:
		return "insert"
	case ImageBackmatter:
		return "backmatter"
	case ImageCover:
		return "cover"
	}
	return "none"
}

// ProcessedKind remembers what the previous source document ended with,
// so the next document knows whether to continue sub-chapter numbering.
type ProcessedKind int

const (
	ProcessedNone ProcessedKind = iota
	ProcessedImage
)

// EntryInfo is the structured result of classifying a source document's
// declared title.
type EntryInfo struct {
	Type  EntryType
	Title string

	// FirstLine and SecondLine are the chapter-header lines rendered at
	// the top of the first output file ("Chapter 3:" / "The Journey").
	// SecondLine is empty for unnumbered or subtitle-less entries.
	FirstLine  string
	SecondLine string

	// ImgType is the implicit image type implied by the detected entry
	// category; the caller applies it before segmentation.
	ImgType ImageType

	// ChapterNumber is the raw number string captured from the title,
	// empty when the title carries none.
	ChapterNumber string
}
