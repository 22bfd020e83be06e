// Package classify turns a source document's declared title into a
// structured entry description: its category (chapter text, image-only
// page, frontmatter, backmatter, ignore) and the header lines used when
// rendering a chapter heading.
package classify

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vjovkovs/epubnorm/internal/model"
)

// structureRe captures {type, number?, subtitle?} from a raw title,
// e.g. "Chapter 3: The Journey" -> ("Chapter", "3", "The Journey").
var structureRe = regexp.MustCompile(`^\s*([\p{L}][\p{L}'’\- ]*?)\s*(\d+)?\s*(?:[:：]\s*(\S.*?))?\s*$`)

// Category describes how a recognized title type is handled.
type Category struct {
	Type model.EntryType
	// ImgType is the implicit image type the entry implies for itself
	// and for subsequent unclassified images.
	ImgType model.ImageType
	// Numbered entries render a two-line header ("Chapter 3:" / subtitle).
	Numbered bool
}

// categories is the built-in lookup table, keyed by the normalized
// (lowercase, space-collapsed) type string.
var categories = map[string]Category{
	"cover":                  {Type: model.EntryImage, ImgType: model.ImageCover},
	"title page":             {Type: model.EntryImage, ImgType: model.ImageFrontmatter},
	"color inserts":          {Type: model.EntryImage, ImgType: model.ImageFrontmatter},
	"colour inserts":         {Type: model.EntryImage, ImgType: model.ImageFrontmatter},
	"color gallery":          {Type: model.EntryImage, ImgType: model.ImageFrontmatter},
	"copyrights and credits": {Type: model.EntryText, ImgType: model.ImageFrontmatter},
	"copyright":              {Type: model.EntryText, ImgType: model.ImageFrontmatter},
	"table of contents":      {Type: model.EntryIgnore},
	"contents":               {Type: model.EntryIgnore},
	"cast of characters":     {Type: model.EntryImage, ImgType: model.ImageFrontmatter},
	"character page":         {Type: model.EntryImage, ImgType: model.ImageFrontmatter},
	"afterword":              {Type: model.EntryText, ImgType: model.ImageBackmatter},
	"dedication":             {Type: model.EntryText, ImgType: model.ImageFrontmatter},
	"prologue":               {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
	"epilogue":               {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
	"chapter":                {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
	"interlude":              {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
	"side story":             {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
	"bonus story":            {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
	"short story":            {Type: model.EntryText, ImgType: model.ImageInsert, Numbered: true},
}

// Classifier parses titles against the built-in table plus any
// publisher-specific recurring feature names.
type Classifier struct {
	log   zerolog.Logger
	extra map[string]Category
}

// New builds a Classifier. extra adds publisher-specific recurring
// feature names (keys are normalized internally) and may be nil.
func New(log zerolog.Logger, extra map[string]Category) *Classifier {
	normalized := make(map[string]Category, len(extra))
	for k, v := range extra {
		normalized[normalize(k)] = v
	}
	return &Classifier{log: log, extra: normalized}
}

// Classify parses rawTitle. A title the structural regex cannot match
// at all is a fatal error for the file; an unrecognized type falls
// through to a generic text entry and is logged.
func (c *Classifier) Classify(rawTitle string) (*model.EntryInfo, error) {
	m := structureRe.FindStringSubmatch(rawTitle)
	if m == nil {
		return nil, errors.Errorf("classify: malformed title %q", rawTitle)
	}
	typeWord, num, subtitle := m[1], m[2], m[3]

	key := normalize(typeWord)
	cat, known := c.extra[key]
	if !known {
		cat, known = categories[key]
	}
	if !known {
		// Generic named bucket: keep going with the raw title as-is.
		c.log.Warn().Str("title", rawTitle).Str("type", typeWord).Msg("unrecognized entry type, treating as text")
		cat = Category{Type: model.EntryText, ImgType: model.ImageInsert}
	}

	info := &model.EntryInfo{
		Type:          cat.Type,
		Title:         strings.TrimSpace(rawTitle),
		ImgType:       cat.ImgType,
		ChapterNumber: num,
	}
	info.FirstLine, info.SecondLine = headerLines(cat, typeWord, num, subtitle)
	return info, nil
}

// headerLines splits the title into the lines a chapter header renders.
// Numbered entries with a subtitle keep the "Type N:" prefix on the
// first line and the subtitle on the second.
func headerLines(cat Category, typeWord, num, subtitle string) (string, string) {
	typeWord = strings.TrimSpace(typeWord)
	switch {
	case cat.Numbered && num != "" && subtitle != "":
		return typeWord + " " + num + ":", subtitle
	case cat.Numbered && num != "":
		return typeWord + " " + num, ""
	case subtitle != "":
		return typeWord + ":", subtitle
	case num != "":
		return typeWord + " " + num, ""
	default:
		return typeWord, ""
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
