package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjovkovs/epubnorm/internal/model"
)

func textFile(id string, global, seq int) *File {
	return &File{
		ID:        id,
		Href:      "Text/" + id + ".xhtml",
		MediaType: "application/xhtml+xml",
		Xhtml:     &XhtmlInfo{Title: id, SeqIndex: seq, GlobalSeqIndex: global, Subtype: SubtypeText},
	}
}

func imgPageFile(id string, global, seq int, imgType model.ImageType) *File {
	return &File{
		ID:        id,
		Href:      "Text/" + id + ".xhtml",
		MediaType: "application/xhtml+xml",
		Xhtml: &XhtmlInfo{
			Title: id, SeqIndex: seq, GlobalSeqIndex: global,
			Subtype: SubtypeImg, ImgType: imgType,
		},
	}
}

func TestSortForSpineScenario(t *testing.T) {
	t.Parallel()

	credits := &File{
		ID: "copyright", Href: "Text/copyright.xhtml", MediaType: "application/xhtml+xml",
		Xhtml: &XhtmlInfo{Title: "Copyright", Subtype: SubtypeCredits, GlobalSeqIndex: 1},
	}
	cover := imgPageFile("cover", 2, 0, model.ImageCover)
	toc := &File{
		ID: "toc", Href: "toc.xhtml", MediaType: "application/xhtml+xml",
		Xhtml: &XhtmlInfo{Title: "Table of Contents", Subtype: SubtypeToc},
	}
	text0 := textFile("chapter001", 3, 0)
	text1 := textFile("chapter001_1", 3, 1)

	files := []*File{credits, cover, toc, text0, text1}
	sortForSpine(files)

	got := make([]string, len(files))
	for i, f := range files {
		got[i] = f.ID
	}
	assert.Equal(t, []string{"cover", "toc", "chapter001", "chapter001_1", "copyright"}, got)
}

func TestSortForSpineIdempotent(t *testing.T) {
	t.Parallel()

	files := []*File{
		textFile("b", 2, 0),
		{ID: "css", Href: "Styles/stylesheet.css", MediaType: "text/css"},
		imgPageFile("front", 1, 0, model.ImageFrontmatter),
		textFile("a", 1, 1),
		imgPageFile("back", 4, 0, model.ImageBackmatter),
		{ID: "ncx", Href: "toc.ncx", MediaType: "application/x-dtbncx+xml"},
		textFile("c", 3, 0),
	}

	sortForSpine(files)
	once := make([]string, len(files))
	for i, f := range files {
		once[i] = f.ID
	}

	sortForSpine(files)
	twice := make([]string, len(files))
	for i, f := range files {
		twice[i] = f.ID
	}

	assert.Equal(t, once, twice)
}

func TestSortForSpinePlainFilesFirst(t *testing.T) {
	t.Parallel()

	files := []*File{
		textFile("chapter001", 1, 0),
		{ID: "css", Href: "Styles/stylesheet.css", MediaType: "text/css"},
	}
	sortForSpine(files)

	require.Equal(t, "css", files[0].ID)
	assert.Equal(t, "chapter001", files[1].ID)
}

func TestIsMain(t *testing.T) {
	t.Parallel()

	assert.True(t, textFile("a", 1, 0).IsMain())
	assert.False(t, textFile("a", 1, 1).IsMain())
	assert.False(t, (&File{ID: "css", MediaType: "text/css"}).IsMain())
}
