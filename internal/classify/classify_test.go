package classify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjovkovs/epubnorm/internal/model"
)

func TestClassifyNumberedChapter(t *testing.T) {
	t.Parallel()

	c := New(zerolog.Nop(), nil)
	info, err := c.Classify("Chapter 3: The Reckoning")
	require.NoError(t, err)

	assert.Equal(t, model.EntryText, info.Type)
	assert.Equal(t, "Chapter 3: The Reckoning", info.Title)
	assert.Equal(t, "Chapter 3:", info.FirstLine)
	assert.Equal(t, "The Reckoning", info.SecondLine)
	assert.Equal(t, "3", info.ChapterNumber)
	assert.Equal(t, model.ImageInsert, info.ImgType)
}

func TestClassifyTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title      string
		entryType  model.EntryType
		imgType    model.ImageType
		firstLine  string
		secondLine string
	}{
		{"Cover", model.EntryImage, model.ImageCover, "Cover", ""},
		{"Title Page", model.EntryImage, model.ImageFrontmatter, "Title Page", ""},
		{"Color Inserts", model.EntryImage, model.ImageFrontmatter, "Color Inserts", ""},
		{"Copyrights and Credits", model.EntryText, model.ImageFrontmatter, "Copyrights and Credits", ""},
		{"Cast of Characters", model.EntryImage, model.ImageFrontmatter, "Cast of Characters", ""},
		{"Afterword", model.EntryText, model.ImageBackmatter, "Afterword", ""},
		{"Prologue", model.EntryText, model.ImageInsert, "Prologue", ""},
		{"Epilogue: Homecoming", model.EntryText, model.ImageInsert, "Epilogue:", "Homecoming"},
		{"Interlude 2", model.EntryText, model.ImageInsert, "Interlude 2", ""},
		{"Side Story 4: Tea", model.EntryText, model.ImageInsert, "Side Story 4:", "Tea"},
		{"Character Page 1", model.EntryImage, model.ImageFrontmatter, "Character Page 1", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()

			c := New(zerolog.Nop(), nil)
			info, err := c.Classify(tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.entryType, info.Type)
			assert.Equal(t, tt.imgType, info.ImgType)
			assert.Equal(t, tt.firstLine, info.FirstLine)
			assert.Equal(t, tt.secondLine, info.SecondLine)
		})
	}
}

func TestClassifyIgnoresTableOfContents(t *testing.T) {
	t.Parallel()

	c := New(zerolog.Nop(), nil)
	for _, title := range []string{"Table of Contents", "Contents", "table  of   contents"} {
		info, err := c.Classify(title)
		require.NoError(t, err)
		assert.Equal(t, model.EntryIgnore, info.Type, title)
	}
}

func TestClassifyUnknownTypeFallsThrough(t *testing.T) {
	t.Parallel()

	c := New(zerolog.Nop(), nil)
	info, err := c.Classify("Bloopers 2")
	require.NoError(t, err)
	assert.Equal(t, model.EntryText, info.Type)
	assert.Equal(t, model.ImageInsert, info.ImgType)
	assert.Equal(t, "Bloopers 2", info.Title)
}

func TestClassifyMalformedTitleFatal(t *testing.T) {
	t.Parallel()

	c := New(zerolog.Nop(), nil)
	_, err := c.Classify("???")
	assert.Error(t, err)
}

func TestClassifyExtraCategories(t *testing.T) {
	t.Parallel()

	c := New(zerolog.Nop(), map[string]Category{
		"Newsletter": {Type: model.EntryIgnore},
	})
	info, err := c.Classify("Newsletter")
	require.NoError(t, err)
	assert.Equal(t, model.EntryIgnore, info.Type)
}
