package input

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainer = `<?xml version="1.0" encoding="utf-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0" unique-identifier="id">
  <metadata>
    <dc:title>Sample Novel, Vol. 2</dc:title>
    <dc:language>en</dc:language>
    <dc:identifier id="id">urn:isbn:9780000000001</dc:identifier>
    <dc:creator>Test Author</dc:creator>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="style" href="Styles/style.css" media-type="text/css"/>
    <item id="cover-img" href="Images/cover.jpg" media-type="image/jpeg"/>
    <item id="ch1" href="Text/chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover" href="Text/cover.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="cover"/>
    <itemref idref="ch1"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>Cover</text></navLabel>
      <content src="Text/cover.xhtml"/>
    </navPoint>
    <navPoint id="n2" playOrder="2">
      <navLabel><text>Chapter 1: Start</text></navLabel>
      <content src="Text/chapter1.xhtml#top"/>
    </navPoint>
  </navMap>
</ncx>`

func buildEPUB(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte("application/epub+zip"))
	require.NoError(t, err)

	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func sampleEntries() map[string]string {
	return map[string]string{
		"META-INF/container.xml":    testContainer,
		"OEBPS/content.opf":         testOPF,
		"OEBPS/toc.ncx":             testNCX,
		"OEBPS/Styles/style.css":    "p { margin: 0 }",
		"OEBPS/Images/cover.jpg":    "jpegbytes",
		"OEBPS/Text/cover.xhtml":    `<html xmlns="http://www.w3.org/1999/xhtml"><body><div><img src="../Images/cover.jpg"/></div></body></html>`,
		"OEBPS/Text/chapter1.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Chapter 1: Start</h1><p>First line.</p></body></html>`,
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	epub := filepath.Join(dir, "sample.epub")
	buildEPUB(t, epub, sampleEntries())

	ctx, err := Load(zerolog.Nop(), epub, filepath.Join(dir, "scratch"))
	require.NoError(t, err)

	assert.Equal(t, "Sample Novel, Vol. 2", ctx.Title)
	require.NotNil(t, ctx.Metadata)
	require.Len(t, ctx.Files, 5)

	// Spine items first in reading order.
	assert.Equal(t, "Text/cover.xhtml", ctx.Files[0].Href)
	assert.Equal(t, 0, ctx.Files[0].SpineOrder)
	assert.Equal(t, "Text/chapter1.xhtml", ctx.Files[1].Href)
	assert.Equal(t, 1, ctx.Files[1].SpineOrder)
	assert.Equal(t, -1, ctx.Files[2].SpineOrder)

	// Declared titles come from the NCX; fragments are stripped.
	assert.Equal(t, "Cover", ctx.Files[0].Title)
	assert.Equal(t, "Chapter 1: Start", ctx.Files[1].Title)

	assert.True(t, ctx.Files[0].IsXHTML())

	// Extracted files are readable at their recorded paths.
	data, err := os.ReadFile(ctx.Files[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cover.jpg")
}

func TestLoadRejectsBadMimetype(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	epub := filepath.Join(dir, "bad.epub")

	f, err := os.Create(epub)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("mimetype")
	require.NoError(t, err)
	_, err = w.Write([]byte("application/zip"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Load(zerolog.Nop(), epub, filepath.Join(dir, "scratch"))
	assert.ErrorIs(t, err, ErrInvalidMimetype)
}

func TestLoadRejectsNonZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notZip := filepath.Join(dir, "plain.epub")
	require.NoError(t, os.WriteFile(notZip, []byte("not an archive"), 0o644))

	_, err := Load(zerolog.Nop(), notZip, filepath.Join(dir, "scratch"))
	assert.ErrorIs(t, err, ErrInvalidArchive)
}

func TestLoadMissingContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	epub := filepath.Join(dir, "nocontainer.epub")
	buildEPUB(t, epub, map[string]string{"OEBPS/content.opf": testOPF})

	_, err := Load(zerolog.Nop(), epub, filepath.Join(dir, "scratch"))
	assert.Error(t, err)
}
