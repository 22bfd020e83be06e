package output

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/vjovkovs/epubnorm/internal/template"
)

// Finish serializes the container and packages the EPUB at outPath.
// The archive is written in the required fixed order: mimetype first
// (stored, uncompressed), then META-INF/container.xml, OEBPS/content.opf
// and the registered files in spine-serialization order.
//
// In debug mode the staged tree is copied to a plain directory (outPath
// without its .epub suffix) instead, to aid diffing between runs.
func (c *Context) Finish(outPath string) (string, error) {
	c.SortFilesForSpine()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", errors.WithStack(err)
	}

	if c.debug {
		return c.finishPlain(outPath)
	}
	return outPath, c.finishZip(outPath)
}

func (c *Context) finishZip(outPath string) error {
	// Stage to a temp file and rename so a failed run never leaves a
	// truncated .epub behind.
	tmpPath := outPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		out.Close()
		os.Remove(tmpPath)
	}()

	zw := zip.NewWriter(out)

	// mimetype must be first and uncompressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		return errors.WithStack(err)
	}

	if err := writeZipText(zw, "META-INF/container.xml", template.Container); err != nil {
		return err
	}
	opfPath := filepath.Join(c.stagingDir, "OEBPS", "content.opf")
	if err := writeZipFile(zw, "OEBPS/content.opf", opfPath); err != nil {
		return err
	}
	for _, f := range c.files {
		if err := writeZipFile(zw, "OEBPS/"+f.Href, f.Path); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finalize archive")
	}
	if err := out.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmpPath, outPath))
}

// finishPlain copies the staged tree to a plain directory for diffing.
func (c *Context) finishPlain(outPath string) (string, error) {
	dir := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	if err := os.RemoveAll(dir); err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "META-INF"), 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	if err := writeText(filepath.Join(dir, "mimetype"), "application/epub+zip"); err != nil {
		return "", err
	}
	if err := writeText(filepath.Join(dir, "META-INF", "container.xml"), template.Container); err != nil {
		return "", err
	}
	pairs := [][2]string{{filepath.Join(c.stagingDir, "OEBPS", "content.opf"), filepath.Join(dir, "OEBPS", "content.opf")}}
	for _, f := range c.files {
		pairs = append(pairs, [2]string{f.Path, filepath.Join(dir, "OEBPS", filepath.FromSlash(f.Href))})
	}
	for _, p := range pairs {
		if err := os.MkdirAll(filepath.Dir(p[1]), 0o755); err != nil {
			return "", errors.WithStack(err)
		}
		if err := copyFile(p[0], p[1]); err != nil {
			return "", errors.WithStack(err)
		}
	}
	return dir, nil
}

func writeZipText(zw *zip.Writer, name, text string) error {
	w, err := zw.Create(name)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = w.Write([]byte(text))
	return errors.WithStack(err)
}

func writeZipFile(zw *zip.Writer, name, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return errors.Wrapf(err, "read staged file %s", srcPath)
	}
	w, err := zw.Create(name)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = w.Write(data)
	return errors.WithStack(err)
}

func writeText(dest, text string) error {
	return errors.WithStack(os.WriteFile(dest, []byte(text), 0o644))
}
