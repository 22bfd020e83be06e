// Package output accumulates the files of one conversion run, owns the
// named counters ("trackers"), and serializes itself to manifest,
// spine, TOC, NCX and the final EPUB archive.
package output

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Context is the output document context for one conversion run. It is
// mutated in place by exactly one in-flight call at a time and is not
// safe to share across concurrent runs.
type Context struct {
	Trackers *Trackers
	// Title is the book title, carried over from the source package.
	Title    string
	Language string
	// UID is the package identifier (copied from the source, or a
	// fresh urn:uuid when the source has none).
	UID string

	log        zerolog.Logger
	stagingDir string
	sourceMeta *etree.Document
	files      []*File
	ids        map[string]bool
	// copied dedupes image copies by absolute source path, so an image
	// referenced from several chapters is packaged once.
	copied     map[string]*File
	coverImage *File
	debug      bool
}

// NewContext creates an output context staging into stagingDir.
// sourceMeta is the source package document whose Dublin Core elements
// are copied into the output manifest; it may be nil in tests.
func NewContext(log zerolog.Logger, stagingDir, title string, sourceMeta *etree.Document, debug bool) *Context {
	c := &Context{
		Trackers:   NewTrackers(),
		Title:      title,
		Language:   "en",
		log:        log,
		stagingDir: stagingDir,
		sourceMeta: sourceMeta,
		ids:        make(map[string]bool),
		copied:     make(map[string]*File),
		debug:      debug,
	}
	if sourceMeta != nil {
		if el := sourceMeta.FindElement("//metadata/language"); el != nil {
			if lang := strings.TrimSpace(el.Text()); lang != "" {
				c.Language = lang
			}
		}
		if el := sourceMeta.FindElement("//metadata/identifier"); el != nil {
			c.UID = strings.TrimSpace(el.Text())
		}
	}
	if c.UID == "" {
		c.UID = "urn:uuid:" + uuid.NewString()
	}
	return c
}

// StagePath returns the absolute staging path for an OEBPS-relative
// href, creating parent directories.
func (c *Context) StagePath(href string) (string, error) {
	p := filepath.Join(c.stagingDir, "OEBPS", filepath.FromSlash(href))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", errors.WithStack(err)
	}
	return p, nil
}

// AddFile registers f. IDs are made unique by suffixing; callers should
// already have normalized them to XML-safe tokens.
func (c *Context) AddFile(f *File) {
	base := f.ID
	for n := 2; c.ids[f.ID]; n++ {
		f.ID = fmt.Sprintf("%s-%d", base, n)
	}
	c.ids[f.ID] = true
	c.files = append(c.files, f)
}

// Files returns the registered files in their current order.
func (c *Context) Files() []*File {
	return c.files
}

// SortFilesForSpine orders the file list for spine serialization.
func (c *Context) SortFilesForSpine() {
	sortForSpine(c.files)
}

// CopyImage copies the image at srcPath into OEBPS/Images under
// destBase (extension preserved from the source, media type sniffed
// when unknown). A source image already copied is returned as-is; the
// second return reports whether a new file was registered.
func (c *Context) CopyImage(srcPath, destBase string) (*File, bool, error) {
	if f, ok := c.copied[srcPath]; ok {
		return f, false, nil
	}

	ext := strings.ToLower(filepath.Ext(srcPath))
	mediaType := extMediaType(ext)
	if mediaType == "" {
		det, err := mimetype.DetectFile(srcPath)
		if err != nil {
			return nil, false, errors.Wrapf(err, "detect media type of %s", srcPath)
		}
		mediaType = det.String()
		ext = det.Extension()
	}

	href := path.Join("Images", destBase+ext)
	dest, err := c.StagePath(href)
	if err != nil {
		return nil, false, err
	}
	if err := copyFile(srcPath, dest); err != nil {
		return nil, false, errors.Wrapf(err, "copy image %s", srcPath)
	}

	f := &File{
		ID:        "img-" + destBase,
		Href:      href,
		Path:      dest,
		MediaType: mediaType,
	}
	c.AddFile(f)
	c.copied[srcPath] = f
	if strings.HasPrefix(destBase, "cover") {
		c.coverImage = f
	}
	return f, true, nil
}

// CopyPlain copies a non-XHTML source file through unchanged, keeping
// its base name under the given OEBPS subdirectory.
func (c *Context) CopyPlain(srcPath, subdir, id, mediaType string) (*File, error) {
	href := path.Join(subdir, filepath.Base(srcPath))
	dest, err := c.StagePath(href)
	if err != nil {
		return nil, err
	}
	if err := copyFile(srcPath, dest); err != nil {
		return nil, errors.Wrapf(err, "copy file %s", srcPath)
	}
	f := &File{ID: id, Href: href, Path: dest, MediaType: mediaType}
	c.AddFile(f)
	return f, nil
}

// WritePlain writes raw bytes as a plain registered file.
func (c *Context) WritePlain(href, id, mediaType string, data []byte) (*File, error) {
	dest, err := c.StagePath(href)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, errors.WithStack(err)
	}
	f := &File{ID: id, Href: href, Path: dest, MediaType: mediaType}
	c.AddFile(f)
	return f, nil
}

func extMediaType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	}
	return ""
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
