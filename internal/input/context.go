// Package input loads a source EPUB's package manifest and spine into
// an in-memory file list with per-file metadata (media type, spine
// order, declared title).
package input

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidArchive  = errors.New("input: invalid or corrupted archive")
	ErrInvalidMimetype = errors.New("input: invalid mimetype (not an EPUB)")
	ErrNoRootfile      = errors.New("input: container.xml has no rootfile")
	ErrNoOPF           = errors.New("input: missing package document (OPF)")
)

// SourceFile is one manifest entry of the source package.
type SourceFile struct {
	ID        string
	Href      string // relative to the OPF directory
	Path      string // absolute path in the scratch directory
	MediaType string
	// SpineOrder is the position in the spine, -1 for non-spine items.
	SpineOrder int
	// Title is the declared title from the source NCX or nav document;
	// empty when the file has no navigation entry.
	Title string
}

// IsXHTML reports whether the file is a spine-able content document.
func (f *SourceFile) IsXHTML() bool {
	return f.MediaType == "application/xhtml+xml"
}

// Context is the loaded source package for one conversion run. It owns
// the scratch directory holding the extracted archive.
type Context struct {
	// Dir is the scratch directory the archive was extracted into.
	Dir string
	// OPFDir is the directory of the package document inside Dir.
	OPFDir string
	// Files is the manifest in spine order (spine items first, ordered;
	// then the remaining manifest items in document order).
	Files []*SourceFile
	// Metadata is the source package document, retained so the output
	// step can copy Dublin Core elements from it.
	Metadata *etree.Document
	// Title is the package dc:title.
	Title string
}

// Load extracts the EPUB at epubPath into scratchDir and parses its
// container, package document and navigation titles.
func Load(log zerolog.Logger, epubPath, scratchDir string) (*Context, error) {
	zr, err := zip.OpenReader(epubPath)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArchive, err.Error())
	}
	defer zr.Close()

	if err := validateMimetype(&zr.Reader); err != nil {
		return nil, err
	}
	if err := extract(&zr.Reader, scratchDir); err != nil {
		return nil, err
	}

	opfPath, err := parseContainer(scratchDir)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Dir:    scratchDir,
		OPFDir: filepath.Dir(filepath.Join(scratchDir, filepath.FromSlash(opfPath))),
	}
	if err := ctx.parseOPF(filepath.Join(scratchDir, filepath.FromSlash(opfPath))); err != nil {
		return nil, err
	}
	ctx.loadTitles(log)
	return ctx, nil
}

func validateMimetype(zr *zip.Reader) error {
	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.WithStack(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return errors.WithStack(err)
		}
		if strings.TrimSpace(string(data)) != "application/epub+zip" {
			return ErrInvalidMimetype
		}
		return nil
	}
	// Some EPUBs omit the mimetype file; keep going.
	return nil
}

// extract writes every archive entry under dir, rejecting paths that
// escape it.
func extract(zr *zip.Reader, dir string) error {
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rel := filepath.FromSlash(path.Clean(f.Name))
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return errors.Errorf("input: archive entry escapes extraction dir: %s", f.Name)
		}
		dest := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return errors.WithStack(err)
		}
		rc, err := f.Open()
		if err != nil {
			return errors.WithStack(err)
		}
		out, err := os.Create(dest)
		if err != nil {
			rc.Close()
			return errors.WithStack(err)
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// containerXML mirrors META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

func parseContainer(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "META-INF", "container.xml"))
	if err != nil {
		return "", errors.Wrap(err, "input: read container.xml")
	}
	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", errors.Wrap(err, "input: parse container.xml")
	}
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml" {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}
	return "", ErrNoRootfile
}

// opfPackage mirrors the subset of the package document we need for
// the file list. Metadata is re-read with etree for the output copy.
type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles []string `xml:"title"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func (c *Context) parseOPF(opfPath string) error {
	data, err := os.ReadFile(opfPath)
	if err != nil {
		return errors.Wrap(ErrNoOPF, err.Error())
	}

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return errors.Wrap(err, "input: parse OPF")
	}
	if len(pkg.Metadata.Titles) > 0 {
		c.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return errors.Wrap(err, "input: parse OPF metadata")
	}
	c.Metadata = doc

	spineOrder := make(map[string]int, len(pkg.Spine.ItemRefs))
	for i, ref := range pkg.Spine.ItemRefs {
		spineOrder[ref.IDRef] = i
	}

	c.Files = make([]*SourceFile, 0, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		order, inSpine := spineOrder[item.ID]
		if !inSpine {
			order = -1
		}
		href := item.Href
		if decoded, derr := unescapeHref(href); derr == nil {
			href = decoded
		}
		c.Files = append(c.Files, &SourceFile{
			ID:         item.ID,
			Href:       href,
			Path:       filepath.Join(c.OPFDir, filepath.FromSlash(href)),
			MediaType:  item.MediaType,
			SpineOrder: order,
		})
	}

	// Spine items first in reading order; non-spine items keep their
	// manifest order after them.
	sortFiles(c.Files)
	return nil
}

func sortFiles(files []*SourceFile) {
	// Insertion-stable: spine items (order >= 0) ascending, then the rest.
	inSpine := make([]*SourceFile, 0, len(files))
	rest := make([]*SourceFile, 0, len(files))
	for _, f := range files {
		if f.SpineOrder >= 0 {
			inSpine = append(inSpine, f)
		} else {
			rest = append(rest, f)
		}
	}
	for i := 1; i < len(inSpine); i++ {
		for j := i; j > 0 && inSpine[j-1].SpineOrder > inSpine[j].SpineOrder; j-- {
			inSpine[j-1], inSpine[j] = inSpine[j], inSpine[j-1]
		}
	}
	copy(files, inSpine)
	copy(files[len(inSpine):], rest)
}
