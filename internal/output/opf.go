package output

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// copiedDCElements is the Dublin Core subset carried over from the
// source package, in output order. Title, language and identifier are
// handled separately.
var copiedDCElements = []string{"creator", "publisher", "date", "description", "rights", "subject"}

// seriesRe parses "{series} Vol. {num}" style titles for the derived
// belongs-to-collection metadata.
var seriesRe = regexp.MustCompile(`^(.+?)[,:]?\s+Vol(?:ume)?\.?\s+(\d+)\s*$`)

// GenerateContentOPF builds and stages OEBPS/content.opf from the
// registered files and the source metadata. hook, if non-nil, may
// append publisher-specific elements to the metadata element.
func (c *Context) GenerateContentOPF(hook func(metadata *etree.Element)) error {
	c.SortFilesForSpine()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", "pub-id")

	meta := pkg.CreateElement("metadata")
	meta.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")

	ident := meta.CreateElement("dc:identifier")
	ident.CreateAttr("id", "pub-id")
	ident.SetText(c.UID)

	title := meta.CreateElement("dc:title")
	title.CreateAttr("id", "title")
	title.SetText(c.Title)

	meta.CreateElement("dc:language").SetText(c.Language)

	c.copySourceMetadata(meta)
	c.injectSeriesMetadata(meta)

	modified := meta.CreateElement("meta")
	modified.CreateAttr("property", "dcterms:modified")
	modified.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))

	if c.coverImage != nil {
		cover := meta.CreateElement("meta")
		cover.CreateAttr("name", "cover")
		cover.CreateAttr("content", c.coverImage.ID)
	}

	if hook != nil {
		hook(meta)
	}

	manifest := pkg.CreateElement("manifest")
	for _, f := range c.files {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", f.ID)
		item.CreateAttr("href", f.Href)
		item.CreateAttr("media-type", f.MediaType)
		if f == c.coverImage {
			item.CreateAttr("properties", "cover-image")
		}
		if f.Xhtml != nil && f.Xhtml.Subtype == SubtypeToc {
			item.CreateAttr("properties", "nav")
		}
	}

	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", "ncx")
	for _, f := range c.files {
		if f.Xhtml == nil {
			continue
		}
		ref := spine.CreateElement("itemref")
		ref.CreateAttr("idref", f.ID)
	}

	doc.Indent(2)
	dest, err := c.StagePath("content.opf")
	if err != nil {
		return err
	}
	if err := doc.WriteToFile(dest); err != nil {
		return errors.Wrap(err, "write content.opf")
	}
	return nil
}

// copySourceMetadata copies the fixed Dublin Core subset from the
// source package, assigning sequential ids to refines-able elements
// (creators get a marc:relators role refinement).
func (c *Context) copySourceMetadata(meta *etree.Element) {
	if c.sourceMeta == nil {
		return
	}
	src := c.sourceMeta.FindElement("//metadata")
	if src == nil {
		return
	}
	creatorSeq := 0
	for _, name := range copiedDCElements {
		for _, el := range src.FindElements(name) {
			text := strings.TrimSpace(el.Text())
			if text == "" {
				continue
			}
			out := meta.CreateElement("dc:" + name)
			out.SetText(text)
			if name == "creator" {
				creatorSeq++
				id := fmt.Sprintf("creator%02d", creatorSeq)
				out.CreateAttr("id", id)
				role := meta.CreateElement("meta")
				role.CreateAttr("refines", "#"+id)
				role.CreateAttr("property", "role")
				role.CreateAttr("scheme", "marc:relators")
				role.SetText("aut")
			}
		}
	}
}

// injectSeriesMetadata derives belongs-to-collection elements from a
// "{series} Vol. {num}" title pattern.
func (c *Context) injectSeriesMetadata(meta *etree.Element) {
	m := seriesRe.FindStringSubmatch(c.Title)
	if m == nil {
		return
	}
	series := meta.CreateElement("meta")
	series.CreateAttr("property", "belongs-to-collection")
	series.CreateAttr("id", "series")
	series.SetText(strings.TrimSpace(m[1]))

	ctype := meta.CreateElement("meta")
	ctype.CreateAttr("refines", "#series")
	ctype.CreateAttr("property", "collection-type")
	ctype.SetText("series")

	pos := meta.CreateElement("meta")
	pos.CreateAttr("refines", "#series")
	pos.CreateAttr("property", "group-position")
	pos.SetText(m[2])
}
