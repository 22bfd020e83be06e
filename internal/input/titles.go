package input

import (
	"encoding/xml"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

func unescapeHref(href string) (string, error) {
	return url.QueryUnescape(href)
}

// loadTitles fills SourceFile.Title from the source NCX, falling back
// to the EPUB3 nav document. A package with neither just leaves titles
// empty; that is survivable (the classifier will reject files it
// cannot place, per-file).
func (c *Context) loadTitles(log zerolog.Logger) {
	titles := c.titlesFromNCX(log)
	if titles == nil {
		titles = c.titlesFromNav(log)
	}
	if titles == nil {
		log.Warn().Msg("source package has no NCX or nav document; titles unavailable")
		return
	}
	for _, f := range c.Files {
		if t, ok := titles[f.Href]; ok {
			f.Title = t
		}
	}
}

// ncxDocument mirrors the navMap of toc.ncx.
type ncxDocument struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func (c *Context) titlesFromNCX(log zerolog.Logger) map[string]string {
	ncx := c.findByMediaType("application/x-dtbncx+xml")
	if ncx == nil {
		return nil
	}
	data, err := os.ReadFile(ncx.Path)
	if err != nil {
		log.Warn().Err(err).Str("href", ncx.Href).Msg("cannot read source NCX")
		return nil
	}
	var doc ncxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("href", ncx.Href).Msg("cannot parse source NCX")
		return nil
	}
	titles := make(map[string]string)
	collectNavPoints(titles, doc.NavMap.NavPoints, path.Dir(ncx.Href))
	return titles
}

func collectNavPoints(titles map[string]string, points []ncxNavPoint, baseDir string) {
	for _, np := range points {
		src := stripFragment(strings.TrimSpace(np.Content.Src))
		if src != "" {
			href := src
			if baseDir != "." && baseDir != "" {
				href = path.Join(baseDir, src)
			}
			if _, seen := titles[href]; !seen {
				titles[href] = strings.TrimSpace(np.Label.Text)
			}
		}
		collectNavPoints(titles, np.Children, baseDir)
	}
}

func (c *Context) titlesFromNav(log zerolog.Logger) map[string]string {
	var nav *SourceFile
	for _, f := range c.Files {
		if f.IsXHTML() && strings.Contains(strings.ToLower(filepath.Base(f.Href)), "nav") {
			nav = f
			break
		}
	}
	if nav == nil {
		return nil
	}
	fh, err := os.Open(nav.Path)
	if err != nil {
		log.Warn().Err(err).Str("href", nav.Href).Msg("cannot read nav document")
		return nil
	}
	defer fh.Close()
	doc, err := goquery.NewDocumentFromReader(fh)
	if err != nil {
		log.Warn().Err(err).Str("href", nav.Href).Msg("cannot parse nav document")
		return nil
	}
	titles := make(map[string]string)
	baseDir := path.Dir(nav.Href)
	doc.Find(`nav[epub\:type="toc"] a, nav a`).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		src := stripFragment(strings.TrimSpace(href))
		if src == "" {
			return
		}
		if decoded, derr := unescapeHref(src); derr == nil {
			src = decoded
		}
		if baseDir != "." && baseDir != "" {
			src = path.Join(baseDir, src)
		}
		if _, seen := titles[src]; !seen {
			titles[src] = strings.TrimSpace(a.Text())
		}
	})
	return titles
}

func (c *Context) findByMediaType(mediaType string) *SourceFile {
	for _, f := range c.Files {
		if f.MediaType == mediaType {
			return f
		}
	}
	return nil
}

func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
