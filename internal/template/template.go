// Package template holds the embedded output-file skeletons and the
// placeholder substitution used to instantiate them.
package template

import (
	_ "embed"
	"strings"
)

//go:embed assets/chapter.xhtml
var Chapter string

//go:embed assets/image.xhtml
var ImagePage string

//go:embed assets/toc.xhtml
var TocXHTML string

//go:embed assets/toc.ncx
var TocNCX string

//go:embed assets/container.xml
var Container string

//go:embed assets/stylesheet.css
var Stylesheet string

// Apply substitutes {{name}} placeholders in text. Unknown placeholders
// are left untouched so they surface in the output for review.
func Apply(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
