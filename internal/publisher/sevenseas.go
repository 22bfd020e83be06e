package publisher

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/vjovkovs/epubnorm/internal/classify"
	"github.com/vjovkovs/epubnorm/internal/engine"
	"github.com/vjovkovs/epubnorm/internal/model"
)

// SevenSeas normalizes Seven Seas Entertainment releases. This is the
// general variant: default segmentation hooks, two-line chapter headers
// and a class table covering their usual calibre-generated markup.
type SevenSeas struct {
	p pipeline
}

func NewSevenSeas(log zerolog.Logger) *SevenSeas {
	s := &SevenSeas{}
	s.p = pipeline{
		log:  log.With().Str("publisher", "sevenseas").Logger(),
		name: "sevenseas",
		hooks: engine.Hooks{
			Styles:       sevenSeasStyles(),
			CheckElement: sevenSeasCheckElement,
		},
		extra: map[string]classify.Category{
			"newsletter":       {Type: model.EntryIgnore},
			"about the author": {Type: model.EntryText, ImgType: model.ImageBackmatter},
		},
	}
	return s
}

func (s *SevenSeas) Name() string { return s.p.name }

func (s *SevenSeas) Match(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.Contains(lower, "seven seas") || strings.Contains(lower, "sevenseas")
}

func (s *SevenSeas) Process(ctx context.Context, opts Options) (string, error) {
	return s.p.run(ctx, opts)
}

func sevenSeasStyles() engine.StyleResolver {
	return &engine.TableResolver{
		Classes: map[string]engine.Style{
			"bold":     {"font-weight": "bold"},
			"italic":   {"font-style": "italic"},
			"center":   {"text-align": "center"},
			"centered": {"text-align": "center"},
			"right":    {"text-align": "right"},
			"sup":      {"vertical-align": "super"},
			"sub":      {"vertical-align": "sub"},
		},
		Ignored: map[string]bool{
			"calibre":  true,
			"calibre1": true,
			"calibre2": true,
			"indent":   true,
			"noindent": true,
			"para":     true,
		},
	}
}

// sevenSeasCheckElement excludes their page-break markers from the walk.
func sevenSeasCheckElement(s *goquery.Selection) bool {
	return s.HasClass("mbp_pagebreak") || goquery.NodeName(s) == "hr"
}
