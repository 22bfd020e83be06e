package publisher

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vjovkovs/epubnorm/internal/engine"
	"github.com/vjovkovs/epubnorm/internal/model"
)

// galleryRe matches the numbered pages of a Yen Press character
// gallery, which form one logical entry across several source files.
var galleryRe = regexp.MustCompile(`(?i)^character page \d+$`)

// YenPress normalizes Yen Press releases. Their character galleries
// span consecutive numbered files; DetermineReset keeps the group as
// one entry so only its first page gets a navigation entry.
type YenPress struct {
	p pipeline

	// prev is the previous entry's gallery signature, consulted by
	// determineReset to detect a continuing gallery.
	prev gallerySig
}

type gallerySig struct {
	gallery bool
	imgType model.ImageType
	typ     model.EntryType
}

func NewYenPress(log zerolog.Logger) *YenPress {
	y := &YenPress{}
	y.p = pipeline{
		log:  log.With().Str("publisher", "yenpress").Logger(),
		name: "yenpress",
		hooks: engine.Hooks{
			Styles:         yenPressStyles(),
			DetermineReset: y.determineReset,
		},
	}
	return y
}

func (y *YenPress) Name() string { return y.p.name }

func (y *YenPress) Match(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.Contains(lower, "yen press") || strings.Contains(lower, "yenpress")
}

func (y *YenPress) Process(ctx context.Context, opts Options) (string, error) {
	y.prev = gallerySig{}
	return y.p.run(ctx, opts)
}

// determineReset refuses a reset when consecutive entries belong to the
// same gallery, so the group shares one sequence and one TOC entry.
func (y *YenPress) determineReset(info *model.EntryInfo) bool {
	sig := gallerySig{
		gallery: galleryRe.MatchString(strings.TrimSpace(info.Title)),
		imgType: info.ImgType,
		typ:     info.Type,
	}
	prev := y.prev
	y.prev = sig
	if sig.gallery && prev.gallery && prev.imgType == sig.imgType && prev.typ == sig.typ {
		return false
	}
	return true
}

func yenPressStyles() engine.StyleResolver {
	return &engine.TableResolver{
		Classes: map[string]engine.Style{
			"bold":     {"font-weight": "bold"},
			"emphasis": {"font-style": "italic"},
			"italic":   {"font-style": "italic"},
			"center":   {"text-align": "center"},
			"tcenter":  {"text-align": "center"},
			"tright":   {"text-align": "right"},
		},
		Ignored: map[string]bool{
			"pc": true, "pi": true, "p1": true,
			"block": true, "margin": true,
		},
	}
}
