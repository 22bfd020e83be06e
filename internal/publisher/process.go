package publisher

import (
	"context"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/vjovkovs/epubnorm/internal/classify"
	"github.com/vjovkovs/epubnorm/internal/engine"
	"github.com/vjovkovs/epubnorm/internal/input"
	"github.com/vjovkovs/epubnorm/internal/model"
	"github.com/vjovkovs/epubnorm/internal/output"
	"github.com/vjovkovs/epubnorm/internal/template"
	"github.com/vjovkovs/epubnorm/internal/util"
)

// pipeline is the shared conversion flow every module runs; modules
// vary it through the engine hooks, classifier extensions and the
// metadata hook, never by replacing the flow itself.
type pipeline struct {
	log   zerolog.Logger
	name  string
	hooks engine.Hooks
	// extra adds publisher-specific recurring feature names to the
	// classifier's category table.
	extra map[string]classify.Category
	// metadata, if non-nil, appends publisher metadata to the OPF.
	metadata func(meta *etree.Element)
}

// run converts opts.InputPath into opts.OutputPath. Scratch directories
// for the extracted input and the staged output are removed on all
// exit paths.
func (p *pipeline) run(ctx context.Context, opts Options) (string, error) {
	scratchIn, err := os.MkdirTemp("", "epubnorm-in-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(scratchIn)
	scratchOut, err := os.MkdirTemp("", "epubnorm-out-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(scratchOut)

	in, err := input.Load(p.log, opts.InputPath, scratchIn)
	if err != nil {
		return "", err
	}
	out := output.NewContext(p.log, scratchOut, in.Title, in.Metadata, opts.Debug)
	cls := classify.New(p.log, p.extra)
	eng := engine.New(p.log, p.hooks)

	lastTitle := ""
	for _, f := range in.Files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !f.IsXHTML() {
			if err := p.passthrough(out, f); err != nil {
				return "", err
			}
			continue
		}

		title := f.Title
		if title == "" {
			if lastTitle == "" {
				p.log.Warn().Str("href", f.Href).Msg("untitled document before first entry, skipping")
				continue
			}
			// A spine file without its own navigation entry continues
			// the previous entry on a new sub-chapter page.
			title = lastTitle
			out.Trackers.Increment(output.TrackerSubChapter)
		} else {
			lastTitle = title
		}

		info, err := cls.Classify(title)
		if err != nil {
			return "", err
		}
		if info.Type == model.EntryIgnore {
			p.log.Debug().Str("href", f.Href).Str("title", title).Msg("ignored entry")
			continue
		}
		if err := eng.ProcessDocument(out, info, f.Path); err != nil {
			return "", err
		}
	}

	if _, err := out.WritePlain("Styles/stylesheet.css", "css", "text/css", []byte(template.Stylesheet)); err != nil {
		return "", err
	}
	if err := out.GenerateTOCXHTML(); err != nil {
		return "", err
	}
	if err := out.GenerateTOCNCX(); err != nil {
		return "", err
	}
	if err := out.GenerateContentOPF(p.metadata); err != nil {
		return "", err
	}
	return out.Finish(opts.OutputPath)
}

// passthrough handles non-XHTML manifest entries. The source stylesheet
// and NCX are replaced by generated equivalents; images are copied on
// demand as the engine references them; fonts pass through. Anything
// else is reported and skipped.
func (p *pipeline) passthrough(out *output.Context, f *input.SourceFile) error {
	mediaType := f.MediaType
	if mediaType == "" {
		if det, err := mimetype.DetectFile(f.Path); err == nil {
			mediaType = det.String()
		}
	}
	switch {
	case mediaType == "text/css",
		mediaType == "application/x-dtbncx+xml",
		mediaType == "application/oebps-package+xml":
		return nil
	case strings.HasPrefix(mediaType, "image/"):
		return nil
	case strings.HasPrefix(mediaType, "font/"),
		mediaType == "application/vnd.ms-opentype",
		mediaType == "application/font-woff",
		mediaType == "application/font-sfnt":
		_, err := out.CopyPlain(f.Path, "Fonts", util.ManifestID(f.ID), mediaType)
		return err
	default:
		p.log.Warn().Str("mediaType", mediaType).Str("href", f.Href).Msg("unhandled media type, skipping")
		return nil
	}
}
