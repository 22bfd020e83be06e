// Package publisher hosts the per-title modules. Each module pairs a
// filename matcher with the hook set that tunes the shared conversion
// pipeline to that publisher's source markup.
package publisher

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Options are the per-run parameters of one conversion.
type Options struct {
	InputPath  string
	OutputPath string
	// Debug writes an uncompressed output tree instead of a .epub.
	Debug bool
}

// Publisher converts one source EPUB into the normalized layout.
type Publisher interface {
	Name() string
	// Match reports whether this module handles the given input file.
	Match(filename string) bool
	// Process runs the conversion and returns the written output path.
	Process(ctx context.Context, opts Options) (string, error)
}

// Registry returns the available modules in matching order.
func Registry(log zerolog.Logger) []Publisher {
	return []Publisher{
		NewSevenSeas(log),
		NewYenPress(log),
	}
}

// Resolve picks the module for filename. A non-empty forced name
// bypasses matching.
func Resolve(pubs []Publisher, filename, forced string) (Publisher, error) {
	if forced != "" {
		for _, p := range pubs {
			if strings.EqualFold(p.Name(), forced) {
				return p, nil
			}
		}
		return nil, errors.Errorf("publisher: no module named %q", forced)
	}
	for _, p := range pubs {
		if p.Match(filename) {
			return p, nil
		}
	}
	return nil, errors.Errorf("publisher: no module matches %q", filename)
}
