package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vjovkovs/epubnorm/internal/config"
	"github.com/vjovkovs/epubnorm/internal/fetch"
	"github.com/vjovkovs/epubnorm/internal/publisher"
)

func main() {
	cfg := config.Default()
	flag.StringVar(&cfg.In, "in", cfg.In, "input .epub file, directory of .epub files, or http(s) URL")
	flag.StringVar(&cfg.Out, "out", cfg.Out, "output directory")
	flag.StringVar(&cfg.Publisher, "publisher", "", "force a publisher module by name")
	flag.BoolVar(&cfg.Debug, "debug", false, "write uncompressed output trees instead of .epub files")
	flag.Parse()
	cfg.ApplyEnv()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
		log.Fatal().Err(err).Msg("make output directory")
	}

	inputs, cleanup, err := collectInputs(ctx, log, cfg.In)
	defer cleanup()
	if err != nil {
		log.Fatal().Err(err).Str("in", cfg.In).Msg("collect inputs")
	}
	if len(inputs) == 0 {
		log.Fatal().Str("in", cfg.In).Msg("no .epub inputs found")
	}

	pubs := publisher.Registry(log)

	// A failed input does not stop the batch.
	failed := 0
	for _, in := range inputs {
		pub, err := publisher.Resolve(pubs, filepath.Base(in), cfg.Publisher)
		if err != nil {
			log.Error().Err(err).Str("input", in).Msg("skipping input")
			failed++
			continue
		}
		outPath := filepath.Join(cfg.Out, filepath.Base(in))
		start := time.Now()
		got, err := pub.Process(ctx, publisher.Options{
			InputPath:  in,
			OutputPath: outPath,
			Debug:      cfg.Debug,
		})
		if err != nil {
			log.Error().Err(err).Str("input", in).Str("publisher", pub.Name()).Msg("conversion failed")
			failed++
			continue
		}
		log.Info().Str("output", got).Str("publisher", pub.Name()).
			Dur("took", time.Since(start)).Msg("converted")
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", len(inputs)).Msg("finished with failures")
		os.Exit(1)
	}
}

// collectInputs resolves the -in argument to local .epub paths. Remote
// URLs are downloaded to a temp directory which cleanup removes.
func collectInputs(ctx context.Context, log zerolog.Logger, in string) ([]string, func(), error) {
	cleanup := func() {}

	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		dir, err := os.MkdirTemp("", "epubnorm-dl-*")
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { os.RemoveAll(dir) }
		client := fetch.NewClient(fetch.Options{
			UserAgent: "epubnorm/1.0 (+https://github.com/vjovkovs/epubnorm)",
			Delay:     time.Second,
		})
		log.Info().Str("url", in).Msg("downloading input")
		local, err := client.Download(ctx, in, dir)
		if err != nil {
			return nil, cleanup, err
		}
		return []string{local}, cleanup, nil
	}

	st, err := os.Stat(in)
	if err != nil {
		return nil, cleanup, err
	}
	if !st.IsDir() {
		return []string{in}, cleanup, nil
	}

	var inputs []string
	err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".epub") {
			inputs = append(inputs, path)
		}
		return nil
	})
	return inputs, cleanup, err
}
