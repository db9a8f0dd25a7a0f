package main

import (
	"os"
	"path/filepath"

	"github.com/woozymasta/hmapgen/internal/config"
	"github.com/woozymasta/hmapgen/internal/geo"
	"github.com/woozymasta/hmapgen/internal/logger"
	"github.com/woozymasta/hmapgen/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"  env:"CONFIG_FILE" description:"Path to configuration file (built-in defaults when empty)"`
	OutputDir  string `short:"o" long:"output"  env:"OUTPUT_DIR"  description:"Directory for the minified datasets" default:"frontend/3d/assets/data"`
	Strict     bool   `short:"s" long:"strict"  env:"STRICT"      description:"Fail when a dataset contains malformed features"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		cfg, err = config.Load(opts.ConfigFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}

	m := minify.New()
	m.AddFunc("application/json", mjson.Minify)

	datasets := []struct{ name, path string }{
		{"regions", cfg.Datasets.Regions},
		{"parcels", cfg.Datasets.Parcels},
	}
	for _, ds := range datasets {
		if err := minifyDataset(m, ds.name, ds.path, opts); err != nil {
			log.Fatal().Err(err).Str("dataset", ds.name).Msg("Failed to minify dataset")
		}
	}
}

func minifyDataset(m *minify.M, name, path string, opts Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c, err := geo.ParseCollection(name, data)
	if err != nil {
		return err
	}
	if opts.Strict && len(c.Skipped) > 0 {
		return c.Skipped[0]
	}

	out, err := m.Bytes("application/json", data)
	if err != nil {
		return err
	}

	dst := filepath.Join(opts.OutputDir, filepath.Base(path))
	if err := processor.WriteFile(dst, out); err != nil {
		return err
	}

	log.Info().
		Str("dataset", name).
		Str("path", dst).
		Int("features", c.Len()).
		Int("skipped", len(c.Skipped)).
		Int("before", len(data)).
		Int("after", len(out)).
		Msg("Dataset minified")

	return nil
}
