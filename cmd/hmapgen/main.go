package main

import (
	"os"

	"github.com/woozymasta/hmapgen/internal/config"
	"github.com/woozymasta/hmapgen/internal/logger"
	"github.com/woozymasta/hmapgen/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE" description:"Path to configuration file (built-in defaults when empty)"`
	Regions    string `short:"r" long:"regions"  env:"REGIONS"     description:"Override regions dataset path"`
	Parcels    string `short:"l" long:"parcels"  env:"PARCELS"     description:"Override parcels dataset path"`
	Output     string `short:"o" long:"output"   env:"OUTPUT"      description:"Override output raster path"`
	Format     string `short:"f" long:"format"   env:"FORMAT"      description:"Override output format" choice:"png" choice:"webp" choice:"tiff" choice:"bmp"`
	Policy     string `short:"n" long:"policy"   env:"POLICY"      description:"Override normalization policy" choice:"dynamic" choice:"fixed"`
	Seed       *int64 `short:"s" long:"seed"     env:"SEED"        description:"Override noise seed"`
	Width      int    `short:"W" long:"width"    env:"WIDTH"       description:"Override output width"`
	Height     int    `short:"H" long:"height"   env:"HEIGHT"      description:"Override output height"`
	Workers    int    `short:"p" long:"workers"  env:"WORKERS"     description:"Worker count, 0 for one per CPU"`
	Quiet      bool   `short:"q" long:"quiet"                      description:"Do not report progress"`
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

	applyOverrides(cfg, &opts)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	var progress processor.ProgressFunc
	if !opts.Quiet {
		lastPct := -1
		progress = func(done, total int) {
			pct := done * 100 / total
			if pct/25 == lastPct/25 {
				return
			}
			lastPct = pct
			log.Info().Int("rows", done).Int("total", total).Int("percent", pct).Msg("Rasterizing")
		}
	}

	if _, err := processor.ProcessHeightmap(cfg, processor.RunOptions{Progress: progress}); err != nil {
		log.Fatal().Err(err).Msg("Heightmap generation failed")
	}
}

func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.Regions != "" {
		cfg.Datasets.Regions = opts.Regions
	}
	if opts.Parcels != "" {
		cfg.Datasets.Parcels = opts.Parcels
	}
	if opts.Output != "" {
		cfg.Output.Path = opts.Output
	}
	if opts.Format != "" {
		cfg.Output.Format = opts.Format
	}
	if opts.Policy != "" {
		cfg.Normalization.Policy = opts.Policy
	}
	if opts.Seed != nil {
		cfg.Noise.Seed = *opts.Seed
	}
	if opts.Width > 0 {
		cfg.Output.Width = opts.Width
	}
	if opts.Height > 0 {
		cfg.Output.Height = opts.Height
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
}
