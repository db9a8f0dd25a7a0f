package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/hmapgen/internal/config"
	"github.com/woozymasta/hmapgen/internal/logger"
	"github.com/woozymasta/hmapgen/internal/processor"
	"github.com/woozymasta/hmapgen/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file (built-in defaults when empty)"`
	Addr       string `short:"a" long:"addr"     env:"LISTEN_ADDRESS" description:"Address to listen on" default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"     env:"LISTEN_PORT"    description:"Port to listen on"    default:"3000"`
	Generate   bool   `short:"g" long:"generate" env:"GENERATE"       description:"Generate the heightmap before serving when it is missing"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		cfg, err = config.Load(opts.ConfigFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}

	if opts.Generate {
		if _, err := os.Stat(cfg.Output.Path); os.IsNotExist(err) {
			if _, err := processor.ProcessHeightmap(cfg, processor.RunOptions{}); err != nil {
				log.Fatal().Err(err).Msg("Initial heightmap generation failed")
			}
		}
	}

	srvCtx := server.NewServerContext(opts.ConfigFile, cfg)
	handler := server.RequestLogger(srvCtx.Routes())

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Str("heightmap", cfg.Output.Path).
		Msg("Web server started")

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
