package server

import (
	"sync"
	"sync/atomic"

	"github.com/woozymasta/hmapgen/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	mjson "github.com/tdewolff/minify/v2/json"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	minifier   *minify.M
	hub        *Hub
	cfg        *config.Config
	ConfigFile string // re-read before every regeneration, empty keeps cfg
	mu         sync.RWMutex
	running    atomic.Bool
}

// NewServerContext initializes the handler dependencies.
func NewServerContext(configFile string, cfg *config.Config) *ServerContext {
	m := minify.New()
	m.AddFunc("application/json", mjson.Minify)

	log.Info().
		Str("regions", cfg.Datasets.Regions).
		Str("parcels", cfg.Datasets.Parcels).
		Str("heightmap", cfg.Output.Path).
		Msg("Server context initialized")

	return &ServerContext{
		ConfigFile: configFile,
		cfg:        cfg,
		minifier:   m,
		hub:        NewHub(),
	}
}

// Config returns the active configuration.
func (s *ServerContext) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Hub returns the progress broadcaster.
func (s *ServerContext) Hub() *Hub {
	return s.hub
}

// Reload re-reads the configuration file so that table edits apply to the
// next generation. The previous configuration stays active on error.
func (s *ServerContext) Reload() (*config.Config, error) {
	if s.ConfigFile == "" {
		return s.Config(), nil
	}

	cfg, err := config.Load(s.ConfigFile)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	log.Debug().Str("path", s.ConfigFile).Msg("Configuration reloaded")
	return cfg, nil
}
