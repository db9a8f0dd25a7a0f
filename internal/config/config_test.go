package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/hmapgen/internal/geo"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}

	bands := cfg.Bands()
	if len(bands) != 2 || bands[0].Terrain != geo.TerrainLava || bands[1].Terrain != geo.TerrainIce {
		t.Fatalf("Bands() = %+v, want lava then ice", bands)
	}

	lo, hi := bands[0].Band.Intensities()
	if lo != 0 || hi != 20 {
		t.Errorf("lava intensities = %d..%d, want 0..20", lo, hi)
	}
	lo, hi = bands[1].Band.Intensities()
	if lo != 235 || hi != 255 {
		t.Errorf("ice intensities = %d..%d, want 235..255", lo, hi)
	}
}

func TestOpenRange(t *testing.T) {
	cfg := Default()

	lo, hi, ok := cfg.OpenRange()
	if !ok || lo != 21 || hi != 234 {
		t.Errorf("exclusive OpenRange() = %d, %d, %v, want 21, 234, true", lo, hi, ok)
	}

	cfg.Normalization.ExclusiveBands = false
	lo, hi, ok = cfg.OpenRange()
	if !ok || lo != 0 || hi != 255 {
		t.Errorf("shared OpenRange() = %d, %d, %v, want 0, 255, true", lo, hi, ok)
	}

	// a middle band splits the free intensities, the wider run wins
	cfg = Default()
	cfg.Terrain["rock"] = TerrainRule{Multiplier: 1, Band: &Band{Min: 0.3, Max: 0.4}}
	lo, hi, ok = cfg.OpenRange()
	if !ok || lo != 103 || hi != 234 {
		t.Errorf("split OpenRange() = %d, %d, %v, want 103, 234, true", lo, hi, ok)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
output:
  path: out/heightmap.webp
  format: webp
  width: 256
  height: 128
categories:
  mountain: 80
terrain:
  sand:
    multiplier: 0.5
noise:
  seed: 7
  amplitude: 0
normalization:
  policy: fixed
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Output.Format != FormatWebP || cfg.Output.Width != 256 || cfg.Output.Height != 128 {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Categories["mountain"] != 80 || cfg.Categories["residential"] != 3 || cfg.Categories["default"] != 1 {
		t.Errorf("categories not merged: %v", cfg.Categories)
	}
	if cfg.Terrain["sand"].Multiplier != 0.5 || cfg.Terrain["lava"].Band == nil {
		t.Errorf("terrain not merged: %+v", cfg.Terrain)
	}
	if cfg.Noise.Seed != 7 || cfg.Noise.Amplitude != 0 || cfg.Noise.Octaves != 4 {
		t.Errorf("noise = %+v", cfg.Noise)
	}
	if cfg.Normalization.Policy != PolicyFixed || cfg.Normalization.ReferenceMax != 60 {
		t.Errorf("normalization = %+v", cfg.Normalization)
	}
	if cfg.Datasets.Regions != "data/neighborhoods.geojson" {
		t.Errorf("datasets = %+v", cfg.Datasets)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("output: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load of malformed YAML should fail")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("output:\n  width: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); err == nil || !strings.Contains(err.Error(), "size") {
		t.Errorf("Load of invalid config = %v, want size error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"missing regions", func(c *Config) { c.Datasets.Regions = "" }, "datasets"},
		{"missing output", func(c *Config) { c.Output.Path = "" }, "path"},
		{"negative height", func(c *Config) { c.Output.Height = -1 }, "size"},
		{"unknown format", func(c *Config) { c.Output.Format = "gif" }, "format"},
		{"negative padding", func(c *Config) { c.Padding = -0.1 }, "padding"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
		{"zero octaves", func(c *Config) { c.Noise.Octaves = 0 }, "octaves"},
		{"zero persistence", func(c *Config) { c.Noise.Persistence = 0 }, "persistence"},
		{"no default category", func(c *Config) { delete(c.Categories, "default") }, "default"},
		{"unknown category", func(c *Config) { c.Categories["swamp"] = 1 }, "swamp"},
		{"unknown terrain", func(c *Config) { c.Terrain["plasma"] = TerrainRule{Multiplier: 1} }, "plasma"},
		{"none terrain", func(c *Config) { c.Terrain["none"] = TerrainRule{Multiplier: 1} }, "none"},
		{"inverted band", func(c *Config) {
			c.Terrain["rock"] = TerrainRule{Multiplier: 1, Band: &Band{Min: 0.5, Max: 0.4}}
		}, "band"},
		{"band above one", func(c *Config) {
			c.Terrain["rock"] = TerrainRule{Multiplier: 1, Band: &Band{Min: 0.5, Max: 1.2}}
		}, "band"},
		{"overlapping bands", func(c *Config) {
			c.Terrain["lava"] = TerrainRule{Multiplier: 0.3, Band: &Band{Min: 0, Max: 0.5}}
			c.Terrain["ice"] = TerrainRule{Multiplier: 1.25, Band: &Band{Min: 0.4, Max: 1}}
		}, "overlap"},
		{"bands cover everything", func(c *Config) {
			c.Terrain["lava"] = TerrainRule{Multiplier: 0.3, Band: &Band{Min: 0, Max: 0.5}}
			c.Terrain["ice"] = TerrainRule{Multiplier: 1.25, Band: &Band{Min: 0.504, Max: 1}}
		}, "open terrain"},
		{"unknown policy", func(c *Config) { c.Normalization.Policy = "magic" }, "policy"},
		{"zero reference", func(c *Config) { c.Normalization.ReferenceMax = 0 }, "reference_max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestBandsCoverOnlyWhenExclusive(t *testing.T) {
	cfg := Default()
	cfg.Normalization.ExclusiveBands = false
	cfg.Terrain["lava"] = TerrainRule{Multiplier: 0.3, Band: &Band{Min: 0, Max: 0.5}}
	cfg.Terrain["ice"] = TerrainRule{Multiplier: 1.25, Band: &Band{Min: 0.504, Max: 1}}

	if err := cfg.Validate(); err != nil {
		t.Errorf("shared open range should accept full band coverage, got %v", err)
	}
}
