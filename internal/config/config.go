// Package config handles configuration loading and shared data structures.
package config

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/woozymasta/hmapgen/internal/geo"

	"gopkg.in/yaml.v3"
)

// Normalization policies.
const (
	PolicyDynamic = "dynamic"
	PolicyFixed   = "fixed"
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatTIFF = "tiff"
	FormatBMP  = "bmp"
)

// Config represents the root configuration file structure.
type Config struct {
	Categories      map[string]float64     `yaml:"categories" json:"categories"`
	Terrain         map[string]TerrainRule `yaml:"terrain" json:"terrain"`
	Datasets        Datasets               `yaml:"datasets" json:"datasets"`
	Output          Output                 `yaml:"output" json:"output"`
	Noise           Noise                  `yaml:"noise" json:"noise"`
	Normalization   Normalization          `yaml:"normalization" json:"normalization"`
	Padding         float64                `yaml:"padding" json:"padding"`
	ParcelIncrement float64                `yaml:"parcel_increment" json:"parcel_increment"`
	Workers         int                    `yaml:"workers,omitempty" json:"workers,omitempty"` // 0 means one per CPU
}

// Datasets points at the two GeoJSON inputs.
type Datasets struct {
	Regions string `yaml:"regions" json:"regions"`
	Parcels string `yaml:"parcels" json:"parcels"`
}

// Output describes the generated raster.
type Output struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Noise configures the procedural variation layer.
type Noise struct {
	Seed        int64   `yaml:"seed" json:"seed"`
	Frequency   float64 `yaml:"frequency" json:"frequency"`
	Amplitude   float64 `yaml:"amplitude" json:"amplitude"`
	Persistence float64 `yaml:"persistence" json:"persistence"`
	Octaves     int     `yaml:"octaves" json:"octaves"`
}

// TerrainRule modifies the running elevation of a tagged parcel.
// A rule with a Band marks a categorical zone; its pixels are clamped into the band.
type TerrainRule struct {
	Band       *Band   `yaml:"band,omitempty" json:"band,omitempty"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Band is a reserved sub-range expressed as fractions of the output range.
type Band struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Normalization selects how elevations become 8-bit intensities.
type Normalization struct {
	Policy         string  `yaml:"policy" json:"policy"`
	ReferenceMax   float64 `yaml:"reference_max" json:"reference_max"`
	ExclusiveBands bool    `yaml:"exclusive_bands" json:"exclusive_bands"`
}

// NamedBand is a reserved band together with the terrain it belongs to.
type NamedBand struct {
	Terrain geo.Terrain
	Band    Band
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Datasets: Datasets{
			Regions: "data/neighborhoods.geojson",
			Parcels: "data/lots.geojson",
		},
		Output: Output{
			Path:   "frontend/3d/assets/heightmap.png",
			Format: FormatPNG,
			Width:  512,
			Height: 512,
		},
		Padding: 0.02,
		Noise: Noise{
			Seed:        12345,
			Frequency:   0.05,
			Amplitude:   5,
			Octaves:     4,
			Persistence: 0.5,
		},
		Categories: map[string]float64{
			"residential": 3,
			"commercial":  5,
			"park":        2,
			"beach":       1.5,
			"mountain":    50,
			"volcanic":    35,
			"arctic":      20,
			"default":     1,
		},
		ParcelIncrement: 2,
		Terrain: map[string]TerrainRule{
			"lava": {Multiplier: 0.3, Band: &Band{Min: 0, Max: 0.08}},
			"ice":  {Multiplier: 1.25, Band: &Band{Min: 0.92, Max: 1}},
			"rock": {Multiplier: 1.1},
			"sand": {Multiplier: 0.8},
		},
		Normalization: Normalization{
			Policy:         PolicyDynamic,
			ReferenceMax:   60,
			ExclusiveBands: true,
		},
	}
}

// Load reads the YAML configuration file and overlays it onto Default.
// Map entries (categories, terrain) are merged key by key.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and table keys.
func (c *Config) Validate() error {
	if c.Datasets.Regions == "" || c.Datasets.Parcels == "" {
		return fmt.Errorf("datasets: both regions and parcels paths are required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output: path is required")
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output: size must be positive, got %dx%d", c.Output.Width, c.Output.Height)
	}
	switch c.Output.Format {
	case FormatPNG, FormatWebP, FormatTIFF, FormatBMP:
	default:
		return fmt.Errorf("output: unknown format %q", c.Output.Format)
	}

	if !finite(c.Padding) || c.Padding < 0 {
		return fmt.Errorf("padding must be a non-negative number, got %v", c.Padding)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	if c.Noise.Octaves < 1 {
		return fmt.Errorf("noise: octaves must be at least 1, got %d", c.Noise.Octaves)
	}
	if !finite(c.Noise.Persistence) || c.Noise.Persistence <= 0 {
		return fmt.Errorf("noise: persistence must be positive, got %v", c.Noise.Persistence)
	}
	if !finite(c.Noise.Frequency) || !finite(c.Noise.Amplitude) {
		return fmt.Errorf("noise: frequency and amplitude must be finite")
	}

	if _, ok := c.Categories[geo.CategoryDefault.String()]; !ok {
		return fmt.Errorf("categories: %q entry is required", geo.CategoryDefault)
	}
	for name, v := range c.Categories {
		if _, ok := geo.LookupCategory(name); !ok {
			return fmt.Errorf("categories: unknown category %q", name)
		}
		if !finite(v) {
			return fmt.Errorf("categories: %q elevation is not finite", name)
		}
	}
	if !finite(c.ParcelIncrement) {
		return fmt.Errorf("parcel_increment is not finite")
	}

	for name, rule := range c.Terrain {
		t, ok := geo.LookupTerrain(name)
		if !ok || t == geo.TerrainNone {
			return fmt.Errorf("terrain: unknown terrain %q", name)
		}
		if !finite(rule.Multiplier) {
			return fmt.Errorf("terrain: %q multiplier is not finite", name)
		}
		if b := rule.Band; b != nil {
			if !finite(b.Min) || !finite(b.Max) || b.Min < 0 || b.Max > 1 || b.Min > b.Max {
				return fmt.Errorf("terrain: %q band [%v, %v] must satisfy 0 <= min <= max <= 1", name, b.Min, b.Max)
			}
		}
	}

	switch c.Normalization.Policy {
	case PolicyDynamic, PolicyFixed:
	default:
		return fmt.Errorf("normalization: unknown policy %q", c.Normalization.Policy)
	}
	if !finite(c.Normalization.ReferenceMax) || c.Normalization.ReferenceMax <= 0 {
		return fmt.Errorf("normalization: reference_max must be positive, got %v", c.Normalization.ReferenceMax)
	}

	bands := c.Bands()
	for i := 1; i < len(bands); i++ {
		_, prevHi := bands[i-1].Band.Intensities()
		lo, _ := bands[i].Band.Intensities()
		if lo <= prevHi {
			return fmt.Errorf("terrain: bands of %q and %q overlap", bands[i-1].Terrain, bands[i].Terrain)
		}
	}
	if _, _, ok := c.OpenRange(); !ok {
		return fmt.Errorf("normalization: reserved bands leave no intensity for open terrain")
	}

	return nil
}

// Bands returns the reserved terrain bands ordered by their lower bound.
func (c *Config) Bands() []NamedBand {
	bands := make([]NamedBand, 0, len(c.Terrain))
	for name, rule := range c.Terrain {
		if rule.Band == nil {
			continue
		}
		t, _ := geo.LookupTerrain(name)
		bands = append(bands, NamedBand{Terrain: t, Band: *rule.Band})
	}

	sort.Slice(bands, func(i, j int) bool {
		if bands[i].Band.Min != bands[j].Band.Min {
			return bands[i].Band.Min < bands[j].Band.Min
		}
		return bands[i].Terrain < bands[j].Terrain
	})

	return bands
}

// OpenRange returns the intensity interval used by pixels outside any reserved band.
// Without exclusive bands it is the full 0..255 range; otherwise it is the
// widest run of intensities not claimed by a band (lowest run wins ties).
func (c *Config) OpenRange() (lo, hi uint8, ok bool) {
	if !c.Normalization.ExclusiveBands {
		return 0, 255, true
	}

	var taken [256]bool
	for _, nb := range c.Bands() {
		bl, bh := nb.Band.Intensities()
		for v := int(bl); v <= int(bh); v++ {
			taken[v] = true
		}
	}

	bestLo, bestLen := 0, 0
	runLo, runLen := 0, 0
	for v := 0; v < 256; v++ {
		if taken[v] {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runLo = v
		}
		runLen++
		if runLen > bestLen {
			bestLo, bestLen = runLo, runLen
		}
	}

	if bestLen == 0 {
		return 0, 0, false
	}

	return uint8(bestLo), uint8(bestLo + bestLen - 1), true
}

// Intensities maps the band fractions onto 8-bit intensities.
func (b Band) Intensities() (lo, hi uint8) {
	return uint8(math.Round(b.Min * 255)), uint8(math.Round(b.Max * 255))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
