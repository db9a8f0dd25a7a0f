package processor

import (
	"github.com/woozymasta/hmapgen/internal/config"
	"github.com/woozymasta/hmapgen/internal/geo"
	"github.com/woozymasta/hmapgen/internal/noise"

	"github.com/paulmach/orb"
)

// band is a reserved terrain band resolved against the reference maximum.
type band struct {
	terrain geo.Terrain
	elevMin float64
	elevMax float64
	lo, hi  uint8 // output intensities
}

func (b band) clamp(e float64) float64 {
	return min(max(e, b.elevMin), b.elevMax)
}

type terrainRule struct {
	multiplier float64
	band       uint8 // 1-based index into Compositor.bands, 0 for magnitude-only rules
}

// Compositor combines region, parcel and noise contributions into a single
// elevation per pixel. It only reads its inputs and is safe for concurrent use.
type Compositor struct {
	regions    *geo.Collection
	parcels    *geo.Collection
	categories map[geo.Category]float64
	rules      map[geo.Terrain]terrainRule
	bands      []band
	fallback   float64
	increment  float64
	noise      noise.Params
}

// NewCompositor builds a compositor from validated configuration.
func NewCompositor(cfg *config.Config, regions, parcels *geo.Collection) *Compositor {
	c := &Compositor{
		regions:    regions,
		parcels:    parcels,
		categories: make(map[geo.Category]float64, len(cfg.Categories)),
		rules:      make(map[geo.Terrain]terrainRule, len(cfg.Terrain)),
		bands:      resolveBands(cfg),
		fallback:   cfg.Categories[geo.CategoryDefault.String()],
		increment:  cfg.ParcelIncrement,
		noise: noise.Params{
			Seed:        cfg.Noise.Seed,
			Frequency:   cfg.Noise.Frequency,
			Amplitude:   cfg.Noise.Amplitude,
			Persistence: cfg.Noise.Persistence,
			Octaves:     cfg.Noise.Octaves,
		},
	}

	for name, v := range cfg.Categories {
		if cat, ok := geo.LookupCategory(name); ok {
			c.categories[cat] = v
		}
	}

	for name, r := range cfg.Terrain {
		t, ok := geo.LookupTerrain(name)
		if !ok || t == geo.TerrainNone {
			continue
		}
		rule := terrainRule{multiplier: r.Multiplier}
		for i, b := range c.bands {
			if b.terrain == t {
				rule.band = uint8(i + 1)
			}
		}
		c.rules[t] = rule
	}

	return c
}

// resolveBands converts configured band fractions into elevation and
// intensity ranges, ordered by lower bound.
func resolveBands(cfg *config.Config) []band {
	ref := cfg.Normalization.ReferenceMax
	named := cfg.Bands()
	bands := make([]band, 0, len(named))
	for _, nb := range named {
		lo, hi := nb.Band.Intensities()
		bands = append(bands, band{
			terrain: nb.Terrain,
			elevMin: nb.Band.Min * ref,
			elevMax: nb.Band.Max * ref,
			lo:      lo,
			hi:      hi,
		})
	}
	return bands
}

// Elevation returns the elevation of pixel (i, j) located at p, together with
// the band it was clamped into.
func (c *Compositor) Elevation(p orb.Point, i, j int) (float64, uint8) {
	var e float64

	if f, ok := c.regions.Locate(p); ok {
		if f.Elevation != nil {
			e = *f.Elevation
		} else {
			e = c.categoryElevation(f.Category)
		}
	}

	var bandID uint8
	if f, ok := c.parcels.Locate(p); ok {
		if f.Elevation != nil {
			e += *f.Elevation
		} else {
			e += c.increment
		}

		if rule, ok := c.rules[f.Terrain]; ok {
			e *= rule.multiplier
			if rule.band != 0 {
				bandID = rule.band
				e = c.bands[bandID-1].clamp(e)
			}
		}
	}

	e += c.noise.Sample(float64(i), float64(j))

	// noise may only texture a band, never leave it
	if bandID != 0 {
		e = c.bands[bandID-1].clamp(e)
	}

	return e, bandID
}

func (c *Compositor) categoryElevation(cat geo.Category) float64 {
	if v, ok := c.categories[cat]; ok {
		return v
	}
	return c.fallback
}
