package processor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/woozymasta/hmapgen/internal/config"
)

// Normalizer turns an elevation field into 8-bit intensities.
//
// Open samples follow the configured policy inside the open intensity range:
// dynamic maps the observed minimum and maximum onto its ends, fixed maps
// 0..ReferenceMax onto it. Banded samples are always encoded against
// ReferenceMax and clamped into the intensities reserved for their band.
type Normalizer struct {
	policy string
	refMax float64
	openLo uint8
	openHi uint8
	bands  []band
}

// Stats summarizes a normalization pass.
type Stats struct {
	BandPixels []int // per band, same order as the configured bands
	MinElev    float64
	MaxElev    float64
	OpenPixels int
	Constant   bool // open samples were all equal under the dynamic policy
}

// NewNormalizer builds a normalizer from validated configuration.
func NewNormalizer(cfg *config.Config) (*Normalizer, error) {
	lo, hi, ok := cfg.OpenRange()
	if !ok {
		return nil, fmt.Errorf("reserved bands leave no intensity for open terrain")
	}

	return &Normalizer{
		policy: cfg.Normalization.Policy,
		refMax: cfg.Normalization.ReferenceMax,
		openLo: lo,
		openHi: hi,
		bands:  resolveBands(cfg),
	}, nil
}

// Midpoint is the intensity used for a constant field under the dynamic policy.
func (n *Normalizer) Midpoint() uint8 {
	return uint8(int(n.openLo) + (int(n.openHi)-int(n.openLo)+1)/2)
}

// OpenRange returns the intensities available to open samples.
func (n *Normalizer) OpenRange() (lo, hi uint8) {
	return n.openLo, n.openHi
}

// Intensities maps every sample of the field. The dynamic policy scans the
// whole field first, so it must only be called once the field is complete.
func (n *Normalizer) Intensities(f *Field) ([]uint8, Stats) {
	stats := Stats{BandPixels: make([]int, len(n.bands))}
	stats.MinElev, stats.MaxElev, _ = f.Range(false)

	openMin, openMax, hasOpen := f.Range(true)
	stats.Constant = n.policy == config.PolicyDynamic && hasOpen && openMin == openMax

	span := float64(n.openHi) - float64(n.openLo)
	out := make([]uint8, len(f.Samples))

	for idx, e := range f.Samples {
		if id := f.Bands[idx]; id != 0 {
			b := n.bands[id-1]
			v := toByte(math.Round(clamp01(e/n.refMax) * 255))
			out[idx] = min(max(v, b.lo), b.hi)
			stats.BandPixels[id-1]++
			continue
		}

		stats.OpenPixels++
		switch {
		case n.policy == config.PolicyFixed:
			out[idx] = n.openLo + toByte(math.Round(clamp01(e/n.refMax)*span))
		case stats.Constant:
			out[idx] = n.Midpoint()
		default:
			out[idx] = n.openLo + toByte(math.Round((e-openMin)/(openMax-openMin)*span))
		}
	}

	return out, stats
}

// Normalize returns the field as an opaque grayscale image with the
// intensity replicated across the colour channels.
func (n *Normalizer) Normalize(f *Field) (*image.NRGBA, Stats) {
	values, stats := n.Intensities(f)

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for idx, v := range values {
		img.SetNRGBA(idx%f.Width, idx/f.Width, color.NRGBA{R: v, G: v, B: v, A: 255})
	}

	return img, stats
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func toByte(v float64) uint8 {
	return uint8(min(max(v, 0), 255))
}
