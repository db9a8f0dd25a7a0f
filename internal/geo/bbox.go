package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// BoundingBox is the geographic extent covered by the raster.
type BoundingBox struct {
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Width returns the longitude span.
func (b BoundingBox) Width() float64 { return b.MaxLon - b.MinLon }

// Height returns the latitude span.
func (b BoundingBox) Height() float64 { return b.MaxLat - b.MinLat }

// Valid reports whether both spans are strictly positive and finite.
func (b BoundingBox) Valid() bool {
	w, h := b.Width(), b.Height()
	return finite(w) && finite(h) && w > 0 && h > 0
}

// Pad grows every side by fraction times the span of its axis.
func (b BoundingBox) Pad(fraction float64) BoundingBox {
	dx := b.Width() * fraction
	dy := b.Height() * fraction
	return BoundingBox{
		MinLon: b.MinLon - dx,
		MaxLon: b.MaxLon + dx,
		MinLat: b.MinLat - dy,
		MaxLat: b.MaxLat + dy,
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.6f, %.6f] - [%.6f, %.6f]", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ResolveBounds returns the padded extent of every feature in the collections.
func ResolveBounds(padding float64, collections ...*Collection) (BoundingBox, error) {
	var (
		bound orb.Bound
		found bool
	)

	for _, c := range collections {
		if c == nil {
			continue
		}
		for i := range c.Features {
			if !found {
				bound = c.Features[i].Bound
				found = true
				continue
			}
			bound = bound.Union(c.Features[i].Bound)
		}
	}

	if !found {
		return BoundingBox{}, fmt.Errorf("%w: no features to cover", ErrDegenerateBoundingBox)
	}

	bbox := BoundingBox{
		MinLon: bound.Min.Lon(),
		MaxLon: bound.Max.Lon(),
		MinLat: bound.Min.Lat(),
		MaxLat: bound.Max.Lat(),
	}.Pad(padding)

	if !bbox.Valid() {
		return BoundingBox{}, fmt.Errorf("%w: %s", ErrDegenerateBoundingBox, bbox)
	}

	return bbox, nil
}
