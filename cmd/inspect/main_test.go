package main

import (
	"image"
	"image/color"
	"testing"

	"github.com/woozymasta/hmapgen/internal/processor"
)

func TestInspect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	for i, v := range []uint8{0, 20, 128, 250} {
		img.SetNRGBA(i, 0, color.NRGBA{R: v, G: v, B: v, A: 255})
	}

	meta := &processor.Metadata{Bands: []processor.BandInfo{
		{Terrain: "lava", IntensityRange: processor.IntensityRange{Min: 0, Max: 20}},
		{Terrain: "ice", IntensityRange: processor.IntensityRange{Min: 235, Max: 255}},
	}}

	r := inspect(img, meta)
	if r.Width != 4 || r.Height != 1 || r.Min != 0 || r.Max != 250 {
		t.Errorf("report = %+v", r)
	}
	if r.Mean != 99.5 {
		t.Errorf("mean = %v, want 99.5", r.Mean)
	}
	if !r.Grayscale || !r.Opaque {
		t.Errorf("grayscale = %v, opaque = %v", r.Grayscale, r.Opaque)
	}
	if r.Bands[0].Pixels != 2 || r.Bands[1].Pixels != 1 || r.Open != 1 {
		t.Errorf("lava %d, ice %d, open %d", r.Bands[0].Pixels, r.Bands[1].Pixels, r.Open)
	}
}

func TestInspectColour(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 40, B: 10, A: 128})

	r := inspect(img, nil)
	if r.Grayscale || r.Opaque {
		t.Errorf("grayscale = %v, opaque = %v, want both false", r.Grayscale, r.Opaque)
	}
	if len(r.Bands) != 0 || r.Open != 2 {
		t.Errorf("bands = %v, open = %d", r.Bands, r.Open)
	}
}
