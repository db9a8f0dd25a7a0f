package processor

import "math"

// Field is a row-major grid of elevation samples. Row 0 is north.
// Bands holds, per sample, the 1-based index of the reserved terrain band
// the sample was clamped into, or 0 for open terrain.
type Field struct {
	Samples []float64
	Bands   []uint8
	Width   int
	Height  int
}

// NewField allocates a zeroed width x height field.
func NewField(width, height int) *Field {
	n := width * height
	return &Field{
		Width:   width,
		Height:  height,
		Samples: make([]float64, n),
		Bands:   make([]uint8, n),
	}
}

// Index returns the offset of pixel (i, j).
func (f *Field) Index(i, j int) int {
	return j*f.Width + i
}

// At returns the sample at pixel (i, j).
func (f *Field) At(i, j int) float64 {
	return f.Samples[f.Index(i, j)]
}

// Set stores a sample and its band at pixel (i, j).
func (f *Field) Set(i, j int, e float64, band uint8) {
	idx := f.Index(i, j)
	f.Samples[idx] = e
	f.Bands[idx] = band
}

// Range returns the extreme samples. With openOnly set, banded samples are
// ignored; ok is false when no sample qualifies.
func (f *Field) Range(openOnly bool) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for idx, e := range f.Samples {
		if openOnly && f.Bands[idx] != 0 {
			continue
		}
		lo = min(lo, e)
		hi = max(hi, e)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
