// Package noise provides deterministic, seeded coherent value noise.
//
// Every value is a pure function of its arguments: lattice values come from
// an integer hash of (seed, cell), never from cached tables, so the
// functions are safe for concurrent use.
package noise

import "math"

// octaveSeedStep decorrelates successive octaves.
const octaveSeedStep = 1013

// Params configures a scaled multi-octave noise layer.
type Params struct {
	Seed        int64
	Frequency   float64 // base frequency applied to input coordinates
	Amplitude   float64
	Persistence float64
	Octaves     int
}

// Sample returns Amplitude * Octave(Seed, x*Frequency, y*Frequency, ...).
func (p Params) Sample(x, y float64) float64 {
	if p.Amplitude == 0 {
		return 0
	}
	return p.Amplitude * Octave(p.Seed, x*p.Frequency, y*p.Frequency, p.Octaves, p.Persistence)
}

// Value returns single-octave value noise in [0, 1].
func Value(seed int64, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)

	u := smootherstep(x - x0)
	v := smootherstep(y - y0)

	ix, iy := int64(x0), int64(y0)
	v00 := lattice(seed, ix, iy)
	v10 := lattice(seed, ix+1, iy)
	v01 := lattice(seed, ix, iy+1)
	v11 := lattice(seed, ix+1, iy+1)

	return lerp(lerp(v00, v10, u), lerp(v01, v11, u), v)
}

// Octave sums octaves of Value at doubling frequency, weighting octave k by
// persistence^k, and divides by the total weight. The result is in [0, 1]
// for any octave count; counts below one are treated as one.
func Octave(seed int64, x, y float64, octaves int, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}

	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for k := range octaves {
		sum += amplitude * Value(seed+int64(k)*octaveSeedStep, x*frequency, y*frequency)
		norm += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if norm <= 0 || math.IsNaN(sum) {
		return 0
	}

	return clamp01(sum / norm)
}

// smootherstep is the C2 continuous fade curve 6t^5 - 15t^4 + 10t^3.
func smootherstep(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// lattice maps a cell to a value in [0, 1].
func lattice(seed, x, y int64) float64 {
	return float64(hash(seed, x, y)>>11) / (1 << 53)
}

// hash is a SplitMix64 finalizer over the combined cell coordinates.
func hash(seed, x, y int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 ^ uint64(y)*0xC2B2AE3D27D4EB4F ^ uint64(seed)*0x165667B19E3779F9
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
