package processor

import (
	"testing"

	"github.com/woozymasta/hmapgen/internal/config"
)

func fieldOf(samples []float64, bands []uint8) *Field {
	f := NewField(len(samples), 1)
	copy(f.Samples, samples)
	if bands != nil {
		copy(f.Bands, bands)
	}
	return f
}

func newNormalizer(t *testing.T, policy string, exclusive bool) *Normalizer {
	t.Helper()
	cfg := config.Default()
	cfg.Normalization.Policy = policy
	cfg.Normalization.ExclusiveBands = exclusive
	n, err := NewNormalizer(cfg)
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	return n
}

func TestNormalizeDynamic(t *testing.T) {
	tests := []struct {
		name      string
		exclusive bool
		samples   []float64
		want      []uint8
	}{
		{"full range", false, []float64{0, 5, 10}, []uint8{0, 128, 255}},
		{"negative elevations", false, []float64{-10, 0, 10}, []uint8{0, 128, 255}},
		{"open range", true, []float64{0, 5, 10}, []uint8{21, 128, 234}},
		{"constant full range", false, []float64{7, 7, 7}, []uint8{128, 128, 128}},
		{"constant open range", true, []float64{50, 50}, []uint8{128, 128}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNormalizer(t, config.PolicyDynamic, tt.exclusive)
			got, _ := n.Intensities(fieldOf(tt.samples, nil))
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("intensities = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestNormalizeDynamicHitsBothEnds(t *testing.T) {
	n := newNormalizer(t, config.PolicyDynamic, false)
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i*i) * 0.37
	}

	got, stats := n.Intensities(fieldOf(samples, nil))
	lo, hi := uint8(255), uint8(0)
	for _, v := range got {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo != 0 || hi != 255 {
		t.Errorf("intensity range = %d..%d, want 0..255", lo, hi)
	}
	if stats.Constant || stats.OpenPixels != 100 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNormalizeFixed(t *testing.T) {
	n := newNormalizer(t, config.PolicyFixed, false)
	got, stats := n.Intensities(fieldOf([]float64{-5, 0, 30, 60, 120}, nil))
	want := []uint8{0, 0, 128, 255, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("intensities = %v, want %v", got, want)
		}
	}
	if stats.Constant {
		t.Error("fixed policy never reports a constant field")
	}

	n = newNormalizer(t, config.PolicyFixed, true)
	got, _ = n.Intensities(fieldOf([]float64{0, 60}, nil))
	if got[0] != 21 || got[1] != 234 {
		t.Errorf("exclusive fixed intensities = %v, want [21 234]", got)
	}
}

func TestNormalizeBands(t *testing.T) {
	for _, policy := range []string{config.PolicyDynamic, config.PolicyFixed} {
		t.Run(policy, func(t *testing.T) {
			n := newNormalizer(t, policy, true)
			samples := []float64{1.5, 10, 0, 55.2, 60, 3, 30}
			bands := []uint8{1, 1, 1, 2, 2, 0, 0}

			got, stats := n.Intensities(fieldOf(samples, bands))

			want := map[int]uint8{0: 6, 1: 20, 2: 0, 3: 235, 4: 255}
			for idx, v := range want {
				if got[idx] != v {
					t.Errorf("sample %d = %d, want %d", idx, got[idx], v)
				}
			}
			for idx := 5; idx < len(samples); idx++ {
				if got[idx] < 21 || got[idx] > 234 {
					t.Errorf("open sample %d = %d, want within 21..234", idx, got[idx])
				}
			}

			if stats.BandPixels[0] != 3 || stats.BandPixels[1] != 2 || stats.OpenPixels != 2 {
				t.Errorf("stats = %+v", stats)
			}
			if stats.MinElev != 0 || stats.MaxElev != 60 {
				t.Errorf("elevation range = %v..%v, want 0..60", stats.MinElev, stats.MaxElev)
			}
		})
	}
}

func TestNormalizeBandsExcludedFromRange(t *testing.T) {
	n := newNormalizer(t, config.PolicyDynamic, true)
	got, _ := n.Intensities(fieldOf([]float64{2, 100, 4, -50}, []uint8{0, 2, 0, 1}))

	if got[0] != 21 || got[2] != 234 {
		t.Errorf("open samples = %d, %d, want 21, 234", got[0], got[2])
	}
	if got[1] != 255 || got[3] != 0 {
		t.Errorf("banded samples = %d, %d, want 255, 0", got[1], got[3])
	}
}

func TestNormalizeImage(t *testing.T) {
	n := newNormalizer(t, config.PolicyDynamic, false)
	f := NewField(3, 2)
	for idx := range f.Samples {
		f.Samples[idx] = float64(idx)
	}

	img, _ := n.Normalize(f)
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("image bounds = %v", img.Bounds())
	}

	for j := 0; j < 2; j++ {
		for i := 0; i < 3; i++ {
			c := img.NRGBAAt(i, j)
			if c.R != c.G || c.G != c.B || c.A != 255 {
				t.Errorf("pixel (%d, %d) = %v, want opaque gray", i, j, c)
			}
		}
	}
	if img.NRGBAAt(0, 0).R != 0 || img.NRGBAAt(2, 1).R != 255 {
		t.Errorf("corners = %v, %v", img.NRGBAAt(0, 0), img.NRGBAAt(2, 1))
	}
}
