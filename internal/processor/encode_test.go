package processor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/hmapgen/internal/config"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

func grayRamp(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			v := uint8((j*w + i) * 255 / (w*h - 1))
			img.SetNRGBA(i, j, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestEncodeRoundTrip(t *testing.T) {
	src := grayRamp(16, 8)

	decoders := map[string]func(io.Reader) (image.Image, error){
		config.FormatPNG:  png.Decode,
		config.FormatTIFF: tiff.Decode,
		config.FormatBMP:  bmp.Decode,
		config.FormatWebP: webp.Decode,
	}

	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, src, format); err != nil {
				t.Fatalf("Encode: %v", err)
			}

			img, err := decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
				t.Fatalf("bounds = %v", img.Bounds())
			}

			for j := 0; j < 8; j++ {
				for i := 0; i < 16; i++ {
					r, g, b, a := img.At(img.Bounds().Min.X+i, img.Bounds().Min.Y+j).RGBA()
					want := src.NRGBAAt(i, j).R
					if uint8(r>>8) != want || uint8(g>>8) != want || uint8(b>>8) != want || uint8(a>>8) != 255 {
						t.Fatalf("pixel (%d, %d) = %d %d %d %d, want %d", i, j, r>>8, g>>8, b>>8, a>>8, want)
					}
				}
			}
		})
	}
}

func TestEncodeUnsupported(t *testing.T) {
	if err := Encode(io.Discard, grayRamp(2, 2), "gif"); err == nil {
		t.Error("Encode(gif) should fail")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		config.FormatPNG:  "image/png",
		config.FormatWebP: "image/webp",
		config.FormatTIFF: "image/tiff",
		config.FormatBMP:  "image/bmp",
		"":                "image/png",
	}
	for format, want := range tests {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestWriteImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "heightmap.png")

	if err := WriteImage(path, grayRamp(4, 4), config.FormatPNG); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteImageFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heightmap.png")
	previous := []byte("previous heightmap")
	if err := os.WriteFile(path, previous, 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteImage(path, grayRamp(4, 4), "gif")
	if !errors.Is(err, ErrEncodingFailure) {
		t.Fatalf("err = %v, want ErrEncodingFailure", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, previous) {
		t.Error("previous file was modified by a failed write")
	}
	assertNoTempFiles(t, dir)
}

func TestWriteImageIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "taken")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}

	err := WriteImage(target, grayRamp(4, 4), config.FormatPNG)
	if !errors.Is(err, ErrEncodingFailure) {
		t.Fatalf("err = %v, want ErrEncodingFailure", err)
	}

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Error("target directory was replaced")
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	path := MetadataPath(filepath.Join(t.TempDir(), "heightmap.png"))
	if !strings.HasSuffix(path, "heightmap.png.json") {
		t.Fatalf("MetadataPath = %s", path)
	}

	meta := &Metadata{
		RunID:  "run",
		Format: config.FormatPNG,
		Policy: config.PolicyDynamic,
		Width:  4,
		Height: 2,
		Open:   IntensityRange{Min: 21, Max: 234},
		Bands: []BandInfo{
			{Terrain: "lava", IntensityRange: IntensityRange{Min: 0, Max: 20}, Pixels: 3},
		},
	}
	if err := WriteMetadata(path, meta); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"min": 0`)) || !bytes.Contains(data, []byte(`"terrain": "lava"`)) {
		t.Errorf("band thresholds not flattened into the sidecar:\n%s", data)
	}

	got, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if got.Open != meta.Open || len(got.Bands) != 1 || got.Bands[0] != meta.Bands[0] {
		t.Errorf("ReadMetadata = %+v", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "lots.geojson")

	for _, content := range []string{`{"a":1}`, `{"b":2}`} {
		if err := WriteFile(path, []byte(content)); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != content {
			t.Errorf("content = %s, want %s", data, content)
		}
	}
	assertNoTempFiles(t, filepath.Dir(path))
}
