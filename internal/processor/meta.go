package processor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/woozymasta/hmapgen/internal/geo"
)

// Metadata is written next to the raster so that consumers can read the
// band thresholds instead of hardcoding them.
type Metadata struct {
	Generated    time.Time       `json:"generated" yaml:"generated"`
	RunID        string          `json:"run_id" yaml:"run_id"`
	Format       string          `json:"format" yaml:"format"`
	Policy       string          `json:"policy" yaml:"policy"`
	Bands        []BandInfo      `json:"bands" yaml:"bands"`
	BoundingBox  geo.BoundingBox `json:"bbox" yaml:"bbox"`
	Elevation    ElevationRange  `json:"elevation" yaml:"elevation"`
	Open         IntensityRange  `json:"open" yaml:"open"`
	Seed         int64           `json:"seed" yaml:"seed"`
	ReferenceMax float64         `json:"reference_max" yaml:"reference_max"`
	Width        int             `json:"width" yaml:"width"`
	Height       int             `json:"height" yaml:"height"`
	Regions      int             `json:"regions" yaml:"regions"`
	Parcels      int             `json:"parcels" yaml:"parcels"`
	Skipped      int             `json:"skipped" yaml:"skipped"`
}

// ElevationRange is the observed extent of the elevation field.
type ElevationRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// IntensityRange is an inclusive range of 8-bit intensities.
type IntensityRange struct {
	Min uint8 `json:"min" yaml:"min"`
	Max uint8 `json:"max" yaml:"max"`
}

// BandInfo documents one reserved terrain band.
type BandInfo struct {
	Terrain        string `json:"terrain" yaml:"terrain"`
	IntensityRange `yaml:",inline"`
	Pixels         int    `json:"pixels" yaml:"pixels"`
}

// MetadataPath returns the sidecar path of a raster.
func MetadataPath(output string) string {
	return output + ".json"
}

// WriteMetadata atomically writes the sidecar file.
func WriteMetadata(path string, m *Metadata) error {
	err := writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodingFailure, path, err)
	}
	return nil
}

// ReadMetadata loads a sidecar file.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}
