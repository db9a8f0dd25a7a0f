// Package processor turns loaded datasets into an encoded heightmap raster.
package processor

import (
	"fmt"
	"image"
	"time"

	"github.com/woozymasta/hmapgen/internal/config"
	"github.com/woozymasta/hmapgen/internal/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Result describes a published heightmap.
type Result struct {
	Metadata *Metadata
	Path     string
	MetaPath string
	Duration time.Duration
}

// RunOptions tunes a ProcessHeightmap call.
type RunOptions struct {
	Progress ProgressFunc
	RunID    string // generated when empty
}

// Datasets are the two inputs of a run.
type Datasets struct {
	Regions *geo.Collection
	Parcels *geo.Collection
}

// LoadDatasets reads both datasets named in the configuration.
func LoadDatasets(cfg *config.Config) (*Datasets, error) {
	regions, err := geo.LoadCollection("regions", cfg.Datasets.Regions)
	if err != nil {
		return nil, err
	}

	parcels, err := geo.LoadCollection("parcels", cfg.Datasets.Parcels)
	if err != nil {
		return nil, err
	}

	return &Datasets{Regions: regions, Parcels: parcels}, nil
}

// Render computes the heightmap image for already loaded datasets.
// It does not touch the filesystem.
func Render(cfg *config.Config, ds *Datasets, progress ProgressFunc) (*image.NRGBA, *Metadata, error) {
	bbox, err := geo.ResolveBounds(cfg.Padding, ds.Regions, ds.Parcels)
	if err != nil {
		return nil, nil, err
	}

	norm, err := NewNormalizer(cfg)
	if err != nil {
		return nil, nil, err
	}

	proj := geo.NewProjector(bbox, cfg.Output.Width, cfg.Output.Height)
	comp := NewCompositor(cfg, ds.Regions, ds.Parcels)

	field, err := Generate(comp, proj, GenerateOptions{
		Workers:  cfg.Workers,
		Progress: progress,
	})
	if err != nil {
		return nil, nil, err
	}

	img, stats := norm.Normalize(field)

	openLo, openHi := norm.OpenRange()
	meta := &Metadata{
		Width:        cfg.Output.Width,
		Height:       cfg.Output.Height,
		Format:       cfg.Output.Format,
		Policy:       cfg.Normalization.Policy,
		Seed:         cfg.Noise.Seed,
		ReferenceMax: cfg.Normalization.ReferenceMax,
		BoundingBox:  bbox,
		Elevation:    ElevationRange{Min: stats.MinElev, Max: stats.MaxElev},
		Open:         IntensityRange{Min: openLo, Max: openHi},
		Regions:      ds.Regions.Len(),
		Parcels:      ds.Parcels.Len(),
		Skipped:      len(ds.Regions.Skipped) + len(ds.Parcels.Skipped),
		Bands:        make([]BandInfo, 0, len(norm.bands)),
	}
	for i, b := range norm.bands {
		meta.Bands = append(meta.Bands, BandInfo{
			Terrain:        b.terrain.String(),
			IntensityRange: IntensityRange{Min: b.lo, Max: b.hi},
			Pixels:         stats.BandPixels[i],
		})
	}

	if stats.Constant {
		log.Warn().
			Float64("elevation", stats.MinElev).
			Uint8("intensity", norm.Midpoint()).
			Msg("Elevation field is constant, using midpoint intensity")
	}

	return img, meta, nil
}

// ProcessHeightmap runs the whole pipeline: load datasets, render, and
// atomically publish the raster and its metadata sidecar.
func ProcessHeightmap(cfg *config.Config, opts RunOptions) (*Result, error) {
	start := time.Now()
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	log.Info().
		Str("run", runID).
		Int("width", cfg.Output.Width).
		Int("height", cfg.Output.Height).
		Int64("seed", cfg.Noise.Seed).
		Str("policy", cfg.Normalization.Policy).
		Msg("Starting heightmap generation")

	ds, err := LoadDatasets(cfg)
	if err != nil {
		return nil, err
	}

	img, meta, err := Render(cfg, ds, opts.Progress)
	if err != nil {
		return nil, err
	}
	meta.RunID = runID
	meta.Generated = start.UTC()

	log.Info().
		Str("run", runID).
		Str("bbox", meta.BoundingBox.String()).
		Float64("min_elevation", meta.Elevation.Min).
		Float64("max_elevation", meta.Elevation.Max).
		Msg("Elevation field computed")

	if err := WriteImage(cfg.Output.Path, img, cfg.Output.Format); err != nil {
		return nil, err
	}

	metaPath := MetadataPath(cfg.Output.Path)
	if err := WriteMetadata(metaPath, meta); err != nil {
		return nil, fmt.Errorf("heightmap written but metadata failed: %w", err)
	}

	res := &Result{
		Metadata: meta,
		Path:     cfg.Output.Path,
		MetaPath: metaPath,
		Duration: time.Since(start),
	}

	log.Info().
		Str("run", runID).
		Str("path", res.Path).
		Str("format", cfg.Output.Format).
		Dur("duration", res.Duration).
		Msg("Heightmap published")

	return res, nil
}
