// Package geo handles geographic data structures, dataset loading and point queries.
package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"
)

// rawCollection keeps features undecoded so that one bad feature
// does not reject the whole dataset.
type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// rawHeader is the minimal part of a feature needed before full decoding.
type rawHeader struct {
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// LoadCollection reads a GeoJSON FeatureCollection from disk.
// A missing file yields ErrMissingInputFile; features with unusable geometry
// are skipped and recorded in Collection.Skipped.
func LoadCollection(name, path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s dataset %s", ErrMissingInputFile, name, path)
		}
		return nil, fmt.Errorf("read %s dataset: %w", name, err)
	}

	c, err := ParseCollection(name, data)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("dataset", name).
		Str("path", path).
		Int("features", len(c.Features)).
		Int("skipped", len(c.Skipped)).
		Msg("Dataset loaded")

	return c, nil
}

// ParseCollection decodes a GeoJSON FeatureCollection.
func ParseCollection(name string, data []byte) (*Collection, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDataset, name, err)
	}
	if raw.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: %s: expected FeatureCollection, got %q", ErrInvalidDataset, name, raw.Type)
	}

	c := &Collection{
		Name:     name,
		Features: make([]Feature, 0, len(raw.Features)),
	}

	for i, msg := range raw.Features {
		f, reason := decodeFeature(msg)
		if reason != "" {
			mge := &MalformedGeometryError{
				Collection: name,
				Index:      i,
				Name:       f.Name,
				Reason:     reason,
			}
			log.Warn().Err(mge).Str("dataset", name).Msg("Skipping feature")
			c.Skipped = append(c.Skipped, mge)
			continue
		}
		c.Features = append(c.Features, f)
	}

	return c, nil
}

// decodeFeature converts one raw feature. A non-empty reason means the
// feature must be skipped; the returned Feature then carries only its name.
func decodeFeature(msg json.RawMessage) (Feature, string) {
	var hdr rawHeader
	if err := json.Unmarshal(msg, &hdr); err != nil {
		return Feature{}, "invalid feature: " + err.Error()
	}

	f := Feature{
		Name: stringProp(hdr.Properties, "name"),
		ID:   idString(hdr.Properties["id"]),
	}
	if f.ID == "" {
		f.ID = idString(hdr.ID)
	}

	if len(hdr.Geometry) == 0 || bytes.Equal(bytes.TrimSpace(hdr.Geometry), []byte("null")) {
		return f, "missing geometry"
	}

	gf, err := geojson.UnmarshalFeature(msg)
	if err != nil {
		return f, "undecodable geometry: " + err.Error()
	}
	if gf.Geometry == nil {
		return f, "missing geometry"
	}

	switch g := gf.Geometry.(type) {
	case orb.Polygon:
		f.Geometry = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		f.Geometry = g
	default:
		return f, "unsupported geometry type " + gf.Geometry.GeoJSONType()
	}

	if reason := validateGeometry(f.Geometry); reason != "" {
		return f, reason
	}
	f.Bound = f.Geometry.Bound()

	f.Category = ParseCategory(stringProp(hdr.Properties, "category"))

	if tag := stringProp(hdr.Properties, "terrain"); tag != "" {
		t, ok := LookupTerrain(tag)
		if !ok {
			log.Debug().Str("feature", f.Name).Str("terrain", tag).Msg("Unknown terrain tag ignored")
		}
		f.Terrain = t
	}

	if v, ok := hdr.Properties["elevation"]; ok && v != nil {
		if e, ok := v.(float64); ok && !math.IsNaN(e) && !math.IsInf(e, 0) {
			f.Elevation = &e
		} else {
			log.Warn().Str("feature", f.Name).Interface("elevation", v).Msg("Ignoring non-numeric elevation")
		}
	}

	return f, ""
}

func validateGeometry(mp orb.MultiPolygon) string {
	if len(mp) == 0 {
		return "empty multipolygon"
	}

	for pi, poly := range mp {
		if len(poly) == 0 {
			return fmt.Sprintf("polygon %d has no rings", pi)
		}
		for ri, ring := range poly {
			if len(ring) < 4 {
				return fmt.Sprintf("polygon %d ring %d has %d positions, need at least 4", pi, ri, len(ring))
			}
			if !ring.Closed() {
				return fmt.Sprintf("polygon %d ring %d is not closed", pi, ri)
			}
			for _, pt := range ring {
				if !finite(pt[0]) || !finite(pt[1]) {
					return fmt.Sprintf("polygon %d ring %d has a non-finite position", pi, ri)
				}
			}
		}
		if planar.Area(poly[0]) == 0 {
			return fmt.Sprintf("polygon %d outer ring has zero area", pi)
		}
	}

	return ""
}

// FindRawFeature returns the undecoded feature whose id matches,
// regardless of its geometry. Used to serve single parcels verbatim.
func FindRawFeature(data []byte, id string) (json.RawMessage, bool, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	for _, msg := range raw.Features {
		var hdr rawHeader
		if err := json.Unmarshal(msg, &hdr); err != nil {
			continue
		}
		fid := idString(hdr.Properties["id"])
		if fid == "" {
			fid = idString(hdr.ID)
		}
		if fid != "" && fid == id {
			return msg, true, nil
		}
	}

	return nil, false, nil
}

func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
