package geo

import (
	"strings"

	"github.com/paulmach/orb"
)

// Category is the zoning class of a region.
type Category uint8

// Known categories. CategoryDefault covers missing and unrecognized values.
const (
	CategoryDefault Category = iota
	CategoryResidential
	CategoryCommercial
	CategoryPark
	CategoryBeach
	CategoryMountain
	CategoryVolcanic
	CategoryArctic
)

var categoryNames = [...]string{
	CategoryDefault:     "default",
	CategoryResidential: "residential",
	CategoryCommercial:  "commercial",
	CategoryPark:        "park",
	CategoryBeach:       "beach",
	CategoryMountain:    "mountain",
	CategoryVolcanic:    "volcanic",
	CategoryArctic:      "arctic",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return categoryNames[CategoryDefault]
}

// LookupCategory resolves a category name, reporting whether it is known.
func LookupCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return CategoryDefault, false
}

// ParseCategory resolves a category name, falling back to CategoryDefault.
func ParseCategory(s string) Category {
	c, _ := LookupCategory(s)
	return c
}

// Terrain is the surface tag of a parcel.
type Terrain uint8

// Known terrain tags.
const (
	TerrainNone Terrain = iota
	TerrainRock
	TerrainLava
	TerrainIce
	TerrainSand
)

var terrainNames = [...]string{
	TerrainNone: "none",
	TerrainRock: "rock",
	TerrainLava: "lava",
	TerrainIce:  "ice",
	TerrainSand: "sand",
}

func (t Terrain) String() string {
	if int(t) < len(terrainNames) {
		return terrainNames[t]
	}
	return terrainNames[TerrainNone]
}

// MarshalText implements encoding.TextMarshaler.
func (t Terrain) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// LookupTerrain resolves a terrain name. An empty string is TerrainNone.
func LookupTerrain(s string) (Terrain, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TerrainNone, true
	}
	for i, name := range terrainNames {
		if name == s {
			return Terrain(i), true
		}
	}
	return TerrainNone, false
}

// Feature is one named polygonal entity of a dataset.
type Feature struct {
	Elevation *float64 // explicit override, nil when absent
	Name      string
	ID        string
	Geometry  orb.MultiPolygon
	Bound     orb.Bound
	Category  Category
	Terrain   Terrain
}

// Contains reports whether p lies inside the feature geometry.
func (f *Feature) Contains(p orb.Point) bool {
	if !f.Bound.Contains(p) {
		return false
	}
	return MultiPolygonContains(f.Geometry, p)
}

// Collection is an ordered set of features; earlier features take priority.
type Collection struct {
	Name     string
	Features []Feature
	Skipped  []*MalformedGeometryError
}

// Len returns the number of loaded features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Locate returns the first feature containing p.
func (c *Collection) Locate(p orb.Point) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Features {
		if c.Features[i].Contains(p) {
			return &c.Features[i], true
		}
	}
	return nil, false
}

// FindByID returns the first feature with the given id.
func (c *Collection) FindByID(id string) (*Feature, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	for i := range c.Features {
		if c.Features[i].ID == id {
			return &c.Features[i], true
		}
	}
	return nil, false
}
