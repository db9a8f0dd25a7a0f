package geo

import (
	"errors"
	"fmt"
)

// Errors returned while loading datasets and resolving the raster extent.
var (
	ErrMissingInputFile      = errors.New("missing input file")
	ErrInvalidDataset        = errors.New("invalid dataset")
	ErrMalformedGeometry     = errors.New("malformed geometry")
	ErrDegenerateBoundingBox = errors.New("degenerate bounding box")
)

// MalformedGeometryError describes a feature that was skipped during loading.
type MalformedGeometryError struct {
	Collection string
	Name       string
	Reason     string
	Index      int
}

func (e *MalformedGeometryError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: feature #%d (%s): %s", e.Collection, e.Index, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s: feature #%d: %s", e.Collection, e.Index, e.Reason)
}

// Unwrap makes the error match ErrMalformedGeometry.
func (e *MalformedGeometryError) Unwrap() error {
	return ErrMalformedGeometry
}
