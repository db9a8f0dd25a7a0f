package geo

import "github.com/paulmach/orb"

// Projector maps raster pixels to geographic points inside a bounding box.
//
// Pixel (i, j) is sampled at its centre:
//
//	lon = MinLon + (i + 0.5) * (MaxLon - MinLon) / width
//	lat = MaxLat - (j + 0.5) * (MaxLat - MinLat) / height
//
// Row 0 is the northern edge of the raster.
type Projector struct {
	bbox   BoundingBox
	width  int
	height int
	stepX  float64
	stepY  float64
}

// NewProjector returns a projector for a width x height raster.
func NewProjector(bbox BoundingBox, width, height int) Projector {
	return Projector{
		bbox:   bbox,
		width:  width,
		height: height,
		stepX:  bbox.Width() / float64(width),
		stepY:  bbox.Height() / float64(height),
	}
}

// Size returns the raster dimensions.
func (p Projector) Size() (width, height int) {
	return p.width, p.height
}

// Bounds returns the projected bounding box.
func (p Projector) Bounds() BoundingBox {
	return p.bbox
}

// Point returns the geographic centre of pixel (i, j).
func (p Projector) Point(i, j int) orb.Point {
	return orb.Point{
		p.bbox.MinLon + (float64(i)+0.5)*p.stepX,
		p.bbox.MaxLat - (float64(j)+0.5)*p.stepY,
	}
}

// Pixel is the inverse of Point, returning continuous pixel coordinates.
// Rounding the result recovers the integer indices of a pixel centre.
func (p Projector) Pixel(pt orb.Point) (x, y float64) {
	x = (pt.Lon()-p.bbox.MinLon)/p.stepX - 0.5
	y = (p.bbox.MaxLat-pt.Lat())/p.stepY - 0.5
	return x, y
}
