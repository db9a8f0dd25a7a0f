package geo

import "github.com/paulmach/orb"

// RingContains applies the even-odd rule: a ray cast from p toward +x
// crosses the ring an odd number of times when p is inside.
// Edges with equal endpoint latitudes are never counted, so points on
// horizontal edges or vertices cannot divide by zero. For an axis aligned
// square this makes the bottom and left edges inside, the top and right
// edges outside.
func RingContains(r orb.Ring, p orb.Point) bool {
	inside := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if a[1] == b[1] {
			continue
		}
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
			if p[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}

// PolygonContains accumulates ring parity over every ring, so holes
// (rings after the first) subtract from the outer boundary.
func PolygonContains(poly orb.Polygon, p orb.Point) bool {
	inside := false
	for _, r := range poly {
		if RingContains(r, p) {
			inside = !inside
		}
	}
	return inside
}

// MultiPolygonContains reports whether any member polygon contains p.
func MultiPolygonContains(mp orb.MultiPolygon, p orb.Point) bool {
	for _, poly := range mp {
		if PolygonContains(poly, p) {
			return true
		}
	}
	return false
}
