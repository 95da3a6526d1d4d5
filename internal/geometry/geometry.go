// Package geometry is the planar geometry kit (component A): rectangle
// construction, boolean ops, centroids, buffering, affine transforms and
// azimuth, all over a single planar metric CRS so results are deterministic
// under identical floating-point inputs.
//
// Boolean algebra (union/intersection/difference/area) is delegated to
// github.com/ctessum/geom/op, the same library the wider pack's
// spatialmodel/inmap uses for grid-cell/emissions polygon algebra. Buffering,
// rotation, translation and convex hull have no equivalent in the retrieved
// pack and are implemented directly here; the Crofton-perimeter thinness
// ratio is implemented in internal/roofpoly (see DESIGN.md).
package geometry

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/op"
)

// Rect builds an axis-aligned rectangle polygon with its lower-left corner
// at (x, y) and the given width and height.
func Rect(x, y, w, h float64) geom.Polygon {
	return geom.Polygon{{
		{X: x, Y: y},
		{X: x + w, Y: y},
		{X: x + w, Y: y + h},
		{X: x, Y: y + h},
		{X: x, Y: y},
	}}
}

// Area returns the unsigned area of a polygon, summing ring areas (so holes
// expressed as reverse-wound inner rings subtract correctly).
func Area(p geom.Polygon) float64 {
	a := 0.0
	for _, ring := range p {
		a += signedRingArea(ring)
	}
	if a < 0 {
		a = -a
	}
	return a
}

func signedRingArea(ring []geom.Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// Centroid returns the area-weighted centroid of a polygon's outer ring.
func Centroid(p geom.Polygon) geom.Point {
	if len(p) == 0 || len(p[0]) < 3 {
		return geom.Point{}
	}
	ring := p[0]
	var cx, cy, a float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
		cx += (ring[i].X + ring[j].X) * cross
		cy += (ring[i].Y + ring[j].Y) * cross
		a += cross
	}
	a /= 2
	if a == 0 {
		// Degenerate polygon; fall back to the vertex average.
		for _, pt := range ring {
			cx += pt.X
			cy += pt.Y
		}
		return geom.Point{X: cx / float64(n), Y: cy / float64(n)}
	}
	return geom.Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Union returns the unary union of a set of polygons.
func Union(polys ...geom.Polygon) geom.T {
	if len(polys) == 0 {
		return geom.Polygon{}
	}
	var acc geom.T = polys[0]
	for _, p := range polys[1:] {
		u, err := op.Construct(acc, p, op.UNION)
		if err != nil || u == nil {
			continue
		}
		acc = u
	}
	return acc
}

// Intersection returns a ∩ b, or nil if they don't overlap.
func Intersection(a, b geom.T) geom.T {
	r, err := op.Construct(a, b, op.INTERSECTION)
	if err != nil {
		return nil
	}
	return r
}

// Difference returns a \ b.
func Difference(a, b geom.T) geom.T {
	r, err := op.Construct(a, b, op.DIFFERENCE)
	if err != nil {
		return a
	}
	return r
}

// AreaOf returns the area of any geom.T that op.Area understands, treating
// nil or an unrecognised type as zero area.
func AreaOf(g geom.T) float64 {
	if g == nil {
		return 0
	}
	defer func() { recover() }()
	return op.Area(g)
}

// LargestPolygon extracts the polygon of greatest area from a geom.T that
// may be a Polygon, MultiPolygon, or nil (e.g. the result of a boolean op
// that fragmented a shape). Returns ok=false if g contains no polygon.
func LargestPolygon(g geom.T) (geom.Polygon, bool) {
	switch v := g.(type) {
	case geom.Polygon:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	case geom.MultiPolygon:
		best := -1
		bestArea := -1.0
		for i, p := range v {
			a := Area(p)
			if a > bestArea {
				bestArea, best = a, i
			}
		}
		if best < 0 {
			return nil, false
		}
		return v[best], true
	default:
		return nil, false
	}
}

// Translate moves every point of p by (dx, dy).
func Translate(p geom.Polygon, dx, dy float64) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, ring := range p {
		nr := make([]geom.Point, len(ring))
		for j, pt := range ring {
			nr[j] = geom.Point{X: pt.X + dx, Y: pt.Y + dy}
		}
		out[i] = nr
	}
	return out
}

// RotateAbout rotates p by angleDeg degrees clockwise (compass convention)
// about the given centre point.
func RotateAbout(p geom.Polygon, centre geom.Point, angleDeg float64) geom.Polygon {
	// Compass-clockwise rotation by theta is the same matrix as a
	// standard mathematical rotation by -theta.
	rad := -angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	out := make(geom.Polygon, len(p))
	for i, ring := range p {
		nr := make([]geom.Point, len(ring))
		for j, pt := range ring {
			dx, dy := pt.X-centre.X, pt.Y-centre.Y
			nr[j] = geom.Point{
				X: centre.X + dx*cos-dy*sin,
				Y: centre.Y + dx*sin+dy*cos,
			}
		}
		out[i] = nr
	}
	return out
}

// Azimuth returns the compass bearing (degrees clockwise from north, the
// +y axis) of the segment from a to b, normalised to [0, 360).
func Azimuth(ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	deg := math.Atan2(dx, dy) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Buffer grows (or, for a negative distance, shrinks) p by the given
// distance using mitred joins, approximating the corner of each edge pair
// by extending both edges to their intersection rather than rounding it.
// A ring that a negative buffer erodes away entirely comes out turned
// inside out; such a ring is dropped, so a fully eroded polygon has no
// rings and zero area.
func Buffer(p geom.Polygon, distance float64) geom.Polygon {
	out := make(geom.Polygon, 0, len(p))
	for _, ring := range p {
		nr := bufferRing(ring, distance)
		if len(nr) >= 4 {
			out = append(out, nr)
		}
	}
	return out
}

func bufferRing(ring []geom.Point, d float64) []geom.Point {
	n := len(ring)
	if n < 4 { // first==last, so a triangle has 4 entries
		return nil
	}
	pts := ring[:n-1] // drop the closing duplicate
	m := len(pts)
	if m < 3 {
		return nil
	}
	// Ensure counter-clockwise winding so "outward" normals point left of
	// travel for a positive (growing) buffer.
	if signedRingArea(ring) < 0 {
		rev := make([]geom.Point, m)
		for i, p := range pts {
			rev[m-1-i] = p
		}
		pts = rev
	}

	offsetLine := func(a, b geom.Point) (geom.Point, geom.Point) {
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			return a, b
		}
		// Outward normal for a CCW ring is (dy, -dx)/length.
		nx, ny := dy/length*d, -dx/length*d
		return geom.Point{X: a.X + nx, Y: a.Y + ny}, geom.Point{X: b.X + nx, Y: b.Y + ny}
	}

	out := make([]geom.Point, 0, m+1)
	for i := 0; i < m; i++ {
		prev := pts[(i-1+m)%m]
		cur := pts[i]
		next := pts[(i+1)%m]

		a1, b1 := offsetLine(prev, cur)
		a2, b2 := offsetLine(cur, next)

		if pt, ok := lineIntersect(a1, b1, a2, b2); ok {
			out = append(out, pt)
		} else {
			out = append(out, b1)
		}
	}
	out = append(out, out[0])
	// pts is counter-clockwise, so an eroded ring that has turned clockwise
	// has no interior left.
	if d < 0 && signedRingArea(out) <= 0 {
		return nil
	}
	return out
}

func lineIntersect(p1, p2, p3, p4 geom.Point) (geom.Point, bool) {
	x1, y1, x2, y2 := p1.X, p1.Y, p2.X, p2.Y
	x3, y3, x4, y4 := p3.X, p3.Y, p4.X, p4.Y
	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(denom) < 1e-12 {
		return geom.Point{}, false
	}
	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / denom
	return geom.Point{X: x1 + t*(x2-x1), Y: y1 + t*(y2-y1)}, true
}

// ConvexHull returns the convex hull of a set of points using Andrew's
// monotone chain algorithm.
func ConvexHull(points []geom.Point) []geom.Point {
	pts := append([]geom.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	pts = dedup(pts)
	if len(pts) < 3 {
		return pts
	}
	cross := func(o, a, b geom.Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	var lower, upper []geom.Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

func dedup(pts []geom.Point) []geom.Point {
	out := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			out = append(out, p)
		}
	}
	return out
}

// PolygonArea is a convenience wrapper used when the hull is already closed
// (first point repeated at the end).
func PolygonArea(ring []geom.Point) float64 {
	return math.Abs(signedRingArea(closeRing(ring)))
}

func closeRing(ring []geom.Point) []geom.Point {
	if len(ring) == 0 {
		return ring
	}
	if ring[0] == ring[len(ring)-1] {
		return ring
	}
	out := make([]geom.Point, len(ring)+1)
	copy(out, ring)
	out[len(ring)] = ring[0]
	return out
}

// MakeValid attempts a cheap repair of a polygon produced by a boolean op
// that may have gone invalid: it drops rings with fewer than four points or
// zero area and keeps the other rings unchanged. Self-intersecting rings
// are not untangled. It returns ok=false when no ring is left.
func MakeValid(p geom.Polygon) (geom.Polygon, bool) {
	out := make(geom.Polygon, 0, len(p))
	for _, ring := range p {
		if len(ring) >= 4 && PolygonArea(ring) > 0 {
			out = append(out, ring)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
