// Package roofpoly builds trimmed, non-overlapping roof-facet polygons
// from RANSAC planes (component E), and provides the pixel-cluster group
// checker RANSAC uses to reject spurious fits.
//
// Ported from albion_models/solar_pv/roof_polygons/roof_polygons.py, with
// geometry operations delegated to internal/geometry.
package roofpoly

import (
	"math"
	"sort"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/geometry"
	"github.com/albion-models/solarpv-core/internal/model"
)

// AzimuthAlignmentThresholdDeg and its flat-roof variant, per spec.md §4.E
// step 2.
const (
	AzimuthAlignmentThresholdDeg     = 15.0
	FlatAzimuthAlignmentThresholdDeg = 45.0
)

// Builder turns RANSAC planes into RoofPolygons for one building at a
// time. It keeps no per-building state: the caller passes the polygons
// already accepted for the building to each Build call, so later planes on
// the same building are trimmed against earlier ones (spec.md §4.E step 5 —
// "non-overlap enforcement").
type Builder struct {
	cfg config.Config
}

// NewBuilder returns a Builder using the given job configuration.
func NewBuilder(cfg config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build converts one plane, extracted from the given building, into a
// RoofPolygon, trimming it against the building footprint and against any
// RoofPolygons already accepted for that building (accepted is mutated by
// the caller between calls: append the result's Geometry before calling
// Build again for the next plane).
func (b *Builder) Build(plane *model.Plane, building *model.Building, accepted []geom.Polygon) *model.RoofPolygon {
	b.flatten(plane)
	b.snapAspect(plane, building.Geometry)

	raw := b.rasteriseInliers(plane)
	trimmed := b.trimToBuilding(raw, building)
	trimmed = b.subtractAccepted(trimmed, accepted)

	rp := &model.RoofPolygon{
		Plane:    plane,
		Geometry: trimmed,
		Centroid: geometry.Centroid(trimmed),
	}
	rp.RawFootprintM2 = geometry.Area(trimmed)
	rp.RawAreaM2 = rp.RawFootprintM2 / math.Cos(plane.SlopeDeg*math.Pi/180)

	rp.Usable, rp.NotUsableReason = b.usability(plane, rp.RawFootprintM2)
	return rp
}

// flatten applies spec.md §4.E step 1.
func (b *Builder) flatten(plane *model.Plane) {
	if plane.SlopeDeg < FlatThresholdDeg {
		plane.IsFlat = true
		plane.SlopeDeg = b.cfg.FlatRoofDegrees
	}
}

// FlatThresholdDeg is the slope below which a plane is treated as flat; it
// has the same value as internal/ransac's FlatThresholdDeg, which switches
// the residual threshold.
const FlatThresholdDeg = 5.0

// snapAspect applies spec.md §4.E step 2.
func (b *Builder) snapAspect(plane *model.Plane, building geom.Polygon) {
	orientations := buildingOrientations(building)
	threshold := AzimuthAlignmentThresholdDeg
	if plane.IsFlat {
		threshold = FlatAzimuthAlignmentThresholdDeg
	}
	for _, o := range orientations {
		if angularDiff(o, plane.AspectDeg) < threshold {
			plane.AspectDeg = o
			return
		}
	}
}

// buildingOrientations sums exterior-ring segment lengths per integer
// azimuth and returns the top azimuth plus its three 90° rotations.
func buildingOrientations(building geom.Polygon) [4]float64 {
	if len(building) == 0 {
		return [4]float64{}
	}
	ring := building[0]
	lengths := make(map[int]float64)
	for i := 0; i+1 < len(ring); i++ {
		p1, p2 := ring[i], ring[i+1]
		az := int(math.Round(geometry.Azimuth(p1.X, p1.Y, p2.X, p2.Y)))
		lengths[az] += math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
	}
	best, bestLen := 0, -1.0
	// Deterministic iteration: scan by azimuth key order.
	keys := make([]int, 0, len(lengths))
	for k := range lengths {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		if lengths[k] > bestLen {
			bestLen, best = lengths[k], k
		}
	}
	m := float64(best)
	return [4]float64{m, wrap360(m + 90), wrap360(m + 180), wrap360(m + 270)}
}

func wrap360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func angularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// rasteriseInliers applies spec.md §4.E step 3: replace each inlier pixel
// by a square rotated by the plane aspect, union them, and negatively
// buffer to round off the jagged pixel-grid boundary.
func (b *Builder) rasteriseInliers(plane *model.Plane) geom.Polygon {
	r := b.cfg.ResolutionMetres
	edge := math.Sqrt(r*r*2) / 2

	squares := make([]geom.Polygon, 0, len(plane.InlierXY))
	for _, xy := range plane.InlierXY {
		sq := geometry.Rect(xy[0]-edge, xy[1]-edge, edge*2, edge*2)
		centre := geom.Point{X: xy[0], Y: xy[1]}
		sq = geometry.RotateAbout(sq, centre, plane.AspectDeg)
		squares = append(squares, sq)
	}
	union := geometry.Union(squares...)

	negBuffer := -((math.Sqrt(r*r*2) - r) / 2)
	largest, ok := geometry.LargestPolygon(union)
	if !ok {
		return nil
	}
	buffered := geometry.Buffer(largest, negBuffer)
	if largest2, ok := geometry.LargestPolygon(buffered); ok {
		return largest2
	}
	return buffered
}

// trimToBuilding applies spec.md §4.E step 4.
func (b *Builder) trimToBuilding(raw geom.Polygon, building *model.Building) geom.Polygon {
	if raw == nil {
		return nil
	}
	offset := -b.cfg.MinDistToEdge(building.Area())
	interior := geometry.Buffer(building.Geometry, offset)
	inter := geometry.Intersection(raw, interior)
	if largest, ok := geometry.LargestPolygon(inter); ok {
		return largest
	}
	return nil
}

// subtractAccepted applies spec.md §4.E step 5. A result that MakeValid
// cannot repair is dropped (nil).
func (b *Builder) subtractAccepted(candidate geom.Polygon, accepted []geom.Polygon) geom.Polygon {
	if candidate == nil || len(accepted) == 0 {
		if v, ok := geometry.MakeValid(candidate); ok {
			return v
		}
		return nil
	}
	others := geometry.Union(accepted...)
	diff := geometry.Difference(candidate, others)
	result, ok := geometry.LargestPolygon(diff)
	if !ok {
		result = nil
	}
	if v, ok := geometry.MakeValid(result); ok {
		return v
	}
	return nil
}

// usability applies spec.md §4.E step 6.
func (b *Builder) usability(plane *model.Plane, areaM2 float64) (bool, model.NotUsableReason) {
	switch {
	case plane.SlopeDeg > b.cfg.MaxRoofSlopeDegrees:
		return false, model.NotUsableSlope
	case plane.AspectDeg < b.cfg.MinRoofDegreesFromNorth || plane.AspectDeg > 360-b.cfg.MinRoofDegreesFromNorth:
		return false, model.NotUsableAspect
	case areaM2 < b.cfg.MinRoofAreaM:
		return false, model.NotUsableArea
	default:
		return true, model.UsableOK
	}
}
