// Package lidarcheck implements the LiDAR quality check (component C):
// coverage and perimeter-gradient screening that mark a building with
// NoLidarCoverage, OutdatedLidarCoverage, or no exclusion reason at all.
//
// Ported from the perimeter-gradient checker in
// albion_models/solar_pv/outdated_lidar/perimeter_gradient.py, the newer of
// the two checkers the original system carried (see SPEC_FULL.md §9, Open
// Question 2: only this variant is retained).
package lidarcheck

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/model"
)

// Defaults for the perimeter-gradient test, per spec.md §4.C.
const (
	DefaultSegmentLengthM    = 2.0
	DefaultBisectorLengthM   = 5.0
	DefaultGradientThreshold = 0.5
	DefaultBadBisectorRatio  = 0.52
)

// Params bundles the perimeter-gradient test's tunables so they can be
// overridden in tests without touching the package defaults.
type Params struct {
	SegmentLengthM    float64
	BisectorLengthM   float64
	GradientThreshold float64
	BadBisectorRatio  float64
	ResolutionMetres  float64
}

// DefaultParams returns the spec's default thresholds for the given raster
// resolution.
func DefaultParams(resolutionMetres float64) Params {
	return Params{
		SegmentLengthM:    DefaultSegmentLengthM,
		BisectorLengthM:   DefaultBisectorLengthM,
		GradientThreshold: DefaultGradientThreshold,
		BadBisectorRatio:  DefaultBadBisectorRatio,
		ResolutionMetres:  resolutionMetres,
	}
}

// Result is the verdict of the LiDAR quality check for one building.
type Result struct {
	ExclusionReason model.ExclusionReason
	HeightM         float64 // valid only when ExclusionReason == model.NoExclusion
}

// Check runs the coverage test, then (if it passes) the perimeter-gradient
// test, against a building's interior and exterior-buffer pixels.
func Check(building *model.Building, interior, exterior []model.Pixel, params Params) Result {
	if !hasCoverage(interior) {
		return Result{ExclusionReason: model.NoLidarCoverage}
	}

	ratio, height, ok := perimeterGradient(building.Geometry, interior, exterior, params)
	if ok && ratio > params.BadBisectorRatio {
		return Result{ExclusionReason: model.OutdatedLidarCoverage}
	}
	return Result{ExclusionReason: model.NoExclusion, HeightM: height}
}

func hasCoverage(interior []model.Pixel) bool {
	for _, p := range interior {
		if p.WithinBuilding {
			return true
		}
	}
	return false
}

// perimeterGradient walks the building's exterior ring in segments, takes
// each segment's perpendicular bisector, and compares interior/exterior
// mean elevation along it. It returns the bad-bisector ratio and the
// whole-building interior-vs-exterior mean elevation difference (used as
// the building's height when it passes).
func perimeterGradient(poly geom.Polygon, interior, exterior []model.Pixel, params Params) (ratio, height float64, ok bool) {
	if len(poly) == 0 {
		return 0, 0, false
	}
	ring := poly[0]
	length := ringLength(ring)
	if length <= 0 {
		return 0, 0, false
	}

	total, bad := 0, 0
	for start := 0.0; start < length; start += params.SegmentLengthM {
		p1, p2, ok := segmentAt(ring, start, start+params.SegmentLengthM)
		if !ok {
			continue
		}
		bx, by, ax, ay := perpendicularBisector(p1, p2, params.BisectorLengthM)

		withinMean, withoutMean, have := meanElevationsNear(interior, exterior, ax, ay, bx, by, params.ResolutionMetres/2)
		if !have {
			continue
		}
		total++
		if withinMean-withoutMean < params.GradientThreshold {
			bad++
		}
	}

	wholeWithin, wholeWithout, haveWhole := meanElevations(interior, exterior)
	if haveWhole {
		height = wholeWithin - wholeWithout
	}

	if total == 0 {
		return 0, height, false
	}
	return float64(bad) / float64(total), height, true
}

func ringLength(ring []geom.Point) float64 {
	l := 0.0
	for i := 1; i < len(ring); i++ {
		l += math.Hypot(ring[i].X-ring[i-1].X, ring[i].Y-ring[i-1].Y)
	}
	return l
}

// segmentAt walks along the ring's perimeter and returns the two endpoints
// of the straight segment spanning [start, end] arc-length, analogous to
// shapely.ops.substring truncated to its first two coordinates.
func segmentAt(ring []geom.Point, start, end float64) (p1, p2 geom.Point, ok bool) {
	acc := 0.0
	for i := 1; i < len(ring); i++ {
		segLen := math.Hypot(ring[i].X-ring[i-1].X, ring[i].Y-ring[i-1].Y)
		if segLen == 0 {
			continue
		}
		if acc+segLen >= start {
			t1 := math.Max(0, (start-acc)/segLen)
			tEnd := math.Min(1, (end-acc)/segLen)
			if tEnd <= t1 {
				tEnd = t1
			}
			p1 = lerp(ring[i-1], ring[i], t1)
			p2 = lerp(ring[i-1], ring[i], tEnd)
			return p1, p2, true
		}
		acc += segLen
	}
	return geom.Point{}, geom.Point{}, false
}

func lerp(a, b geom.Point, t float64) geom.Point {
	return geom.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// perpendicularBisector returns the two endpoints of the bisector of
// length `length`, centred on the midpoint of (p1, p2) and perpendicular
// to it.
func perpendicularBisector(p1, p2 geom.Point, length float64) (ax, ay, bx, by float64) {
	mx, my := (p1.X+p2.X)/2, (p1.Y+p2.Y)/2
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return mx, my, mx, my
	}
	// Perpendicular unit vector.
	nx, ny := -dy/d, dx/d
	half := length / 2
	return mx - nx*half, my - ny*half, mx + nx*half, my + ny*half
}

// meanElevationsNear computes the interior/exterior mean elevation among
// pixels within `tol` of the line segment (ax,ay)-(bx,by).
func meanElevationsNear(interior, exterior []model.Pixel, ax, ay, bx, by, tol float64) (withinMean, withoutMean float64, ok bool) {
	var withinSum, withoutSum float64
	var withinN, withoutN int
	for _, px := range interior {
		if distToSegment(px.X, px.Y, ax, ay, bx, by) <= tol {
			withinSum += px.ElevationM
			withinN++
		}
	}
	for _, px := range exterior {
		if distToSegment(px.X, px.Y, ax, ay, bx, by) <= tol {
			withoutSum += px.ElevationM
			withoutN++
		}
	}
	if withinN == 0 || withoutN == 0 {
		return 0, 0, false
	}
	return withinSum / float64(withinN), withoutSum / float64(withoutN), true
}

func meanElevations(interior, exterior []model.Pixel) (withinMean, withoutMean float64, ok bool) {
	var withinSum, withoutSum float64
	for _, px := range interior {
		withinSum += px.ElevationM
	}
	for _, px := range exterior {
		withoutSum += px.ElevationM
	}
	if len(interior) == 0 || len(exterior) == 0 {
		return 0, 0, false
	}
	return withinSum / float64(len(interior)), withoutSum / float64(len(exterior)), true
}

func distToSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(px-cx, py-cy)
}
