// Package ransac implements the adapted RANSAC plane fitter (component D,
// the design centre of the pipeline): repeatedly extract one planar roof
// facet at a time from a building's pixel cloud, subject to morphological
// constraints that distinguish real roof planes from spurious fits.
//
// Ported from albion_models/solar_pv/ransac/ransac.py, generalised from
// scikit-learn's RANSACRegressor to a from-scratch fitter built on
// gonum.org/v1/gonum/mat (least-squares plane solve) and
// gonum.org/v1/gonum/stat (residual SD, circular mean/SD of aspect).
package ransac

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/albion-models/solarpv-core/internal/model"
)

// Constants from spec.md §4.D.
const (
	DefaultMinSlopeDeg  = 0.0
	DefaultMaxSlopeDeg  = 75.0
	FlatThresholdDeg    = 5.0

	ResidualThresholdSloped = 0.25
	ResidualThresholdFlat   = 0.1

	MinConvexHullRatio = 0.6
	MinThinnessRatio   = 0.55

	BaseMaxTrials = 2000
	AbsMaxTrials  = 3000

	// RANSACLargeBuildingM2 is the pixel-count-equivalent area (in m²,
	// divided by resolution to get a pixel count) above which a building
	// is treated as "large": group checks are disabled and max trials is
	// raised, because single roof planes on large buildings often span
	// multiple physically separated patches.
	RANSACLargeBuildingM2 = 1000.0

	aspectToleranceStartDeg = 5.0
	aspectToleranceStepDeg  = 5.0
	aspectWidenEvery         = 100
	aspectGiveUpAfter        = 1000

	stopProbability = 0.99
)

// Params bundles the fitter's tunables.
type Params struct {
	MinSlopeDeg          float64
	MaxSlopeDeg          float64
	ResolutionMetres      float64
	IncludeGroupChecks    bool
	MaxTrials             int
	MinPointsPerPlane     int
}

// DefaultParams derives the fitter's parameters for a building with the
// given pixel count, per spec.md §4.D.
func DefaultParams(pixelCount int, resolutionMetres float64) Params {
	minPoints := int(math.Round(8 / resolutionMetres))
	if minPoints < 1 {
		minPoints = 1
	}
	p := Params{
		MinSlopeDeg:       DefaultMinSlopeDeg,
		MaxSlopeDeg:       DefaultMaxSlopeDeg,
		ResolutionMetres:  resolutionMetres,
		IncludeGroupChecks: true,
		MaxTrials:         BaseMaxTrials,
		MinPointsPerPlane: minPoints,
	}
	if float64(pixelCount) > RANSACLargeBuildingM2/resolutionMetres {
		p.MaxTrials = int(math.Min(float64(BaseMaxTrials)+float64(pixelCount)/resolutionMetres, AbsMaxTrials))
		p.IncludeGroupChecks = false
	}
	return p
}

// GroupChecker renders a set of 2-D inlier points and reports whether they
// form a single 4-connected component and, if so, its convex-hull fill
// ratio and thinness ratio. Injected so the fitter can be tested without a
// real rasteriser; internal/roofpoly provides the production implementation.
type GroupChecker func(points [][2]float64, resolutionMetres float64) (singleComponent bool, convexHullRatio, thinnessRatio float64)

// Fitter extracts roof planes from a pixel cloud. Its RNG is held
// explicitly (never a package-level global) so fits are reproducible given
// a fixed seed, per SPEC_FULL.md's Design Notes on per-process singletons.
type Fitter struct {
	Rand         *rand.Rand
	GroupChecker GroupChecker
}

// NewFitter returns a Fitter seeded deterministically from seed.
func NewFitter(seed int64, gc GroupChecker) *Fitter {
	return &Fitter{Rand: rand.New(rand.NewSource(seed)), GroupChecker: gc}
}

type point struct {
	x, y, z, aspect float64
}

// FitAll repeatedly extracts planes from pixels until fewer than
// MinPointsPerPlane pixels remain or no trial satisfies the predicates.
func (f *Fitter) FitAll(pixels []model.Pixel, params Params) []*model.Plane {
	pts := make([]point, len(pixels))
	for i, px := range pixels {
		pts[i] = point{px.X, px.Y, px.ElevationM, px.AspectDeg}
	}

	var planes []*model.Plane
	for len(pts) >= params.MinPointsPerPlane {
		plane, inlierIdx := f.fitOne(pts, params)
		if plane == nil {
			break
		}
		planes = append(planes, plane)
		pts = removeIndices(pts, inlierIdx)
	}
	return planes
}

type trial struct {
	a, b, d     float64
	slopeDeg    float64
	inliers     []int
	residualSD  float64
}

func (f *Fitter) fitOne(pts []point, params Params) (*model.Plane, []int) {
	n := len(pts)
	if n < 3 {
		return nil, nil
	}

	var best *trial
	maxTrials := params.MaxTrials
	trialsRun := 0

	for trialsRun < maxTrials {
		trialsRun++

		idx, ok := f.sampleThree(pts)
		if !ok {
			continue
		}

		a, b, d, ok := fitPlane(pts[idx[0]], pts[idx[1]], pts[idx[2]])
		if !ok {
			continue
		}

		slope := slopeDeg(a, b)
		if slope <= params.MinSlopeDeg || slope >= params.MaxSlopeDeg {
			continue
		}

		threshold := ResidualThresholdSloped
		if slope < FlatThresholdDeg {
			threshold = ResidualThresholdFlat
		}
		inliers, sd := inliersAndSD(pts, a, b, d, threshold)
		if len(inliers) < params.MinPointsPerPlane {
			continue
		}

		if params.IncludeGroupChecks && f.GroupChecker != nil {
			xy := make([][2]float64, len(inliers))
			for i, idx := range inliers {
				xy[i] = [2]float64{pts[idx].x, pts[idx].y}
			}
			single, hullRatio, thinness := f.GroupChecker(xy, params.ResolutionMetres)
			if !single || hullRatio <= MinConvexHullRatio || thinness <= MinThinnessRatio {
				continue
			}
		}

		if better(best, sd, len(inliers)) {
			best = &trial{a: a, b: b, d: d, slopeDeg: slope, inliers: inliers, residualSD: sd}
		}

		maxTrials = dynamicMaxTrials(maxTrials, len(inliers), n, params.MinPointsPerPlane)
	}

	if best == nil {
		return nil, nil
	}

	// Refit to all inliers.
	a, b, d := leastSquaresPlane(pts, best.inliers)
	slope := slopeDeg(a, b)
	threshold := ResidualThresholdSloped
	if slope < FlatThresholdDeg {
		threshold = ResidualThresholdFlat
	}
	inliers, sd := inliersAndSD(pts, a, b, d, threshold)

	plane := &model.Plane{
		A: a, B: b, D: d,
		SlopeDeg:   slope,
		AspectDeg:  aspectDeg(a, b),
		ResidualSD: sd,
	}
	plane.InlierXY = make([][2]float64, len(inliers))
	aspects := make([]float64, len(inliers))
	for i, idx := range inliers {
		plane.InlierXY[i] = [2]float64{pts[idx].x, pts[idx].y}
		aspects[i] = pts[idx].aspect
	}
	plane.AspectMeanDeg, plane.AspectSDDeg = circularMeanSD(aspects)

	return plane, inliers
}

// better reports whether a trial with the given SD and inlier count
// improves on best: strictly lower SD, or tied SD and strictly more
// inliers, per spec.md §4.D.
func better(best *trial, sd float64, nInliers int) bool {
	if best == nil {
		return true
	}
	if sd < best.residualSD {
		return true
	}
	if sd == best.residualSD && nInliers > len(best.inliers) {
		return true
	}
	return false
}

// dynamicMaxTrials implements the standard RANSAC inlier-probability
// update, capped at the configured absolute maximum.
func dynamicMaxTrials(current, nInliers, nTotal, absoluteCap int) int {
	if nInliers == 0 || nTotal == 0 {
		return current
	}
	inlierRatio := float64(nInliers) / float64(nTotal)
	if inlierRatio >= 1 {
		return current
	}
	denom := math.Log(1 - math.Pow(inlierRatio, 3))
	if denom >= 0 {
		return current
	}
	n := math.Log(1-stopProbability) / denom
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return current
	}
	updated := int(math.Ceil(n))
	if updated < current {
		return updated
	}
	return current
}

// sampleThree draws an aspect-similar triple of point indices for one
// RANSAC trial. Its aspect tolerance and attempt budget are both local to
// this call, reset fresh on every invocation: each trial gets its own
// near-guaranteed-success sampling budget, and only that trial gives up if
// it is exhausted, mirroring _sample()'s per-call state in
// albion_models/solar_pv/ransac/ransac.py.
func (f *Fitter) sampleThree(pts []point) ([3]int, bool) {
	n := len(pts)
	tolerance := aspectToleranceStartDeg

	for attempt := 1; attempt <= aspectGiveUpAfter; attempt++ {
		var idx [3]int
		idx[0] = f.Rand.Intn(n)
		base := pts[idx[0]].aspect
		found := 1
		for inner := 0; found < 3 && inner < n*4; inner++ {
			cand := f.Rand.Intn(n)
			if cand == idx[0] || (found > 1 && cand == idx[1]) {
				continue
			}
			if angularDiff(pts[cand].aspect, base) > tolerance {
				continue
			}
			idx[found] = cand
			found++
		}
		if found == 3 {
			return idx, true
		}
		if attempt%aspectWidenEvery == 0 {
			tolerance += aspectToleranceStepDeg
		}
	}
	return [3]int{}, false
}

func angularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// fitPlane solves the exact plane through three points.
func fitPlane(p0, p1, p2 point) (a, b, d float64, ok bool) {
	// Two edge vectors in 3D.
	ux, uy, uz := p1.x-p0.x, p1.y-p0.y, p1.z-p0.z
	vx, vy, vz := p2.x-p0.x, p2.y-p0.y, p2.z-p0.z
	// Normal = u x v.
	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx
	if math.Abs(nz) < 1e-9 {
		return 0, 0, 0, false
	}
	a = -nx / nz
	b = -ny / nz
	d = p0.z - a*p0.x - b*p0.y
	return a, b, d, true
}

// leastSquaresPlane refits z = a*x + b*y + d to the given inlier indices
// using gonum's normal-equations solve.
func leastSquaresPlane(pts []point, idx []int) (a, b, d float64) {
	n := len(idx)
	if n == 0 {
		return 0, 0, 0
	}
	A := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i, pi := range idx {
		p := pts[pi]
		A.SetRow(i, []float64{p.x, p.y, 1})
		y.SetVec(i, p.z)
	}
	var ata mat.Dense
	ata.Mul(A.T(), A)
	var aty mat.VecDense
	aty.MulVec(A.T(), y)
	var coef mat.VecDense
	if err := coef.SolveVec(&ata, &aty); err != nil {
		return 0, 0, 0
	}
	return coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)
}

func slopeDeg(a, b float64) float64 {
	return math.Atan(math.Hypot(a, b)) * 180 / math.Pi
}

// aspectDeg returns the downslope compass direction of the plane
// z = a*x + b*y + d, clockwise from north.
func aspectDeg(a, b float64) float64 {
	// The downhill direction is -grad(z) = (-a, -b); north is +y.
	deg := math.Atan2(-a, -b) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

func inliersAndSD(pts []point, a, b, d, threshold float64) (idx []int, sd float64) {
	var residuals []float64
	for i, p := range pts {
		pred := a*p.x + b*p.y + d
		res := p.z - pred
		if math.Abs(res) < threshold {
			idx = append(idx, i)
			residuals = append(residuals, res)
		}
	}
	if len(residuals) == 0 {
		return idx, 0
	}
	return idx, stat.StdDev(residuals, nil)
}

func circularMeanSD(aspectsDeg []float64) (meanDeg, sdDeg float64) {
	if len(aspectsDeg) == 0 {
		return 0, 0
	}
	rad := make([]float64, len(aspectsDeg))
	for i, a := range aspectsDeg {
		rad[i] = a * math.Pi / 180
	}
	mean := stat.CircularMean(rad, nil)
	meanDeg = mean * 180 / math.Pi
	if meanDeg < 0 {
		meanDeg += 360
	}

	var sumSin, sumCos float64
	for _, r := range rad {
		sumSin += math.Sin(r)
		sumCos += math.Cos(r)
	}
	n := float64(len(rad))
	r := math.Hypot(sumSin/n, sumCos/n)
	if r >= 1 {
		return meanDeg, 0
	}
	sdDeg = math.Sqrt(-2*math.Log(r)) * 180 / math.Pi
	return meanDeg, sdDeg
}

func removeIndices(pts []point, remove []int) []point {
	if len(remove) == 0 {
		return pts
	}
	skip := make(map[int]bool, len(remove))
	for _, i := range remove {
		skip[i] = true
	}
	out := make([]point, 0, len(pts)-len(remove))
	for i, p := range pts {
		if !skip[i] {
			out = append(out, p)
		}
	}
	return out
}
