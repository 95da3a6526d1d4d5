package ransac

import (
	"math"
	"math/rand"
	"testing"

	"github.com/albion-models/solarpv-core/internal/model"
)

func TestSlopeDegFlat(t *testing.T) {
	if got := slopeDeg(0, 0); got != 0 {
		t.Errorf("slopeDeg(0,0) = %v, want 0", got)
	}
}

func TestSlopeDeg45Degrees(t *testing.T) {
	got := slopeDeg(1, 0)
	if math.Abs(got-45) > 1e-9 {
		t.Errorf("slopeDeg(1,0) = %v, want 45", got)
	}
}

func TestAspectDegRisingNorthFacesSouth(t *testing.T) {
	// z = a*x + b*y + d with a=0, b=1 slopes upward to the north, so the
	// downhill (aspect) direction faces south (180).
	got := aspectDeg(0, 1)
	if math.Abs(got-180) > 1e-9 {
		t.Errorf("aspectDeg(0,1) = %v, want 180", got)
	}
}

func TestAspectDegRisingEastFacesWest(t *testing.T) {
	// z = a*x + d with a=1 slopes upward to the east, so downhill faces
	// west (270).
	got := aspectDeg(1, 0)
	if math.Abs(got-270) > 1e-9 {
		t.Errorf("aspectDeg(1,0) = %v, want 270", got)
	}
}

func TestFitPlaneExactThreePoints(t *testing.T) {
	// z = 2x + 3y + 1
	p0 := point{x: 0, y: 0, z: 1}
	p1 := point{x: 1, y: 0, z: 3}
	p2 := point{x: 0, y: 1, z: 4}
	a, b, d, ok := fitPlane(p0, p1, p2)
	if !ok {
		t.Fatal("fitPlane returned ok=false for a well-posed triple")
	}
	if math.Abs(a-2) > 1e-9 || math.Abs(b-3) > 1e-9 || math.Abs(d-1) > 1e-9 {
		t.Errorf("fitPlane = (a=%v, b=%v, d=%v), want (2, 3, 1)", a, b, d)
	}
}

func TestFitPlaneCollinearPoints(t *testing.T) {
	// Three points on the line y=0 can't determine a unique plane.
	p0 := point{x: 0, y: 0, z: 0}
	p1 := point{x: 1, y: 0, z: 1}
	p2 := point{x: 2, y: 0, z: 2}
	_, _, _, ok := fitPlane(p0, p1, p2)
	if ok {
		t.Error("fitPlane returned ok=true for three collinear points")
	}
}

func TestLeastSquaresPlaneRecoversExactPlane(t *testing.T) {
	// z = 1x - 0.5y + 2, sampled on a small grid, refit exactly.
	var pts []point
	var idx []int
	for x := 0.0; x < 4; x++ {
		for y := 0.0; y < 4; y++ {
			pts = append(pts, point{x: x, y: y, z: x - 0.5*y + 2})
			idx = append(idx, len(pts)-1)
		}
	}
	a, b, d := leastSquaresPlane(pts, idx)
	if math.Abs(a-1) > 1e-6 || math.Abs(b-(-0.5)) > 1e-6 || math.Abs(d-2) > 1e-6 {
		t.Errorf("leastSquaresPlane = (%v, %v, %v), want (1, -0.5, 2)", a, b, d)
	}
}

func TestBetterPrefersLowerSD(t *testing.T) {
	best := &trial{residualSD: 0.2, inliers: make([]int, 5)}
	if !better(best, 0.1, 3) {
		t.Error("better() = false, want true for strictly lower SD")
	}
	if better(best, 0.3, 100) {
		t.Error("better() = true, want false for strictly higher SD")
	}
}

func TestBetterPrefersMoreInliersOnTie(t *testing.T) {
	best := &trial{residualSD: 0.2, inliers: make([]int, 5)}
	if !better(best, 0.2, 6) {
		t.Error("better() = false, want true for tied SD with more inliers")
	}
	if better(best, 0.2, 4) {
		t.Error("better() = true, want false for tied SD with fewer inliers")
	}
}

func TestBetterAcceptsFirstTrial(t *testing.T) {
	if !better(nil, 999, 0) {
		t.Error("better(nil, ...) = false, want true")
	}
}

func TestCircularMeanSDConcentrated(t *testing.T) {
	mean, sd := circularMeanSD([]float64{10, 10, 10})
	if math.Abs(mean-10) > 1e-6 {
		t.Errorf("circularMeanSD mean = %v, want 10", mean)
	}
	if sd != 0 {
		t.Errorf("circularMeanSD sd = %v, want 0 for identical samples", sd)
	}
}

func TestCircularMeanSDWrapsAroundNorth(t *testing.T) {
	mean, _ := circularMeanSD([]float64{350, 10})
	if math.Abs(mean-0) > 1e-6 && math.Abs(mean-360) > 1e-6 {
		t.Errorf("circularMeanSD([350,10]) = %v, want ~0 (wrapping through north)", mean)
	}
}

func TestAngularDiffWrapsAt180(t *testing.T) {
	if got := angularDiff(350, 10); math.Abs(got-20) > 1e-9 {
		t.Errorf("angularDiff(350,10) = %v, want 20", got)
	}
}

func TestRemoveIndices(t *testing.T) {
	pts := []point{{x: 0}, {x: 1}, {x: 2}, {x: 3}}
	got := removeIndices(pts, []int{1, 3})
	if len(got) != 2 || got[0].x != 0 || got[1].x != 2 {
		t.Errorf("removeIndices = %+v, want [{x:0} {x:2}]", got)
	}
}

func TestDynamicMaxTrialsShrinksWithHighInlierRatio(t *testing.T) {
	got := dynamicMaxTrials(2000, 95, 100, 3000)
	if got >= 2000 {
		t.Errorf("dynamicMaxTrials with 95%% inliers = %d, want less than 2000", got)
	}
}

func TestDynamicMaxTrialsNeverIncreasesPastCurrent(t *testing.T) {
	got := dynamicMaxTrials(10, 1, 100, 3000)
	if got > 10 {
		t.Errorf("dynamicMaxTrials = %d, want <= 10 (current)", got)
	}
}

// alwaysGroupOK is a GroupChecker stub that accepts every candidate, so
// FitAll's plane-fitting logic can be tested independently of
// internal/roofpoly's rasterised group check.
func alwaysGroupOK([][2]float64, float64) (bool, float64, float64) {
	return true, 1.0, 1.0
}

func TestFitAllRecoversASinglePlaneFromCleanData(t *testing.T) {
	f := NewFitter(1, alwaysGroupOK)
	var pixels []model.Pixel
	for x := 0.0; x < 10; x++ {
		for y := 0.0; y < 10; y++ {
			pixels = append(pixels, model.Pixel{X: x, Y: y, ElevationM: 0.3*x + 10, AspectDeg: 270})
		}
	}
	params := Params{
		MinSlopeDeg:        DefaultMinSlopeDeg,
		MaxSlopeDeg:        DefaultMaxSlopeDeg,
		ResolutionMetres:   1,
		IncludeGroupChecks: true,
		MaxTrials:          500,
		MinPointsPerPlane:  8,
	}
	planes := f.FitAll(pixels, params)
	if len(planes) == 0 {
		t.Fatal("FitAll found no planes for a clean synthetic roof")
	}
	p := planes[0]
	if math.Abs(p.A-0.3) > 0.05 {
		t.Errorf("plane A = %v, want close to 0.3", p.A)
	}
	if len(p.InlierXY) < 50 {
		t.Errorf("plane has %d inliers, want most of the 100 synthetic pixels", len(p.InlierXY))
	}
}

func TestFitAllReturnsNoPlanesForTooFewPixels(t *testing.T) {
	f := NewFitter(1, alwaysGroupOK)
	planes := f.FitAll([]model.Pixel{{X: 0, Y: 0, ElevationM: 1}}, Params{MinPointsPerPlane: 8})
	if len(planes) != 0 {
		t.Errorf("FitAll found %d planes, want 0 for a single pixel", len(planes))
	}
}

func TestSampleThreeRespectsAspectTolerance(t *testing.T) {
	// Every point is within 5 deg of every other, so sampleThree must
	// always succeed regardless of which index it starts from.
	f := &Fitter{Rand: rand.New(rand.NewSource(42))}
	pts := []point{
		{aspect: 0}, {aspect: 1}, {aspect: 2}, {aspect: 3}, {aspect: 4},
	}
	idx, ok := f.sampleThree(pts)
	if !ok {
		t.Fatal("sampleThree returned ok=false, want true (all points within 5 deg)")
	}
	base := pts[idx[0]].aspect
	for _, i := range idx {
		if angularDiff(pts[i].aspect, base) > 5 {
			t.Errorf("sampleThree picked aspect %v, more than 5 deg from base %v", pts[i].aspect, base)
		}
	}
}

func TestSampleThreeFailsWhenTooFewPointsMatch(t *testing.T) {
	f := &Fitter{Rand: rand.New(rand.NewSource(1))}
	pts := []point{{aspect: 0}, {aspect: 180}}
	if _, ok := f.sampleThree(pts); ok {
		t.Error("sampleThree returned ok=true with only 2 candidate points")
	}
}
