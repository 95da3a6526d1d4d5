package roofpoly

import (
	"math"
	"testing"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/geometry"
	"github.com/albion-models/solarpv-core/internal/model"
)

func square(x, y, w, h float64) geom.Polygon {
	return geometry.Rect(x, y, w, h)
}

func TestBuildingOrientationsPicksLongestEdge(t *testing.T) {
	// A building twice as long east-west as north-south: the dominant
	// orientation should be a multiple of 90 from due-east/due-west.
	b := geom.Polygon{{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}}
	o := buildingOrientations(b)
	found := false
	for _, deg := range o {
		if deg == 90 || deg == 270 {
			found = true
		}
	}
	if !found {
		t.Errorf("buildingOrientations() = %v, want one of the four to be 90 or 270 (long edges run east-west)", o)
	}
}

func TestFlattenSetsIsFlatBelowThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.FlatRoofDegrees = 10
	b := &Builder{cfg: cfg}
	p := &model.Plane{SlopeDeg: 3}
	b.flatten(p)
	if !p.IsFlat {
		t.Error("flatten did not mark a 3-degree plane as flat")
	}
	if p.SlopeDeg != 10 {
		t.Errorf("flatten set SlopeDeg = %v, want 10 (cfg.FlatRoofDegrees)", p.SlopeDeg)
	}
}

func TestFlattenLeavesSteepPlaneAlone(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	p := &model.Plane{SlopeDeg: 30}
	b.flatten(p)
	if p.IsFlat {
		t.Error("flatten marked a 30-degree plane as flat")
	}
	if p.SlopeDeg != 30 {
		t.Errorf("flatten changed SlopeDeg of a non-flat plane to %v", p.SlopeDeg)
	}
}

func TestSnapAspectSnapsWithinThreshold(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	building := geom.Polygon{{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}}
	p := &model.Plane{AspectDeg: 95} // close to the building's 90/270 orientation
	b.snapAspect(p, building)
	if p.AspectDeg != 90 && p.AspectDeg != 270 {
		t.Errorf("snapAspect() = %v, want snapped to 90 or 270", p.AspectDeg)
	}
}

func TestSnapAspectLeavesFarAspectAlone(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	building := geom.Polygon{{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0},
	}}
	p := &model.Plane{AspectDeg: 45}
	b.snapAspect(p, building)
	if p.AspectDeg != 45 {
		t.Errorf("snapAspect() = %v, want unchanged 45 (not within threshold of any orientation)", p.AspectDeg)
	}
}

func TestUsabilityRejectsSteepSlope(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	usable, reason := b.usability(&model.Plane{SlopeDeg: 85, AspectDeg: 180}, 20)
	if usable || reason != model.NotUsableSlope {
		t.Errorf("usability() = (%v, %q), want (false, NotUsableSlope)", usable, reason)
	}
}

func TestUsabilityRejectsNorthFacing(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	usable, reason := b.usability(&model.Plane{SlopeDeg: 30, AspectDeg: 10}, 20)
	if usable || reason != model.NotUsableAspect {
		t.Errorf("usability() = (%v, %q), want (false, NotUsableAspect)", usable, reason)
	}
}

func TestUsabilityRejectsSmallArea(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	usable, reason := b.usability(&model.Plane{SlopeDeg: 30, AspectDeg: 180}, 1)
	if usable || reason != model.NotUsableArea {
		t.Errorf("usability() = (%v, %q), want (false, NotUsableArea)", usable, reason)
	}
}

func TestUsabilityAcceptsGoodPlane(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	usable, reason := b.usability(&model.Plane{SlopeDeg: 30, AspectDeg: 180}, 20)
	if !usable || reason != model.UsableOK {
		t.Errorf("usability() = (%v, %q), want (true, UsableOK)", usable, reason)
	}
}

func TestSubtractAcceptedWithNoPriorPolygons(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	candidate := square(0, 0, 5, 5)
	got := b.subtractAccepted(candidate, nil)
	if math.Abs(geometry.Area(got)-25) > 1e-6 {
		t.Errorf("subtractAccepted with no prior polygons changed area to %v, want 25", geometry.Area(got))
	}
}

func TestSubtractAcceptedRemovesOverlap(t *testing.T) {
	cfg := config.Default()
	b := &Builder{cfg: cfg}
	candidate := square(0, 0, 10, 10)
	accepted := []geom.Polygon{square(0, 0, 5, 5)}
	got := b.subtractAccepted(candidate, accepted)
	want := 100.0 - 25.0
	if math.Abs(geometry.Area(got)-want) > 1e-6 {
		t.Errorf("subtractAccepted area = %v, want %v", geometry.Area(got), want)
	}
}

func TestBuildTrimsAndFlagsUsability(t *testing.T) {
	cfg := config.Default()
	cfg.ResolutionMetres = 1
	cfg.MinRoofAreaM = 8
	cfg.MinDistToEdgeM = 0
	b := NewBuilder(cfg)

	building := &model.Building{
		TOID:     "A",
		Geometry: square(0, 0, 10, 10),
	}

	var inliers [][2]float64
	for x := 1.0; x < 9; x++ {
		for y := 1.0; y < 9; y++ {
			inliers = append(inliers, [2]float64{x, y})
		}
	}
	plane := &model.Plane{
		SlopeDeg:  30,
		AspectDeg: 180,
		InlierXY:  inliers,
	}

	rp := b.Build(plane, building, nil)
	if rp.Geometry == nil {
		t.Fatal("Build produced a nil roof polygon geometry")
	}
	if !rp.Usable {
		t.Errorf("Build flagged a reasonably large, well-formed plane as not usable (%q)", rp.NotUsableReason)
	}
	if rp.RawAreaM2 <= rp.RawFootprintM2 {
		t.Errorf("RawAreaM2 (%v) should exceed RawFootprintM2 (%v) once slanted by SlopeDeg", rp.RawAreaM2, rp.RawFootprintM2)
	}
}
