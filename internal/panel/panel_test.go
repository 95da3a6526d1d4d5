package panel

import (
	"math"
	"testing"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/geometry"
	"github.com/albion-models/solarpv-core/internal/model"
)

func TestGridCellsCoversBoundingBox(t *testing.T) {
	roof := geometry.Rect(0, 0, 10, 10)
	cells := gridCells(roof, 1, 1, 0, 0)
	if len(cells) != 100 {
		t.Errorf("gridCells over a 10x10 area with 1x1 cells and no spacing = %d cells, want 100", len(cells))
	}
}

func TestGridCellsWithSpacingProducesFewerCells(t *testing.T) {
	roof := geometry.Rect(0, 0, 10, 10)
	tight := gridCells(roof, 1, 1, 0, 0)
	spaced := gridCells(roof, 1, 1, 1, 1)
	if len(spaced) >= len(tight) {
		t.Errorf("spaced grid has %d cells, want fewer than tight grid's %d", len(spaced), len(tight))
	}
}

func TestWithinAcceptsFullyContainedRect(t *testing.T) {
	roof := geometry.Rect(0, 0, 10, 10)
	candidate := geometry.Rect(1, 1, 2, 2)
	if !within(candidate, roof) {
		t.Error("within() = false, want true for a rectangle fully inside the roof")
	}
}

func TestWithinRejectsPartiallyOutsideRect(t *testing.T) {
	roof := geometry.Rect(0, 0, 10, 10)
	candidate := geometry.Rect(8, 8, 5, 5) // extends past x=10,y=10
	if within(candidate, roof) {
		t.Error("within() = true, want false for a rectangle extending past the roof boundary")
	}
}

func TestBoundsOfRect(t *testing.T) {
	r := geometry.Rect(-2, 3, 4, 5)
	minX, minY, maxX, maxY := bounds(r)
	if minX != -2 || minY != 3 || maxX != 2 || maxY != 8 {
		t.Errorf("bounds() = (%v,%v,%v,%v), want (-2,3,2,8)", minX, minY, maxX, maxY)
	}
}

func TestBuildReturnsNilForUnusableRoofPolygon(t *testing.T) {
	b := NewBuilder(config.Default())
	rp := &model.RoofPolygon{Usable: false}
	panels := b.Build(rp)
	if panels != nil {
		t.Error("Build on an unusable roof polygon returned non-nil panels")
	}
}

func TestBuildPacksPanelsOntoALargeFlatRoof(t *testing.T) {
	cfg := config.Default()
	cfg.PanelWidthM = 1
	cfg.PanelHeightM = 1.6
	cfg.PanelSpacingM = 0.02
	cfg.MinRoofAreaM = 1

	b := NewBuilder(cfg)
	rp := &model.RoofPolygon{
		Usable:   true,
		Geometry: geometry.Rect(0, 0, 20, 20),
		Plane: &model.Plane{
			SlopeDeg:  0,
			AspectDeg: 180,
			IsFlat:    true,
		},
	}

	panels := b.Build(rp)
	if len(panels) == 0 {
		t.Fatal("Build packed zero panels onto a 20x20 flat roof")
	}
	for _, p := range panels {
		if p.KWp <= 0 {
			t.Errorf("panel KWp = %v, want > 0", p.KWp)
		}
		if p.FootprintM2 <= 0 {
			t.Errorf("panel FootprintM2 = %v, want > 0", p.FootprintM2)
		}
	}
	if !rp.Usable {
		t.Error("rp.Usable flipped to false despite packing panels successfully")
	}
}

func TestBuildFlipsUsableFalseWhenPackedAreaTooSmall(t *testing.T) {
	cfg := config.Default()
	cfg.PanelWidthM = 1
	cfg.PanelHeightM = 1.6
	cfg.MinRoofAreaM = 1000 // unreachable by a tiny roof

	b := NewBuilder(cfg)
	rp := &model.RoofPolygon{
		Usable:   true,
		Geometry: geometry.Rect(0, 0, 3, 3),
		Plane: &model.Plane{
			SlopeDeg:  20,
			AspectDeg: 180,
		},
	}
	panels := b.Build(rp)
	if panels != nil {
		t.Error("Build returned panels despite total area falling below MinRoofAreaM")
	}
	if rp.Usable {
		t.Error("rp.Usable not flipped to false when packed area is below MinRoofAreaM")
	}
	if rp.NotUsableReason != model.NotUsablePanelArea {
		t.Errorf("NotUsableReason = %q, want NotUsablePanelArea", rp.NotUsableReason)
	}
}

func TestBuildUsesArchetypeGeometryWhenPresent(t *testing.T) {
	cfg := config.Default()
	cfg.PanelWidthM = 1
	cfg.PanelHeightM = 1.6
	cfg.MinRoofAreaM = 1

	b := NewBuilder(cfg)
	rp := &model.RoofPolygon{
		Usable:   true,
		Geometry: geometry.Rect(0, 0, 1, 1), // too small on its own
		Archetype: &model.Archetype{
			Geometry: geometry.Rect(0, 0, 20, 20), // but the archetype is large
		},
		Plane: &model.Plane{SlopeDeg: 10, AspectDeg: 180},
	}
	panels := b.Build(rp)
	if len(panels) == 0 {
		t.Fatal("Build packed zero panels despite a large archetype geometry being available")
	}
}

func almostEqualP(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestPanelsOnRoofOffsetTranslatesGrid(t *testing.T) {
	roof := geometry.Rect(0, 0, 3, 3)
	grid := []geom.Polygon{geometry.Rect(0, 0, 1, 1)}
	got := panelsOnRoof(roof, grid, 1, 1)
	if len(got) != 1 {
		t.Fatalf("panelsOnRoof returned %d panels, want 1", len(got))
	}
	minX, minY, _, _ := bounds(got[0])
	if !almostEqualP(minX, 1, 1e-9) || !almostEqualP(minY, 1, 1e-9) {
		t.Errorf("offset panel origin = (%v,%v), want (1,1)", minX, minY)
	}
}
