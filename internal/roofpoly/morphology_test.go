package roofpoly

import (
	"math"
	"testing"
)

func TestGroupCheckSingleComponentSolidBlock(t *testing.T) {
	var pts [][2]float64
	for x := 0.0; x < 5; x++ {
		for y := 0.0; y < 5; y++ {
			pts = append(pts, [2]float64{x, y})
		}
	}
	single, hullRatio, thinness := GroupCheck(pts, 1)
	if !single {
		t.Fatal("GroupCheck reported a solid 5x5 block as not a single component")
	}
	if hullRatio < 0.9 {
		t.Errorf("convexHullRatio = %v, want close to 1 for a solid rectangular block", hullRatio)
	}
	if thinness <= 0 {
		t.Errorf("thinnessRatio = %v, want > 0", thinness)
	}
}

func TestGroupCheckRejectsTwoSeparatedClusters(t *testing.T) {
	var pts [][2]float64
	for x := 0.0; x < 3; x++ {
		for y := 0.0; y < 3; y++ {
			pts = append(pts, [2]float64{x, y})
			pts = append(pts, [2]float64{x + 100, y})
		}
	}
	single, _, _ := GroupCheck(pts, 1)
	if single {
		t.Error("GroupCheck reported two widely separated clusters as a single component")
	}
}

func TestGroupCheckEmptyInput(t *testing.T) {
	single, hullRatio, thinness := GroupCheck(nil, 1)
	if single || hullRatio != 0 || thinness != 0 {
		t.Errorf("GroupCheck(nil) = (%v,%v,%v), want (false,0,0)", single, hullRatio, thinness)
	}
}

func TestCountComponentsSingleBlock(t *testing.T) {
	cells := map[[2]int]bool{
		{0, 0}: true, {1, 0}: true, {0, 1}: true, {1, 1}: true,
	}
	if got := countComponents(cells); got != 1 {
		t.Errorf("countComponents = %d, want 1", got)
	}
}

func TestCountComponentsTwoDisjointCells(t *testing.T) {
	cells := map[[2]int]bool{
		{0, 0}: true, {10, 10}: true,
	}
	if got := countComponents(cells); got != 2 {
		t.Errorf("countComponents = %d, want 2", got)
	}
}

func TestCroftonPerimeterOfUnitSquareIsPositive(t *testing.T) {
	cells := map[[2]int]bool{{0, 0}: true}
	p := croftonPerimeter(cells, 1)
	if p <= 0 {
		t.Errorf("croftonPerimeter(single cell) = %v, want > 0", p)
	}
	// A single isolated cell has 4 exposed axis edges and 4 exposed
	// diagonal edges; verify the formula's linear scaling in resolution.
	p2 := croftonPerimeter(cells, 2)
	if math.Abs(p2-2*p) > 1e-9 {
		t.Errorf("croftonPerimeter should scale linearly with resolution: p(1)=%v p(2)=%v", p, p2)
	}
}
