package roofpoly

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/geometry"
)

// GroupCheck renders a set of 2-D inlier points into a binary image at the
// given raster resolution and reports whether they form a single
// 4-connected component and, if so, the ratio of the component's area to
// its convex-hull area and its thinness ratio
// (4π·area/perimeter², perimeter estimated by the Crofton method over the
// four principal/diagonal directions). It is wired into internal/ransac as
// a ransac.GroupChecker.
//
// No library in the retrieved pack implements 4-connected-component
// labelling, convex-hull fill ratio, or Crofton perimeter for a raster
// pixel cluster (the closest analogue, viamrobotics/rdk's CCL clustering,
// solves a different, robotics-vision-shaped version of the same problem);
// this is a from-scratch implementation over internal/geometry's convex
// hull (see DESIGN.md).
func GroupCheck(points [][2]float64, resolutionMetres float64) (singleComponent bool, convexHullRatio, thinnessRatio float64) {
	if len(points) == 0 {
		return false, 0, 0
	}
	cells := make(map[[2]int]bool, len(points))
	for _, p := range points {
		cells[cellOf(p, resolutionMetres)] = true
	}

	if countComponents(cells) != 1 {
		return false, 0, 0
	}

	area := float64(len(cells)) * resolutionMetres * resolutionMetres
	perimeter := croftonPerimeter(cells, resolutionMetres)

	// The hull is taken over the corners of the rendered cells, so it is
	// the hull of the component itself (a solid rectangle has ratio 1).
	half := resolutionMetres / 2
	hullPts := make([]geom.Point, 0, 4*len(cells))
	for c := range cells {
		cx, cy := float64(c[0])*resolutionMetres, float64(c[1])*resolutionMetres
		hullPts = append(hullPts,
			geom.Point{X: cx - half, Y: cy - half}, geom.Point{X: cx + half, Y: cy - half},
			geom.Point{X: cx + half, Y: cy + half}, geom.Point{X: cx - half, Y: cy + half})
	}
	hull := geometry.ConvexHull(hullPts)
	hullArea := geometry.PolygonArea(hull)

	if hullArea <= 0 || perimeter <= 0 {
		return true, 0, 0
	}
	convexHullRatio = area / hullArea
	thinnessRatio = 4 * math.Pi * area / (perimeter * perimeter)
	return true, convexHullRatio, thinnessRatio
}

func cellOf(p [2]float64, resolution float64) [2]int {
	return [2]int{
		int(math.Round(p[0] / resolution)),
		int(math.Round(p[1] / resolution)),
	}
}

var fourNeighbours = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func countComponents(cells map[[2]int]bool) int {
	visited := make(map[[2]int]bool, len(cells))
	components := 0
	for start := range cells {
		if visited[start] {
			continue
		}
		components++
		stack := [][2]int{start}
		visited[start] = true
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, d := range fourNeighbours {
				n := [2]int{c[0] + d[0], c[1] + d[1]}
				if cells[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return components
}

// croftonPerimeter approximates the boundary length of the cell set using
// the Crofton formula restricted to four sampling directions (horizontal,
// vertical, and the two diagonals), as skimage.measure.perimeter_crofton
// does for roof-pixel morphology in the original implementation. The
// boundary-edge count in the axis directions is corrected by π/4 and the
// diagonal count by π/(4·√2) (= √2·π/8) to approximate the continuous
// formula.
func croftonPerimeter(cells map[[2]int]bool, resolution float64) float64 {
	axisEdges := 0
	diagEdges := 0
	for c := range cells {
		for _, d := range fourNeighbours {
			n := [2]int{c[0] + d[0], c[1] + d[1]}
			if !cells[n] {
				axisEdges++
			}
		}
		for _, d := range [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
			n := [2]int{c[0] + d[0], c[1] + d[1]}
			if !cells[n] {
				diagEdges++
			}
		}
	}
	axisPerimeter := float64(axisEdges) * resolution * (math.Pi / 4)
	diagPerimeter := float64(diagEdges) * resolution * math.Sqrt2 * (math.Pi / 8)
	return axisPerimeter + diagPerimeter
}
