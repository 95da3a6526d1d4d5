package diagnostics

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
)

// BuildingYield is one building's planar centroid and its total annual
// panel yield, as fed to YieldHeatMap.
type BuildingYield struct {
	X, Y    float64
	KWhYear float64
}

// YieldHeatMap buckets a job's per-building annual kWh onto a regular grid
// over their planar coordinates and renders it as a heat map, in the style
// of aclements-shade's IntensityOverTime.HeatMap — a coarse visual sanity
// check of the yield surface rather than an analysis output.
func YieldHeatMap(buildings []BuildingYield, cellSizeM float64) *plot.Plot {
	plt := plot.New()
	plt.Title.Text = "Annual panel yield by building (kWh/yr)"
	plt.X.Label.Text = "Easting (m)"
	plt.Y.Label.Text = "Northing (m)"

	grid := newYieldGrid(buildings, cellSizeM)
	pal := palette.Heat(256, 1)
	hm := plotter.NewHeatMap(grid, pal)
	hm.NaN = color.Transparent
	hm.Rasterized = true
	plt.Add(hm)

	thumbs := plotter.PaletteThumbnailers(pal)
	plt.Legend.Add("High yield", thumbs[len(thumbs)-1])
	plt.Legend.Add("Low yield", thumbs[0])
	return plt
}

// yieldGrid implements plotter.GridXYZ over a sparse set of building
// centroids snapped to a regular cellSizeM grid; cells with no building
// are NaN (transparent).
type yieldGrid struct {
	cellSizeM  float64
	minCol     int
	minRow     int
	cols, rows int
	z          [][]float64
}

func newYieldGrid(buildings []BuildingYield, cellSizeM float64) *yieldGrid {
	if len(buildings) == 0 || cellSizeM <= 0 {
		return &yieldGrid{cellSizeM: cellSizeM}
	}
	minCol, maxCol := colOf(buildings[0].X, cellSizeM), colOf(buildings[0].X, cellSizeM)
	minRow, maxRow := rowOf(buildings[0].Y, cellSizeM), rowOf(buildings[0].Y, cellSizeM)
	for _, b := range buildings[1:] {
		if c := colOf(b.X, cellSizeM); c < minCol {
			minCol = c
		} else if c > maxCol {
			maxCol = c
		}
		if r := rowOf(b.Y, cellSizeM); r < minRow {
			minRow = r
		} else if r > maxRow {
			maxRow = r
		}
	}
	g := &yieldGrid{
		cellSizeM: cellSizeM,
		minCol:    minCol,
		minRow:    minRow,
		cols:      maxCol - minCol + 1,
		rows:      maxRow - minRow + 1,
	}
	g.z = make([][]float64, g.cols)
	for c := range g.z {
		g.z[c] = make([]float64, g.rows)
		for r := range g.z[c] {
			g.z[c][r] = math.NaN()
		}
	}
	for _, b := range buildings {
		c := colOf(b.X, cellSizeM) - minCol
		r := rowOf(b.Y, cellSizeM) - minRow
		g.z[c][r] = b.KWhYear
	}
	return g
}

func colOf(x, cellSizeM float64) int { return int(x / cellSizeM) }
func rowOf(y, cellSizeM float64) int { return int(y / cellSizeM) }

func (g *yieldGrid) Dims() (c, r int) { return g.cols, g.rows }
func (g *yieldGrid) Z(c, r int) float64 {
	return g.z[c][r]
}
func (g *yieldGrid) X(c int) float64 { return float64(g.minCol+c) * g.cellSizeM }
func (g *yieldGrid) Y(r int) float64 { return float64(g.minRow+r) * g.cellSizeM }
