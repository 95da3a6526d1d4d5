// Package panel packs rectangular PV modules onto a trimmed roof polygon
// (component G).
//
// Ported from albion_models/solar_pv/panels.py's _roof_panels/get_grid_cells.
package panel

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/geometry"
	"github.com/albion-models/solarpv-core/internal/model"
)

// sunAngleForSpacingRad is the sun altitude (15°) flat-roof row spacing is
// computed against, per spec.md §4.G.
const sunAngleForSpacingRad = 15.0 * math.Pi / 180

// Builder packs panels onto RoofPolygons for one job's panel dimensions.
type Builder struct {
	cfg config.Config
}

// NewBuilder returns a Builder using the given job configuration.
func NewBuilder(cfg config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build packs panels onto rp.Geometry and returns them. If the packed area
// is below cfg.MinRoofAreaM, rp is flipped to unusable and no panels are
// returned.
func (b *Builder) Build(rp *model.RoofPolygon) []*model.Panel {
	if !rp.Usable {
		return nil
	}
	geomP := rp.Geometry
	if rp.Archetype != nil {
		geomP = rp.Archetype.Geometry
	}
	if geomP == nil {
		return nil
	}

	plane := rp.Plane
	slopeRad := plane.SlopeDeg * math.Pi / 180

	portraitW := b.cfg.PanelWidthM
	portraitH := b.cfg.PanelHeightM * math.Cos(slopeRad)
	landscapeW := b.cfg.PanelHeightM
	landscapeH := b.cfg.PanelWidthM * math.Cos(slopeRad)

	spacingX := b.cfg.PanelSpacingM
	var spacingY float64
	if plane.IsFlat {
		spacingY = (math.Sin(slopeRad) * landscapeH) / math.Tan(sunAngleForSpacingRad)
	} else {
		spacingY = b.cfg.PanelSpacingM
	}

	centre := geometry.Centroid(geomP)
	rotated := geometry.RotateAbout(geomP, centre, -plane.AspectDeg)

	portraitGrid := gridCells(rotated, portraitW, portraitH, spacingX, spacingY)
	landscapeGrid := gridCells(rotated, landscapeW, landscapeH, spacingX, spacingY)

	offsets := [10][2]float64{
		{0, 0},
		{-portraitW * 0.5, 0},
		{0, -portraitH * 0.5},
		{-portraitW * 0.5, -portraitH * 0.5},
		{-portraitW * 0.33, 0},
		{0, -portraitH * 0.33},
		{-portraitW * 0.33, -portraitH * 0.33},
		{-portraitW * 0.66, 0},
		{0, -portraitH * 0.66},
		{-portraitW * 0.66, -portraitH * 0.66},
	}

	var best []geom.Polygon
	for _, off := range offsets {
		if !plane.IsFlat {
			if v := panelsOnRoof(rotated, portraitGrid, off[0], off[1]); len(v) > len(best) {
				best = v
			}
		}
		if v := panelsOnRoof(rotated, landscapeGrid, off[0], off[1]); len(v) > len(best) {
			best = v
		}
	}

	if len(best) == 0 {
		rp.Usable = false
		rp.NotUsableReason = model.NotUsablePanelArea
		return nil
	}

	var totalArea float64
	panels := make([]*model.Panel, 0, len(best))
	for _, p := range best {
		placed := geometry.RotateAbout(p, centre, plane.AspectDeg)
		area := geometry.Area(placed)
		totalArea += area
		panels = append(panels, &model.Panel{
			RoofPolygon: rp,
			Geometry:    placed,
			FootprintM2: area,
			SlantedM2:   area / math.Cos(slopeRad),
			KWp:         area * b.cfg.PeakPowerPerM2,
		})
	}

	if totalArea < b.cfg.MinRoofAreaM {
		rp.Usable = false
		rp.NotUsableReason = model.NotUsablePanelArea
		return nil
	}
	return panels
}

// panelsOnRoof translates every cell in grid by (xoff, yoff) and keeps the
// ones that land fully within rotatedRoof.
func panelsOnRoof(rotatedRoof geom.Polygon, grid []geom.Polygon, xoff, yoff float64) []geom.Polygon {
	var out []geom.Polygon
	for _, cell := range grid {
		translated := geometry.Translate(cell, xoff, yoff)
		if within(translated, rotatedRoof) {
			out = append(out, translated)
		}
	}
	return out
}

// within reports whether candidate's intersection with roof has
// essentially candidate's own area (to within 1e-9 m²) — i.e. candidate ⊆
// roof. This mirrors shapely's `within` for the simple convex
// rectangle-in-polygon case panel cells always are.
func within(candidate, roof geom.Polygon) bool {
	candidateArea := geometry.Area(candidate)
	if candidateArea <= 0 {
		return false
	}
	inter := geometry.Intersection(candidate, roof)
	interArea := geometry.AreaOf(inter)
	return interArea >= candidateArea-1e-9
}

// gridCells lays out a regular grid of w×h rectangles, spaced spacingX/
// spacingY apart, covering rotated's bounding box, starting from the box's
// minimum corner (shapely's grid_start='bounds').
func gridCells(rotated geom.Polygon, w, h, spacingX, spacingY float64) []geom.Polygon {
	minX, minY, maxX, maxY := bounds(rotated)
	var cells []geom.Polygon
	stepX := w + spacingX
	stepY := h + spacingY
	if stepX <= 0 || stepY <= 0 {
		return nil
	}
	for x := minX; x < maxX; x += stepX {
		for y := minY; y < maxY; y += stepY {
			cells = append(cells, geometry.Rect(x, y, w, h))
		}
	}
	return cells
}

func bounds(p geom.Polygon) (minX, minY, maxX, maxY float64) {
	if len(p) == 0 || len(p[0]) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = p[0][0].X, p[0][0].Y
	maxX, maxY = minX, minY
	for _, ring := range p {
		for _, pt := range ring {
			if pt.X < minX {
				minX = pt.X
			}
			if pt.X > maxX {
				maxX = pt.X
			}
			if pt.Y < minY {
				minY = pt.Y
			}
			if pt.Y > maxY {
				maxY = pt.Y
			}
		}
	}
	return
}
