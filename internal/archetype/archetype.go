// Package archetype builds the library of pre-computed panel-layout
// templates (component F) and matches a trimmed roof polygon against it,
// snapping messily-fit shapes to something that packs cleanly.
//
// Ported from albion_models/solar_pv/roof_polygons/roof_polygon_archetypes.py.
package archetype

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/geometry"
	"github.com/albion-models/solarpv-core/internal/model"
)

// Patterns is the fixed set of 0/1 grid layouts the original system
// carries as "standard panel layouts" worth testing a roof polygon
// against.
var Patterns = [][][]int{
	{{1, 1, 1}},
	{{1, 1, 1, 1}},
	{{1, 1, 1, 1, 1}},
	{{1, 1, 1, 1, 1, 1}},
	{{1, 1, 1, 1, 1, 1, 1}},
	{{1, 1}, {1, 1}},
	{{1, 1, 1}, {1, 1, 1}},
	{{0, 1, 0}, {1, 1, 1}},
	{{0, 1, 1, 0}, {1, 1, 1, 1}},
	{{1, 1, 1, 1}, {1, 1, 1, 1}},
	{{0, 1, 1, 1, 0}, {1, 1, 1, 1, 1}},
	{{1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}},
	{{1, 1, 1, 1, 1, 1}, {1, 1, 1, 1, 1, 1}},
	{{1, 1}, {1, 1}, {1, 1}},
	{{0, 1, 0}, {1, 1, 1}, {1, 1, 1}},
	{{0, 0, 1}, {0, 1, 1}, {1, 1, 1}},
	{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
	{{1, 1, 1, 1}, {1, 1, 1, 1}, {1, 1, 1, 1}},
	{{0, 1, 1, 0}, {1, 1, 1, 1}, {1, 1, 1, 1}},
	{{1, 1, 1, 1}, {1, 1, 1, 1}, {1, 1, 1, 1}, {1, 1, 1, 1}},
	{{0, 1, 1, 0}, {1, 1, 1, 1}, {1, 1, 1, 1}, {1, 1, 1, 1}},
	{{1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}},
	{{0, 1, 1, 1, 0}, {1, 1, 1, 1, 1}, {1, 1, 1, 1, 1}},
}

// Library holds the immutable, process-wide set of archetype polygons
// computed once at startup, ordered descending by area.
type Library struct {
	Archetypes []*model.Archetype
}

// NewLibrary constructs the archetype library for the given panel
// dimensions, per spec.md §4.F.
func NewLibrary(panelWidthM, panelHeightM float64) *Library {
	var archetypes []*model.Archetype
	for _, pattern := range Patterns {
		archetypes = append(archetypes,
			construct(pattern, panelWidthM, panelHeightM, true),
			construct(pattern, panelWidthM, panelHeightM, false))
	}
	sortDescendingArea(archetypes)
	return &Library{Archetypes: archetypes}
}

func construct(pattern [][]int, panelW, panelH float64, portrait bool) *model.Archetype {
	var cells []geom.Polygon
	for y, row := range pattern {
		for x, v := range row {
			if v == 0 {
				continue
			}
			var cell geom.Polygon
			if portrait {
				cell = geometry.Rect(float64(x)*panelW, float64(y)*panelH, panelW, panelH)
			} else {
				cell = geometry.Rect(float64(x)*panelH, float64(y)*panelW, panelH, panelW)
			}
			cells = append(cells, cell)
		}
	}
	union := geometry.Union(cells...)
	poly, _ := geometry.LargestPolygon(union)
	if poly == nil {
		if mp, ok := union.(geom.MultiPolygon); ok && len(mp) > 0 {
			poly = mp[0]
		}
	}
	centre := geometry.Centroid(poly)
	poly = geometry.Translate(poly, -centre.X, -centre.Y)

	orientation := "landscape"
	if portrait {
		orientation = "portrait"
	}
	return &model.Archetype{
		Name:     orientation,
		Pattern:  pattern,
		Portrait: portrait,
		Geometry: poly,
		AreaM2:   geometry.Area(poly),
	}
}

func sortDescendingArea(a []*model.Archetype) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j].AreaM2 > a[j-1].AreaM2; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

const (
	areaDiffRejectM2    = 4.0
	excessAreaRejectM2  = 4.0
	scoreThreshold      = 0.68
	scoreWeightMissing  = 0.75 // area(P \ A)
	scoreWeightOverhang = 1.8  // area(A \ P)
	fallbackScoreInit   = 0.68
)

// Match attempts to replace a roof polygon's geometry with the
// best-matching archetype from the library, per spec.md §4.F. It returns
// nil if no archetype passes.
func (l *Library) Match(roofPoly geom.Polygon, aspectDeg float64) *model.Archetype {
	roofArea := geometry.Area(roofPoly)
	if roofArea <= 0 {
		return nil
	}
	centre := geometry.Centroid(roofPoly)

	type candidate struct {
		archetype *model.Archetype
		placed    geom.Polygon
	}
	placed := make([]candidate, 0, len(l.Archetypes))
	for _, a := range l.Archetypes {
		p := geometry.Translate(a.Geometry, centre.X, centre.Y)
		p = geometry.RotateAbout(p, centre, aspectDeg)
		placed = append(placed, candidate{a, p})
	}

	best := -1
	bestScore := scoreThreshold
	for i, c := range placed {
		if math.Abs(c.archetype.AreaM2-roofArea) >= areaDiffRejectM2 {
			continue
		}
		overhangArea := geometry.AreaOf(geometry.Difference(c.placed, roofPoly))
		if overhangArea > excessAreaRejectM2 {
			continue
		}
		missingArea := geometry.AreaOf(geometry.Difference(roofPoly, c.placed))
		score := (scoreWeightMissing*missingArea + scoreWeightOverhang*overhangArea) / roofArea
		if score < bestScore || (best >= 0 && score == bestScore && c.archetype.AreaM2 > placed[best].archetype.AreaM2) {
			bestScore, best = score, i
		}
	}
	if best >= 0 {
		return placedArchetype(placed[best].archetype, placed[best].placed)
	}

	best = -1
	bestScore = fallbackScoreInit
	for i, c := range placed {
		overhangArea := geometry.AreaOf(geometry.Difference(c.placed, roofPoly))
		score := overhangArea / roofArea
		if score < bestScore || (best >= 0 && score == bestScore && c.archetype.AreaM2 > placed[best].archetype.AreaM2) {
			bestScore, best = score, i
		}
	}
	if best >= 0 {
		return placedArchetype(placed[best].archetype, placed[best].placed)
	}
	return nil
}

func placedArchetype(a *model.Archetype, placedGeom geom.Polygon) *model.Archetype {
	return &model.Archetype{
		Name:     a.Name,
		Pattern:  a.Pattern,
		Portrait: a.Portrait,
		Geometry: placedGeom,
		AreaM2:   geometry.Area(placedGeom),
	}
}
