// Package aggregate is the pixel→panel yield aggregator (component H): it
// spatially joins yield-raster pixels against packed panel polygons and
// area-weights each pixel's contribution.
//
// Ported from the pixel-to-panel aggregation step of
// albion_models/solar_pv/ after panel placement; no single original_source
// file corresponds 1:1, as that system pushed the equivalent join down
// into PostGIS (`ST_Intersection`/`ST_Area` over the panel and pixel
// tables). Here the join runs in-process over an R-tree, grounded on
// spatialmodel/inmap's population/mortality-rate spatial joins
// (vargrid.go's rtree.NewTree + SearchIntersect usage).
package aggregate

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/geometry"
	"github.com/albion-models/solarpv-core/internal/model"
)

// DefaultSystemLoss is the fractional generation loss applied to every
// panel's peak-power figure, per spec.md §4.H.
const DefaultSystemLoss = 0.14

var daysInMonth = [12]float64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// pixelItem adapts a model.Pixel's square footprint (one raster cell,
// ResolutionMetres on a side) to the rtree's bounding-box lookup.
type pixelItem struct {
	pixel  model.Pixel
	square geom.Polygon
}

func (p *pixelItem) Bounds() *geom.Bounds {
	return p.square.Bounds()
}

// Aggregator computes per-panel yield from a page of yield pixels.
type Aggregator struct {
	cfg        config.Config
	systemLoss float64
}

// NewAggregator returns an Aggregator for the given job configuration,
// using the default system loss.
func NewAggregator(cfg config.Config) *Aggregator {
	return &Aggregator{cfg: cfg, systemLoss: DefaultSystemLoss}
}

// k is the constant yield-scaling factor from spec.md §4.H:
// peak_power_per_m² × (1 − system_loss).
func (a *Aggregator) k() float64 {
	return a.cfg.PeakPowerPerM2 * (1 - a.systemLoss)
}

// Aggregate builds a spatial index over pixels (one ResolutionMetres-sided
// square per pixel, centred on its coordinate) and, for every panel, area-weights each
// contributing pixel's annual/monthly yield and mean horizon profile.
// Panels with zero contributing pixels are dropped from the result.
func (a *Aggregator) Aggregate(pixels []model.Pixel, panels []*model.Panel) []*model.Panel {
	if len(pixels) == 0 || len(panels) == 0 {
		return nil
	}
	res := a.cfg.ResolutionMetres / 2

	tree := rtree.NewTree(25, 50)
	for _, px := range pixels {
		sq := geometry.Rect(px.X-res, px.Y-res, res*2, res*2)
		tree.Insert(&pixelItem{pixel: px, square: sq})
	}

	kFactor := a.k()
	out := make([]*model.Panel, 0, len(panels))
	for _, panel := range panels {
		bounds := panel.Geometry.Bounds()
		hits := tree.SearchIntersect(bounds)
		if len(hits) == 0 {
			continue
		}

		var kwhYear float64
		var kwhMonth [12]float64
		var horizonSum []float64
		var horizonWeight float64
		contributed := false

		for _, hit := range hits {
			item, ok := hit.(*pixelItem)
			if !ok {
				continue
			}
			squareArea := geometry.Area(item.square)
			if squareArea <= 0 {
				continue
			}
			overlap := geometry.AreaOf(geometry.Intersection(item.square, panel.Geometry)) / squareArea
			if overlap <= 0 {
				continue
			}
			contributed = true
			kwhYear += item.pixel.KWhYear * overlap * kFactor
			for m := 0; m < 12; m++ {
				kwhMonth[m] += item.pixel.WhMonth[m] * 0.001 * daysInMonth[m] * overlap * kFactor
			}
			if horizonSum == nil {
				horizonSum = make([]float64, len(item.pixel.Horizon))
			}
			for i, h := range item.pixel.Horizon {
				if i < len(horizonSum) {
					horizonSum[i] += h * overlap
				}
			}
			horizonWeight += overlap
		}

		if !contributed {
			continue
		}

		panel.KWhYear = kwhYear
		panel.KWhMonth = kwhMonth
		if horizonWeight > 0 {
			panel.Horizon = make([]float64, len(horizonSum))
			for i, h := range horizonSum {
				panel.Horizon[i] = h / horizonWeight
			}
		}
		out = append(out, panel)
	}
	return out
}

