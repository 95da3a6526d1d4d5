// Package rasterio is the raster access component (component B): it reads
// per-building pixel windows from named raster layers and splits them into
// interior and exterior-buffer sets for the LiDAR quality check.
//
// The actual raster storage is an external collaborator (see spec.md §1,
// "out of scope"); this package only depends on the narrow Source
// interface below, which a real backend implements.
package rasterio

import (
	"context"
	"fmt"

	"github.com/albion-models/solarpv-core/internal/model"
)

// Layer names the core reads from the raster store.
const (
	LayerElevation = "elevation"
	LayerAspect    = "aspect"
	LayerMask      = "mask"
	LayerKWhYear   = "kwh_year"
)

// MonthLayer returns the raster layer name for the given 1-based month.
func MonthLayer(month int) string {
	return fmt.Sprintf("month_%02d_wh", month)
}

// HorizonLayer returns the raster layer name for the given 0-based
// horizon slice.
func HorizonLayer(slice int) string {
	return fmt.Sprintf("horizon_%02d", slice)
}

// Source is the external raster store's page-oriented read contract:
// pixels_for_buildings(job_id, page, page_size, raster_layers, toids?) from
// spec.md §4.B.
type Source interface {
	PixelsForBuildings(ctx context.Context, jobID int64, page, pageSize int, layers []string, toids []string) (map[string][]model.Pixel, error)
}

// ReadInteriorAndBuffer reads the elevation+aspect+mask window for the
// given buildings and splits each building's pixels into its interior set
// and its exterior buffer-ring set, per spec.md §4.B's second helper.
func ReadInteriorAndBuffer(ctx context.Context, src Source, jobID int64, page, pageSize int, toids []string) (interior, exterior map[string][]model.Pixel, err error) {
	layers := []string{LayerElevation, LayerAspect, LayerMask}
	all, err := src.PixelsForBuildings(ctx, jobID, page, pageSize, layers, toids)
	if err != nil {
		return nil, nil, err
	}
	interior = make(map[string][]model.Pixel, len(all))
	exterior = make(map[string][]model.Pixel, len(all))
	for toid, pixels := range all {
		for _, px := range pixels {
			if px.WithinBuilding {
				interior[toid] = append(interior[toid], px)
			} else if px.WithoutBuilding {
				exterior[toid] = append(exterior[toid], px)
			}
		}
	}
	return interior, exterior, nil
}

// ReadYield reads the annual-kWh, twelve monthly-Wh and N horizon layers
// for a page of buildings, as consumed by the pixel→panel aggregator
// (component H).
func ReadYield(ctx context.Context, src Source, jobID int64, page, pageSize int, toids []string, horizonSlices int) (map[string][]model.Pixel, error) {
	layers := make([]string, 0, 1+12+horizonSlices)
	layers = append(layers, LayerKWhYear)
	for m := 1; m <= 12; m++ {
		layers = append(layers, MonthLayer(m))
	}
	for h := 0; h < horizonSlices; h++ {
		layers = append(layers, HorizonLayer(h))
	}
	return src.PixelsForBuildings(ctx, jobID, page, pageSize, layers, toids)
}
