// Package store defines the external-collaborator interfaces the pipeline
// reads buildings, pixels and writes results through (spec.md §6). A real
// deployment backs these with a PostGIS-backed raster/vector warehouse, as
// the original system did; this package only names the contract.
package store

import (
	"context"

	"github.com/albion-models/solarpv-core/internal/model"
)

// BuildingStore lists a job's buildings page by page and records terminal
// per-building outcomes.
type BuildingStore interface {
	Buildings(ctx context.Context, jobID int64, page, pageSize int) ([]*model.Building, error)
	SetExclusionReason(ctx context.Context, toid string, reason model.ExclusionReason) error
	SetHeight(ctx context.Context, toid string, heightM float64) error
}

// RasterStore reads named raster layers for a page of buildings, scoped to
// an optional TOID subset.
type RasterStore interface {
	PixelsForBuildings(ctx context.Context, jobID int64, page, pageSize int, layers []string, toids []string) (map[string][]model.Pixel, error)
}

// PolygonStore persists the roof polygons and panel layouts the pipeline
// derives.
type PolygonStore interface {
	// SaveRoofPolygons persists polys and returns their assigned row ids in
	// the same order, for use as SavePanels' roofPolygonID.
	SaveRoofPolygons(ctx context.Context, toid string, polys []*model.RoofPolygon) (ids []int64, err error)
	SavePanels(ctx context.Context, roofPolygonID int64, panels []*model.Panel) (ids []int64, err error)
}
