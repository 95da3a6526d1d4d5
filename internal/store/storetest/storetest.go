// Package storetest provides in-memory fakes for internal/store's
// interfaces, used by the pipeline's end-to-end scenario tests.
package storetest

import (
	"context"
	"sync"

	"github.com/albion-models/solarpv-core/internal/model"
)

// Buildings is an in-memory BuildingStore fixture: a fixed building list
// plus mutable per-TOID outcome fields the pipeline writes to.
type Buildings struct {
	mu        sync.Mutex
	buildings []*model.Building

	ExclusionReasons map[string]model.ExclusionReason
	Heights          map[string]float64
}

// NewBuildings returns a Buildings fixture seeded with the given
// buildings.
func NewBuildings(buildings []*model.Building) *Buildings {
	return &Buildings{
		buildings:        buildings,
		ExclusionReasons: make(map[string]model.ExclusionReason),
		Heights:          make(map[string]float64),
	}
}

func (b *Buildings) Buildings(_ context.Context, _ int64, page, pageSize int) ([]*model.Building, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := page * pageSize
	if start >= len(b.buildings) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(b.buildings) {
		end = len(b.buildings)
	}
	return b.buildings[start:end], nil
}

func (b *Buildings) SetExclusionReason(_ context.Context, toid string, reason model.ExclusionReason) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ExclusionReasons[toid] = reason
	return nil
}

func (b *Buildings) SetHeight(_ context.Context, toid string, heightM float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Heights[toid] = heightM
	return nil
}

// Rasters is an in-memory RasterStore fixture keyed by TOID.
type Rasters struct {
	mu sync.Mutex
	// Pixels maps TOID -> all candidate pixels for that building, across
	// every layer the fixture was constructed to answer for. Layer
	// filtering is not modelled: fixtures hand back whichever pixel fields
	// a test populated, since component tests only ever read fields they
	// themselves set.
	Pixels map[string][]model.Pixel
}

// NewRasters returns a Rasters fixture seeded with one pixel set per TOID.
func NewRasters(pixels map[string][]model.Pixel) *Rasters {
	return &Rasters{Pixels: pixels}
}

func (r *Rasters) PixelsForBuildings(_ context.Context, _ int64, _, _ int, _ []string, toids []string) (map[string][]model.Pixel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]model.Pixel, len(toids))
	for _, toid := range toids {
		out[toid] = r.Pixels[toid]
	}
	return out, nil
}

// Polygons is an in-memory PolygonStore fixture that assigns sequential
// row ids to saved roof polygons and panels.
type Polygons struct {
	mu sync.Mutex

	nextRoofID  int64
	nextPanelID int64

	RoofPolygonsByTOID map[string][]*model.RoofPolygon
	RoofPolygonIDs     map[int64]*model.RoofPolygon
	PanelsByRoofID     map[int64][]*model.Panel
}

// NewPolygons returns an empty Polygons fixture.
func NewPolygons() *Polygons {
	return &Polygons{
		RoofPolygonsByTOID: make(map[string][]*model.RoofPolygon),
		RoofPolygonIDs:     make(map[int64]*model.RoofPolygon),
		PanelsByRoofID:     make(map[int64][]*model.Panel),
	}
}

func (p *Polygons) SaveRoofPolygons(_ context.Context, toid string, polys []*model.RoofPolygon) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, len(polys))
	for i, rp := range polys {
		p.nextRoofID++
		id := p.nextRoofID
		ids[i] = id
		p.RoofPolygonIDs[id] = rp
	}
	p.RoofPolygonsByTOID[toid] = append(p.RoofPolygonsByTOID[toid], polys...)
	return ids, nil
}

func (p *Polygons) SavePanels(_ context.Context, roofPolygonID int64, panels []*model.Panel) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, len(panels))
	for i := range panels {
		p.nextPanelID++
		ids[i] = p.nextPanelID
	}
	p.PanelsByRoofID[roofPolygonID] = append(p.PanelsByRoofID[roofPolygonID], panels...)
	return ids, nil
}
