// Package pipeline wires components B through H into the per-building
// worker pool spec.md §5 describes: a fixed number of goroutines each pull
// whole pages of buildings and process every building in a page
// sequentially through the LiDAR check, RANSAC, roof-polygon trimming,
// archetype matching, panel layout and pixel→panel aggregation stages.
//
// Generalised from aclements-shade's single-building, single-goroutine
// model (main.go computed one mesh's shading over a whole year in one
// goroutine) to N workers over N building pages.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ctessum/geom"

	"github.com/albion-models/solarpv-core/internal/aggregate"
	"github.com/albion-models/solarpv-core/internal/archetype"
	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/lidarcheck"
	"github.com/albion-models/solarpv-core/internal/logging"
	"github.com/albion-models/solarpv-core/internal/model"
	"github.com/albion-models/solarpv-core/internal/panel"
	"github.com/albion-models/solarpv-core/internal/ransac"
	"github.com/albion-models/solarpv-core/internal/rasterio"
	"github.com/albion-models/solarpv-core/internal/roofpoly"
	"github.com/albion-models/solarpv-core/internal/store"
)

// DefaultLidarPageSize and DefaultRANSACPageSize are the page sizes
// spec.md §5 gives for the two cost regimes: LiDAR screening and
// aggregation are cheap per building, RANSAC is not. A single pipeline
// page is sized for the heavier RANSAC stage since all stages share one
// page within a worker.
const (
	DefaultLidarPageSize  = 1000
	DefaultRANSACPageSize = 50
)

// Job bundles everything one run of the pipeline needs.
type Job struct {
	JobID    int64
	Config   config.Config
	Workers  int
	PageSize int

	Buildings store.BuildingStore
	Rasters   store.RasterStore
	Polygons  store.PolygonStore

	Logger *zap.Logger

	// Seed derives each worker's deterministic RNG seed; worker i uses
	// Seed+int64(i), per SPEC_FULL.md's Design Notes on per-process RNGs.
	Seed int64
}

// worker holds the per-goroutine singletons a page is processed with: the
// archetype library and RANSAC fitter are expensive or stateful enough
// that they are built once per worker rather than once per building.
type worker struct {
	job          *Job
	archetypeLib *archetype.Library
	fitter       *ransac.Fitter
	roofBuilder  *roofpoly.Builder
	panelBuilder *panel.Builder
	aggregator   *aggregate.Aggregator
}

// Run drives the pipeline to completion, fanning building pages out across
// Job.Workers goroutines. It returns the first page-processing error (per
// spec.md §7, a page failure terminates that worker and the run reports
// non-zero; buildings already written by other workers remain durable).
func (j *Job) Run(ctx context.Context) error {
	pageSize := j.PageSize
	if pageSize <= 0 {
		pageSize = DefaultRANSACPageSize
	}
	workers := j.Workers
	if workers <= 0 {
		workers = 1
	}

	pages := make(chan int)
	errs := make(chan error, workers)
	done := make(chan struct{})
	var wg sync.WaitGroup

	for wNum := 0; wNum < workers; wNum++ {
		wg.Add(1)
		seed := j.Seed + int64(wNum)
		go func(seed int64) {
			defer wg.Done()
			w := &worker{
				job:          j,
				archetypeLib: archetype.NewLibrary(j.Config.PanelWidthM, j.Config.PanelHeightM),
				fitter:       ransac.NewFitter(seed, roofpoly.GroupCheck),
				roofBuilder:  roofpoly.NewBuilder(j.Config),
				panelBuilder: panel.NewBuilder(j.Config),
				aggregator:   aggregate.NewAggregator(j.Config),
			}
			for page := range pages {
				buildings, err := j.Buildings.Buildings(ctx, j.JobID, page, pageSize)
				if err != nil {
					errs <- fmt.Errorf("pipeline: listing page %d: %w", page, err)
					return
				}
				if len(buildings) == 0 {
					// Past the last page: every later page is empty too.
					return
				}
				if err := w.processPage(ctx, buildings); err != nil {
					if j.Logger != nil {
						logging.PageFailed(j.Logger, j.JobID, page, err)
					}
					errs <- err
					return
				}
			}
		}(seed)
	}

	go func() {
		defer close(pages)
		for page := 0; ; page++ {
			select {
			case pages <- page:
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
		close(errs)
	}()

	var firstErr error
	for err := range errs {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// roofEntry tracks one accepted RoofPolygon's saved id and its packed (not
// yet yield-aggregated) panels, for component H to aggregate against
// per-building yield pixels.
type roofEntry struct {
	id     int64
	rp     *model.RoofPolygon
	panels []*model.Panel
}

// processPage runs every stage for each building in the page, in order.
func (w *worker) processPage(ctx context.Context, buildings []*model.Building) error {
	j := w.job
	toids := make([]string, len(buildings))
	for i, b := range buildings {
		toids[i] = b.TOID
	}

	interior, exterior, err := rasterio.ReadInteriorAndBuffer(ctx, j.Rasters, j.JobID, 0, len(toids), toids)
	if err != nil {
		return fmt.Errorf("reading lidar pixels: %w", err)
	}

	lidarParams := lidarcheck.DefaultParams(j.Config.ResolutionMetres)

	usableTOIDs := make([]string, 0, len(buildings))
	roofsByTOID := make(map[string][]roofEntry)

	for _, b := range buildings {
		in, out := interior[b.TOID], exterior[b.TOID]
		result := lidarcheck.Check(b, in, out, lidarParams)
		if result.ExclusionReason != model.NoExclusion {
			if err := j.excludeBuilding(ctx, b, result.ExclusionReason); err != nil {
				return err
			}
			continue
		}
		if err := j.Buildings.SetHeight(ctx, b.TOID, result.HeightM); err != nil {
			return fmt.Errorf("setting height: %w", err)
		}

		ransacParams := ransac.DefaultParams(len(in), j.Config.ResolutionMetres)
		planes := w.fitter.FitAll(in, ransacParams)
		if len(planes) == 0 {
			if err := j.excludeBuilding(ctx, b, model.NoRoofPlanesDetected); err != nil {
				return err
			}
			continue
		}

		roofPolys, panelsByRoof := w.buildRoofsAndPanels(b, planes)

		ids, err := j.Polygons.SaveRoofPolygons(ctx, b.TOID, roofPolys)
		if err != nil {
			return fmt.Errorf("saving roof polygons: %w", err)
		}

		var entries []roofEntry
		for i, rp := range roofPolys {
			if !rp.Usable {
				if j.Logger != nil {
					logging.RoofPolygonUnusable(j.Logger, b.TOID, i, string(rp.NotUsableReason))
				}
				continue
			}
			entries = append(entries, roofEntry{id: ids[i], rp: rp, panels: panelsByRoof[rp]})
		}

		if len(entries) == 0 {
			if err := j.excludeBuilding(ctx, b, model.AllRoofPlanesUnusable); err != nil {
				return err
			}
			continue
		}

		roofsByTOID[b.TOID] = entries
		usableTOIDs = append(usableTOIDs, b.TOID)
	}

	if len(usableTOIDs) == 0 {
		return nil
	}
	return w.aggregateAndSave(ctx, usableTOIDs, roofsByTOID)
}

// buildRoofsAndPanels runs components E, F and G for every extracted
// plane of one building, enforcing the non-overlap accumulation across
// planes that roofpoly.Builder requires.
func (w *worker) buildRoofsAndPanels(b *model.Building, planes []*model.Plane) ([]*model.RoofPolygon, map[*model.RoofPolygon][]*model.Panel) {
	var accepted []geom.Polygon
	roofPolys := make([]*model.RoofPolygon, 0, len(planes))
	panelsByRoof := make(map[*model.RoofPolygon][]*model.Panel, len(planes))

	for _, plane := range planes {
		rp := w.roofBuilder.Build(plane, b, accepted)
		if rp.Geometry != nil {
			accepted = append(accepted, rp.Geometry)
		}
		if rp.Usable {
			if a := w.archetypeLib.Match(rp.Geometry, plane.AspectDeg); a != nil {
				rp.Archetype = a
			}
			panels := w.panelBuilder.Build(rp)
			if rp.Usable && len(panels) > 0 {
				panelsByRoof[rp] = panels
			}
		}
		roofPolys = append(roofPolys, rp)
	}
	return roofPolys, panelsByRoof
}

// aggregateAndSave reads the annual/monthly/horizon yield layers for every
// usable building in the page and area-weights them onto each building's
// packed panels (component H), then persists the resulting panels per
// RoofPolygon.
func (w *worker) aggregateAndSave(ctx context.Context, usableTOIDs []string, roofsByTOID map[string][]roofEntry) error {
	j := w.job
	yieldPixels, err := rasterio.ReadYield(ctx, j.Rasters, j.JobID, 0, len(usableTOIDs), usableTOIDs, j.Config.HorizonSlices)
	if err != nil {
		return fmt.Errorf("reading yield pixels: %w", err)
	}

	for _, toid := range usableTOIDs {
		entries := roofsByTOID[toid]

		idForRoof := make(map[*model.RoofPolygon]int64, len(entries))
		var allPanels []*model.Panel
		for _, e := range entries {
			idForRoof[e.rp] = e.id
			allPanels = append(allPanels, e.panels...)
		}

		aggregated := w.aggregator.Aggregate(yieldPixels[toid], allPanels)
		if len(aggregated) == 0 {
			continue
		}

		byRoof := make(map[*model.RoofPolygon][]*model.Panel, len(entries))
		for _, p := range aggregated {
			byRoof[p.RoofPolygon] = append(byRoof[p.RoofPolygon], p)
		}
		for rp, panels := range byRoof {
			if _, err := j.Polygons.SavePanels(ctx, idForRoof[rp], panels); err != nil {
				return fmt.Errorf("saving panels: %w", err)
			}
		}
	}
	return nil
}

func (j *Job) excludeBuilding(ctx context.Context, b *model.Building, reason model.ExclusionReason) error {
	b.ExclusionReason = reason
	if err := j.Buildings.SetExclusionReason(ctx, b.TOID, reason); err != nil {
		return fmt.Errorf("setting exclusion reason: %w", err)
	}
	if j.Logger != nil {
		logging.BuildingExcluded(j.Logger, j.JobID, b.TOID, string(reason))
	}
	return nil
}
