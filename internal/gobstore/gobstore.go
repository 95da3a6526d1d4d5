// Package gobstore is a single-file, gob-encoded implementation of
// internal/store's interfaces, for running the pipeline against a fixture
// dataset without a real raster/vector warehouse.
//
// Adapted from aclements-shade's cache.go, which memoised whole-year
// shading results to a gob file keyed by a sha256 of its inputs; here the
// same gob-encode-to-a-file idiom carries a job's whole building/pixel
// dataset in rather than a memoised computation.
package gobstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/albion-models/solarpv-core/internal/model"
)

// Dataset is everything one job needs as input: every building's
// footprint plus every building's pixels, keyed by TOID.
type Dataset struct {
	Buildings []*model.Building
	Pixels    map[string][]model.Pixel
}

// LoadDataset decodes a Dataset previously written by SaveDataset.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gobstore: opening dataset: %w", err)
	}
	defer f.Close()
	var ds Dataset
	if err := gob.NewDecoder(f).Decode(&ds); err != nil {
		return nil, fmt.Errorf("gobstore: decoding dataset: %w", err)
	}
	return &ds, nil
}

// SaveDataset gob-encodes a Dataset to path, for preparing fixtures.
func SaveDataset(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gobstore: creating dataset file: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(ds); err != nil {
		return fmt.Errorf("gobstore: encoding dataset: %w", err)
	}
	return nil
}

// Results is everything the pipeline wrote back for a job, gob-encoded to
// a single output file by Store.SaveResults.
type Results struct {
	ExclusionReasons map[string]model.ExclusionReason
	Heights          map[string]float64
	RoofPolygons     map[string][]*model.RoofPolygon
	PanelsByRoofID   map[int64][]*model.Panel
}

// Store implements store.BuildingStore, store.RasterStore and
// store.PolygonStore over an in-memory Dataset, accumulating results to
// be flushed to disk with SaveResults once a run completes.
type Store struct {
	mu sync.Mutex

	dataset *Dataset
	results Results

	nextRoofID int64
}

// NewStore returns a Store serving buildings and pixels from ds.
func NewStore(ds *Dataset) *Store {
	return &Store{
		dataset: ds,
		results: Results{
			ExclusionReasons: make(map[string]model.ExclusionReason),
			Heights:          make(map[string]float64),
			RoofPolygons:     make(map[string][]*model.RoofPolygon),
			PanelsByRoofID:   make(map[int64][]*model.Panel),
		},
	}
}

func (s *Store) Buildings(_ context.Context, _ int64, page, pageSize int) ([]*model.Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := page * pageSize
	if start >= len(s.dataset.Buildings) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(s.dataset.Buildings) {
		end = len(s.dataset.Buildings)
	}
	return s.dataset.Buildings[start:end], nil
}

func (s *Store) SetExclusionReason(_ context.Context, toid string, reason model.ExclusionReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.ExclusionReasons[toid] = reason
	return nil
}

func (s *Store) SetHeight(_ context.Context, toid string, heightM float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.Heights[toid] = heightM
	return nil
}

func (s *Store) PixelsForBuildings(_ context.Context, _ int64, _, _ int, _ []string, toids []string) (map[string][]model.Pixel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]model.Pixel, len(toids))
	for _, toid := range toids {
		out[toid] = s.dataset.Pixels[toid]
	}
	return out, nil
}

func (s *Store) SaveRoofPolygons(_ context.Context, toid string, polys []*model.RoofPolygon) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, len(polys))
	for i := range polys {
		s.nextRoofID++
		ids[i] = s.nextRoofID
	}
	s.results.RoofPolygons[toid] = append(s.results.RoofPolygons[toid], polys...)
	return ids, nil
}

func (s *Store) SavePanels(_ context.Context, roofPolygonID int64, panels []*model.Panel) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, len(panels))
	for i := range ids {
		ids[i] = int64(i) + 1
	}
	s.results.PanelsByRoofID[roofPolygonID] = append(s.results.PanelsByRoofID[roofPolygonID], panels...)
	return ids, nil
}

// SaveResults gob-encodes everything written during the run to path.
func (s *Store) SaveResults(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gobstore: creating results file: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(s.results); err != nil {
		return fmt.Errorf("gobstore: encoding results: %w", err)
	}
	return nil
}
