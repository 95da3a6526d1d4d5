// Command solarpv-worker runs one roof-plane-extraction and panel-yield
// job against a configured raster/vector backend.
//
// In the teacher's style (main.go's flat, log.Fatalf-on-setup-error
// command layer) rather than a cobra/viper CLI framework, since the
// original system's entry point is itself a single `main` with flag
// parsing.
package main

import (
	"context"
	"flag"
	"log"
	"runtime"

	"github.com/albion-models/solarpv-core/internal/config"
	"github.com/albion-models/solarpv-core/internal/gobstore"
	"github.com/albion-models/solarpv-core/internal/logging"
	"github.com/albion-models/solarpv-core/internal/pipeline"
)

func main() {
	jobID := flag.Int64("job-id", 0, "job id to process")
	workers := flag.Int("workers", defaultWorkers(), "number of worker goroutines")
	pageSize := flag.Int("page-size", pipeline.DefaultRANSACPageSize, "buildings per page")
	seed := flag.Int64("seed", 1, "base RANSAC RNG seed")
	datasetPath := flag.String("dataset", "", "path to a gob-encoded gobstore.Dataset (required; a real deployment backs internal/store with its own warehouse instead)")
	resultsPath := flag.String("results", "results.gob", "path to write the gob-encoded gobstore.Results to")
	flag.Parse()

	if *jobID == 0 {
		log.Fatal("solarpv-worker: -job-id is required")
	}
	if *datasetPath == "" {
		log.Fatal("solarpv-worker: -dataset is required")
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("solarpv-worker: invalid config: %s", err)
	}

	logger, err := logging.New()
	if err != nil {
		log.Fatalf("solarpv-worker: setting up logging: %s", err)
	}
	defer logger.Sync()

	dataset, err := gobstore.LoadDataset(*datasetPath)
	if err != nil {
		log.Fatalf("solarpv-worker: loading dataset: %s", err)
	}
	gs := gobstore.NewStore(dataset)

	job := &pipeline.Job{
		JobID:     *jobID,
		Config:    cfg,
		Workers:   *workers,
		PageSize:  *pageSize,
		Buildings: gs,
		Rasters:   gs,
		Polygons:  gs,
		Logger:    logger,
		Seed:      *seed,
	}

	if err := job.Run(context.Background()); err != nil {
		log.Fatalf("solarpv-worker: job %d failed: %s", *jobID, err)
	}

	if err := gs.SaveResults(*resultsPath); err != nil {
		log.Fatalf("solarpv-worker: saving results: %s", err)
	}
}

// defaultWorkers is 75% of detected CPUs, per spec.md §5.
func defaultWorkers() int {
	n := int(float64(runtime.NumCPU()) * 0.75)
	if n < 1 {
		n = 1
	}
	return n
}
