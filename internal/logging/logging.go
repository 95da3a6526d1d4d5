// Package logging provides the structured per-building logger the
// pipeline writes outcomes through, in the style of
// go.uber.org/zap used throughout arx-backend's gateway package
// (zap.NewProduction, zap.String/zap.Int/zap.Error field helpers).
package logging

import "go.uber.org/zap"

// New returns a production zap logger. Callers should defer l.Sync().
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}

// BuildingExcluded logs a building dropped from modelling entirely.
func BuildingExcluded(l *zap.Logger, jobID int64, toid string, reason string) {
	l.Info("building excluded",
		zap.Int64("job_id", jobID),
		zap.String("toid", toid),
		zap.String("reason", reason))
}

// RoofPolygonUnusable logs a roof polygon rejected as unsuitable for
// mounting.
func RoofPolygonUnusable(l *zap.Logger, toid string, planeIndex int, reason string) {
	l.Info("roof polygon not usable",
		zap.String("toid", toid),
		zap.Int("plane_index", planeIndex),
		zap.String("reason", reason))
}

// GeometryInvalid logs a geometry operation that produced an invalid or
// empty result even after a make-valid pass, per spec.md §7.
func GeometryInvalid(l *zap.Logger, toid string, stage string) {
	l.Warn("geometry invalid after make-valid pass",
		zap.String("toid", toid),
		zap.String("stage", stage))
}

// PageFailed logs an I/O failure that terminated a worker's page, per
// spec.md §7's cancellation semantics.
func PageFailed(l *zap.Logger, jobID int64, page int, err error) {
	l.Error("page failed",
		zap.Int64("job_id", jobID),
		zap.Int("page", page),
		zap.Error(err))
}
