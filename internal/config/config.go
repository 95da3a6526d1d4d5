// Package config defines, defaults and validates the options the core recognises (see
// spec §6). Everything else — RANSAC thresholds, perimeter-gradient
// thresholds, system loss, archetype score constants — is a named constant
// kept alongside the component that uses it.
package config

import "fmt"

// Config holds the job-level options a caller may override.
type Config struct {
	HorizonSlices int

	FlatRoofDegrees          float64
	MaxRoofSlopeDegrees      float64
	MinRoofAreaM             float64
	MinRoofDegreesFromNorth  float64
	LargeBuildingThresholdM2 float64

	MinDistToEdgeM      float64
	MinDistToEdgeLargeM float64

	PanelWidthM   float64
	PanelHeightM  float64
	PanelSpacingM float64

	PeakPowerPerM2 float64

	ResolutionMetres float64
}

// Default returns the option values the spec documents as defaults.
func Default() Config {
	return Config{
		HorizonSlices:            36,
		FlatRoofDegrees:          10,
		MaxRoofSlopeDegrees:      80,
		MinRoofAreaM:             8,
		MinRoofDegreesFromNorth:  45,
		LargeBuildingThresholdM2: 200,
		MinDistToEdgeM:           0.3,
		MinDistToEdgeLargeM:      1.0,
		PanelWidthM:              0.99,
		PanelHeightM:             1.64,
		PanelSpacingM:            0.01,
		PeakPowerPerM2:           0.2,
		ResolutionMetres:         1.0,
	}
}

// Validate checks the invariants the spec requires of the configuration,
// in particular the Open Question resolved in SPEC_FULL.md §9: downstream
// code assumes horizon_slices divides 360 evenly, so that is enforced here
// rather than discovered later as a silent truncation.
func (c Config) Validate() error {
	if c.HorizonSlices <= 0 {
		return fmt.Errorf("config: horizon_slices must be positive, got %d", c.HorizonSlices)
	}
	if 360%c.HorizonSlices != 0 {
		return fmt.Errorf("config: horizon_slices (%d) must divide 360 evenly", c.HorizonSlices)
	}
	if c.ResolutionMetres <= 0 {
		return fmt.Errorf("config: resolution_metres must be positive, got %g", c.ResolutionMetres)
	}
	if c.PanelWidthM <= 0 || c.PanelHeightM <= 0 {
		return fmt.Errorf("config: panel_width_m and panel_height_m must be positive")
	}
	if c.MinDistToEdgeM < 0 || c.MinDistToEdgeLargeM < 0 {
		return fmt.Errorf("config: min_dist_to_edge_m and min_dist_to_edge_large_m must be non-negative")
	}
	if c.PeakPowerPerM2 <= 0 {
		return fmt.Errorf("config: peak_power_per_m2 must be positive")
	}
	return nil
}

// MinDistToEdge returns the interior offset to use for a building of the
// given plan area, per spec §4.E step 4.
func (c Config) MinDistToEdge(buildingAreaM2 float64) float64 {
	if buildingAreaM2 >= c.LargeBuildingThresholdM2 {
		return c.MinDistToEdgeLargeM
	}
	return c.MinDistToEdgeM
}
