// Package diagnostics holds deployment-time sanity checks and visual
// exports that sit alongside the panel-yield computation without feeding
// into it.
//
// Grounded on aclements-shade's sun.go (suncalc.GetPosition usage) and
// heatmap.go (gonum/plot heat maps).
package diagnostics

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// FlatRoofSunAngleDeg is the sun altitude the flat-roof row-spacing
// formula in internal/panel assumes (spec.md §4.G, Open Questions §9).
const FlatRoofSunAngleDeg = 15.0

// WinterSolsticeNoonAltitude returns the sun's altitude in degrees at
// local mean solar noon on the December winter solstice for the given
// latitude/longitude, the same quantity aclements-shade's GetSunPos
// computes for shading rays. This is the year's lowest noon sun angle, and
// so the hardest case for the flat-roof row-spacing formula's fixed 15°
// assumption.
func WinterSolsticeNoonAltitude(year int, latitude, longitude float64) float64 {
	// Mean solar noon comes 4 minutes earlier in UTC per degree east.
	t := time.Date(year, time.December, 21, 12, 0, 0, 0, time.UTC).
		Add(-time.Duration(longitude / 15 * float64(time.Hour)))
	p := suncalc.GetPosition(t, latitude, longitude)
	return p.Altitude * 180 / math.Pi
}

// FlatRoofSpacingAssumptionHolds reports whether the fixed 15° sun-altitude
// assumption behind the flat-roof inter-row clearance formula is
// conservative for this job's location: the assumption is safe as long as
// the sun never gets lower than 15° at solar noon even at the winter
// solstice, since a lower noon altitude would need more row clearance than
// the formula gives.
func FlatRoofSpacingAssumptionHolds(year int, latitude, longitude float64) bool {
	return WinterSolsticeNoonAltitude(year, latitude, longitude) >= FlatRoofSunAngleDeg
}
