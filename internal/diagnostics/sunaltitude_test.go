package diagnostics

import "testing"

func TestWinterSolsticeNoonAltitudeEquatorIsHigh(t *testing.T) {
	// At the equator, noon sun altitude near the December solstice is
	// high regardless of season (within ~23.5 deg of overhead).
	got := WinterSolsticeNoonAltitude(2026, 0, 0)
	if got < 60 {
		t.Errorf("WinterSolsticeNoonAltitude(equator) = %v, want > 60", got)
	}
}

func TestWinterSolsticeNoonAltitudeHighLatitudeIsLow(t *testing.T) {
	// Well north of the Arctic circle, the sun at December solar noon
	// barely clears the horizon, if at all.
	got := WinterSolsticeNoonAltitude(2026, 65, 0)
	if got > 10 {
		t.Errorf("WinterSolsticeNoonAltitude(65N) = %v, want <= 10 (near polar night)", got)
	}
}

func TestFlatRoofSpacingAssumptionHoldsNearEquator(t *testing.T) {
	if !FlatRoofSpacingAssumptionHolds(2026, 0, 0) {
		t.Error("FlatRoofSpacingAssumptionHolds(equator) = false, want true")
	}
}

func TestFlatRoofSpacingAssumptionFailsAtHighLatitude(t *testing.T) {
	if FlatRoofSpacingAssumptionHolds(2026, 65, 0) {
		t.Error("FlatRoofSpacingAssumptionHolds(65N) = true, want false (winter noon sun too low)")
	}
}
