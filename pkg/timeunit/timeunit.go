// Package timeunit centralizes conversion between wall-clock minutes and
// the core's internal 15-minute discrete unit, plus horizon computation.
// All durations inside the core are positive integers in these units; the
// wire format uses minutes (see spec §6), so every boundary crossing goes
// through this package rather than being reimplemented ad hoc.
package timeunit

// UnitMinutes is the width, in minutes, of one internal time unit.
const UnitMinutes = 15

// HorizonBufferNumerator/HorizonBufferDenominator express the 20% slack
// policy constant from spec §4.1 as an integer ratio, avoiding floating
// point in a value that feeds directly into domain bounds.
const (
	HorizonBufferNumerator   = 6
	HorizonBufferDenominator = 5
)

// MinutesToUnitsCeil converts a duration in minutes to units, rounding up.
// Used for durations: a 16-minute task must reserve 2 full units, never 1.
func MinutesToUnitsCeil(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return (minutes + UnitMinutes - 1) / UnitMinutes
}

// MinutesToUnitsFloor converts an absolute minute offset to units, rounding
// down. Used for timestamps (earliest-start, due dates): a job available at
// minute 16 is available from unit 1 onward, not unit 2.
func MinutesToUnitsFloor(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes / UnitMinutes
}

// UnitsToMinutes converts a unit count back to minutes for the wire
// contract. This is the exact inverse scale (no rounding needed going this
// direction since units are always whole).
func UnitsToMinutes(units int) int {
	return units * UnitMinutes
}

// HorizonUnits computes the scheduling horizon per spec §4.1: the maximum
// over instances of (earliestStart + criticalPathUpperBound) scaled by the
// 20% buffer, rounded up. earliestStarts holds one entry per instance and
// criticalPathBound is the template's single bound, both in units already.
func HorizonUnits(earliestStarts []int, criticalPathBound int) int {
	maxBound := 0
	for _, es := range earliestStarts {
		bound := es + criticalPathBound
		if bound > maxBound {
			maxBound = bound
		}
	}
	scaled := maxBound * HorizonBufferNumerator
	return ceilDiv(scaled, HorizonBufferDenominator)
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
