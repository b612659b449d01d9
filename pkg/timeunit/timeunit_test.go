package timeunit

import "testing"

func TestMinutesToUnitsCeilRoundTrip(t *testing.T) {
	// Property 8: units_to_minutes(minutes_to_units(d)) >= d and < d+15.
	for d := 1; d <= 200; d++ {
		units := MinutesToUnitsCeil(d)
		roundTripped := UnitsToMinutes(units)
		if roundTripped < d {
			t.Fatalf("duration %d: round trip %d is below original", d, roundTripped)
		}
		if roundTripped >= d+UnitMinutes {
			t.Fatalf("duration %d: round trip %d exceeds d+15", d, roundTripped)
		}
	}
}

func TestMinutesToUnitsCeilExamples(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 15: 1, 16: 2, 30: 2, 31: 3}
	for minutes, want := range cases {
		if got := MinutesToUnitsCeil(minutes); got != want {
			t.Errorf("MinutesToUnitsCeil(%d) = %d, want %d", minutes, got, want)
		}
	}
}

func TestMinutesToUnitsFloorExamples(t *testing.T) {
	cases := map[int]int{0: 0, 14: 0, 15: 1, 16: 1, 29: 1, 30: 2, -5: 0}
	for minutes, want := range cases {
		if got := MinutesToUnitsFloor(minutes); got != want {
			t.Errorf("MinutesToUnitsFloor(%d) = %d, want %d", minutes, got, want)
		}
	}
}

func TestHorizonUnitsAppliesBuffer(t *testing.T) {
	// earliestStart=0, criticalPath=10 -> bound=10, *1.2 = 12
	got := HorizonUnits([]int{0}, 10)
	if got != 12 {
		t.Errorf("HorizonUnits = %d, want 12", got)
	}
}

func TestHorizonUnitsPicksMaxAcrossInstances(t *testing.T) {
	got := HorizonUnits([]int{0, 5, 2}, 10)
	// max bound is 5+10=15, *1.2 = 18
	if got != 18 {
		t.Errorf("HorizonUnits = %d, want 18", got)
	}
}
