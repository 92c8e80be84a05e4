package pilotsync

import (
	"math"
	"testing"

	"github.com/cwsl/dsssmodem/firfilter"
)

func testFilters(t *testing.T) (narrow, low *firfilter.Filter) {
	t.Helper()

	narrow, err := firfilter.DesignBandpass(6000, 10000, 18000, 22000, 0.1, 21, 48000)
	if err != nil {
		t.Fatalf("DesignBandpass: %v", err)
	}
	low, err = firfilter.DesignLowpass(6000, 14000, 0.1, 21, 48000)
	if err != nil {
		t.Fatalf("DesignLowpass: %v", err)
	}
	return narrow, low
}

func testPilot() []float64 {
	// A fixed +/-1 sequence, long enough to give the energy detector
	// something to lock onto.
	signs := []float64{1, -1, 1, 1, -1, -1, 1, -1, 1, 1, 1, -1, -1, 1, -1, -1}
	return signs
}

func TestEnergyProfileRejectsInvalidParams(t *testing.T) {
	narrow, low := testFilters(t)
	pilot := testPilot()

	if _, err := EnergyProfile(nil, make([]float64, 10), narrow, low, 1); err == nil {
		t.Fatal("expected error for empty pilot")
	}
	if _, err := EnergyProfile(pilot, make([]float64, 4), narrow, low, 1); err == nil {
		t.Fatal("expected error when received is shorter than pilot")
	}
	if _, err := EnergyProfile(pilot, make([]float64, 40), narrow, low, 0); err == nil {
		t.Fatal("expected error for non-positive decimation")
	}
}

func TestFindPeakOnNoiselessAlignedPilot(t *testing.T) {
	narrow, low := testFilters(t)
	pilot := testPilot()

	// received == pilot exactly: the only scannable offset is 0.
	energy, err := EnergyProfile(pilot, pilot, narrow, low, 1)
	if err != nil {
		t.Fatal(err)
	}

	offset, value := FindPeak(energy)
	if offset != 0 {
		t.Fatalf("offset = %d, want 0", offset)
	}
	if value <= 0 {
		t.Fatalf("peak energy = %v, want > 0", value)
	}
}

func TestFindPeakLocatesShiftedPilot(t *testing.T) {
	narrow, low := testFilters(t)
	pilot := testPilot()

	const k = 40
	const decimation = 4

	received := make([]float64, k+len(pilot)+40)
	copy(received[k:], pilot)

	energy, err := EnergyProfile(pilot, received, narrow, low, decimation)
	if err != nil {
		t.Fatal(err)
	}

	offset, _ := FindPeak(energy)
	sampleOffset := offset * decimation

	groupDelay := narrow.GroupDelay() + low.GroupDelay()
	if math.Abs(float64(sampleOffset-k)) > float64(decimation+groupDelay) {
		t.Fatalf("coarse peak at sample %d, want near %d (tolerance %d)", sampleOffset, k, decimation+groupDelay)
	}
}

func TestRefineNarrowsToExactOffset(t *testing.T) {
	narrow, low := testFilters(t)
	pilot := testPilot()

	const k = 40
	const decimation = 4

	received := make([]float64, k+len(pilot)+40)
	copy(received[k:], pilot)

	energy, err := EnergyProfile(pilot, received, narrow, low, decimation)
	if err != nil {
		t.Fatal(err)
	}
	coarseIdx, _ := FindPeak(energy)
	coarseSample := coarseIdx * decimation

	offset, _, err := Refine(pilot, received, narrow, low, coarseSample, decimation)
	if err != nil {
		t.Fatal(err)
	}

	groupDelay := narrow.GroupDelay() + low.GroupDelay()
	if math.Abs(float64(offset-k)) > float64(groupDelay+1) {
		t.Fatalf("refined offset = %d, want near %d (tolerance %d)", offset, k, groupDelay+1)
	}
}

func TestFindHighestEnergyOffsetEndToEnd(t *testing.T) {
	narrow, low := testFilters(t)
	pilot := testPilot()

	const k = 64
	const decimation = 4

	received := make([]float64, k+len(pilot)+64)
	copy(received[k:], pilot)

	offset, err := FindHighestEnergyOffset(pilot, received, narrow, low, decimation)
	if err != nil {
		t.Fatal(err)
	}

	groupDelay := narrow.GroupDelay() + low.GroupDelay()
	if math.Abs(float64(offset-k)) > float64(groupDelay+1) {
		t.Fatalf("offset = %d, want near %d (tolerance %d)", offset, k, groupDelay+1)
	}
}
