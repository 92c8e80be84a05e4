// Package pilotsync locates a known pilot sequence inside a received
// signal by sliding a despread-and-energy-detect block across it, a
// coarse decimated scan followed by an exhaustive local refine. The
// package is named pilotsync, not sync, to avoid colliding with the
// stdlib sync package the rest of the module also imports.
package pilotsync

import (
	"fmt"

	"github.com/cwsl/dsssmodem/firfilter"
)

type ErrorCode int

const (
	NoError ErrorCode = iota
	InvalidArgument
)

type Error struct {
	Op   string
	Code ErrorCode
}

func (e *Error) Error() string { return fmt.Sprintf("pilotsync: %s: code=%d", e.Op, e.Code) }

func newErr(op string, code ErrorCode) error { return &Error{Op: op, Code: code} }

// EnergyProfile slides the pilot across received at stride decimation,
// and for each offset i (0, decimation, 2*decimation, ... while
// i+len(pilot) <= len(received)) computes:
//
//	x = received[i:i+len(pilot)] elementwise-multiplied by pilot
//	y = narrow.Apply(x)
//	z = y elementwise-squared
//	w = low.Apply(z)
//	E[i/decimation] = sum(w)
//
// It returns E, one energy value per scanned offset.
func EnergyProfile(pilot, received []float64, narrow, low *firfilter.Filter, decimation int) ([]float64, error) {
	if len(pilot) == 0 || decimation <= 0 || narrow == nil || low == nil {
		return nil, newErr("EnergyProfile", InvalidArgument)
	}
	if len(received) < len(pilot) {
		return nil, newErr("EnergyProfile", InvalidArgument)
	}

	np := len(pilot)
	count := (len(received)-np)/decimation + 1
	energy := make([]float64, count)

	x := make([]float64, np)
	for idx := 0; idx < count; idx++ {
		i := idx * decimation

		for k := 0; k < np; k++ {
			x[k] = received[i+k] * pilot[k]
		}

		y := narrow.Apply(x)

		z := make([]float64, np)
		for k, v := range y {
			z[k] = v * v
		}

		w := low.Apply(z)

		var sum float64
		for _, v := range w {
			sum += v
		}
		energy[idx] = sum
	}

	return energy, nil
}

// FindPeak returns the index and value of the largest entry in e.
func FindPeak(e []float64) (offset int, value float64) {
	if len(e) == 0 {
		return 0, 0
	}

	offset = 0
	value = e[0]
	for i, v := range e {
		if v > value {
			value = v
			offset = i
		}
	}
	return offset, value
}

// Refine exhaustively rescans (stride 1) the window
// [coarseOffset-window, coarseOffset+window] around a coarse peak
// found by EnergyProfile/FindPeak, returning the exact sample offset
// of the highest-energy alignment within that window.
func Refine(pilot, received []float64, narrow, low *firfilter.Filter, coarseOffset, window int) (offset int, value float64, err error) {
	if len(pilot) == 0 || window < 0 || narrow == nil || low == nil {
		return 0, 0, newErr("Refine", InvalidArgument)
	}

	lo := coarseOffset - window
	if lo < 0 {
		lo = 0
	}
	hi := coarseOffset + window
	if hi+len(pilot) > len(received) {
		hi = len(received) - len(pilot)
	}
	if hi < lo {
		return 0, 0, newErr("Refine", InvalidArgument)
	}

	sub := received[lo : hi+len(pilot)]
	e, err := EnergyProfile(pilot, sub, narrow, low, 1)
	if err != nil {
		return 0, 0, err
	}

	localOffset, localValue := FindPeak(e)
	return lo + localOffset, localValue, nil
}

// FindHighestEnergyOffset composes a decimated coarse scan with a
// local exhaustive refine and returns the single global peak offset,
// the two-pass scheme the synchronizer is built around.
func FindHighestEnergyOffset(pilot, received []float64, narrow, low *firfilter.Filter, decimation int) (offset int, err error) {
	coarse, err := EnergyProfile(pilot, received, narrow, low, decimation)
	if err != nil {
		return 0, err
	}

	coarseOffset, _ := FindPeak(coarse)
	coarseSample := coarseOffset * decimation

	fineOffset, _, err := Refine(pilot, received, narrow, low, coarseSample, decimation)
	if err != nil {
		return 0, err
	}

	return fineOffset, nil
}
