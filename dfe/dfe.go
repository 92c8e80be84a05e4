// Package dfe implements a decision-feedback equalizer trained by
// normalized least-mean-squares, with feedforward and feedback tap
// lines operated over complex baseband symbols so it covers both
// real BPSK (imaginary part always zero) and general M-PSK
// constellations.
package dfe

import (
	"fmt"
	"math/cmplx"
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

func (e *Error) Error() string { return fmt.Sprintf("dfe: %s: code=%d", e.Op, e.Code) }

func newErr(op string, code ErrorCode) error { return &Error{Op: op, Code: code} }

// Equalizer is a decision-feedback equalizer: a feedforward tap line
// fed by received samples and a feedback tap line fed by the
// equalizer's own past decisions, both trained by normalized LMS.
type Equalizer struct {
	wff, wfb []complex128
	uff, ufb []complex128

	mu  float64
	eps float64

	constellation []complex128

	ntrain    int
	niter     int
	symbolNum int
}

// New builds an equalizer with nff feedforward taps, nfb feedback
// taps, step size mu, an M-PSK constellation table used by the
// slicer, a training-sequence length ntrain, and niter weight-update
// iterations per received symbol.
func New(nff, nfb int, mu float64, constellation []complex128, ntrain, niter int) (*Equalizer, error) {
	if nff <= 0 || nfb < 0 || mu <= 0 || len(constellation) == 0 || ntrain < 0 || niter <= 0 {
		return nil, newErr("New", InvalidArgument)
	}

	e := &Equalizer{
		wff:           make([]complex128, nff),
		wfb:           make([]complex128, nfb),
		uff:           make([]complex128, nff),
		ufb:           make([]complex128, nfb),
		mu:            mu,
		eps:           1e-9,
		constellation: append([]complex128(nil), constellation...),
		ntrain:        ntrain,
		niter:         niter,
	}
	return e, nil
}

// SetEpsilon overrides the normalized-LMS regularization term (added
// to the tap-energy denominator so a near-silent tap line doesn't
// blow up the update). New sets it to 1e-9; callers
// pinning the Open Question #1 production constant call this after
// New.
func (e *Equalizer) SetEpsilon(eps float64) {
	if eps > 0 {
		e.eps = eps
	}
}

// Reset clears tap weights, tap history, and the training-symbol
// counter, without changing configuration.
func (e *Equalizer) Reset() {
	for i := range e.wff {
		e.wff[i] = 0
	}
	for i := range e.wfb {
		e.wfb[i] = 0
	}
	for i := range e.uff {
		e.uff[i] = 0
	}
	for i := range e.ufb {
		e.ufb[i] = 0
	}
	e.symbolNum = 0
}

func shiftIn(buf []complex128, v complex128) {
	copy(buf[1:], buf[:len(buf)-1])
	buf[0] = v
}

func dot(w, u []complex128) complex128 {
	var sum complex128
	for i := range w {
		sum += w[i] * u[i]
	}
	return sum
}

// normSquared returns sum(u * conj(u)), the squared Euclidean norm of
// a complex tap vector.
func normSquared(u []complex128) float64 {
	var sum float64
	for _, v := range u {
		sum += real(v*cmplx.Conj(v))
	}
	return sum
}

// slice returns the constellation point nearest y.
func (e *Equalizer) slice(y complex128) complex128 {
	best := e.constellation[0]
	bestDist := cmplx.Abs(y - best)
	for _, c := range e.constellation[1:] {
		d := cmplx.Abs(y - c)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// Step runs one symbol through the equalizer: shift the received
// sample into the feedforward line, combine feedforward and feedback
// taps (yhat = wff.uff + wfb.ufb, so the additive weight update below
// is a descent step for both banks), slice to the
// nearest constellation point, form an error against trainingSymbol
// (if haveTraining) or against the slicer's own decision otherwise,
// run niter normalized-LMS weight updates against the same tap
// snapshot, then shift the decision into the feedback line.
func (e *Equalizer) Step(received complex128, trainingSymbol complex128, haveTraining bool) (decision complex128, err error) {
	shiftIn(e.uff, received)

	var yhat complex128
	for iter := 0; iter < e.niter; iter++ {
		yhat = dot(e.wff, e.uff) + dot(e.wfb, e.ufb)
		decision = e.slice(yhat)

		var target complex128
		if haveTraining {
			target = trainingSymbol
		} else {
			target = decision
		}
		errVal := target - yhat

		normFF := normSquared(e.uff) + e.eps
		normFB := normSquared(e.ufb) + e.eps

		for i := range e.wff {
			e.wff[i] += complex(e.mu, 0) * errVal * cmplx.Conj(e.uff[i]) / complex(normFF, 0)
		}
		for i := range e.wfb {
			e.wfb[i] += complex(e.mu, 0) * errVal * cmplx.Conj(e.ufb[i]) / complex(normFB, 0)
		}
	}

	shiftIn(e.ufb, decision)
	e.symbolNum++

	return decision, nil
}

// SearchPhaseOffset tries candidates evenly spaced sample offsets
// (c*chipDuration/candidates for c in [0, candidates)) within one chip
// duration, calls scoreFn with each offset, and returns the offset
// itself (not its candidate index) that scores highest; ties keep the
// earlier offset. It does not itself rotate or equalize anything;
// callers apply the winning offset to their own sample stream.
func SearchPhaseOffset(chipDuration int, candidates int, scoreFn func(offset int) float64) int {
	if candidates <= 0 {
		return 0
	}

	best := 0
	bestScore := scoreFn(0)
	for c := 1; c < candidates; c++ {
		offset := c * chipDuration / candidates
		if score := scoreFn(offset); score > bestScore {
			bestScore = score
			best = offset
		}
	}
	return best
}
