// Package fft wraps gonum's radix-2 FFT for spectral diagnostics in
// the synchronization path. It is a forward-transform-only numerical
// utility; callers are responsible for zero-padding their input to a
// power of two.
package fft

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
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

func (e *Error) Error() string { return fmt.Sprintf("fft: %s: code=%d", e.Op, e.Code) }

func newErr(op string, code ErrorCode) error { return &Error{Op: op, Code: code} }

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Forward computes the discrete Fourier transform of real input x
// with gonum's real-input FFT (fourier.NewFFT). len(x) must be a power
// of two.
func Forward(x []float64) ([]complex128, error) {
	if !isPowerOfTwo(len(x)) {
		return nil, newErr("Forward", InvalidArgument)
	}

	f := fourier.NewFFT(len(x))
	coeffs := f.Coefficients(nil, x)

	out := make([]complex128, len(x))
	// fourier.NewFFT returns only the N/2+1 unique real-input
	// coefficients; mirror the conjugate-symmetric upper half so
	// callers get a full-length spectrum, matching a plain radix-2
	// complex FFT's output shape.
	copy(out, coeffs)
	for k := len(coeffs); k < len(x); k++ {
		out[k] = complexConj(out[len(x)-k])
	}

	return out, nil
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

// Magnitudes returns |c| for each coefficient, a spectral-diagnostics
// helper. The pilotsync package does not call it.
func Magnitudes(coeffs []complex128) []float64 {
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = math.Hypot(real(c), imag(c))
	}
	return out
}
