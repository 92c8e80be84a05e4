package dsssmodem

import (
	"errors"
	"fmt"
)

// ErrorCode is the error taxonomy of the root dsssmodem package. The
// DSP subpackages (bitpacker, lfsr, firfilter, modulator, pilotsync,
// dfe, fft, wavfile) each return their own Error type whose codes are
// a subset of these names; they do not return *ModemError.
type ErrorCode int

const (
	NoError ErrorCode = iota
	NullPointer
	InvalidArgument
	InvalidState
	OutOfMemory
	IO
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no error"
	case NullPointer:
		return "null pointer"
	case InvalidArgument:
		return "invalid argument"
	case InvalidState:
		return "invalid state"
	case OutOfMemory:
		return "out of memory"
	case IO:
		return "io"
	default:
		return "unknown error code"
	}
}

// ModemError wraps an ErrorCode with the operation that produced it
// and, optionally, an underlying cause.
type ModemError struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *ModemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *ModemError) Unwrap() error { return e.Err }

// NewError builds a *ModemError for op with the given code.
func NewError(op string, code ErrorCode) error {
	return &ModemError{Code: code, Op: op}
}

// WrapError builds a *ModemError for op with the given code, wrapping
// an underlying cause.
func WrapError(op string, code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &ModemError{Code: code, Op: op, Err: err}
}

// CodeOf extracts the ErrorCode from err if it (or something it
// wraps) is a *ModemError, else returns NoError, false.
func CodeOf(err error) (ErrorCode, bool) {
	var me *ModemError
	if errors.As(err, &me) {
		return me.Code, true
	}
	return NoError, false
}
