package dsssmodem

import (
	"sync"

	"github.com/google/uuid"
)

var (
	lifecycleMu  sync.Mutex
	initialized  bool
	currentRunID string
)

// Initialize must be called once before any DSP operation. It is
// idempotent to call Terminate/Initialize in sequence, but calling
// Initialize twice without an intervening Terminate is a contract
// violation.
func Initialize() error {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	if initialized {
		return NewError("Initialize", InvalidState)
	}

	initialized = true
	currentRunID = uuid.NewString()
	logger.SetPrefix("[" + currentRunID[:8] + "] ")
	logInfof("dsssmodem initialized (run %s)", currentRunID)

	return nil
}

// Terminate releases process-wide state. Calling it without a prior
// Initialize is a contract violation.
func Terminate() error {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	if !initialized {
		return NewError("Terminate", InvalidState)
	}

	logInfof("dsssmodem terminated (run %s)", currentRunID)
	initialized = false
	currentRunID = ""
	logger.SetPrefix("")

	return nil
}

// Initialized reports whether Initialize has been called without a
// matching Terminate.
func Initialized() bool {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()
	return initialized
}

// RunID returns the identifier stamped on the current run by
// Initialize, or "" if uninitialized.
func RunID() string {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()
	return currentRunID
}
