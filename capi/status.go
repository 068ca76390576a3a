package capi

import (
	"errors"

	"github.com/hupe1980/tensormap"
)

// Status is the outcome of a boundary call. Callers must check it before
// using any returned handle or value.
type Status int32

const (
	// StatusSuccess indicates the call succeeded.
	StatusSuccess Status = iota
	// StatusInvalidParameter indicates a caller error: a bad argument or a
	// stale handle.
	StatusInvalidParameter
	// StatusOutOfBounds indicates an index outside the valid range.
	StatusOutOfBounds
	// StatusCorruptedData indicates an archive that failed validation.
	StatusCorruptedData
	// StatusInternalError indicates an invariant violation inside the
	// library, including recovered panics.
	StatusInternalError
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusOutOfBounds:
		return "out of bounds"
	case StatusCorruptedData:
		return "corrupted data"
	case StatusInternalError:
		return "internal error"
	default:
		return "unknown status"
	}
}

// statusOf maps an error to its boundary status.
func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, tensormap.ErrInvalidParameter):
		return StatusInvalidParameter
	case errors.Is(err, tensormap.ErrOutOfBounds):
		return StatusOutOfBounds
	case errors.Is(err, tensormap.ErrCorruptedData):
		return StatusCorruptedData
	default:
		return StatusInternalError
	}
}
