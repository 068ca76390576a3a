package tensormap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned when an argument violates a structural
	// invariant: shape mismatches, duplicate names or entries, name
	// collisions, malformed selections, incompatible block merges.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrOutOfBounds is returned for index-based access past the end of a
	// sequence.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrCorruptedData is returned when an archive fails structural
	// validation on load.
	ErrCorruptedData = errors.New("corrupted data")

	// ErrInternal is returned for unexpected faults intercepted at the
	// handle boundary.
	ErrInternal = errors.New("internal error")
)

func invalidParameterf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func outOfBoundsf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfBounds, fmt.Sprintf(format, args...))
}
