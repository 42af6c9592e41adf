package copier

import (
	"errors"
	"fmt"
)

var (
	// ErrShortTransfer is matched by every [ShortTransferError].
	ErrShortTransfer = errors.New("short transfer")

	// ErrInvalidLayout is returned when a resource carries an unknown
	// addressing policy. Nothing is copied.
	ErrInvalidLayout = errors.New("invalid planes layout")

	// ErrInvalidArguments is returned for a missing resource or buffer, a plane
	// index out of range, or inconsistent strided geometry.
	ErrInvalidArguments = errors.New("invalid copy arguments")
)

// ShortTransferError reports that the segments of a plane ran out before the
// requested size was transferred. Every byte up to the shortfall was copied.
type ShortTransferError struct {
	Remaining int
}

func (e *ShortTransferError) Error() string {
	return fmt.Sprintf("short transfer: %d bytes remaining", e.Remaining)
}

func (e *ShortTransferError) Is(target error) bool {
	return target == ErrShortTransfer
}
