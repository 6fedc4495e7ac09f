package arena

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAllocationFailure is returned when an owning arena cannot acquire its buffer.
	ErrAllocationFailure = errors.New("arena: allocation failure")
	// ErrOutOfSpace is returned when a request does not fit in the remaining capacity.
	ErrOutOfSpace = errors.New("arena: out of space")
	// ErrInvalidAlignment is returned when an alignment is not a power of two.
	ErrInvalidAlignment = errors.New("arena: alignment must be a power of two")
	// ErrInvalidSize is returned for negative allocation sizes.
	ErrInvalidSize = errors.New("arena: invalid size")
	// ErrInvalidCapacity is returned by New for a non-positive capacity.
	ErrInvalidCapacity = errors.New("arena: capacity must be positive")
	// ErrUninitialized is returned when allocating from a zero-value Arena.
	ErrUninitialized = errors.New("arena: not initialized")
	// ErrReleased is returned when allocating from an arena after Release.
	ErrReleased = errors.New("arena: use after Release()")
	// ErrBudgetExceeded is returned when a Budget cannot cover a new owned buffer.
	ErrBudgetExceeded = errors.New("arena: memory budget exceeded")
)

// OutOfSpaceError describes a rejected allocation. It matches ErrOutOfSpace.
type OutOfSpaceError struct {
	Requested int // bytes asked for
	Padding   int // alignment padding the request would have consumed
	Remaining int // bytes left in the arena at the time of the request
}

func (e *OutOfSpaceError) Error() string {
	if e.Padding > 0 {
		return fmt.Sprintf("arena: out of space: requested %d bytes (+%d padding), %d remaining", e.Requested, e.Padding, e.Remaining)
	}
	return fmt.Sprintf("arena: out of space: requested %d bytes, %d remaining", e.Requested, e.Remaining)
}

// Is reports whether target is ErrOutOfSpace.
func (e *OutOfSpaceError) Is(target error) bool {
	return target == ErrOutOfSpace
}

// AllocationError reports why New could not obtain its buffer. It matches
// ErrAllocationFailure and unwraps to the cause.
type AllocationError struct {
	Capacity int   // bytes New asked for
	Err      error // backing or budget failure
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("arena: allocation failure: %d bytes: %v", e.Capacity, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAllocationFailure.
func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocationFailure
}
