package arena

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Ownership tells whether an arena is responsible for its buffer.
type Ownership uint8

const (
	// Owned buffers were acquired by New and are freed by Release.
	Owned Ownership = iota + 1
	// Borrowed buffers were supplied by the caller and are never freed.
	Borrowed
)

func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	default:
		return "none"
	}
}

type state uint8

const (
	stateUninitialized state = iota
	stateReady
	stateReleased
)

// Arena is a bump allocator over a single fixed-size buffer.
// Not goroutine-safe; use one arena per goroutine or wrap it in SafeArena.
//
// The zero value is an uninitialized arena: allocations fail with
// ErrUninitialized, while Reset and Release are no-ops.
type Arena struct {
	data     []byte
	capacity int
	offset   int
	mode     Ownership
	state    state

	backing BackingAllocator
	budget  *Budget
	metrics *Metrics
	logger  log.Logger

	allocs    uint64
	failures  uint64
	resets    uint64
	padding   int
	highWater int
}

// New creates an arena owning a freshly acquired buffer of exactly capacity bytes.
//
// Any failure to obtain the buffer is returned as an *AllocationError
// matching ErrAllocationFailure. Callers that cannot continue without the
// arena can panic on the error. The default backing and a HeapAllocator with
// a ceiling both report exhaustion this way; an unbounded HeapAllocator
// cannot, since the Go runtime aborts when the heap cannot grow.
func New(capacity int, opts ...Option) (*Arena, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "new arena with capacity %d", capacity)
	}

	if err := o.budget.Acquire(int64(capacity)); err != nil {
		o.metrics.observeCreationFailure()
		level.Warn(o.logger).Log("msg", "arena budget exhausted", "capacity", humanize.IBytes(uint64(capacity)), "budget_in_use", humanize.IBytes(uint64(o.budget.InUse())), "err", err)
		return nil, errors.WithStack(&AllocationError{Capacity: capacity, Err: err})
	}

	buf, err := o.backing.Allocate(capacity)
	if err == nil && len(buf) != capacity {
		_ = o.backing.Free(buf)
		err = errors.Errorf("%s backing returned %d bytes, want %d", o.backing.Name(), len(buf), capacity)
	}
	if err != nil {
		o.budget.Release(int64(capacity))
		o.metrics.observeCreationFailure()
		level.Warn(o.logger).Log("msg", "failed to acquire arena buffer", "backing", o.backing.Name(), "capacity", humanize.IBytes(uint64(capacity)), "err", err)
		return nil, errors.WithStack(&AllocationError{Capacity: capacity, Err: err})
	}

	a := &Arena{
		data:     buf,
		capacity: capacity,
		mode:     Owned,
		state:    stateReady,
		backing:  o.backing,
		budget:   o.budget,
		metrics:  o.metrics,
		logger:   o.logger,
	}
	o.metrics.observeOwned(capacity)
	level.Debug(a.logger).Log("msg", "arena created", "ownership", a.mode, "backing", a.backing.Name(), "capacity", humanize.IBytes(uint64(capacity)))
	return a, nil
}

// NewWithBuffer creates an arena that allocates out of buf without taking
// ownership of it. The capacity is len(buf). buf must stay valid for the
// lifetime of the arena; Release never frees it.
func NewWithBuffer(buf []byte, opts ...Option) *Arena {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if buf == nil {
		buf = []byte{}
	}
	a := &Arena{
		data:     buf[:len(buf):len(buf)],
		capacity: len(buf),
		mode:     Borrowed,
		state:    stateReady,
		metrics:  o.metrics,
		logger:   o.logger,
	}
	level.Debug(a.logger).Log("msg", "arena created", "ownership", a.mode, "capacity", humanize.IBytes(uint64(a.capacity)))
	return a
}

// Alloc returns a view of size bytes starting at the current offset.
// The view belongs to the arena and is invalidated by Reset and Release.
// Its contents are not zeroed. size == 0 yields an empty, non-nil slice.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if err := a.checkAlloc(size); err != nil {
		return nil, err
	}
	if size > a.capacity-a.offset {
		return nil, a.outOfSpace(size, 0)
	}
	return a.commit(a.offset, size, 0), nil
}

// AllocAligned returns a view of size bytes whose first byte sits at an
// address that is a multiple of alignment. Bytes skipped to reach the
// boundary are consumed until the next Reset. The capacity check includes
// that padding.
func (a *Arena) AllocAligned(size, alignment int) ([]byte, error) {
	if err := a.checkAlloc(size); err != nil {
		return nil, err
	}
	if alignment <= 0 || !isPowerOfTwo(uintptr(alignment)) {
		return nil, errors.Wrapf(ErrInvalidAlignment, "alignment %d", alignment)
	}

	pad := int(padding(a.base()+uintptr(a.offset), uintptr(alignment)))
	remaining := a.capacity - a.offset
	if pad > remaining || size > remaining-pad {
		return nil, a.outOfSpace(size, pad)
	}
	return a.commit(a.offset+pad, size, pad), nil
}

// Reset makes the whole capacity available again. Bytes are left as they
// are; views handed out before the reset must no longer be used.
func (a *Arena) Reset() {
	if a.state != stateReady {
		return
	}
	a.offset = 0
	a.padding = 0
	a.resets++
	a.metrics.observeReset()
}

// Release tears the arena down. An owned buffer is handed back to its backing
// allocator and budget; a borrowed one is only forgotten. Release is
// idempotent and safe on the zero value.
func (a *Arena) Release() {
	if a.state != stateReady {
		return
	}
	if a.mode == Owned {
		if err := a.backing.Free(a.data); err != nil {
			level.Warn(a.logger).Log("msg", "failed to free arena buffer", "backing", a.backing.Name(), "capacity", humanize.IBytes(uint64(a.capacity)), "err", err)
		}
		a.budget.Release(int64(a.capacity))
		a.metrics.observeOwned(-a.capacity)
	}
	level.Debug(a.logger).Log("msg", "arena released", "ownership", a.mode, "capacity", humanize.IBytes(uint64(a.capacity)), "high_water", a.highWater)

	a.data = nil
	a.capacity = 0
	a.offset = 0
	a.padding = 0
	a.state = stateReleased
}

// Remaining returns the number of bytes still available.
func (a *Arena) Remaining() int {
	return a.capacity - a.offset
}

// Used returns the number of bytes consumed since the last reset, padding included.
func (a *Arena) Used() int {
	return a.offset
}

// Capacity returns the size of the buffer, or 0 once released.
func (a *Arena) Capacity() int {
	return a.capacity
}

// Ownership reports whether the arena owns or borrows its buffer.
func (a *Arena) Ownership() Ownership {
	return a.mode
}

// Released reports whether Release has been called.
func (a *Arena) Released() bool {
	return a.state == stateReleased
}

func (a *Arena) String() string {
	return fmt.Sprintf("arena{%s %s/%s}", a.mode, humanize.IBytes(uint64(a.offset)), humanize.IBytes(uint64(a.capacity)))
}

func (a *Arena) checkAlloc(size int) error {
	switch a.state {
	case stateUninitialized:
		return ErrUninitialized
	case stateReleased:
		return ErrReleased
	}
	if size < 0 {
		return errors.Wrapf(ErrInvalidSize, "allocate %d bytes", size)
	}
	return nil
}

// base is the absolute address of the first byte of the buffer.
func (a *Arena) base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.data)))
}

func (a *Arena) commit(start, size, pad int) []byte {
	end := start + size
	a.offset = end
	a.padding += pad
	a.allocs++
	if end > a.highWater {
		a.highWater = end
	}
	a.metrics.observeAlloc(size, pad)
	return a.data[start:end:end]
}

func (a *Arena) outOfSpace(size, pad int) error {
	a.failures++
	a.metrics.observeOutOfSpace()
	err := &OutOfSpaceError{Requested: size, Padding: pad, Remaining: a.capacity - a.offset}
	level.Debug(a.logger).Log("msg", "arena out of space", "requested", size, "padding", pad, "remaining", err.Remaining)
	return err
}
