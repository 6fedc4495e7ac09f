package arena

import (
	"math"
	"runtime/debug"
	rtmetrics "runtime/metrics"

	"github.com/pkg/errors"
)

// BackingAllocator supplies the buffers owned by arenas created with New.
type BackingAllocator interface {
	// Allocate returns a buffer of exactly n bytes.
	Allocate(n int) ([]byte, error)
	// Free gives back a buffer previously returned by Allocate.
	Free(b []byte) error
	// Name identifies the allocator in logs and configuration.
	Name() string
}

const (
	BackingHeap = "heap"
	BackingMmap = "mmap"
)

// DefaultBacking is the allocator used when none is configured: anonymous
// mmap where the platform has it, so that an unsatisfiable capacity comes
// back as ENOMEM instead of a fatal runtime out-of-memory error. Elsewhere
// it is the heap.
func DefaultBacking() BackingAllocator {
	if mmapSupported() {
		return MmapAllocator{}
	}
	return HeapAllocator{}
}

// BackingByName resolves a configured backing name. The empty name selects
// DefaultBacking.
func BackingByName(name string) (BackingAllocator, error) {
	switch name {
	case "":
		return DefaultBacking(), nil
	case BackingHeap:
		return HeapAllocator{}, nil
	case BackingMmap:
		return MmapAllocator{}, nil
	default:
		return nil, errors.Errorf("arena: unknown backing allocator %q", name)
	}
}

// HeapAllocator allocates buffers on the Go heap. Free is a no-op; the
// garbage collector reclaims the buffer once the arena drops it.
//
// The Go runtime aborts the process when the heap cannot grow, so requests
// are checked against a ceiling before reaching make: Limit when set,
// otherwise the headroom left under the runtime memory limit (GOMEMLIMIT or
// debug.SetMemoryLimit). With neither set, nothing stops an oversized
// request; prefer MmapAllocator for capacities near the machine's memory.
type HeapAllocator struct {
	// Limit is the largest buffer handed out, in bytes. 0 falls back to the
	// runtime memory limit.
	Limit int64
}

// Allocate returns make([]byte, n). Requests above the ceiling and lengths
// the runtime refuses are reported as errors.
func (h HeapAllocator) Allocate(n int) (buf []byte, err error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "heap allocate %d bytes", n)
	}
	if ceiling := h.ceiling(); ceiling >= 0 && int64(n) > ceiling {
		return nil, errors.Errorf("heap allocate %d bytes: exceeds heap ceiling of %d bytes", n, ceiling)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = errors.Errorf("heap allocate %d bytes: %v", n, r)
		}
	}()
	return make([]byte, n), nil
}

func (HeapAllocator) Free([]byte) error { return nil }

// ceiling returns the largest allocation allowed right now, or -1 for none.
func (h HeapAllocator) ceiling() int64 {
	if h.Limit > 0 {
		return h.Limit
	}
	return heapHeadroom()
}

// heapHeadroom returns how many bytes the runtime may still take before
// reaching its memory limit, or -1 when no limit is set.
func heapHeadroom() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit == math.MaxInt64 {
		return -1
	}
	sample := []rtmetrics.Sample{{Name: "/memory/classes/total:bytes"}}
	rtmetrics.Read(sample)
	if sample[0].Value.Kind() != rtmetrics.KindUint64 {
		return limit
	}
	return max(limit-int64(sample[0].Value.Uint64()), 0)
}

func (HeapAllocator) Name() string { return BackingHeap }

// MmapAllocator allocates buffers from anonymous private mappings, outside the
// Go heap. Buffers start on a page boundary. On platforms without mmap support
// it falls back to the heap.
type MmapAllocator struct{}

func (MmapAllocator) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "mmap %d bytes", n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	b, err := mapAnon(n)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", n)
	}
	return b, nil
}

func (MmapAllocator) Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unmapAnon(b); err != nil {
		return errors.Wrapf(err, "munmap %d bytes", len(b))
	}
	return nil
}

func (MmapAllocator) Name() string { return BackingMmap }
