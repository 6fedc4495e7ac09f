// Package arena implements a fixed-capacity linear (bump) allocator for Go.
//
// # Overview
//
// An arena owns one contiguous buffer and a single offset into it. Every
// allocation hands out the next bytes and moves the offset forward; nothing
// is freed individually. The whole buffer becomes available again with
// Reset, and is given back with Release. This is useful for:
//
//   - Request- or frame-scoped scratch memory
//   - Parse passes that build many short-lived buffers
//   - Deterministic memory use with a hard upper bound
//
// # Basic Usage
//
//	a, err := arena.New(64 << 10) // 64 KiB, owned by the arena
//	if err != nil {
//		return err
//	}
//	defer a.Release()
//
//	buf, err := a.Alloc(512)            // raw bytes
//	hdr, err := a.AllocAligned(128, 16) // 16-byte aligned
//	p, err := arena.Alloc[Header](a)    // typed, zeroed
//
//	a.Reset() // O(1): offset back to zero, bytes left as they are
//
// An arena can also borrow a caller-supplied buffer:
//
//	var scratch [4096]byte
//	a := arena.NewWithBuffer(scratch[:])
//	defer a.Release() // never frees scratch
//
// # Errors
//
// Nothing panics on exhaustion. A request that does not fit returns an
// *OutOfSpaceError matching ErrOutOfSpace and leaves the arena unchanged.
// Failing to acquire the buffer in New yields an *AllocationError matching
// ErrAllocationFailure.
// Alignments that are not powers of two yield ErrInvalidAlignment.
//
// # Thread Safety
//
// Arena is not thread-safe. Use one arena per goroutine, or SafeArena when
// an arena has to be shared. Budget and Metrics may be shared freely.
//
// # Backing Memory
//
// Owned buffers come from a BackingAllocator. The default is anonymous
// mmap where available, which keeps arenas off the garbage-collected heap
// and reports exhaustion as an error. HeapAllocator uses the Go heap; since
// the runtime aborts when the heap cannot grow, it rejects requests above
// its Limit or above the headroom left under GOMEMLIMIT. Without either, an
// unsatisfiable heap request still ends the process. A Budget caps the
// bytes held by all owning arenas that share it.
//
// # Important Notes
//
//   - Views are only valid until the next Reset or Release
//   - Memory is not zeroed unless using Alloc or AllocSliceZeroed
//   - Types placed in the arena must not contain Go pointers
//
// # Metrics and Monitoring
//
//	stats := a.Stats()
//	fmt.Printf("Utilization: %.2f%%\n", stats.Utilization*100)
//	fmt.Printf("Used: %d of %d bytes\n", stats.Used, stats.Capacity)
//
// Prometheus counters are available through NewMetrics and WithMetrics.
package arena
