package arena

import "sync"

// SafeArena is a mutex-protected wrapper around Arena for callers that must
// share one arena between goroutines. The Arena itself stays lock-free.
type SafeArena struct {
	mu sync.Mutex
	a  *Arena
}

// NewSafeArena creates an owning arena of the given capacity behind a mutex.
func NewSafeArena(capacity int, opts ...Option) (*SafeArena, error) {
	a, err := New(capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &SafeArena{a: a}, nil
}

// WrapArena puts an existing arena behind a mutex. The caller must stop
// using a directly.
func WrapArena(a *Arena) *SafeArena {
	return &SafeArena{a: a}
}

// Alloc thread-safely allocates size bytes.
func (s *SafeArena) Alloc(size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Alloc(size)
}

// AllocAligned thread-safely allocates size bytes on an alignment boundary.
func (s *SafeArena) AllocAligned(size, alignment int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AllocAligned(size, alignment)
}

// Reset thread-safely makes the whole capacity available again.
func (s *SafeArena) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Reset()
}

// Release thread-safely tears the arena down.
func (s *SafeArena) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Release()
}

// Used thread-safely returns the bytes consumed since the last reset.
func (s *SafeArena) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Used()
}

// Remaining thread-safely returns the bytes still available.
func (s *SafeArena) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Remaining()
}

// Capacity thread-safely returns the size of the buffer.
func (s *SafeArena) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Capacity()
}

// Stats thread-safely returns a snapshot of arena statistics.
func (s *SafeArena) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Stats()
}

// Generic allocation functions for SafeArena

// SafeAlloc thread-safely returns a pointer to a zeroed T stored inside the arena.
func SafeAlloc[T any](s *SafeArena) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Alloc[T](s.a)
}

// SafeAllocUninitialized thread-safely returns a *T inside the arena without
// zeroing it.
func SafeAllocUninitialized[T any](s *SafeArena) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocUninitialized[T](s.a)
}

// SafeAllocSlice thread-safely allocates an uninitialized slice of n elements.
func SafeAllocSlice[T any](s *SafeArena, n int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocSlice[T](s.a, n)
}

// SafeAllocSliceZeroed thread-safely allocates a zeroed slice of n elements.
func SafeAllocSliceZeroed[T any](s *SafeArena, n int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocSliceZeroed[T](s.a, n)
}
