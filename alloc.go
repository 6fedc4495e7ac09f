package arena

import (
	"math"
	"unsafe"
)

// Alloc returns a pointer to a zeroed T stored inside the arena, aligned for T.
// T must not contain Go pointers: arena memory is invisible to the garbage
// collector. The pointer is valid until the next Reset or Release.
func Alloc[T any](a *Arena) (*T, error) {
	p, err := AllocUninitialized[T](a)
	if err != nil {
		return nil, err
	}
	var zero T
	*p = zero
	return p, nil
}

// AllocUninitialized returns a *T located in the arena without zeroing memory.
// The contents are whatever the buffer held before; initialize before use.
func AllocUninitialized[T any](a *Arena) (*T, error) {
	if err := a.checkAlloc(0); err != nil {
		return nil, err
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return new(T), nil
	}
	b, err := a.AllocAligned(size, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// AllocSlice allocates a slice of n elements of type T inside the arena.
// The elements are not initialized. len and cap are both n.
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	if err := a.checkAlloc(n); err != nil {
		return nil, err
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 {
		return make([]T, n), nil
	}
	if n == 0 {
		return []T{}, nil
	}
	if n > a.Remaining()/elemSize {
		requested := math.MaxInt
		if n <= math.MaxInt/elemSize {
			requested = n * elemSize
		}
		return nil, a.outOfSpace(requested, 0)
	}
	b, err := a.AllocAligned(n*elemSize, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// AllocSliceZeroed is AllocSlice with every element set to its zero value.
func AllocSliceZeroed[T any](a *Arena, n int) ([]T, error) {
	s, err := AllocSlice[T](a, n)
	if err != nil {
		return nil, err
	}
	clear(s)
	return s, nil
}
