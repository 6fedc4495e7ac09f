package arena

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Budget caps the number of bytes held by the owning arenas that share it.
// It is safe for concurrent use; the arenas themselves are not.
// A nil *Budget accepts everything.
type Budget struct {
	limit int64
	sem   *semaphore.Weighted // nil if unlimited
	inUse atomic.Int64
}

// NewBudget returns a Budget allowing up to limit bytes at once.
// If limit <= 0 usage is tracked but never rejected.
func NewBudget(limit int64) *Budget {
	b := &Budget{limit: limit}
	if limit > 0 {
		b.sem = semaphore.NewWeighted(limit)
	}
	return b
}

// Acquire reserves n bytes. It never blocks: if the budget cannot cover n
// right now it returns ErrBudgetExceeded.
func (b *Budget) Acquire(n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.sem != nil && !b.sem.TryAcquire(n) {
		return ErrBudgetExceeded
	}
	b.inUse.Add(n)
	return nil
}

// Release returns n bytes previously reserved with Acquire.
func (b *Budget) Release(n int64) {
	if b == nil || n <= 0 {
		return
	}
	if b.sem != nil {
		b.sem.Release(n)
	}
	b.inUse.Add(-n)
}

// InUse returns the number of bytes currently reserved.
func (b *Budget) InUse() int64 {
	if b == nil {
		return 0
	}
	return b.inUse.Load()
}

// Limit returns the configured limit, 0 if unlimited.
func (b *Budget) Limit() int64 {
	if b == nil || b.limit < 0 {
		return 0
	}
	return b.limit
}
