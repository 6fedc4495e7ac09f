package arena

// Utilization returns the ratio of bytes in use to capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	if a.capacity == 0 {
		return 0
	}
	return float64(a.offset) / float64(a.capacity)
}

// HighWater returns the largest offset reached since the arena was created.
func (a *Arena) HighWater() int {
	return a.highWater
}

// Stats returns a snapshot of arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		Capacity:     a.capacity,
		Used:         a.offset,
		Remaining:    a.Remaining(),
		Utilization:  a.Utilization(),
		Ownership:    a.mode,
		Allocs:       a.allocs,
		Failures:     a.failures,
		Resets:       a.resets,
		PaddingBytes: a.padding,
		HighWater:    a.highWater,
	}
}

// Stats contains statistical information about an arena.
type Stats struct {
	Capacity     int       // Buffer size in bytes
	Used         int       // Bytes consumed since the last reset, padding included
	Remaining    int       // Bytes still available
	Utilization  float64   // Ratio of used to capacity (0.0-1.0)
	Ownership    Ownership // Owned or borrowed buffer
	Allocs       uint64    // Successful allocations since creation
	Failures     uint64    // Out-of-space rejections since creation
	Resets       uint64    // Resets since creation
	PaddingBytes int       // Alignment padding consumed since the last reset
	HighWater    int       // Largest offset reached since creation
}
