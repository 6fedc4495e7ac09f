package arena

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaStats(t *testing.T) {
	buf := alignedBytes(1024)
	a := NewWithBuffer(buf)

	s := a.Stats()
	assert.Equal(t, Stats{Capacity: 1024, Remaining: 1024, Ownership: Borrowed}, s)

	_, err := a.Alloc(100)
	require.NoError(t, err)
	_, err = a.AllocAligned(200, 8) // 100 is 4 mod 8: 4 bytes of padding
	require.NoError(t, err)
	_, err = a.Alloc(2000)
	require.ErrorIs(t, err, ErrOutOfSpace)

	s = a.Stats()
	assert.Equal(t, 304, s.Used)
	assert.Equal(t, 720, s.Remaining)
	assert.Equal(t, uint64(2), s.Allocs)
	assert.Equal(t, uint64(1), s.Failures)
	assert.Equal(t, 4, s.PaddingBytes)
	assert.Equal(t, 304, s.HighWater)
	assert.InDelta(t, 304.0/1024.0, s.Utilization, 1e-9)
	assert.Equal(t, a.Utilization(), s.Utilization)
}

func TestArenaStatsAfterReset(t *testing.T) {
	a, err := New(1024)
	require.NoError(t, err)
	defer a.Release()

	_, err = a.Alloc(500)
	require.NoError(t, err)
	a.Reset()
	_, err = a.Alloc(10)
	require.NoError(t, err)

	s := a.Stats()
	assert.Equal(t, 10, s.Used)
	assert.Equal(t, uint64(1), s.Resets)
	assert.Equal(t, 500, s.HighWater, "high water survives resets")
	assert.Equal(t, 500, a.HighWater())
	assert.Equal(t, Owned, s.Ownership)
}

func TestArenaStatsAfterRelease(t *testing.T) {
	a, err := New(1024)
	require.NoError(t, err)
	_, err = a.Alloc(100)
	require.NoError(t, err)

	a.Release()

	s := a.Stats()
	assert.Equal(t, 0, s.Capacity)
	assert.Equal(t, 0, s.Used)
	assert.Equal(t, 0, s.Remaining)
	assert.Equal(t, 0.0, s.Utilization)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)

	a, err := New(1024, WithMetrics(m))
	require.NoError(t, err)
	b := NewWithBuffer(alignedBytes(64)[1:], WithMetrics(m))

	_, err = a.Alloc(100)
	require.NoError(t, err)
	_, err = a.Alloc(2000)
	require.ErrorIs(t, err, ErrOutOfSpace)
	_, err = b.AllocAligned(8, 8)
	require.NoError(t, err)
	a.Reset()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.allocations))
	assert.Equal(t, float64(108), testutil.ToFloat64(m.allocatedBytes))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.paddingBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outOfSpace))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resets))
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.ownedCapacity), "borrowed buffers are not counted")

	a.Release()
	b.Release()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ownedCapacity))

	_, err = New(1, WithMetrics(m), WithBacking(&recordingBacking{failWith: assert.AnError}))
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.creationFailures))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP arena_resets_total Total number of arena resets.
# TYPE arena_resets_total counter
arena_resets_total 1
`), "arena_resets_total"))
}

func TestNilMetrics(t *testing.T) {
	a, err := New(64, WithMetrics(nil))
	require.NoError(t, err)
	_, err = a.Alloc(8)
	require.NoError(t, err)
	_, err = a.Alloc(100)
	require.Error(t, err)
	a.Reset()
	a.Release()
}

func TestArenaLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowDebug())

	a, err := New(2048, WithLogger(logger), WithBacking(HeapAllocator{}))
	require.NoError(t, err)
	_, err = a.Alloc(4096)
	require.ErrorIs(t, err, ErrOutOfSpace)
	a.Release()

	out := buf.String()
	assert.Contains(t, out, `msg="arena created" ownership=owned backing=heap capacity="2.0 KiB"`)
	assert.Contains(t, out, `msg="arena out of space" requested=4096 padding=0 remaining=2048`)
	assert.Contains(t, out, `msg="arena released"`)
}

func TestArenaLoggingBudgetExhausted(t *testing.T) {
	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), level.AllowWarn())

	_, err := New(2048, WithLogger(logger), WithBudget(NewBudget(1024)))
	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Contains(t, buf.String(), `level=warn msg="arena budget exhausted"`)
}
