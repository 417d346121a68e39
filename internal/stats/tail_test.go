package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTailPercentiles(t *testing.T) {
	tail := NewTail(int64(10_000_000))
	for v := uint64(1); v <= 10000; v++ {
		tail.Record(v)
	}
	require.Equal(t, int64(10000), tail.Count())
	require.InEpsilon(t, 5000, tail.ValueAt(50), 0.01)
	require.InEpsilon(t, 9900, tail.ValueAt(99), 0.01)

	p := tail.Percentiles()
	require.Len(t, p, len(TailPercentiles))
	require.Contains(t, p, "p99_9")
	require.Contains(t, p, "p50")
}

func TestTailOverflow(t *testing.T) {
	tail := NewTail(1000)
	tail.Record(0)
	tail.Record(10_000_000)
	require.Equal(t, int64(1), tail.Count())
	require.Equal(t, uint64(1), tail.Overflow())
}

func TestReportFeedsTail(t *testing.T) {
	tail := NewTail(1_000_000)
	r := NewReport(0, 10, WithTail(tail))
	r.AddObservation(42, 0)
	r.AddObservation(43, 1)
	require.Same(t, tail, r.Tail())
	require.Equal(t, int64(2), tail.Count())
}

func TestPercentileKey(t *testing.T) {
	require.Equal(t, "p50", PercentileKey(50))
	require.Equal(t, "p99_9", PercentileKey(99.9))
	require.Equal(t, "p99_99", PercentileKey(99.99))
}
