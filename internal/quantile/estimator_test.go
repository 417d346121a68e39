package quantile

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// exact returns the nearest-rank quantile of values.
func exact(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[int(q*float64(len(sorted)-1))]
}

func requireMonotonic(t *testing.T, e *Estimator) {
	t.Helper()
	h, p := e.Heights(), e.Positions()
	for i := 0; i < numMarkers-1; i++ {
		require.LessOrEqual(t, h[i], h[i+1], "heights %v", h)
		require.LessOrEqual(t, p[i], p[i+1], "positions %v", p)
	}
}

func TestFirstFiveObservations(t *testing.T) {
	e := New(0.5)
	for _, v := range []float64{100, 102, 99, 101, 100} {
		e.Add(v)
	}
	require.Equal(t, 5, e.Count())
	require.Equal(t, 100.0, e.Quantile())
	require.Equal(t, [numMarkers]float64{99, 100, 100, 101, 102}, e.Heights())
	require.Equal(t, [numMarkers]float64{0, 1, 2, 3, 4}, e.Positions())
}

func TestMedianAroundHundred(t *testing.T) {
	e := New(0.5)
	for _, v := range []float64{100, 102, 99, 101, 100} {
		e.Add(v)
	}
	for i := 0; i < 95; i++ {
		e.Add(float64(100 + i%5 - 2))
		requireMonotonic(t, e)
	}
	require.Equal(t, 100, e.Count())
	require.InDelta(t, 100, e.Quantile(), 2)
}

func TestDeterministicStreams(t *testing.T) {
	streams := map[string]func(n int) []float64{
		"sorted": func(n int) []float64 {
			out := make([]float64, n)
			for i := range out {
				out[i] = float64(i)
			}
			return out
		},
		"reverse": func(n int) []float64 {
			out := make([]float64, n)
			for i := range out {
				out[i] = float64(n - i)
			}
			return out
		},
		"constant": func(n int) []float64 {
			out := make([]float64, n)
			for i := range out {
				out[i] = 42
			}
			return out
		},
	}

	for name, gen := range streams {
		for _, n := range []int{100, 1000, 10000} {
			for _, q := range []float64{0.5, 0.9, 0.99} {
				values := gen(n)
				e := New(q)
				for _, v := range values {
					e.Add(v)
				}
				tolerance := 0.01*float64(n) + 2
				require.InDelta(t, exact(values, q), e.Quantile(), tolerance, "%s n=%d q=%v", name, n, q)
				requireMonotonic(t, e)
			}
		}
	}
}

func TestRandomStreamsConverge(t *testing.T) {
	for seed := int64(1); seed <= 3; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for _, tc := range []struct {
			n         int
			tolerance float64
		}{
			{1000, 30},
			{10000, 10},
			{100000, 5},
		} {
			values := make([]float64, tc.n)
			for i := range values {
				values[i] = rng.Float64() * 1000
			}
			for _, q := range []float64{0.5, 0.9} {
				e := New(q)
				for _, v := range values {
					e.Add(v)
				}
				require.InDelta(t, exact(values, q), e.Quantile(), tc.tolerance,
					"seed=%d n=%d q=%v", seed, tc.n, q)
			}
		}
	}
}

func TestHeightsStayOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := New(0.5)
	for i := 0; i < 20000; i++ {
		// heavy tail to exercise the linear fallback
		v := rng.NormFloat64()*50 + 1000
		if rng.Intn(100) == 0 {
			v += rng.ExpFloat64() * 100000
		}
		e.Add(v)
		if e.Count() >= numMarkers {
			requireMonotonic(t, e)
		}
	}
	require.False(t, math.IsNaN(e.Quantile()))
}

func TestNormalMedian(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := make([]float64, 50000)
	e := New(0.5)
	for i := range values {
		values[i] = rng.NormFloat64()*50 + 1000
		e.Add(values[i])
	}
	require.InDelta(t, exact(values, 0.5), e.Quantile(), 2)
	require.Equal(t, 0.5, e.Target())
}
