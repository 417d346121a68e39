package stats

import (
	"strconv"
	"strings"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Tail tracks high percentiles with HdrHistogram. Memory is fixed by the
// trackable range at construction; values above it are counted as
// overflow instead of being recorded.
type Tail struct {
	h        *hdrhistogram.Histogram
	overflow uint64
}

// TailPercentiles lists the percentiles reported by Tail.Percentiles.
var TailPercentiles = []float64{50, 90, 99, 99.9, 99.99}

// NewTail tracks values from 1ns to maxNs at 3 significant figures.
func NewTail(maxNs int64) *Tail {
	return &Tail{h: hdrhistogram.New(1, maxNs, 3)}
}

// Record adds a value in nanoseconds. Zero is recorded as 1.
func (t *Tail) Record(ns uint64) {
	v := int64(ns)
	if v < 1 {
		v = 1
	}
	if err := t.h.RecordValue(v); err != nil {
		t.overflow++
	}
}

// Count returns the number of recorded values, overflow excluded.
func (t *Tail) Count() int64 { return t.h.TotalCount() }

// Overflow returns how many values exceeded the trackable range.
func (t *Tail) Overflow() uint64 { return t.overflow }

// ValueAt returns the value at percentile p (0-100).
func (t *Tail) ValueAt(p float64) int64 { return t.h.ValueAtQuantile(p) }

// Percentiles returns TailPercentiles keyed like "p99_9".
func (t *Tail) Percentiles() map[string]int64 {
	out := make(map[string]int64, len(TailPercentiles))
	for _, p := range TailPercentiles {
		out[PercentileKey(p)] = t.h.ValueAtQuantile(p)
	}
	return out
}

// PercentileKey formats 99.9 as "p99_9".
func PercentileKey(p float64) string {
	return "p" + strings.ReplaceAll(strconv.FormatFloat(p, 'f', -1, 64), ".", "_")
}
