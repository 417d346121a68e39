// Package stats accumulates latency observations into a constant-size
// summary: extrema, sum, a P² median and a logarithmic overrun histogram.
package stats

import (
	"math"
	"math/bits"

	"github.com/cyclicnic/cyclicnic/internal/quantile"
)

// BucketCount is the number of histogram buckets. The last one is a
// catch-all for everything at or above BucketWidth << (BucketCount-2).
const BucketCount = 5

// ReportData is an immutable point-in-time copy of a Report. It is the only
// value handed to the presentation layer.
//
// With a 4 kHz cycle (target 250µs) and BucketWidth 31250ns the buckets
// cover overruns of [0, 31.25µs), [31.25, 62.5), [62.5, 125), [125, 250)
// and [250µs, inf).
type ReportData struct {
	Min          uint64              `json:"min_ns"`
	Max          uint64              `json:"max_ns"`
	Sum          uint64              `json:"sum_ns"`
	MinIndex     int                 `json:"min_index"`
	MaxIndex     int                 `json:"max_index"`
	Observations uint64              `json:"observations"`
	Median       float64             `json:"median_ns"`
	Target       uint64              `json:"target_ns"`
	BucketWidth  uint64              `json:"bucket_width_ns"`
	Buckets      [BucketCount]uint64 `json:"buckets"`
}

// EmptyReportData returns the snapshot of a Report with no observations.
func EmptyReportData() ReportData {
	return ReportData{Min: math.MaxUint64, MinIndex: -1, MaxIndex: -1}
}

// Mean returns Sum/Observations, or 0 when empty.
func (d ReportData) Mean() float64 {
	if d.Observations == 0 {
		return 0
	}
	return float64(d.Sum) / float64(d.Observations)
}

// MaxOverrun returns how far the maximum exceeded the target.
func (d ReportData) MaxOverrun() uint64 {
	if d.Max < d.Target {
		return 0
	}
	return d.Max - d.Target
}

// BucketIndex maps an overrun to its histogram bucket. Each bucket except
// the last spans twice the range of the one before it.
func BucketIndex(deviation, bucketWidth uint64) int {
	idx := bits.Len64(deviation / bucketWidth)
	if idx > BucketCount-1 {
		return BucketCount - 1
	}
	return idx
}

// BucketUpperBound returns the exclusive upper bound of bucket i in the
// same unit as bucketWidth. The last bucket is unbounded and returns its
// lower bound instead.
func BucketUpperBound(i int, bucketWidth uint64) uint64 {
	if i >= BucketCount-1 {
		return bucketWidth << (BucketCount - 2)
	}
	return bucketWidth << i
}

// Report is a single-writer accumulator. None of its methods fail.
type Report struct {
	min          uint64
	max          uint64
	sum          uint64
	minIndex     int
	maxIndex     int
	observations uint64
	median       *quantile.Estimator

	target      uint64
	bucketWidth uint64
	buckets     [BucketCount]uint64

	publish *ReportData
	tail    *Tail
}

// Option configures a Report.
type Option func(*Report)

// WithPublish makes every AddObservation copy a full snapshot into dst.
//
// The copy is a plain, unsynchronised struct assignment so the writer never
// blocks. A concurrent reader of dst may observe a snapshot that is partly
// from one observation and partly from the next; readers must only use dst
// for display.
func WithPublish(dst *ReportData) Option {
	return func(r *Report) { r.publish = dst }
}

// WithTail additionally records every observation in a Tail.
func WithTail(t *Tail) Option {
	return func(r *Report) { r.tail = t }
}

// NewReport returns a Report measuring overruns against target. It panics
// if bucketWidth is zero.
func NewReport(target, bucketWidth uint64, opts ...Option) *Report {
	if bucketWidth == 0 {
		panic("stats: bucket width must be positive")
	}
	r := &Report{
		min:         math.MaxUint64,
		minIndex:    -1,
		maxIndex:    -1,
		median:      quantile.New(0.5),
		target:      target,
		bucketWidth: bucketWidth,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.publish != nil {
		*r.publish = r.Snapshot()
	}
	return r
}

// AddObservation records value, observed at iteration index.
func (r *Report) AddObservation(value uint64, index int) {
	r.observations++
	r.sum += value
	r.median.Add(float64(value))

	if value < r.min {
		r.min = value
		r.minIndex = index
	}
	if value > r.max {
		r.max = value
		r.maxIndex = index
	}

	var deviation uint64
	if value > r.target {
		deviation = value - r.target
	}
	r.buckets[BucketIndex(deviation, r.bucketWidth)]++

	if r.tail != nil {
		r.tail.Record(value)
	}
	if r.publish != nil {
		*r.publish = r.Snapshot()
	}
}

// Snapshot returns a copy of the current state.
func (r *Report) Snapshot() ReportData {
	return ReportData{
		Min:          r.min,
		Max:          r.max,
		Sum:          r.sum,
		MinIndex:     r.minIndex,
		MaxIndex:     r.maxIndex,
		Observations: r.observations,
		Median:       r.median.Quantile(),
		Target:       r.target,
		BucketWidth:  r.bucketWidth,
		Buckets:      r.buckets,
	}
}

// Tail returns the tail recorder, or nil.
func (r *Report) Tail() *Tail { return r.tail }
