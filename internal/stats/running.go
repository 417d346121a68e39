package stats

import "math"

// RunningStats keeps min/max with the iteration they occurred at and a
// Welford running mean and variance. The zero value is ready to use.
// It has a single writer and no locking.
type RunningStats struct {
	MinValue int64
	MaxValue int64
	MinIndex uint64
	MaxIndex uint64

	count uint64
	mean  float64
	m2    float64
}

// Update records value observed at iteration idx.
func (s *RunningStats) Update(value int64, idx uint64) {
	if s.count == 0 || value < s.MinValue {
		s.MinValue, s.MinIndex = value, idx
	}
	if s.count == 0 || value > s.MaxValue {
		s.MaxValue, s.MaxIndex = value, idx
	}

	s.count++
	delta := float64(value) - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (float64(value) - s.mean)
}

func (s *RunningStats) Count() uint64 { return s.count }
func (s *RunningStats) Mean() float64 { return s.mean }

// Variance returns the sample variance, or 0 with fewer than two samples.
func (s *RunningStats) Variance() float64 {
	if s.count > 1 {
		return s.m2 / float64(s.count-1)
	}
	return 0
}

func (s *RunningStats) StdDev() float64 { return math.Sqrt(s.Variance()) }

// CadenceStats holds inter-arrival statistics per clock domain.
type CadenceStats struct {
	HardwareDelta RunningStats
	SoftwareDelta RunningStats
}
