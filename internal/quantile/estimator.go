// Package quantile implements the P² algorithm for dynamic calculation of a
// single quantile without storing observations.
//
// R. Jain and I. Chlamtac, "The P² Algorithm for Dynamic Calculation of
// Quantiles and Histograms Without Storing Observations", CACM 28(10), 1985.
package quantile

import "sort"

const numMarkers = 5

// Estimator tracks five markers approximating the minimum, p/2, p, (1+p)/2
// and maximum of a stream. It uses constant space and is not safe for
// concurrent use.
type Estimator struct {
	quantile     float64
	observations int

	heights    [numMarkers]float64
	positions  [numMarkers]float64 // integer valued
	desired    [numMarkers]float64
	increments [numMarkers]float64
}

// New returns an Estimator for quantile q, which must be in (0, 1).
func New(q float64) *Estimator {
	return &Estimator{
		quantile:   q,
		positions:  [numMarkers]float64{0, 1, 2, 3, 4},
		desired:    [numMarkers]float64{0, 1, 2, 3, 4},
		increments: [numMarkers]float64{0, q / 2, q, (1 + q) / 2, 1},
	}
}

// Add ingests one observation.
func (e *Estimator) Add(x float64) {
	if e.observations < numMarkers {
		e.heights[e.observations] = x
		e.observations++
		if e.observations == numMarkers {
			sort.Float64s(e.heights[:])
		}
		return
	}

	e.adjustPositions(x)
	e.observations++
	e.adjustHeights()
}

// Quantile returns the current estimate. It is only meaningful once Count
// reaches five.
func (e *Estimator) Quantile() float64 { return e.heights[2] }

// Target returns the quantile this estimator was created for.
func (e *Estimator) Target() float64 { return e.quantile }

// Count returns the number of observations ingested so far.
func (e *Estimator) Count() int { return e.observations }

// Heights returns a copy of the marker heights.
func (e *Estimator) Heights() [numMarkers]float64 { return e.heights }

// Positions returns a copy of the actual marker positions.
func (e *Estimator) Positions() [numMarkers]float64 { return e.positions }

func (e *Estimator) adjustPositions(x float64) {
	h := &e.heights

	var cell int
	switch {
	case x < h[0]:
		h[0] = x
		cell = 0
	case x < h[1]:
		cell = 0
	case x < h[2]:
		cell = 1
	case x < h[3]:
		cell = 2
	case x <= h[4]:
		cell = 3
	default:
		h[4] = x
		cell = 3
	}

	for i := cell + 1; i < numMarkers; i++ {
		e.positions[i]++
	}
	for i := range e.desired {
		e.desired[i] += e.increments[i]
	}
}

func (e *Estimator) adjustHeights() {
	for i := 1; i <= 3; i++ {
		n := e.positions[i]
		d := e.desired[i] - n

		if (d >= 1 && e.positions[i+1]-n > 1) || (d <= -1 && e.positions[i-1]-n < -1) {
			step := 1
			if d < 0 {
				step = -1
			}

			candidate := e.parabolic(i, step)
			if e.heights[i-1] < candidate && candidate < e.heights[i+1] {
				e.heights[i] = candidate
			} else {
				e.heights[i] = e.linear(i, step)
			}
			e.positions[i] += float64(step)
		}
	}
}

func (e *Estimator) parabolic(i, step int) float64 {
	d := float64(step)
	q, n := e.heights, e.positions

	left := (n[i] - n[i-1] + d) * (q[i+1] - q[i]) / (n[i+1] - n[i])
	right := (n[i+1] - n[i] - d) * (q[i] - q[i-1]) / (n[i] - n[i-1])
	return q[i] + d/(n[i+1]-n[i-1])*(left+right)
}

func (e *Estimator) linear(i, step int) float64 {
	j := i + step
	return e.heights[i] + float64(step)*(e.heights[j]-e.heights[i])/(e.positions[j]-e.positions[i])
}
