//go:build linux

package cyclic

import (
	"time"

	"golang.org/x/sys/unix"
)

// Pacer wakes a loop at fixed absolute deadlines on CLOCK_MONOTONIC, so
// time spent inside an iteration does not shift later cycles.
type Pacer struct {
	period int64
	next   int64
}

// NewPacer starts the schedule at the current time.
func NewPacer(period time.Duration) *Pacer {
	return &Pacer{period: period.Nanoseconds(), next: Now()}
}

// Now returns CLOCK_MONOTONIC in nanoseconds.
func Now() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return time.Now().UnixNano()
	}
	return ts.Nano()
}

// Advance moves the deadline one period ahead. When now is already past
// that, whole periods are skipped rather than bursting to catch up. It
// returns the number of periods skipped.
func (p *Pacer) Advance(now int64) int {
	p.next += p.period
	skipped := 0
	for now > p.next {
		p.next += p.period
		skipped++
	}
	return skipped
}

// Sleep blocks until the current deadline.
func (p *Pacer) Sleep() error {
	ts := unix.NsecToTimespec(p.next)
	for {
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, unix.TIMER_ABSTIME, &ts, nil)
		if err != unix.EINTR {
			return err
		}
	}
}

// Wait is Advance followed by Sleep.
func (p *Pacer) Wait(now int64) (int, error) {
	skipped := p.Advance(now)
	return skipped, p.Sleep()
}

// Deadline returns the current deadline in CLOCK_MONOTONIC nanoseconds.
func (p *Pacer) Deadline() int64 { return p.next }
