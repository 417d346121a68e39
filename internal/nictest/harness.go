// Package nictest implements the cyclic NIC round-trip test: a sender and a
// receiver goroutine exchange one broadcast frame per cycle under a strict
// handoff, and the receiver folds packet timestamp deltas into statistics.
package nictest

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyclicnic/cyclicnic/internal/stats"
)

const (
	DefaultHandoffTimeout = time.Second
	DefaultPollTimeout    = 1000 * time.Millisecond
)

// Drops counts frames or deltas that were deliberately not recorded.
type Drops struct {
	NegativeHardware uint64 // hardware clock stepped backwards
	NegativeSoftware uint64 // software clock stepped backwards
	Malformed        uint64 // timestamping control data could not be decoded
	Missing          uint64 // frame carried no timestamp at all
}

type prevStats struct {
	hardwareNs   int64
	softwareNs   int64
	haveHardware bool
	haveSoftware bool
}

// Harness implements Tester over a Link.
//
// Send may only complete once per Receive call: before transmitting it waits
// until the receiver has announced more cycles than have been sent. Receive
// announces itself before it blocks for the frame, so the announcement means
// "ready", not "delivered". This bounds how far the sender can run ahead.
type Harness struct {
	link Link

	mu               sync.Mutex
	sendIteration    uint64
	receiveIteration uint64
	ready            chan struct{}
	timer            *time.Timer

	handoffTimeout time.Duration
	pollTimeout    time.Duration
	frame          [FrameSize]byte

	// receiver-owned
	hardware *stats.Report
	software *stats.Report
	cadence  stats.CadenceStats
	prev     prevStats
	drops    Drops

	closeOnce sync.Once
	closeErr  error
	logger    logrus.FieldLogger
}

// Option configures a Harness.
type Option func(*Harness)

func WithHandoffTimeout(d time.Duration) Option {
	return func(h *Harness) { h.handoffTimeout = d }
}

func WithPollTimeout(d time.Duration) Option {
	return func(h *Harness) { h.pollTimeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(h *Harness) { h.logger = l }
}

// New returns a Harness sending over link and recording hardware and
// software inter-arrival deltas into the given reports. Either report may be
// nil, in which case that domain only feeds the cadence statistics.
func New(link Link, hardware, software *stats.Report, opts ...Option) *Harness {
	h := &Harness{
		link:           link,
		ready:          make(chan struct{}, 1),
		handoffTimeout: DefaultHandoffTimeout,
		pollTimeout:    DefaultPollTimeout,
		frame:          BuildFrame(),
		hardware:       hardware,
		software:       software,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.timer = time.NewTimer(h.handoffTimeout)
	h.timer.Stop()
	return h
}

// Send waits for the receiver to be ready and transmits one frame.
func (h *Harness) Send() error {
	if err := h.waitForReceiver(); err != nil {
		return err
	}

	if err := h.link.WriteFrame(h.frame[:]); err != nil {
		return transportError("send", err)
	}

	h.mu.Lock()
	h.sendIteration++
	h.mu.Unlock()
	return nil
}

func (h *Harness) waitForReceiver() error {
	h.mu.Lock()
	if h.receiveIteration > h.sendIteration {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	h.timer.Reset(h.handoffTimeout)
	defer h.timer.Stop()

	for {
		select {
		case <-h.ready:
		case <-h.timer.C:
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.receiveIteration > h.sendIteration {
				return nil
			}
			return &HandoffTimeoutError{SendIteration: h.sendIteration, ReceiveIteration: h.receiveIteration}
		}

		h.mu.Lock()
		ok := h.receiveIteration > h.sendIteration
		h.mu.Unlock()
		if ok {
			return nil
		}
	}
}

// Receive announces readiness, then waits up to the poll timeout for a frame.
// It returns false without error when nothing arrived.
func (h *Harness) Receive() (bool, error) {
	h.mu.Lock()
	h.receiveIteration++
	iteration := h.receiveIteration
	h.mu.Unlock()

	select {
	case h.ready <- struct{}{}:
	default:
	}

	readable, err := h.link.WaitReadable(h.pollTimeout)
	if err != nil {
		return false, transportError("poll", err)
	}
	if !readable {
		return false, nil
	}

	ts, err := h.link.ReadTimestamps()
	if err != nil {
		return false, transportError("recvmsg", err)
	}
	h.record(ts, iteration)
	return true, nil
}

func (h *Harness) record(ts Timestamps, iteration uint64) {
	if ts.Malformed {
		h.drops.Malformed++
	}
	if !ts.HaveHardware && !ts.HaveSoftware {
		if !ts.Malformed {
			h.drops.Missing++
		}
		return
	}

	if ts.HaveHardware {
		if h.prev.haveHardware {
			if delta := ts.Hardware - h.prev.hardwareNs; delta >= 0 {
				observe(h.hardware, &h.cadence.HardwareDelta, delta, iteration)
			} else {
				h.drops.NegativeHardware++
			}
		}
		h.prev.hardwareNs, h.prev.haveHardware = ts.Hardware, true
	}

	if ts.HaveSoftware {
		if h.prev.haveSoftware {
			if delta := ts.Software - h.prev.softwareNs; delta >= 0 {
				observe(h.software, &h.cadence.SoftwareDelta, delta, iteration)
			} else {
				h.drops.NegativeSoftware++
			}
		}
		h.prev.softwareNs, h.prev.haveSoftware = ts.Software, true
	}
}

func observe(report *stats.Report, running *stats.RunningStats, delta int64, iteration uint64) {
	if report != nil {
		report.AddObservation(uint64(delta), int(iteration))
	}
	running.Update(delta, iteration)
}

// Iterations returns the send and receive counters.
func (h *Harness) Iterations() (send, receive uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sendIteration, h.receiveIteration
}

// Cadence returns the auxiliary inter-arrival statistics. Only call it once
// the receiver has stopped.
func (h *Harness) Cadence() stats.CadenceStats { return h.cadence }

// Drops returns the drop counters. Only call it once the receiver has
// stopped.
func (h *Harness) Drops() Drops { return h.drops }

// Close releases the link. It must be called once both goroutines have
// stopped; further calls return the first result.
func (h *Harness) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.link.Close()
		send, receive := h.Iterations()
		h.logger.WithFields(logrus.Fields{
			"send_iterations":    send,
			"receive_iterations": receive,
			"negative_hw_deltas": h.drops.NegativeHardware,
			"negative_sw_deltas": h.drops.NegativeSoftware,
			"malformed":          h.drops.Malformed,
			"missing":            h.drops.Missing,
		}).Debug("nic test closed")
	})
	return h.closeErr
}
