package nictest

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns the timestamps of a frame that has just been written.
type Clock func() Timestamps

// MonotonicClock stamps frames with the time elapsed since it was created,
// reported identically in both domains.
func MonotonicClock() Clock {
	start := time.Now()
	return func() Timestamps {
		ns := time.Since(start).Nanoseconds()
		return Timestamps{Software: ns, Hardware: ns, HaveSoftware: true, HaveHardware: true}
	}
}

// MemLink is an in-memory loopback Link. Every written frame is delivered
// back to the reader with timestamps from a script or a Clock.
type MemLink struct {
	mu       sync.Mutex
	queue    []Timestamps
	script   []Timestamps
	clock    Clock
	sent     uint64
	last     []byte
	writeErr error
	closed   bool

	notify chan struct{}
	done   chan struct{}
}

// MemLinkOption configures a MemLink.
type MemLinkOption func(*MemLink)

// WithClock stamps delivered frames using c once the script is exhausted.
func WithClock(c Clock) MemLinkOption {
	return func(l *MemLink) { l.clock = c }
}

// WithScript delivers the given timestamps for the first len(ts) frames.
func WithScript(ts ...Timestamps) MemLinkOption {
	return func(l *MemLink) { l.script = append(l.script, ts...) }
}

func NewMemLink(opts ...MemLinkOption) *MemLink {
	l := &MemLink{
		clock:  MonotonicClock(),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemLink) WriteFrame(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.writeErr != nil {
		return l.writeErr
	}

	l.last = append(l.last[:0], frame...)
	l.sent++

	var ts Timestamps
	if len(l.script) > 0 {
		ts, l.script = l.script[0], l.script[1:]
	} else {
		ts = l.clock()
	}
	l.push(ts)
	return nil
}

// Inject queues ts as if a frame had arrived, without a matching write.
func (l *MemLink) Inject(ts Timestamps) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.push(ts)
}

// push requires l.mu.
func (l *MemLink) push(ts Timestamps) {
	l.queue = append(l.queue, ts)
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// FailWrites makes every following WriteFrame return err. A nil err clears
// the failure.
func (l *MemLink) FailWrites(err error) {
	l.mu.Lock()
	l.writeErr = err
	l.mu.Unlock()
}

func (l *MemLink) WaitReadable(timeout time.Duration) (bool, error) {
	var timer *time.Timer
	for {
		l.mu.Lock()
		pending, closed := len(l.queue), l.closed
		l.mu.Unlock()

		switch {
		case closed:
			return false, ErrClosed
		case pending > 0:
			return true, nil
		}

		if timer == nil {
			timer = time.NewTimer(timeout)
			defer timer.Stop()
		}
		select {
		case <-l.notify:
		case <-l.done:
		case <-timer.C:
			return false, nil
		}
	}
}

func (l *MemLink) ReadTimestamps() (Timestamps, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Timestamps{}, ErrClosed
	}
	if len(l.queue) == 0 {
		return Timestamps{}, fmt.Errorf("read on empty link: %w", ErrTransport)
	}
	ts := l.queue[0]
	l.queue = l.queue[1:]
	return ts, nil
}

// Sent returns the number of frames written.
func (l *MemLink) Sent() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

// LastFrame returns a copy of the most recently written frame.
func (l *MemLink) LastFrame() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.last...)
}

// Pending returns the number of frames waiting to be read.
func (l *MemLink) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *MemLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.closed = true
	close(l.done)
	return nil
}
