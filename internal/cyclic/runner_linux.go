//go:build linux

// Package cyclic drives a nictest.Tester from a paced sender goroutine and a
// receiver goroutine, recording each loop's own cycle time.
package cyclic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cyclicnic/cyclicnic/internal/nictest"
	"github.com/cyclicnic/cyclicnic/internal/stats"
)

// ErrNoFrame ends a run when the receiver's poll window passes without a
// frame.
var ErrNoFrame = errors.New("no frame received within the poll timeout")

// Params configures a run.
type Params struct {
	Iterations      uint64        // 0 runs until Stop or context cancellation
	Period          time.Duration // sender cycle time
	BucketWidth     uint64        // histogram bucket width in ns
	SendPriority    int
	ReceivePriority int
	SendCPU         int
	ReceiveCPU      int

	// RealTime applies SCHED_FIFO priority and CPU affinity to both loops.
	RealTime bool

	// Optional publish slots for live display.
	SendData    *stats.ReportData
	ReceiveData *stats.ReportData

	// TailMax enables tail percentiles up to this many nanoseconds.
	TailMax int64
}

// NewReport returns a Report measuring against period that publishes to
// publish when it is non-nil and records tail percentiles up to tailMax ns
// when tailMax is positive.
func NewReport(period time.Duration, bucketWidth uint64, publish *stats.ReportData, tailMax int64) *stats.Report {
	opts := []stats.Option{stats.WithPublish(publish)}
	if tailMax > 0 {
		opts = append(opts, stats.WithTail(stats.NewTail(tailMax)))
	}
	return stats.NewReport(uint64(period.Nanoseconds()), bucketWidth, opts...)
}

func (p Params) newReport(publish *stats.ReportData) *stats.Report {
	return NewReport(p.Period, p.BucketWidth, publish, p.TailMax)
}

// Runner owns the sender and receiver cycle reports and the shared running
// flag.
type Runner struct {
	params   Params
	running  atomic.Bool
	sender   *stats.Report
	receiver *stats.Report
	skipped  atomic.Uint64
	logger   logrus.FieldLogger
}

func NewRunner(params Params, logger logrus.FieldLogger) *Runner {
	r := &Runner{
		params:   params,
		sender:   params.newReport(params.SendData),
		receiver: params.newReport(params.ReceiveData),
		logger:   logger,
	}
	r.running.Store(true)
	return r
}

// Stop asks both loops to return after their current iteration.
func (r *Runner) Stop() { r.running.Store(false) }

func (r *Runner) Running() bool { return r.running.Load() }

// SenderReport and ReceiverReport must only be read once Run has returned.
func (r *Runner) SenderReport() *stats.Report   { return r.sender }
func (r *Runner) ReceiverReport() *stats.Report { return r.receiver }

// Skipped returns how many sender periods were skipped because an iteration
// overran its deadline.
func (r *Runner) Skipped() uint64 { return r.skipped.Load() }

func (r *Runner) stopping(ctx context.Context) bool {
	return !r.running.Load() || ctx.Err() != nil
}

func (r *Runner) more(ctx context.Context, index uint64) bool {
	if r.stopping(ctx) {
		return false
	}
	return r.params.Iterations == 0 || index < r.params.Iterations
}

// recorded reports whether iteration index contributes a cycle time. The
// first has no predecessor and the last is cut short by shutdown.
func (r *Runner) recorded(index uint64) bool {
	return index != 0 && index != r.params.Iterations-1
}

// Run drives tester until the iteration count is reached, ctx is cancelled
// or either loop fails. A nil tester runs the sender loop alone. Loops run on
// their own goroutines so thread configuration never touches the caller's
// thread.
func (r *Runner) Run(ctx context.Context, tester nictest.Tester) error {
	var g errgroup.Group
	if tester == nil {
		g.Go(func() error { return r.SenderLoop(ctx, nil) })
		return g.Wait()
	}

	g.Go(func() error {
		defer r.Stop()
		return r.ReceiverLoop(ctx, tester)
	})
	g.Go(func() error {
		return r.SenderLoop(ctx, tester)
	})
	return g.Wait()
}

// SenderLoop calls tester.Send once per period. A nil tester only measures
// the pacing itself.
func (r *Runner) SenderLoop(ctx context.Context, tester nictest.Tester) (err error) {
	defer func() {
		if err != nil {
			r.Stop()
		}
	}()

	if r.params.RealTime {
		if err := ConfigureThread(r.params.SendPriority, r.params.SendCPU); err != nil {
			return fmt.Errorf("sender: %w", err)
		}
	}

	pacer := NewPacer(r.params.Period)
	var previous int64
	for index := uint64(0); r.more(ctx, index); index++ {
		if tester != nil {
			if err := tester.Send(); err != nil {
				// The receiver may have left first on shutdown.
				if errors.Is(err, nictest.ErrHandoffTimeout) && r.stopping(ctx) {
					return nil
				}
				return fmt.Errorf("sender iteration %d: %w", index, err)
			}
		}

		current := Now()
		if r.recorded(index) {
			r.sender.AddObservation(uint64(current-previous), int(index))
		}

		skipped, err := pacer.Wait(current)
		if err != nil {
			return fmt.Errorf("sender sleep: %w", err)
		}
		if skipped > 0 {
			r.skipped.Add(uint64(skipped))
		}
		previous = current
	}
	return nil
}

// ReceiverLoop calls tester.Receive back to back. A poll window without a
// frame ends the run with ErrNoFrame unless the run is already stopping.
func (r *Runner) ReceiverLoop(ctx context.Context, tester nictest.Tester) error {
	if r.params.RealTime {
		if err := ConfigureThread(r.params.ReceivePriority, r.params.ReceiveCPU); err != nil {
			return fmt.Errorf("receiver: %w", err)
		}
	}

	var previous int64
	for index := uint64(0); r.more(ctx, index); index++ {
		ok, err := tester.Receive()
		if err != nil {
			return fmt.Errorf("receiver iteration %d: %w", index, err)
		}
		if !ok {
			if r.stopping(ctx) {
				return nil
			}
			return fmt.Errorf("receiver iteration %d: %w", index, ErrNoFrame)
		}

		current := Now()
		if r.recorded(index) {
			r.receiver.AddObservation(uint64(current-previous), int(index))
		}
		previous = current
	}
	return nil
}

// EstimatedRunTime returns iterations*period, saturating instead of
// overflowing.
func EstimatedRunTime(iterations uint64, period time.Duration) time.Duration {
	if period <= 0 {
		return 0
	}
	if iterations > uint64(math.MaxInt64/int64(period)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(iterations) * period
}
