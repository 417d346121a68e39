//go:build linux

package cyclic

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DMALatencyPath is the PM QoS device that pins CPU wakeup latency.
const DMALatencyPath = "/dev/cpu_dma_latency"

// ConfigureThread locks the calling goroutine to its OS thread and gives the
// thread SCHED_FIFO priority and a single-CPU affinity. The goroutine is
// never unlocked, so the configured thread is discarded when it exits.
func ConfigureThread(priority, cpu int) error {
	runtime.LockOSThread()

	attr := &unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, attr, 0); err != nil {
		return fmt.Errorf("failed to set thread priority to %d: %w", priority, err)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("failed to set the cpu affinity to core %d: %w", cpu, err)
	}
	return nil
}

// LockMemory locks current and future pages into RAM.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("failed to lock memory: %w", err)
	}
	return nil
}

// IsRoot reports whether the process runs with effective uid 0.
func IsRoot() bool { return unix.Geteuid() == 0 }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetLatencyTarget writes a zero latency request to path and keeps it open;
// the request lasts until the returned Closer is closed. Failures only
// produce warnings since the test still runs without it.
func SetLatencyTarget(path string, logger logrus.FieldLogger) io.Closer {
	log := logger.WithField("path", path)

	if _, err := os.Stat(path); err != nil {
		log.WithError(err).Warn("latency target not set")
		return nopCloser{}
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		log.WithError(err).Warn("latency target not set")
		return nopCloser{}
	}
	if err := binary.Write(f, binary.NativeEndian, int32(0)); err != nil {
		log.WithError(err).Warn("error setting latency target to 0")
	}
	return f
}
