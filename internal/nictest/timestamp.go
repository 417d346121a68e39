package nictest

import (
	"encoding/binary"
	"math"
)

const nsPerSec = 1_000_000_000

// Domain identifies the clock a timestamp was taken with.
type Domain int

const (
	Hardware Domain = iota
	Software
)

func (d Domain) String() string {
	switch d {
	case Hardware:
		return "hardware"
	case Software:
		return "software"
	default:
		return "unknown"
	}
}

// Timestamps holds the packet timestamps extracted from one received frame.
type Timestamps struct {
	Software     int64
	Hardware     int64
	HaveSoftware bool
	HaveHardware bool

	// Malformed is set when timestamping control data was present but could
	// not be decoded.
	Malformed bool
}

// Timespec is a decoded seconds/nanoseconds pair.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// IsSet reports whether the kernel filled the slot.
func (ts Timespec) IsSet() bool { return ts.Sec != 0 || ts.Nsec != 0 }

// Nanoseconds converts ts to a nanosecond count, saturating at the int64
// limits instead of wrapping.
func (ts Timespec) Nanoseconds() int64 {
	const (
		maxSec = math.MaxInt64 / nsPerSec
		minSec = math.MinInt64 / nsPerSec
	)
	if ts.Sec > maxSec {
		return math.MaxInt64
	}
	if ts.Sec < minSec {
		return math.MinInt64
	}
	base := ts.Sec * nsPerSec
	sum := base + ts.Nsec
	switch {
	case ts.Nsec > 0 && sum < base:
		return math.MaxInt64
	case ts.Nsec < 0 && sum > base:
		return math.MinInt64
	}
	return sum
}

// Slot order of struct scm_timestamping.
const (
	slotSoftware = 0
	slotLegacy   = 1
	slotHardware = 2
	numSlots     = 3
)

// decodeTimestamping decodes the three timespecs of a timestamping control
// message payload. 48-byte payloads carry 64-bit fields
// (struct __kernel_timespec), 24-byte payloads 32-bit ones.
func decodeTimestamping(data []byte) ([numSlots]Timespec, bool) {
	var out [numSlots]Timespec
	switch {
	case len(data) >= numSlots*16:
		for i := range out {
			off := i * 16
			out[i].Sec = int64(binary.NativeEndian.Uint64(data[off:]))
			out[i].Nsec = int64(binary.NativeEndian.Uint64(data[off+8:]))
		}
	case len(data) >= numSlots*8:
		for i := range out {
			off := i * 8
			out[i].Sec = int64(int32(binary.NativeEndian.Uint32(data[off:])))
			out[i].Nsec = int64(int32(binary.NativeEndian.Uint32(data[off+4:])))
		}
	default:
		return out, false
	}
	return out, true
}

// fromSlots applies the presence rule to decoded slots.
func fromSlots(slots [numSlots]Timespec) Timestamps {
	var ts Timestamps
	if sw := slots[slotSoftware]; sw.IsSet() {
		ts.Software, ts.HaveSoftware = sw.Nanoseconds(), true
	}
	if hw := slots[slotHardware]; hw.IsSet() {
		ts.Hardware, ts.HaveHardware = hw.Nanoseconds(), true
	}
	return ts
}
