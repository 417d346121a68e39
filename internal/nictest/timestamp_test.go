package nictest

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimespecNanoseconds(t *testing.T) {
	tests := []struct {
		name string
		ts   Timespec
		want int64
	}{
		{"zero", Timespec{}, 0},
		{"plain", Timespec{Sec: 2, Nsec: 500}, 2_000_000_500},
		{"negative", Timespec{Sec: -1, Nsec: 0}, -1_000_000_000},
		{"sec overflow", Timespec{Sec: math.MaxInt64 / 2}, math.MaxInt64},
		{"sec underflow", Timespec{Sec: math.MinInt64 / 2}, math.MinInt64},
		{"sum overflow", Timespec{Sec: math.MaxInt64 / nsPerSec, Nsec: nsPerSec}, math.MaxInt64},
		{"sum underflow", Timespec{Sec: math.MinInt64 / nsPerSec, Nsec: -nsPerSec}, math.MinInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.ts.Nanoseconds())
		})
	}
}

func encode64(slots [numSlots]Timespec) []byte {
	b := make([]byte, numSlots*16)
	for i, s := range slots {
		binary.NativeEndian.PutUint64(b[i*16:], uint64(s.Sec))
		binary.NativeEndian.PutUint64(b[i*16+8:], uint64(s.Nsec))
	}
	return b
}

func encode32(slots [numSlots]Timespec) []byte {
	b := make([]byte, numSlots*8)
	for i, s := range slots {
		binary.NativeEndian.PutUint32(b[i*8:], uint32(int32(s.Sec)))
		binary.NativeEndian.PutUint32(b[i*8+4:], uint32(int32(s.Nsec)))
	}
	return b
}

func TestDecodeTimestamping(t *testing.T) {
	slots := [numSlots]Timespec{
		slotSoftware: {Sec: 10, Nsec: 20},
		slotHardware: {Sec: 30, Nsec: 40},
	}

	t.Run("64-bit", func(t *testing.T) {
		got, ok := decodeTimestamping(encode64(slots))
		require.True(t, ok)
		require.Equal(t, slots, got)
	})

	t.Run("32-bit", func(t *testing.T) {
		got, ok := decodeTimestamping(encode32(slots))
		require.True(t, ok)
		require.Equal(t, slots, got)
	})

	t.Run("short", func(t *testing.T) {
		_, ok := decodeTimestamping(make([]byte, 23))
		require.False(t, ok)
	})
}

func TestFromSlotsPresence(t *testing.T) {
	ts := fromSlots([numSlots]Timespec{
		slotSoftware: {Sec: 1},
		slotLegacy:   {Sec: 99},
	})
	require.True(t, ts.HaveSoftware)
	require.False(t, ts.HaveHardware, "legacy slot must not count as hardware")
	require.Equal(t, int64(1_000_000_000), ts.Software)

	ts = fromSlots([numSlots]Timespec{slotHardware: {Nsec: 7}})
	require.False(t, ts.HaveSoftware)
	require.True(t, ts.HaveHardware)
	require.Equal(t, int64(7), ts.Hardware)
}

func TestDomainString(t *testing.T) {
	require.Equal(t, "hardware", Hardware.String())
	require.Equal(t, "software", Software.String())
	require.Equal(t, "unknown", Domain(9).String())
}
