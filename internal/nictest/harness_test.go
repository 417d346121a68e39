package nictest_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/cyclicnic/cyclicnic/internal/nictest"
	"github.com/cyclicnic/cyclicnic/internal/nictest/nictestmock"
	"github.com/cyclicnic/cyclicnic/internal/stats"
)

const (
	target = 1_000_000
	width  = 125_000
)

func stamp(hw, sw int64) nictest.Timestamps {
	return nictest.Timestamps{Hardware: hw, HaveHardware: true, Software: sw, HaveSoftware: true}
}

func newReports() (hw, sw *stats.Report) {
	return stats.NewReport(target, width), stats.NewReport(target, width)
}

func TestHandoffAllowsOneSendPerReceive(t *testing.T) {
	defer goleak.VerifyNone(t)

	const iterations = 200
	var tick int64
	link := nictest.NewMemLink(nictest.WithClock(func() nictest.Timestamps {
		tick += target
		return stamp(tick, tick)
	}))
	hw, sw := newReports()
	h := nictest.New(link, hw, sw)

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < iterations; i++ {
			if err := h.Send(); err != nil {
				return err
			}
			if send, receive := h.Iterations(); send > receive {
				return fmt.Errorf("iteration %d: %d sends completed with only %d receives", i, send, receive)
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < iterations; i++ {
			ok, err := h.Receive()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("iteration %d: no frame", i)
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
	require.NoError(t, h.Close())

	send, receive := h.Iterations()
	require.Equal(t, uint64(iterations), send)
	require.Equal(t, uint64(iterations), receive)
	require.Equal(t, uint64(iterations), link.Sent())

	snap := hw.Snapshot()
	require.Equal(t, uint64(iterations-1), snap.Observations)
	require.Equal(t, uint64(target), snap.Min)
	require.Equal(t, uint64(target), snap.Max)
	require.Equal(t, uint64(iterations-1), sw.Snapshot().Observations)

	cadence := h.Cadence()
	require.Equal(t, uint64(iterations-1), cadence.HardwareDelta.Count())
	require.InDelta(t, float64(target), cadence.HardwareDelta.Mean(), 1e-6)
	require.Equal(t, nictest.Drops{}, h.Drops())
}

func TestSendTimesOutWithoutReceiver(t *testing.T) {
	defer goleak.VerifyNone(t)

	link := nictest.NewMemLink()
	h := nictest.New(link, nil, nil, nictest.WithHandoffTimeout(20*time.Millisecond))
	defer h.Close()

	start := time.Now()
	err := h.Send()
	elapsed := time.Since(start)

	require.ErrorIs(t, err, nictest.ErrHandoffTimeout)
	var te *nictest.HandoffTimeoutError
	require.ErrorAs(t, err, &te)
	require.Equal(t, uint64(0), te.SendIteration)
	require.Equal(t, uint64(0), te.ReceiveIteration)
	require.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	require.Less(t, elapsed, time.Second)
	require.Equal(t, uint64(0), link.Sent(), "nothing may be written after a timeout")
}

func TestReceiveTimeoutIsNotAnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	link := nictest.NewMemLink()
	h := nictest.New(link, nil, nil,
		nictest.WithPollTimeout(10*time.Millisecond),
		nictest.WithHandoffTimeout(20*time.Millisecond))
	defer h.Close()

	ok, err := h.Receive()
	require.NoError(t, err)
	require.False(t, ok)

	// One announced receive admits exactly one send.
	require.NoError(t, h.Send())
	require.ErrorIs(t, h.Send(), nictest.ErrHandoffTimeout)
	require.Equal(t, uint64(1), link.Sent())
}

func TestNegativeDeltasAreDropped(t *testing.T) {
	link := nictest.NewMemLink()
	hw, sw := newReports()
	h := nictest.New(link, hw, sw)
	defer h.Close()

	for _, ts := range []nictest.Timestamps{
		stamp(1000, 1000),
		stamp(3000, 3000),
		stamp(2000, 4000), // hardware goes backwards
		stamp(5000, 6000),
	} {
		link.Inject(ts)
	}
	for i := 0; i < 4; i++ {
		ok, err := h.Receive()
		require.NoError(t, err)
		require.True(t, ok)
	}

	hwSnap := hw.Snapshot()
	require.Equal(t, uint64(2), hwSnap.Observations)
	require.Equal(t, uint64(2000), hwSnap.Min)
	require.Equal(t, 2, hwSnap.MinIndex)
	require.Equal(t, uint64(3000), hwSnap.Max, "previous must advance past the dropped sample")
	require.Equal(t, 4, hwSnap.MaxIndex)

	swSnap := sw.Snapshot()
	require.Equal(t, uint64(3), swSnap.Observations)
	require.Equal(t, uint64(5000), swSnap.Sum)

	drops := h.Drops()
	require.Equal(t, uint64(1), drops.NegativeHardware)
	require.Equal(t, uint64(0), drops.NegativeSoftware)
}

func TestMissingTimestampsAreCounted(t *testing.T) {
	link := nictest.NewMemLink()
	hw, sw := newReports()
	h := nictest.New(link, hw, sw)
	defer h.Close()

	link.Inject(nictest.Timestamps{})
	link.Inject(nictest.Timestamps{Malformed: true})
	link.Inject(nictest.Timestamps{Software: 10, HaveSoftware: true})
	link.Inject(nictest.Timestamps{Software: 30, HaveSoftware: true})
	for i := 0; i < 4; i++ {
		ok, err := h.Receive()
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.Equal(t, uint64(0), hw.Snapshot().Observations)
	require.Equal(t, uint64(1), sw.Snapshot().Observations)
	require.Equal(t, uint64(20), sw.Snapshot().Min)
	require.Equal(t, nictest.Drops{Missing: 1, Malformed: 1}, h.Drops())
}

func TestTransportFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("send", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		link := nictestmock.NewMockLink(ctrl)
		gomock.InOrder(
			link.EXPECT().WaitReadable(gomock.Any()).Return(false, nil),
			link.EXPECT().WriteFrame(gomock.Len(nictest.FrameSize)).Return(unix.ENETDOWN),
		)

		h := nictest.New(link, nil, nil)
		ok, err := h.Receive()
		require.NoError(t, err)
		require.False(t, ok)

		err = h.Send()
		require.ErrorIs(t, err, nictest.ErrTransport)
		require.ErrorIs(t, err, unix.ENETDOWN)
		var te *nictest.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "send", te.Op)
		send, _ := h.Iterations()
		require.Equal(t, uint64(0), send)
	})

	t.Run("poll", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		link := nictestmock.NewMockLink(ctrl)
		link.EXPECT().WaitReadable(nictest.DefaultPollTimeout).Return(false, unix.EBADF)

		_, err := nictest.New(link, nil, nil).Receive()
		var te *nictest.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "poll", te.Op)
		require.Contains(t, err.Error(), fmt.Sprintf("| [%d] ", int(unix.EBADF)))
	})

	t.Run("recvmsg", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		link := nictestmock.NewMockLink(ctrl)
		link.EXPECT().WaitReadable(gomock.Any()).Return(true, nil)
		link.EXPECT().ReadTimestamps().Return(nictest.Timestamps{}, unix.EAGAIN)

		ok, err := nictest.New(link, nil, nil).Receive()
		require.False(t, ok)
		var te *nictest.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "recvmsg", te.Op)
	})
}

func TestCloseReleasesLinkOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	link := nictestmock.NewMockLink(ctrl)
	closeErr := errors.New("boom")
	link.EXPECT().Close().Return(closeErr).Times(1)

	h := nictest.New(link, nil, nil)
	require.Equal(t, closeErr, h.Close())
	require.Equal(t, closeErr, h.Close())
}
