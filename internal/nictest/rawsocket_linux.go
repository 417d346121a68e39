//go:build linux

package nictest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/cyclicnic/cyclicnic/internal/stats"
)

const (
	socketTimeout = time.Second
	recvBufSize   = 2048
	oobBufSize    = 512
)

const timestampingFlags = unix.SOF_TIMESTAMPING_TX_HARDWARE |
	unix.SOF_TIMESTAMPING_RX_HARDWARE |
	unix.SOF_TIMESTAMPING_RAW_HARDWARE |
	unix.SOF_TIMESTAMPING_RX_SOFTWARE |
	unix.SOF_TIMESTAMPING_SOFTWARE

// RawSocket is a Link over an AF_PACKET socket bound to one interface and
// the EtherCAT ethertype. The interface is put into promiscuous mode and
// hardware timestamping is requested from the driver.
type RawSocket struct {
	fd  int
	nic string

	buf  []byte
	oob  []byte
	fds  []unix.PollFd
	once sync.Once
	err  error
}

// OpenRawSocket creates and configures the socket. Every failure is a
// *SetupError naming the step.
func OpenRawSocket(nic string, logger logrus.FieldLogger) (*RawSocket, error) {
	if nic == "" {
		return nil, &SetupError{Step: "select interface", NIC: nic, Err: errors.New("no network interface given")}
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(EtherTypeEtherCAT)))
	if err != nil {
		return nil, &SetupError{Step: "create socket", NIC: nic, Err: err}
	}

	s := newRawSocket(fd, nic)
	if err := s.configure(logger); err != nil {
		unix.Close(fd)
		return nil, err
	}

	logger.WithFields(logrus.Fields{"nic": nic, "fd": fd}).Debug("raw socket ready")
	return s, nil
}

func newRawSocket(fd int, nic string) *RawSocket {
	return &RawSocket{
		fd:  fd,
		nic: nic,
		buf: make([]byte, recvBufSize),
		oob: make([]byte, oobBufSize),
		fds: []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}},
	}
}

func (s *RawSocket) configure(logger logrus.FieldLogger) error {
	fail := func(step string, err error) error {
		return &SetupError{Step: step, NIC: s.nic, Err: err}
	}

	tv := unix.NsecToTimeval(socketTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fail("set receive timeout", err)
	}
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
		return fail("set send timeout", err)
	}
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_DONTROUTE, 1); err != nil {
		return fail("set SO_DONTROUTE", err)
	}

	// Drivers without PTP support reject this; software timestamps still work.
	hw := unix.HwTstampConfig{Tx_type: unix.HWTSTAMP_TX_ON, Rx_filter: unix.HWTSTAMP_FILTER_ALL}
	if err := unix.IoctlSetHwTstamp(s.fd, s.nic, &hw); err != nil {
		logger.WithError(err).WithField("nic", s.nic).Warn("hardware timestamping not enabled")
	}

	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_TIMESTAMPING_NEW, timestampingFlags); err != nil {
		return fail("set SO_TIMESTAMPING_NEW", err)
	}

	ifr, err := unix.NewIfreq(s.nic)
	if err != nil {
		return fail("look up interface", err)
	}
	if err := unix.IoctlIfreq(s.fd, unix.SIOCGIFINDEX, ifr); err != nil {
		return fail("get interface index", err)
	}
	ifindex := int(ifr.Uint32())

	ifr, err = unix.NewIfreq(s.nic)
	if err != nil {
		return fail("look up interface", err)
	}
	if err := unix.IoctlIfreq(s.fd, unix.SIOCGIFFLAGS, ifr); err != nil {
		return fail("get interface flags", err)
	}
	ifr.SetUint16(ifr.Uint16() | unix.IFF_PROMISC | unix.IFF_BROADCAST)
	if err := unix.IoctlIfreq(s.fd, unix.SIOCSIFFLAGS, ifr); err != nil {
		return fail("set interface flags", err)
	}

	sa := &unix.SockaddrLinklayer{Protocol: htons(EtherTypeEtherCAT), Ifindex: ifindex}
	if err := unix.Bind(s.fd, sa); err != nil {
		return fail("bind socket", err)
	}
	return nil
}

func (s *RawSocket) WriteFrame(frame []byte) error {
	n, err := unix.Write(s.fd, frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(frame))
	}
	return nil
}

// WaitReadable polls until a frame is queued or timeout has passed since the
// call. Transmit timestamps land on the error queue and raise POLLERR; they
// are drained and the wait continues with the remaining time.
func (s *RawSocket) WaitReadable(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}

		s.fds[0].Revents = 0
		n, err := unix.Poll(s.fds, pollMillis(remaining))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		if n > 0 && s.fds[0].Revents&unix.POLLIN != 0 {
			return true, nil
		}
		if s.fds[0].Revents&unix.POLLNVAL != 0 {
			return false, unix.EBADF
		}
		if n > 0 && s.fds[0].Revents&unix.POLLERR != 0 {
			if err := s.drainErrors(); err != nil {
				return false, err
			}
		}
		if n == 0 || !time.Now().Before(deadline) {
			return false, nil
		}
	}
}

// pollMillis rounds d up so a short remainder does not become a zero timeout.
func pollMillis(d time.Duration) int {
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// drainErrors empties the socket error queue and clears the pending socket
// error so POLLERR stops firing.
func (s *RawSocket) drainErrors() error {
	for {
		_, _, _, _, err := unix.Recvmsg(s.fd, s.buf, s.oob, unix.MSG_ERRQUEUE|unix.MSG_DONTWAIT)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
	}
	_, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	return err
}

// ReadTimestamps receives one frame. A truncated control buffer yields
// Timestamps marked Malformed.
func (s *RawSocket) ReadTimestamps() (Timestamps, error) {
	_, oobn, flags, _, err := unix.Recvmsg(s.fd, s.buf, s.oob, 0)
	if err != nil {
		return Timestamps{}, err
	}
	if flags&unix.MSG_CTRUNC != 0 {
		return Timestamps{Malformed: true}, nil
	}
	return ParseTimestamping(s.oob[:oobn]), nil
}

func (s *RawSocket) Close() error {
	s.once.Do(func() { s.err = unix.Close(s.fd) })
	return s.err
}

// Open creates a Harness over a raw socket on nic.
func Open(nic string, hardware, software *stats.Report, opts ...Option) (*Harness, error) {
	h := New(nil, hardware, software, opts...)
	link, err := OpenRawSocket(nic, h.logger)
	if err != nil {
		return nil, err
	}
	h.link = link
	return h, nil
}

// htons converts v to network byte order as the kernel expects it in
// protocol fields.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}
