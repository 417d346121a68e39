package nictest

import "time"

// Link is the transport a Harness drives. Implementations need not be safe
// for concurrent writers, but WriteFrame is called from the sender goroutine
// while WaitReadable and ReadTimestamps are called from the receiver.
//
//go:generate mockgen -destination ./${GOPACKAGE}mock/${GOFILE} -package ${GOPACKAGE}mock -source ./${GOFILE}
type Link interface {
	// WriteFrame transmits one frame.
	WriteFrame(frame []byte) error
	// WaitReadable blocks until a frame can be read or timeout elapses.
	// A timeout returns false and no error.
	WaitReadable(timeout time.Duration) (bool, error)
	// ReadTimestamps consumes one frame and returns its packet timestamps.
	ReadTimestamps() (Timestamps, error)
	// Close releases the transport.
	Close() error
}

// Tester is driven cyclically by a sender and a receiver goroutine.
type Tester interface {
	Send() error
	// Receive reports whether a frame arrived within the poll window.
	Receive() (bool, error)
}
