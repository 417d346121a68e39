package nictest

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrSetup is matched by every *SetupError.
	ErrSetup = errors.New("nictest: setup failed")
	// ErrHandoffTimeout is matched by every *HandoffTimeoutError.
	ErrHandoffTimeout = errors.New("nictest: timed out waiting for receiver to be ready")
	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("nictest: transport failure")
	// ErrClosed is returned by a Link used after Close.
	ErrClosed = fmt.Errorf("link closed: %w", ErrTransport)
)

// SetupError reports a failure while creating or configuring a transport.
// No cycle has run when it is returned.
type SetupError struct {
	Step string
	NIC  string
	Err  error
}

func (e *SetupError) Error() string {
	return appendErrorCode(fmt.Sprintf("failed to %s (nic %q)", e.Step, e.NIC), e.Err)
}

func (e *SetupError) Unwrap() error        { return e.Err }
func (e *SetupError) Is(target error) bool { return target == ErrSetup }

// HandoffTimeoutError means the receiver did not signal readiness within the
// handoff timeout. It usually points at a stalled receiver or a wrong
// priority/affinity assignment and ends the run.
type HandoffTimeoutError struct {
	SendIteration    uint64
	ReceiveIteration uint64
}

func (e *HandoffTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for receiver to be ready: sendIteration=%d, receiveIteration=%d",
		e.SendIteration, e.ReceiveIteration)
}

func (e *HandoffTimeoutError) Is(target error) bool { return target == ErrHandoffTimeout }

// TransportError reports a send, poll or read failure on an open transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return appendErrorCode(e.Op+" failed", e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func transportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// appendErrorCode formats "msg | [errno] description" when err carries an
// errno.
func appendErrorCode(msg string, err error) string {
	if err == nil {
		return msg
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return fmt.Sprintf("%s | [%d] %s", msg, int(errno), errno.Error())
	}
	return msg + ": " + err.Error()
}
