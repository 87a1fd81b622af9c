package rcon

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// Kind classifies why an RCON operation failed. The console dispatcher uses it
// to decide between evicting the session, retrying, and surfacing the message.
type Kind int

const (
	KindApplication Kind = iota
	KindTimeout
	KindRefused
	KindTransport
	KindAuth
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRefused:
		return "refused"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	default:
		return "application"
	}
}

// Transport reports whether the failure happened below the protocol, at the
// socket level.
func (k Kind) Transport() bool {
	return k == KindTimeout || k == KindRefused || k == KindTransport
}

// Broken reports whether a session that returned this kind of error must be
// discarded. A protocol error leaves the byte stream out of sync, so it is
// treated like a transport failure.
func (k Kind) Broken() bool {
	return k.Transport() || k == KindProtocol
}

var (
	ErrAuthFailed      = errors.New("authentication failed")
	ErrTruncatedFrame  = errors.New("truncated frame")
	ErrFrameSize       = errors.New("invalid frame size")
	ErrFramePadding    = errors.New("missing frame terminator")
	ErrMismatchedID    = errors.New("mismatched request ID from server")
	ErrCommandEmpty    = errors.New("command is empty")
	ErrCommandTooLong  = errors.New("command is too long")
	ErrSessionClosed   = errors.New("session is closed")
	ErrUnexpectedFrame = errors.New("unexpected frame type")
)

// Error records the operation that was taking place, the remote address and
// the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return "rcon " + e.Op + " " + e.Addr + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op, addr string, err error) *Error {
	return &Error{Kind: classify(err), Op: op, Addr: addr, Err: err}
}

// KindOf returns the classification of err. Errors that did not originate in
// this package are classified by inspecting the underlying cause.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case err == nil:
		return KindApplication
	case errors.Is(err, ErrAuthFailed):
		return KindAuth
	case errors.Is(err, ErrTruncatedFrame),
		errors.Is(err, ErrFrameSize),
		errors.Is(err, ErrFramePadding),
		errors.Is(err, ErrMismatchedID),
		errors.Is(err, ErrUnexpectedFrame):
		return KindProtocol
	case errors.Is(err, ErrCommandEmpty), errors.Is(err, ErrCommandTooLong):
		return KindApplication
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindRefused
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, ErrSessionClosed):
		return KindTransport
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}
	return KindApplication
}
