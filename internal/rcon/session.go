package rcon

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds connect and every read and write on a session.
const DefaultTimeout = 5 * time.Second

// ContextDialer opens the stream socket for a session. *net.Dialer satisfies it.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a session before it is opened.
type Option func(*Session)

// WithTimeout sets the per-operation socket timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDialer replaces the dialer used to open the socket.
func WithDialer(d ContextDialer) Option {
	return func(s *Session) { s.dialer = d }
}

// Session is one authenticated connection to a remote console. Commands are
// strictly request-response; concurrent Execute calls are serialized.
type Session struct {
	addr    string
	timeout time.Duration
	dialer  ContextDialer

	mu    sync.Mutex
	conn  net.Conn
	reqID int32

	closed    atomic.Bool
	closeOnce sync.Once
}

// Open connects to addr and authenticates with password. The returned session
// is always fully authenticated; on any failure the socket is closed and no
// session is returned.
func Open(ctx context.Context, addr, password string, opts ...Option) (*Session, error) {
	s := &Session{addr: addr, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = &net.Dialer{Timeout: s.timeout}
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := s.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, newError("connect", addr, err)
	}
	s.conn = conn

	if err := s.authenticate(password); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Addr returns the remote address the session is connected to.
func (s *Session) Addr() string { return s.addr }

func (s *Session) authenticate(password string) error {
	const op = "authenticate"

	id := s.nextID()
	if err := s.write(id, TypeAuth, password); err != nil {
		return newError(op, s.addr, err)
	}

	// Source-engine servers send an empty response value ahead of the auth
	// response. Minecraft sends the auth response alone.
	for skipped := 0; ; skipped++ {
		f, err := s.read()
		if err != nil {
			e := newError(op, s.addr, err)
			if e.Kind == KindProtocol {
				e.Kind = KindAuth
			}
			return e
		}
		if f.ID == AuthRejectedID {
			return &Error{Kind: KindAuth, Op: op, Addr: s.addr, Err: ErrAuthFailed}
		}
		if f.Type == TypeResponse && f.Body == "" && skipped == 0 {
			continue
		}
		if f.Type != TypeAuthResponse {
			return &Error{Kind: KindAuth, Op: op, Addr: s.addr, Err: ErrUnexpectedFrame}
		}
		if f.ID != id {
			return &Error{Kind: KindAuth, Op: op, Addr: s.addr, Err: ErrMismatchedID}
		}
		return nil
	}
}

// Execute sends command and returns the body of the single response frame.
func (s *Session) Execute(command string) (string, error) {
	const op = "execute"

	if command == "" {
		return "", &Error{Kind: KindApplication, Op: op, Addr: s.addr, Err: ErrCommandEmpty}
	}
	if len(command) > MaxCommandLen {
		return "", &Error{Kind: KindApplication, Op: op, Addr: s.addr, Err: ErrCommandTooLong}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return "", newError(op, s.addr, ErrSessionClosed)
	}

	id := s.nextID()
	if err := s.write(id, TypeCommand, command); err != nil {
		return "", newError(op, s.addr, err)
	}

	f, err := s.read()
	if err != nil {
		return "", newError(op, s.addr, err)
	}
	if f.ID == AuthRejectedID {
		return "", &Error{Kind: KindAuth, Op: op, Addr: s.addr, Err: ErrAuthFailed}
	}
	if f.ID != id {
		return "", newError(op, s.addr, ErrMismatchedID)
	}
	return f.Body, nil
}

// Close shuts the socket. It is safe to call more than once and from any
// goroutine; an Execute blocked on the socket returns with a transport error.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// nextID returns the next request ID. IDs stay positive so they can never
// collide with AuthRejectedID.
func (s *Session) nextID() int32 {
	s.reqID++
	if s.reqID <= 0 {
		s.reqID = 1
	}
	return s.reqID
}

func (s *Session) write(id, typ int32, payload string) error {
	frame, err := Encode(id, typ, payload)
	if err != nil {
		return err
	}
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err = s.conn.Write(frame)
	return err
}

func (s *Session) read() (Frame, error) {
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		return Frame{}, err
	}
	return Decode(s.conn)
}
