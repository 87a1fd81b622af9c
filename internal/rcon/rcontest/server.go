// Package rcontest provides an in-process remote console server for tests.
// Frames are read and written with github.com/gorcon/rcon so that the client
// codec is exercised against an independent implementation.
package rcontest

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	gorcon "github.com/gorcon/rcon"
)

// HandlerFunc answers one command. It runs on the connection's goroutine.
type HandlerFunc func(c *Context)

// Context is the command being served.
type Context struct {
	conn    net.Conn
	index   int64
	request *gorcon.Packet
}

// Command returns the command text sent by the client.
func (c *Context) Command() string { return c.request.Body() }

// ID returns the request ID sent by the client.
func (c *Context) ID() int32 { return c.request.ID }

// Connection returns the 1-based index of the accepted connection.
func (c *Context) Connection() int64 { return c.index }

// Reply answers the request with body.
func (c *Context) Reply(body string) {
	c.ReplyWithID(c.request.ID, body)
}

// ReplyWithID answers with an arbitrary request ID.
func (c *Context) ReplyWithID(id int32, body string) {
	_, _ = gorcon.NewPacket(gorcon.SERVERDATA_RESPONSE_VALUE, id, body).WriteTo(c.conn)
}

// WriteRaw writes b to the connection unmodified.
func (c *Context) WriteRaw(b []byte) {
	_, _ = c.conn.Write(b)
}

// Drop closes the connection without answering.
func (c *Context) Drop() {
	_ = c.conn.Close()
}

// Server is a remote console listening on a system-chosen loopback port.
type Server struct {
	password   string
	handler    HandlerFunc
	sourceAuth bool

	listener    net.Listener
	accepted    atomic.Int64
	commands    atomic.Int64
	mu          sync.Mutex
	connections map[net.Conn]struct{}
	wg          sync.WaitGroup
	closed      atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithSourceAuth makes the server send an empty response value ahead of the
// auth response, as Source-engine servers do.
func WithSourceAuth() Option {
	return func(s *Server) { s.sourceAuth = true }
}

// NewServer starts a server that accepts password and serves commands with
// handler. A nil handler echoes every command back. The caller should call
// Close when finished.
func NewServer(password string, handler HandlerFunc, opts ...Option) (*Server, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	if handler == nil {
		handler = func(c *Context) { c.Reply(c.Command()) }
	}

	s := &Server{
		password:    password,
		handler:     handler,
		listener:    l,
		connections: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Host returns the listening host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.Atoi(port)
	return n
}

// Accepted returns how many connections have been accepted.
func (s *Server) Accepted() int64 { return s.accepted.Load() }

// Commands returns how many commands reached the handler.
func (s *Server) Commands() int64 { return s.commands.Load() }

// Close stops the listener and force-closes open connections.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	_ = s.listener.Close()

	s.mu.Lock()
	for c := range s.connections {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		index := s.accepted.Add(1)

		s.mu.Lock()
		s.connections[conn] = struct{}{}
		s.mu.Unlock()
		if s.closed.Load() {
			_ = conn.Close()
		}

		s.wg.Add(1)
		go s.handle(conn, index)
	}
}

func (s *Server) handle(conn net.Conn, index int64) {
	defer func() {
		s.mu.Lock()
		delete(s.connections, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
	}()

	authenticated := false
	for {
		request := &gorcon.Packet{}
		if _, err := request.ReadFrom(conn); err != nil {
			return
		}

		switch request.Type {
		case gorcon.SERVERDATA_AUTH:
			authenticated = s.authenticate(conn, request)
		case gorcon.SERVERDATA_EXECCOMMAND:
			if !authenticated {
				_, _ = gorcon.NewPacket(gorcon.SERVERDATA_RESPONSE_VALUE, -1, "").WriteTo(conn)
				continue
			}
			s.commands.Add(1)
			s.handler(&Context{conn: conn, index: index, request: request})
		}
	}
}

func (s *Server) authenticate(conn net.Conn, request *gorcon.Packet) bool {
	if s.sourceAuth {
		_, _ = gorcon.NewPacket(gorcon.SERVERDATA_RESPONSE_VALUE, request.ID, "").WriteTo(conn)
	}
	if request.Body() != s.password {
		_, _ = gorcon.NewPacket(gorcon.SERVERDATA_AUTH_RESPONSE, -1, "").WriteTo(conn)
		return false
	}
	_, _ = gorcon.NewPacket(gorcon.SERVERDATA_AUTH_RESPONSE, request.ID, "").WriteTo(conn)
	return true
}
