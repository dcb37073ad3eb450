/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package transport

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"

	"github.com/nabbar/msapi-manager/internal/apperrors"
	"github.com/nabbar/msapi-manager/internal/applog"
	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/wire"
)

// ObjectHandler processes one decoded object-protocol message received on c.
type ObjectHandler func(c *Connection, m proto.Message)

// Server is a goroutine-per-connection TCP listener that demultiplexes each
// accepted connection between the binary object protocol and plain HTTP by
// sniffing the leading frame cipher, handing HTTP connections to httpHandler
// and binary frames to onObject.
type Server struct {
	log         applog.Logger
	cfg         atomic.Pointer[Config]
	httpHandler http.Handler
	onObject    ObjectHandler
	onClose     func(c *Connection)

	ln net.Listener

	mu        sync.Mutex
	conns     map[uint64]*Connection
	ipCounts  map[string]int
	nextID    uint64
	stopping  bool
}

// New constructs a Server. httpHandler serves any connection whose leading
// cipher is not wire.ObjectCipher; onObject is invoked once per decoded
// binary frame.
func New(log applog.Logger, cfg Config, httpHandler http.Handler, onObject ObjectHandler) *Server {
	s := &Server{
		log:         log,
		httpHandler: httpHandler,
		onObject:    onObject,
		conns:       make(map[uint64]*Connection),
		ipCounts:    make(map[string]int),
	}
	s.cfg.Store(&cfg)
	return s
}

// OnClose registers a callback fired after a connection's reader loop exits,
// so the engine can drop any pending requests keyed to that connection.
func (s *Server) OnClose(cb func(c *Connection)) { s.onClose = cb }

// UpdateConfig swaps the live configuration. Admission checks and
// connections accepted afterwards use the new values; connections already
// tracked keep the buffer bounds they were created with.
func (s *Server) UpdateConfig(cfg Config) { s.cfg.Store(&cfg) }

func (s *Server) config() Config { return *s.cfg.Load() }

// Listen binds addr and returns once the listener is bound; Serve must be
// called to run the accept loop.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeListenFailed, "listen "+addr, err)
	}
	s.ln = ln
	return nil
}

// Serve runs the accept loop until Stop is called. Each accepted connection
// is handled on its own goroutine.
func (s *Server) Serve() error {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopping
			s.mu.Unlock()
			if stopping {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return apperrors.Wrap(apperrors.CodeAcceptFailed, "accept", err)
		}

		if !s.admit(c) {
			_ = c.Close()
			continue
		}

		conn := s.track(c)
		go s.handle(conn)
	}
}

func (s *Server) admit(c net.Conn) bool {
	cfg := s.config()
	if cfg.MaxConnectionsPerIP <= 0 {
		return true
	}
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ipCounts[host] >= cfg.MaxConnectionsPerIP {
		return false
	}
	s.ipCounts[host]++
	return true
}

func (s *Server) track(c net.Conn) *Connection {
	cfg := s.config()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	conn := newConnection(id, c, cfg)
	s.conns[id] = conn
	s.mu.Unlock()
	return conn
}

func (s *Server) untrack(conn *Connection) {
	s.mu.Lock()
	delete(s.conns, conn.ID)
	if host, _, err := net.SplitHostPort(conn.Conn.RemoteAddr().String()); err == nil {
		if s.ipCounts[host] > 0 {
			s.ipCounts[host]--
		}
	}
	s.mu.Unlock()
	if s.onClose != nil {
		s.onClose(conn)
	}
}

func (s *Server) handle(conn *Connection) {
	defer s.untrack(conn)
	defer conn.Close()

	h, err := conn.Reader.Sniff()
	if err != nil {
		return
	}

	if !h.IsObject() {
		s.serveHTTP(conn)
		return
	}

	conn.Reader.OnDrop(func(uint32) {
		if s.log != nil {
			s.log.Warn("dropped oversized frame", "connection", conn.ID)
		}
	})

	for {
		frame, err := conn.Reader.Next()
		if err != nil {
			if errors.Is(err, wire.ErrFrameDropped) {
				continue
			}
			if err != io.EOF && s.log != nil {
				s.log.Debug("connection read error", "connection", conn.ID, "error", err)
			}
			return
		}
		msg, err := proto.DecodePayload(frame[wire.HeaderSize:], conn.Schema())
		if err != nil {
			if s.log != nil {
				s.log.Warn("malformed object frame", "connection", conn.ID, "error", err)
			}
			continue
		}
		if s.onObject != nil {
			s.onObject(conn, msg)
		}
	}
}

// serveHTTP reads one or more HTTP requests off conn's buffered reader (no
// bytes sniffed are lost: bufio.Reader.Peek never consumes) and dispatches
// each to httpHandler via an in-memory recorder, since this connection is
// not registered with an *http.Server.
func (s *Server) serveHTTP(conn *Connection) {
	br := conn.Reader.Bufio()
	for {
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		req.RemoteAddr = conn.Conn.RemoteAddr().String()

		rec := httptest.NewRecorder()
		if s.httpHandler != nil {
			s.httpHandler.ServeHTTP(rec, req)
		} else {
			rec.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := writeRecordedResponse(conn.Conn, rec); err != nil {
			return
		}
		if req.Close {
			return
		}
	}
}

func writeRecordedResponse(w io.Writer, rec *httptest.ResponseRecorder) error {
	resp := rec.Result()
	defer resp.Body.Close()
	return resp.Write(w)
}

// Addr returns the listener's bound address. Only meaningful after Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener and every tracked connection. Idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	conns := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var lnErr error
	if s.ln != nil {
		lnErr = s.ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	return lnErr
}
