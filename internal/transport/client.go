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
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/nabbar/msapi-manager/internal/applog"
	"github.com/nabbar/msapi-manager/internal/proto"
)

// OutboundClient is a reconnecting outbound connection to a spawned worker's
// listening port: it keeps one logical Connection alive across TCP drops,
// re-dialing after SecondsBetweenReconnect up to LimitConnectAttempts times
// (0 = unlimited), preserving the caller-visible identity across reconnects.
type OutboundClient struct {
	log      applog.Logger
	addr     string
	cfg      Config
	onObject ObjectHandler
	onClose  func(c *Connection)
	onConn   func(c *Connection)

	mu      sync.Mutex
	current *Connection
	closed  atomic.Bool
}

// NewOutboundClient builds a client targeting addr; call Run to start
// connecting. onObject fires for every decoded frame from the worker.
func NewOutboundClient(log applog.Logger, addr string, cfg Config, onObject ObjectHandler) *OutboundClient {
	return &OutboundClient{log: log, addr: addr, cfg: cfg, onObject: onObject}
}

// OnClose registers a callback fired each time the underlying socket drops,
// before a reconnect attempt begins.
func (o *OutboundClient) OnClose(cb func(c *Connection)) { o.onClose = cb }

// OnConnect registers a callback fired once a dial succeeds and the hello
// handshake has been sent, so the caller can bind the connection to whatever
// higher-level identity (e.g. a created app's port) it represents.
func (o *OutboundClient) OnConnect(cb func(c *Connection)) { o.onConn = cb }

// Connection returns the currently live Connection, or nil while reconnecting.
func (o *OutboundClient) Connection() *Connection {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Run dials and serves the connection, reconnecting on failure, until ctx is
// canceled or Stop is called.
func (o *OutboundClient) Run(ctx context.Context) error {
	attempts := 0
	for {
		if o.closed.Load() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c, err := net.Dial("tcp", o.addr)
		if err != nil {
			attempts++
			if o.cfg.LimitConnectAttempts > 0 && attempts >= o.cfg.LimitConnectAttempts {
				return err
			}
			if o.log != nil {
				o.log.Warn("outbound connect failed, retrying", "addr", o.addr, "error", err)
			}
			if !sleepOrDone(ctx, o.cfg.SecondsBetweenReconnect) {
				return ctx.Err()
			}
			continue
		}
		attempts = 0

		conn := newConnection(0, c, o.cfg)
		o.mu.Lock()
		o.current = conn
		o.mu.Unlock()

		if err := conn.Send(proto.HelloMessage()); err != nil {
			_ = conn.Close()
			continue
		}
		if o.onConn != nil {
			o.onConn(conn)
		}

		o.serve(ctx, conn)

		o.mu.Lock()
		o.current = nil
		o.mu.Unlock()
		if o.onClose != nil {
			o.onClose(conn)
		}

		if !sleepOrDone(ctx, o.cfg.SecondsBetweenReconnect) {
			return ctx.Err()
		}
	}
}

func (o *OutboundClient) serve(ctx context.Context, conn *Connection) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	defer close(done)

	for {
		frame, err := conn.Reader.Next()
		if err != nil {
			return
		}
		msg, err := proto.DecodePayload(frame[8:], conn.Schema())
		if err != nil {
			if o.log != nil {
				o.log.Warn("malformed frame from worker", "error", err)
			}
			continue
		}
		if o.onObject != nil {
			o.onObject(conn, msg)
		}
	}
}

// Stop marks the client closed and closes any live connection; Run returns
// on its next iteration.
func (o *OutboundClient) Stop() {
	o.closed.Store(true)
	if c := o.Connection(); c != nil {
		_ = c.Close()
	}
}
