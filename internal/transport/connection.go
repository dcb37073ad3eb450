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
	"net"
	"sync"

	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/wire"
)

// Connection is one accepted or outbound TCP connection speaking the binary
// object protocol. It owns the write-side serialization (one goroutine may
// write while another reads) and carries whatever table schema the engine
// has learned for the app on the other end.
type Connection struct {
	ID     uint64
	Conn   net.Conn
	Reader *wire.FrameReader

	mu      sync.Mutex
	closed  bool
	schema  proto.TableSchema
	schemaM sync.RWMutex
}

func newConnection(id uint64, c net.Conn, cfg Config) *Connection {
	return &Connection{
		ID:     id,
		Conn:   c,
		Reader: wire.NewFrameReader(c, cfg.RecvBufferSize, cfg.RecvBufferSizeLimit),
	}
}

// WrapConnection builds a Connection around an already-established net.Conn,
// for callers (and tests) that manage dialing/accepting themselves rather
// than going through Server or OutboundClient.
func WrapConnection(id uint64, c net.Conn, cfg Config) *Connection {
	return newConnection(id, c, cfg)
}

// SetSchema records the table column schema learned from this connection's
// app metadata, so later frames carrying TableData can be decoded.
func (c *Connection) SetSchema(s proto.TableSchema) {
	c.schemaM.Lock()
	c.schema = s
	c.schemaM.Unlock()
}

// Schema returns the most recently recorded table schema, if any.
func (c *Connection) Schema() proto.TableSchema {
	c.schemaM.RLock()
	defer c.schemaM.RUnlock()
	return c.schema
}

// Send writes a Message as a complete framed payload. Safe for concurrent
// use: writes are serialized so frames are never interleaved.
func (c *Connection) Send(m proto.Message) error {
	frame, err := proto.BuildFrame(m)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.Conn.Write(frame)
	return err
}

// Close closes the underlying socket. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.Conn.Close()
}

// RemoteIP returns the connection's remote address host, or "" if unavailable.
func (c *Connection) RemoteIP() string {
	host, _, err := net.SplitHostPort(c.Conn.RemoteAddr().String())
	if err != nil {
		return c.Conn.RemoteAddr().String()
	}
	return host
}
