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

// Package transport implements the concurrent, goroutine-per-connection TCP
// server and reconnecting outbound client shared by every listener in the
// gateway, along with the cipher-sniff that hands HTTP traffic off to
// net/http instead of the binary frame reader.
package transport

import "time"

// Config holds the server's live-mutable parameters: reconnect pacing,
// per-IP admission, and the frame reader's buffer growth bounds. A Server
// swaps it through UpdateConfig; no field is mapped to a Modify-able
// parameter of the manager itself.
type Config struct {
	SecondsBetweenReconnect time.Duration
	LimitConnectAttempts    int
	MaxConnectionsPerIP     int
	RecvBufferSize          int
	RecvBufferSizeLimit     int
	Backlog                 int
}

// DefaultConfig returns the manager's default runtime parameters.
func DefaultConfig() Config {
	return Config{
		SecondsBetweenReconnect: 10 * time.Second,
		LimitConnectAttempts:    0, // 0 = retry forever
		MaxConnectionsPerIP:     0, // 0 = unlimited
		RecvBufferSize:          3,
		RecvBufferSizeLimit:     1024,
		Backlog:                 128,
	}
}
