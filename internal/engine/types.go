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

// Package engine implements the correlation engine: the created-app
// registry and the five pending-request tables that line up an HTTP caller's
// request with the eventual asynchronous reply from a worker process.
package engine

import (
	"time"

	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/transport"
)

// CreatedApp is one running (or starting) worker instance, keyed by its
// listening port - the same key its error messages ("App with port: X is
// not found") and HTTP handlers address it by.
type CreatedApp struct {
	Type      string
	Port      int
	Pid       int
	CreatedAt time.Time
	State     proto.WorkerState

	// Corr is a process-lifetime correlation token minted at spawn time,
	// threaded through the spawn and exit log lines of this instance so they
	// can be grepped out of the interleaved manager log.
	Corr string

	Conn *transport.Connection
}

// requestKind names which of the five pending tables a record belongs to,
// purely for log lines and test assertions - the tables themselves stay
// distinct maps under distinct locks.
type requestKind string

const (
	kindMetadata   requestKind = "metadata"
	kindParameters requestKind = "parameters"
	kindPause      requestKind = "pause"
	kindRun        requestKind = "run"
	kindDelete     requestKind = "delete"
)
