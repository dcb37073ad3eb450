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

package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/nabbar/msapi-manager/internal/proto"
)

// requestTimeout is how long an HTTP caller waits for a worker's async reply
// before the pending record resolves to ErrRequestTimeout.
const requestTimeout = 120 * time.Second

// ErrRequestTimeout is delivered to a waiter when no worker reply arrived
// within requestTimeout.
var ErrRequestTimeout = errors.New("engine: request timed out waiting for worker reply")

// ErrManagerPaused is delivered to every pending waiter drained by Pause,
// except delete requests which resolve with a terminal success instead: a
// delete in flight during a pause should still be treated as having
// succeeded, since the worker is about to be torn down regardless.
var ErrManagerPaused = errors.New("engine: manager is paused")

// pendingResult is what a pending record resolves to: either a decoded
// parameter set/metadata payload from the worker, the worker's self-reported
// lifecycle state (for a Pause/Run ack derived from a parameters frame), or
// an error.
type pendingResult struct {
	msg   proto.Message
	state proto.WorkerState
	err   error
}

// pendingRequest is the sentinel record backing one worker RPC: a record
// with no carrier, existing only to coalesce every concurrent caller onto
// the single answer the RPC eventually produces. Any number of goroutines
// may call wait concurrently - unlike a channel send, which only one
// receiver can ever consume, closing done lets every one of them observe
// the same stored result.
type pendingRequest struct {
	kind requestKind
	port int

	mu        sync.Mutex
	done      chan struct{}
	result    pendingResult
	resolved  bool
	observers []func(pendingResult)

	timer *time.Timer
	once  sync.Once
}

func newPendingRequest(kind requestKind, port int) *pendingRequest {
	return &pendingRequest{kind: kind, port: port, done: make(chan struct{})}
}

// arm starts the 120-second timeout clock; must be called after the record is
// registered in its table so a racing worker reply and a racing timeout both
// resolve through resolve's sync.Once safely.
func (p *pendingRequest) arm(onTimeout func()) {
	p.timer = time.AfterFunc(requestTimeout, func() {
		p.resolve(pendingResult{err: ErrRequestTimeout})
		if onTimeout != nil {
			onTimeout()
		}
	})
}

// observe registers fn to fire exactly once with this record's final result.
// If the record has already resolved, fn runs inline before observe returns.
// This is how a Pause/Run ack rides the parameters sentinel it shares a port
// with, instead of a dedicated wire reply.
func (p *pendingRequest) observe(fn func(pendingResult)) {
	p.mu.Lock()
	if p.resolved {
		r := p.result
		p.mu.Unlock()
		fn(r)
		return
	}
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

// resolve delivers result to every current and future waiter exactly once;
// later calls are no-ops, so a worker reply racing the timeout timer can't
// double-resolve.
func (p *pendingRequest) resolve(result pendingResult) {
	p.once.Do(func() {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.mu.Lock()
		p.result = result
		p.resolved = true
		observers := p.observers
		p.observers = nil
		p.mu.Unlock()

		close(p.done)
		for _, fn := range observers {
			fn(result)
		}
	})
}

// wait blocks until resolve is called. Every concurrent caller unblocks off
// the same close(done) and reads the same stored result - the coalescing
// primitive every pending table is built on.
func (p *pendingRequest) wait() (proto.Message, error) {
	r := p.waitResult()
	return r.msg, r.err
}

func (p *pendingRequest) waitResult() pendingResult {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}
