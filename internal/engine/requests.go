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
	"fmt"

	"github.com/nabbar/msapi-manager/internal/apperrors"
	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/transport"
)

// ensureParametersInFlight returns the sentinel record for port's live
// parameter set, joining whichever RPC is already in flight rather than
// starting a second one: every concurrent caller - HTTP or a Pause/Run ack
// riding the same sentinel - coalesces onto the one worker RPC this
// produces.
func (e *Engine) ensureParametersInFlight(port int, conn *transport.Connection) (*pendingRequest, error) {
	e.parametersRequestsLock.Lock()
	if p, ok := e.parametersRequests[port]; ok {
		e.parametersRequestsLock.Unlock()
		return p, nil
	}
	p := newPendingRequest(kindParameters, port)
	e.parametersRequests[port] = p
	p.arm(func() {
		e.parametersRequestsLock.Lock()
		if e.parametersRequests[port] == p {
			delete(e.parametersRequests, port)
		}
		e.parametersRequestsLock.Unlock()
	})
	e.parametersRequestsLock.Unlock()

	if err := conn.Send(proto.ParametersRequestMessage()); err != nil {
		e.parametersRequestsLock.Lock()
		if e.parametersRequests[port] == p {
			delete(e.parametersRequests, port)
		}
		e.parametersRequestsLock.Unlock()
		p.resolve(pendingResult{err: err})
		return nil, err
	}
	return p, nil
}

// GetParameters requests the live parameter set from the app at port and
// blocks for the worker's reply, a pause, or a 120-second timeout. Any
// number of concurrent callers for the same port coalesce onto one worker
// RPC and all receive the same reply.
func (e *Engine) GetParameters(port int) (proto.ParameterSet, error) {
	conn, err := e.lookupConn(port)
	if err != nil {
		return nil, err
	}

	p, err := e.ensureParametersInFlight(port, conn)
	if err != nil {
		return nil, err
	}

	msg, err := p.wait()
	if err != nil {
		return nil, err
	}
	return msg.Parameters, nil
}

// GetMetadata returns the installed app template's metadata JSON for
// appType, from cache if a prior delivery already populated it. Otherwise it
// requires a currently created instance of that type, requests metadata from
// it, and coalesces every concurrent caller for the same type onto that one
// RPC.
func (e *Engine) GetMetadata(appType string) (string, error) {
	if cached, ok := e.cachedMetadata(appType); ok {
		return cached, nil
	}
	if e.isPaused() {
		return "", apperrors.New(apperrors.CodeManagerPaused, "manager is paused")
	}
	if p, ok := e.joinMetadataRequest(appType); ok {
		msg, err := p.wait()
		if err != nil {
			return "", err
		}
		return msg.Metadata, nil
	}

	if !e.hasInstanceOfType(appType) {
		return "", apperrors.New(apperrors.CodeNoInstance, "no instance created")
	}
	conn := e.firstConnForType(appType)
	if conn == nil {
		return "", apperrors.New(apperrors.CodeNotConnected, fmt.Sprintf("app type %q is not connected", appType))
	}

	e.metadataRequestsLock.Lock()
	if p, ok := e.metadataRequests[appType]; ok {
		// lost the race to another caller between the check above and here
		e.metadataRequestsLock.Unlock()
		msg, err := p.wait()
		if err != nil {
			return "", err
		}
		return msg.Metadata, nil
	}
	p := newPendingRequest(kindMetadata, 0)
	e.metadataRequests[appType] = p
	p.arm(func() {
		e.metadataRequestsLock.Lock()
		if e.metadataRequests[appType] == p {
			delete(e.metadataRequests, appType)
		}
		e.metadataRequestsLock.Unlock()
	})
	e.metadataRequestsLock.Unlock()

	if err := conn.Send(proto.MetadataRequestMessage()); err != nil {
		e.metadataRequestsLock.Lock()
		if e.metadataRequests[appType] == p {
			delete(e.metadataRequests, appType)
		}
		e.metadataRequestsLock.Unlock()
		return "", err
	}

	msg, err := p.wait()
	if err != nil {
		return "", err
	}
	return msg.Metadata, nil
}

func (e *Engine) cachedMetadata(appType string) (string, bool) {
	e.metadataRequestsLock.Lock()
	defer e.metadataRequestsLock.Unlock()
	md, ok := e.metadataCache[appType]
	return md, ok && md != ""
}

func (e *Engine) joinMetadataRequest(appType string) (*pendingRequest, bool) {
	e.metadataRequestsLock.Lock()
	defer e.metadataRequestsLock.Unlock()
	p, ok := e.metadataRequests[appType]
	return p, ok
}

func (e *Engine) hasInstanceOfType(appType string) bool {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	for _, c := range e.created {
		if c.Type == appType {
			return true
		}
	}
	return false
}

func (e *Engine) firstConnForType(appType string) *transport.Connection {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	for _, c := range e.created {
		if c.Type == appType && c.Conn != nil {
			return c.Conn
		}
	}
	return nil
}

// Modify forwards an already typed parameter set as an ActionModify frame.
// It does no JSON coercion and does not consult the app's metadata; the
// caller supplies each value's type. Unlike the RPCs above this one does not
// block for a reply; an empty parameter set is rejected up front.
func (e *Engine) Modify(port int, ps proto.ParameterSet) error {
	if len(ps) == 0 {
		return apperrors.New(apperrors.CodeInvalidRequest, "no parameters to update")
	}
	conn, err := e.lookupConn(port)
	if err != nil {
		return err
	}
	return conn.Send(proto.ModifyMessage(ps))
}

// requestPauseOrRun is the shared plumbing behind PauseApp/RunApp. Pause and
// Run sentinels are mutually exclusive per port - a caller is refused while
// the opposite action is in flight on this port, and a caller of the same
// action joins the in-flight request and receives its result - so both locks
// are always taken in the same order (pauseRequestsLock, then
// runRequestsLock) regardless of which action is being requested, so
// concurrent Pause and Run callers can never deadlock against each other.
// The sentinel leaves its table once its result is known.
//
// Once admitted, the action frame is sent and the ack rides the next
// parameters frame rather than an echoed action frame: a parameters
// sentinel is joined or started on the same port, and the worker's
// self-reported ParamWorkerState from that reply resolves the ack.
func (e *Engine) requestPauseOrRun(port int, pausing bool) (bool, error) {
	conn, err := e.lookupConn(port)
	if err != nil {
		return false, err
	}

	kind, action, want := kindPause, proto.PauseMessage(), proto.WorkerStatePaused
	ownTable, oppTable := e.pauseRequests, e.runRequests
	if !pausing {
		kind, action, want = kindRun, proto.RunMessage(), proto.WorkerStateRunning
		ownTable, oppTable = e.runRequests, e.pauseRequests
	}

	e.pauseRequestsLock.Lock()
	e.runRequestsLock.Lock()
	if existing, inFlight := ownTable[port]; inFlight {
		e.runRequestsLock.Unlock()
		e.pauseRequestsLock.Unlock()
		res := existing.waitResult()
		if res.err != nil {
			return false, res.err
		}
		return res.state == want, nil
	}
	if _, inFlight := oppTable[port]; inFlight {
		e.runRequestsLock.Unlock()
		e.pauseRequestsLock.Unlock()
		return false, apperrors.New(apperrors.CodeConflictingAction, "another action is a process")
	}
	p := newPendingRequest(kind, port)
	ownTable[port] = p
	p.arm(func() {
		e.pauseRequestsLock.Lock()
		e.runRequestsLock.Lock()
		if ownTable[port] == p {
			delete(ownTable, port)
		}
		e.runRequestsLock.Unlock()
		e.pauseRequestsLock.Unlock()
	})
	e.runRequestsLock.Unlock()
	e.pauseRequestsLock.Unlock()

	if err := conn.Send(action); err != nil {
		e.pauseRequestsLock.Lock()
		e.runRequestsLock.Lock()
		if ownTable[port] == p {
			delete(ownTable, port)
		}
		e.runRequestsLock.Unlock()
		e.pauseRequestsLock.Unlock()
		p.resolve(pendingResult{err: err})
		return false, err
	}

	params, err := e.ensureParametersInFlight(port, conn)
	if err != nil {
		p.resolve(pendingResult{err: err})
	} else {
		params.observe(func(r pendingResult) {
			if r.err != nil {
				p.resolve(pendingResult{err: r.err})
				return
			}
			p.resolve(pendingResult{state: proto.WorkerStateFromParameters(r.msg.Parameters)})
		})
	}

	res := p.waitResult()
	e.pauseRequestsLock.Lock()
	e.runRequestsLock.Lock()
	if ownTable[port] == p {
		delete(ownTable, port)
	}
	e.runRequestsLock.Unlock()
	e.pauseRequestsLock.Unlock()
	if res.err != nil {
		return false, res.err
	}
	return res.state == want, nil
}

// PauseApp requests the app at port pause, blocking for the worker's next
// parameters frame to learn whether it actually reached the paused state.
func (e *Engine) PauseApp(port int) (bool, error) {
	return e.requestPauseOrRun(port, true)
}

// RunApp requests the app at port resume running, blocking for the worker's
// next parameters frame to learn whether it actually reached the running
// state.
func (e *Engine) RunApp(port int) (bool, error) {
	return e.requestPauseOrRun(port, false)
}

// DeleteApp requests the app at port stop and be torn down, blocking for its
// acknowledgement (or the process's own exit, which resolves the same
// table). Concurrent callers for the same port coalesce onto one request.
func (e *Engine) DeleteApp(port int) error {
	conn, err := e.lookupConn(port)
	if err != nil {
		return err
	}

	e.deleteRequestsLock.Lock()
	if p, ok := e.deleteRequests[port]; ok {
		e.deleteRequestsLock.Unlock()
		_, err := p.wait()
		return err
	}
	p := newPendingRequest(kindDelete, port)
	e.deleteRequests[port] = p
	p.arm(func() {
		e.deleteRequestsLock.Lock()
		if e.deleteRequests[port] == p {
			delete(e.deleteRequests, port)
		}
		e.deleteRequestsLock.Unlock()
	})
	e.deleteRequestsLock.Unlock()

	if err := conn.Send(proto.DeleteMessage()); err != nil {
		e.deleteRequestsLock.Lock()
		if e.deleteRequests[port] == p {
			delete(e.deleteRequests, port)
		}
		e.deleteRequestsLock.Unlock()
		return err
	}

	_, err = p.wait()
	return err
}

// HandleWorkerMessage processes a decoded frame received from a worker
// connection: Hello is ignored, since the connection is already bound to its
// created app when it is established (see BindConnection); Parameters
// replies resolve whichever pending parameters record (if any) is waiting
// on that port - which also drives any Pause/Run ack observing it; Metadata
// replies populate the installed template's cache, parse its table-column
// schema, and drain every coalesced caller for that app type; Delete is
// acknowledged directly.
func (e *Engine) HandleWorkerMessage(port int, m proto.Message) {
	switch {
	case m.Type == proto.MsgAction && m.Action == proto.ActionHello:
		return

	case m.Type == proto.MsgParameters:
		e.parametersRequestsLock.Lock()
		p, ok := e.parametersRequests[port]
		if ok {
			delete(e.parametersRequests, port)
		}
		e.parametersRequestsLock.Unlock()
		if ok {
			p.resolve(pendingResult{msg: m})
		}

	case m.Type == proto.MsgMetadata:
		e.handleMetadataDelivery(port, m)

	case m.Type == proto.MsgAction && m.Action == proto.ActionDelete:
		e.deleteRequestsLock.Lock()
		p, ok := e.deleteRequests[port]
		if ok {
			delete(e.deleteRequests, port)
		}
		e.deleteRequestsLock.Unlock()
		if ok {
			p.resolve(pendingResult{msg: m})
		}

	default:
		if e.log != nil {
			e.log.Debug("unhandled worker message", "port", port, "type", fmt.Sprint(m.Type))
		}
	}
}

// handleMetadataDelivery caches appType's metadata, parses its table-column
// schema and installs it on every live connection of that type, then drains
// every coalesced metadataRequests[appType] caller with the same reply.
func (e *Engine) handleMetadataDelivery(port int, m proto.Message) {
	e.createdAppToPortLock.RLock()
	c, ok := e.created[port]
	e.createdAppToPortLock.RUnlock()
	if !ok {
		return
	}
	appType := c.Type

	schema, serr := proto.ParseMetadataSchema(m.Metadata)
	if serr != nil && e.log != nil {
		e.log.Warn("malformed metadata, table schema not updated", "type", appType, "error", serr)
	}

	e.metadataRequestsLock.Lock()
	e.metadataCache[appType] = m.Metadata
	p, ok := e.metadataRequests[appType]
	if ok {
		delete(e.metadataRequests, appType)
	}
	e.metadataRequestsLock.Unlock()

	if serr == nil {
		e.createdAppToPortLock.Lock()
		e.schema[appType] = schema
		for _, other := range e.created {
			if other.Type == appType && other.Conn != nil {
				other.Conn.SetSchema(schema)
			}
		}
		e.createdAppToPortLock.Unlock()
	}

	if ok {
		p.resolve(pendingResult{msg: m})
	}
}
