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
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nabbar/msapi-manager/internal/apperrors"
	"github.com/nabbar/msapi-manager/internal/applog"
	"github.com/nabbar/msapi-manager/internal/identity"
	"github.com/nabbar/msapi-manager/internal/manifest"
	"github.com/nabbar/msapi-manager/internal/metrics"
	"github.com/nabbar/msapi-manager/internal/proto"
	"github.com/nabbar/msapi-manager/internal/supervisor"
	"github.com/nabbar/msapi-manager/internal/transport"
)

const (
	portRangeLow       = 3000
	portRangeHigh      = 65535
	portAllocAttempts  = 50000
)

// Engine is the manager's correlation core: it owns the installed-app
// catalog, the created-app registry, the five pending-request tables, and
// the supervisor used to spawn worker processes. Every exported method here
// is what the HTTP layer (internal/httpapi) and the transport layer's
// onObject callback call into.
type Engine struct {
	log applog.Logger
	sup *supervisor.Supervisor
	met *metrics.Registry

	createdAppToPortLock sync.RWMutex
	installed            manifest.Catalog
	created              map[int]*CreatedApp

	parametersRequestsLock sync.Mutex
	parametersRequests     map[int]*pendingRequest

	deleteRequestsLock sync.Mutex
	deleteRequests     map[int]*pendingRequest

	// metadataRequests and metadataCache are keyed by app type, not port: a
	// metadata delivery answers every instance of that type at once, and the
	// installed template caches it so later callers never re-trigger an RPC.
	metadataRequestsLock sync.Mutex
	metadataRequests     map[string]*pendingRequest
	metadataCache        map[string]string

	pauseRequestsLock sync.Mutex
	pauseRequests     map[int]*pendingRequest

	runRequestsLock sync.Mutex
	runRequests     map[int]*pendingRequest

	paused bool

	schema map[string]proto.TableSchema // app type -> table column schema, learned from metadata
	rand   *rand.Rand
}

// New constructs an Engine with the given installed-apps catalog.
func New(log applog.Logger, sup *supervisor.Supervisor, met *metrics.Registry, installed manifest.Catalog) *Engine {
	return &Engine{
		log:                log,
		sup:                sup,
		met:                met,
		installed:          installed,
		created:            make(map[int]*CreatedApp),
		parametersRequests: make(map[int]*pendingRequest),
		deleteRequests:     make(map[int]*pendingRequest),
		metadataRequests:   make(map[string]*pendingRequest),
		metadataCache:      make(map[string]string),
		pauseRequests:      make(map[int]*pendingRequest),
		runRequests:        make(map[int]*pendingRequest),
		schema:             make(map[string]proto.TableSchema),
		rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// InstalledApps returns the installed-apps catalog, for getInstalledApps.
func (e *Engine) InstalledApps() manifest.Catalog {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	out := make(manifest.Catalog, len(e.installed))
	for k, v := range e.installed {
		out[k] = v
	}
	return out
}

// CreatedApps returns a snapshot of every currently tracked app instance.
func (e *Engine) CreatedApps() []CreatedApp {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	out := make([]CreatedApp, 0, len(e.created))
	for _, c := range e.created {
		out = append(out, *c)
	}
	return out
}

// ReloadManifest swaps the installed-apps catalog, returning the three-way
// diff the caller should log.
func (e *Engine) ReloadManifest(next manifest.Catalog) map[string]manifest.Diff {
	e.createdAppToPortLock.Lock()
	diffs := manifest.Reload(e.installed, next)
	e.installed = next
	e.createdAppToPortLock.Unlock()
	return diffs
}

// Pause drains every pending request across all five tables with a terminal
// response: every table but delete resolves to ErrManagerPaused, delete
// resolves to a plain success. Afterward the engine rejects new RPCs until
// Resume.
func (e *Engine) Pause() {
	e.createdAppToPortLock.Lock()
	e.paused = true
	e.createdAppToPortLock.Unlock()

	e.parametersRequestsLock.Lock()
	for port, p := range e.parametersRequests {
		p.resolve(pendingResult{err: ErrManagerPaused})
		delete(e.parametersRequests, port)
	}
	e.parametersRequestsLock.Unlock()

	e.deleteRequestsLock.Lock()
	for port, p := range e.deleteRequests {
		p.resolve(pendingResult{msg: proto.Message{Type: proto.MsgAction, Action: proto.ActionDelete}})
		delete(e.deleteRequests, port)
	}
	e.deleteRequestsLock.Unlock()

	e.metadataRequestsLock.Lock()
	for appType, p := range e.metadataRequests {
		p.resolve(pendingResult{err: ErrManagerPaused})
		delete(e.metadataRequests, appType)
	}
	e.metadataRequestsLock.Unlock()

	e.pauseRequestsLock.Lock()
	for port, p := range e.pauseRequests {
		p.resolve(pendingResult{err: ErrManagerPaused})
		delete(e.pauseRequests, port)
	}
	e.pauseRequestsLock.Unlock()

	e.runRequestsLock.Lock()
	for port, p := range e.runRequests {
		p.resolve(pendingResult{err: ErrManagerPaused})
		delete(e.runRequests, port)
	}
	e.runRequestsLock.Unlock()
}

// Resume clears the paused flag so new RPCs are accepted again. Nothing in
// this module calls it.
func (e *Engine) Resume() {
	e.createdAppToPortLock.Lock()
	e.paused = false
	e.createdAppToPortLock.Unlock()
}

func (e *Engine) isPaused() bool {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	return e.paused
}

// CreateApp spawns a new instance of the named installed app type, picking a
// free listening port by random probe (up to 50000 attempts) and launching
// it via the supervisor.
func (e *Engine) CreateApp(appType string) (*CreatedApp, error) {
	if e.isPaused() {
		return nil, apperrors.New(apperrors.CodeManagerPaused, "manager is paused")
	}

	e.createdAppToPortLock.RLock()
	app, ok := e.installed[appType]
	e.createdAppToPortLock.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnknownAppType, fmt.Sprintf("unknown app type %q", appType))
	}

	if err := e.sup.ShellUsable(); err != nil {
		return nil, err
	}

	port, err := e.allocatePort()
	if err != nil {
		return nil, err
	}

	corr := identity.Token()
	created := &CreatedApp{Type: appType, Port: port, CreatedAt: time.Now().UTC(), Corr: corr}

	e.createdAppToPortLock.Lock()
	e.created[port] = created
	e.createdAppToPortLock.Unlock()

	args := []string{fmt.Sprintf("--port=%d", port)}
	if e.log != nil {
		e.log.Info("spawning app", "corr", corr, "type", appType, "port", port)
	}
	proc, err := e.sup.Spawn(context.Background(), app.Bin, args, func(pid int, exitErr error) {
		if e.log != nil {
			e.log.Info("app exited", "corr", corr, "type", appType, "port", port, "pid", pid, "err", exitErr)
		}
		e.handleChildExit(port)
	})
	if err != nil {
		e.createdAppToPortLock.Lock()
		delete(e.created, port)
		e.createdAppToPortLock.Unlock()
		return nil, err
	}

	created.Pid = proc.Pid
	if e.met != nil {
		e.met.CreatedApps.Inc()
	}

	client := transport.NewOutboundClient(e.log, fmt.Sprintf("127.0.0.1:%d", port), transport.DefaultConfig(),
		func(c *transport.Connection, m proto.Message) {
			e.HandleWorkerMessage(port, m)
		})
	client.OnConnect(func(c *transport.Connection) { e.BindConnection(port, c) })
	go func() { _ = client.Run(context.Background()) }()

	return created, nil
}

func (e *Engine) allocatePort() (int, error) {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	for i := 0; i < portAllocAttempts; i++ {
		p := portRangeLow + e.rand.Intn(portRangeHigh-portRangeLow)
		if _, taken := e.created[p]; !taken {
			return p, nil
		}
	}
	return 0, apperrors.New(apperrors.CodePortExhausted, "no free port found after 50000 attempts")
}

// BindConnection associates the outbound connection to the worker listening
// on port with that port's created app. CreateApp calls it as soon as the
// connection is established; it does not wait for a Hello and does not read
// proto.ParamWorkerListeningPort.
func (e *Engine) BindConnection(port int, conn *transport.Connection) {
	e.createdAppToPortLock.Lock()
	defer e.createdAppToPortLock.Unlock()
	if c, ok := e.created[port]; ok {
		c.Conn = conn
	}
}

// handleChildExit fans out terminal responses to every table entry keyed by
// this port and drops the created-app entry. If this was the last created
// instance of its app type, any metadataRequests entry for that type also
// fails - metadata can no longer arrive from an app type with no instance
// left to deliver it. Locks are taken one at a time, each released before the
// next: parametersRequestsLock, deleteRequestsLock, pauseRequestsLock,
// runRequestsLock, then createdAppToPortLock and metadataRequestsLock last.
func (e *Engine) handleChildExit(port int) {
	exitErr := apperrors.New(apperrors.CodeNotConnected, fmt.Sprintf("app on port %d exited", port))

	e.parametersRequestsLock.Lock()
	if p, ok := e.parametersRequests[port]; ok {
		p.resolve(pendingResult{err: exitErr})
		delete(e.parametersRequests, port)
	}
	e.parametersRequestsLock.Unlock()

	e.deleteRequestsLock.Lock()
	if p, ok := e.deleteRequests[port]; ok {
		p.resolve(pendingResult{msg: proto.Message{Type: proto.MsgAction, Action: proto.ActionDelete}})
		delete(e.deleteRequests, port)
	}
	e.deleteRequestsLock.Unlock()

	e.pauseRequestsLock.Lock()
	if p, ok := e.pauseRequests[port]; ok {
		p.resolve(pendingResult{err: exitErr})
		delete(e.pauseRequests, port)
	}
	e.pauseRequestsLock.Unlock()

	e.runRequestsLock.Lock()
	if p, ok := e.runRequests[port]; ok {
		p.resolve(pendingResult{err: exitErr})
		delete(e.runRequests, port)
	}
	e.runRequestsLock.Unlock()

	e.createdAppToPortLock.Lock()
	c, existed := e.created[port]
	delete(e.created, port)
	lastOfType := false
	if existed {
		if e.met != nil {
			e.met.CreatedApps.Dec()
		}
		lastOfType = true
		for _, other := range e.created {
			if other.Type == c.Type {
				lastOfType = false
				break
			}
		}
	}
	e.createdAppToPortLock.Unlock()

	if lastOfType {
		e.metadataRequestsLock.Lock()
		if p, ok := e.metadataRequests[c.Type]; ok {
			p.resolve(pendingResult{err: apperrors.New(apperrors.CodeNoInstance, "app is terminated, metadata is not available")})
			delete(e.metadataRequests, c.Type)
		}
		e.metadataRequestsLock.Unlock()
	}
}

func (e *Engine) lookupConn(port int) (*transport.Connection, error) {
	e.createdAppToPortLock.RLock()
	defer e.createdAppToPortLock.RUnlock()
	if e.paused {
		return nil, apperrors.New(apperrors.CodeManagerPaused, "manager is paused")
	}
	c, ok := e.created[port]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNoInstance, fmt.Sprintf("app with port: %d is not found", port))
	}
	if c.Conn == nil {
		return nil, apperrors.New(apperrors.CodeNotConnected, fmt.Sprintf("app with port: %d is not connected", port))
	}
	return c.Conn, nil
}
