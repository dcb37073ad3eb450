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

// Package supervisor spawns worker app processes, detaches each into its own
// session, and reaps it. os/exec.Cmd.Wait blocks synchronously on the
// child's actual exit and is called from a single goroutine dedicated to
// that one child, so there is no reaper race and no signal handler needed.
package supervisor

import (
	"context"
	"os/exec"
	"sync"
	"syscall"

	"github.com/nabbar/msapi-manager/internal/apperrors"
)

// Process is a single spawned worker: its pid, the command handle, and the
// channel that closes when the child has exited.
type Process struct {
	Pid  int
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Wait blocks until the process has exited and returns its exit error, if any.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Done returns a channel closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Kill sends SIGKILL to the process group the child was placed in (Setsid),
// reaching any further descendants it spawned.
func (p *Process) Kill() error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}

// Supervisor spawns worker processes and tracks their liveness.
type Supervisor struct {
	shell string

	mu   sync.Mutex
	live map[int]*Process
}

// New constructs a Supervisor. shell is the interpreter used to run an app's
// bin string; pass "" to exec the bin directly without a shell.
func New(shell string) *Supervisor {
	return &Supervisor{shell: shell, live: make(map[int]*Process)}
}

// ShellUsable reports whether the configured shell interpreter can be
// resolved on PATH - checked before accepting any CreateApp request.
func (s *Supervisor) ShellUsable() error {
	if s.shell == "" {
		return nil
	}
	if _, err := exec.LookPath(s.shell); err != nil {
		return apperrors.Wrap(apperrors.CodeShellUnusable, "resolving "+s.shell, err)
	}
	return nil
}

// Spawn launches bin with args in its own session (Setsid), detached from
// the manager's controlling terminal, and starts a dedicated goroutine that
// blocks on its exit. onExit fires exactly once, off that goroutine, with
// the process's pid and exit error.
func (s *Supervisor) Spawn(ctx context.Context, bin string, args []string, onExit func(pid int, err error)) (*Process, error) {
	var cmd *exec.Cmd
	if s.shell != "" {
		full := append([]string{bin}, args...)
		cmd = exec.CommandContext(ctx, s.shell, "-c", joinShellArgs(full))
	} else {
		cmd = exec.CommandContext(ctx, bin, args...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSpawnFailed, "starting "+bin, err)
	}

	p := &Process{Pid: cmd.Process.Pid, cmd: cmd, done: make(chan struct{})}

	s.mu.Lock()
	s.live[p.Pid] = p
	s.mu.Unlock()

	go func() {
		err := cmd.Wait()
		p.err = err
		close(p.done)

		s.mu.Lock()
		delete(s.live, p.Pid)
		s.mu.Unlock()

		if onExit != nil {
			onExit(p.Pid, err)
		}
	}()

	return p, nil
}

// Live returns the pids of every process currently tracked as running.
func (s *Supervisor) Live() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.live))
	for pid := range s.live {
		out = append(out, pid)
	}
	return out
}

func joinShellArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += escapeShellArg(a)
	}
	return out
}

// escapeShellArg single-quotes a under POSIX shell rules so parameters
// containing spaces or metacharacters survive the "/bin/bash -c" round trip.
func escapeShellArg(a string) string {
	out := make([]byte, 0, len(a)+2)
	out = append(out, '\'')
	for i := 0; i < len(a); i++ {
		if a[i] == '\'' {
			out = append(out, '\'', '\\', '\'', '\'')
			continue
		}
		out = append(out, a[i])
	}
	out = append(out, '\'')
	return string(out)
}
