// gcam-recorder - chunked H.264 camera recording for Raspberry Pi
//  Copyright (C) 2026, The Gcam Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package launcher runs an external tool as a child process, streaming
// its output through and forwarding termination signals so the tool can
// finish cleanly before the launcher returns its exit status.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
)

// NotFoundError means the external tool is not on the system path.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in PATH", e.Tool)
}

// ExitError means the child terminated abnormally. Code is the child's
// exit status, or 128+signum when it was killed by a signal.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

var errNotRunning = errors.New("no child process running")

type Launcher struct {
	Tool   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer

	// Signals forwarded to the child. Defaults to SIGINT and SIGTERM.
	Signals []os.Signal

	mu  sync.Mutex
	cmd *exec.Cmd
}

func New(tool string, args []string) *Launcher {
	return &Launcher{
		Tool:   tool,
		Args:   args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run starts the tool and blocks until it exits. A nil return means the
// child completed with status 0, including the case where a forwarded
// interrupt caused it to finalize and exit cleanly.
func (l *Launcher) Run() error {
	return l.RunNotify(nil)
}

// RunNotify is Run with a hook invoked once the child has started.
func (l *Launcher) RunNotify(started func(pid int)) error {
	path, err := exec.LookPath(l.Tool)
	if err != nil {
		return &NotFoundError{Tool: l.Tool}
	}

	cmd := exec.Command(path, l.Args...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	// Install the relay before the child starts so nothing is lost in
	// between.
	sigs := l.Signals
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, sigs...)

	if err := cmd.Start(); err != nil {
		signal.Stop(sigCh)
		return err
	}

	l.mu.Lock()
	l.cmd = cmd
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				// Forward and keep waiting; the child owns shutdown.
				cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	if started != nil {
		started(cmd.Process.Pid)
	}

	waitErr := cmd.Wait()
	signal.Stop(sigCh)
	close(done)

	l.mu.Lock()
	l.cmd = nil
	l.mu.Unlock()

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return &ExitError{Tool: l.Tool, Code: exitCode(exitErr)}
		}
		return waitErr
	}
	return nil
}

// Running reports whether a child process is currently being waited on.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

// Signal sends sig to the running child.
func (l *Launcher) Signal(sig os.Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil {
		return errNotRunning
	}
	return l.cmd.Process.Signal(sig)
}

func exitCode(err *exec.ExitError) int {
	status, ok := err.Sys().(syscall.WaitStatus)
	if !ok {
		return 1
	}
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}
