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

package launcher

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStub(t *testing.T, dir, script string) string {
	path := filepath.Join(dir, "stub-tool")
	require.NoError(t, ioutil.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestCleanExit(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	l := New(writeStub(t, dir, "exit 0\n"), nil)
	assert.NoError(t, l.Run())
	assert.False(t, l.Running())
}

func TestOutputStreamedThrough(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	l := New(writeStub(t, dir, "echo recording; echo warning >&2\n"), nil)
	var stdout, stderr bytes.Buffer
	l.Stdout = &stdout
	l.Stderr = &stderr

	require.NoError(t, l.Run())
	assert.Equal(t, "recording\n", stdout.String())
	assert.Equal(t, "warning\n", stderr.String())
}

func TestExitCodePropagated(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	tool := writeStub(t, dir, "exit 7\n")
	l := New(tool, nil)
	err = l.Run()
	require.Error(t, err)

	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T", err)
	assert.Equal(t, 7, exitErr.Code)
	assert.Equal(t, tool, exitErr.Tool)
}

func TestSignalDeathMapped(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	l := New(writeStub(t, dir, "kill -KILL $$\n"), nil)
	err = l.Run()
	require.Error(t, err)

	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	assert.Equal(t, 128+9, exitErr.Code)
}

func TestToolNotFound(t *testing.T) {
	l := New("no-such-pipeline-runner", nil)
	err := l.Run()
	require.Error(t, err)

	notFound, ok := err.(*NotFoundError)
	require.True(t, ok, "expected *NotFoundError, got %T", err)
	assert.Equal(t, "no-such-pipeline-runner", notFound.Tool)
}

// The stub traps the forwarded signal, records it and exits 0, the way
// gst-launch -e finalizes the open segment on interrupt.
const trapScript = `trap "echo interrupted > \"$1\"; exit 0" USR1 INT TERM
while true; do sleep 0.1; done
`

func TestSignalForwarding(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	marker := filepath.Join(dir, "marker")
	l := New(writeStub(t, dir, trapScript), []string{marker})
	l.Signals = []os.Signal{syscall.SIGUSR1}

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run() }()
	waitRunning(t, l)

	// Signal ourselves; the launcher should relay it to the child.
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case err := <-runErr:
		assert.NoError(t, err, "child finalized cleanly so launcher reports success")
	case <-time.After(5 * time.Second):
		t.Fatal("launcher did not return after signal")
	}

	content, err := ioutil.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "interrupted\n", string(content))
}

func TestSignalMethod(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	marker := filepath.Join(dir, "marker")
	l := New(writeStub(t, dir, trapScript), []string{marker})

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run() }()
	waitRunning(t, l)

	require.NoError(t, l.Signal(os.Interrupt))

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("launcher did not return after signal")
	}
	assert.FileExists(t, marker)
}

func TestSignalWhenIdle(t *testing.T) {
	l := New("stub-tool", nil)
	assert.Error(t, l.Signal(os.Interrupt))
}

func waitRunning(t *testing.T, l *Launcher) {
	deadline := time.Now().Add(5 * time.Second)
	for !l.Running() {
		if time.Now().After(deadline) {
			t.Fatal("child never started")
		}
		time.Sleep(time.Millisecond)
	}
	// Give the shell a moment to install its trap handler.
	time.Sleep(100 * time.Millisecond)
}
