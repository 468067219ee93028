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

package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureOutputDirCreates(t *testing.T) {
	base, err := ioutil.TempDir("", "recorder-test")
	require.NoError(t, err)
	defer os.RemoveAll(base)

	dir := filepath.Join(base, "recordings")
	require.NoError(t, ensureOutputDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureOutputDirKeepsContents(t *testing.T) {
	dir, err := ioutil.TempDir("", "recorder-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	existing := filepath.Join(dir, "gcam_000042.mp4")
	require.NoError(t, ioutil.WriteFile(existing, []byte("clip"), 0644))

	require.NoError(t, ensureOutputDir(dir))

	content, err := ioutil.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "clip", string(content))
}

func TestEnsureOutputDirOverFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "recorder-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "recordings")
	require.NoError(t, ioutil.WriteFile(path, []byte("not a dir"), 0644))

	err = ensureOutputDir(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating output directory")
}

func TestCheckDiskSpace(t *testing.T) {
	dir, err := ioutil.TempDir("", "recorder-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	enough, err := checkDiskSpace(0, dir)
	require.NoError(t, err)
	assert.True(t, enough)

	// No filesystem has this much free.
	enough, err = checkDiskSpace(1<<63-1, dir)
	require.NoError(t, err)
	assert.False(t, enough)
}
