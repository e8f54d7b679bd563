// +build linux

package cgroups

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Creates a plain directory shaped like a delegated v2 hierarchy so the
// protocol can be exercised without a real cgroup mount.
func setupFakeRoot(t *testing.T) string {
	root, err := ioutil.TempDir("", "cgroups_test")
	assert.NoError(t, err)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(root, controllersFile), []byte("cpu memory pids\n"), 0644))
	return root
}

func TestUnavailableRoot(t *testing.T) {
	empty, err := ioutil.TempDir("", "cgroups_test")
	assert.NoError(t, err)
	defer os.RemoveAll(empty)

	_, err = NewRunContext(empty, nil)
	if !IsUnavailable(err) {
		t.Fatalf("Expected unavailable error for %s, got: %v", empty, err)
	}

	_, err = NewRunContext(filepath.Join(empty, "nonexistent"), nil)
	if !IsUnavailable(err) {
		t.Fatalf("Expected unavailable error for missing root, got: %v", err)
	}
}

func TestCreateAndAttach(t *testing.T) {
	root := setupFakeRoot(t)
	defer os.RemoveAll(root)

	cg, err := NewRunContext(root, nil)
	assert.NoError(t, err)
	if !strings.HasPrefix(filepath.Base(cg.Path()), "run-") {
		t.Fatalf("Expected run- prefixed context dir, got: %s", cg.Path())
	}

	assert.NoError(t, cg.AddProcess(123))
	data, err := ioutil.ReadFile(filepath.Join(cg.Path(), procsFile))
	assert.NoError(t, err)
	assert.Equal(t, "123", string(data))

	assert.Error(t, cg.AddProcess(0))
}

func TestMemoryLimit(t *testing.T) {
	root := setupFakeRoot(t)
	defer os.RemoveAll(root)

	cg, err := NewRunContext(root, nil)
	assert.NoError(t, err)

	assert.NoError(t, cg.SetMemoryLimit(1<<20))
	data, err := ioutil.ReadFile(filepath.Join(cg.Path(), memoryMaxFile))
	assert.NoError(t, err)
	assert.Equal(t, "1048576", string(data))

	assert.Error(t, cg.SetMemoryLimit(0))
}

func TestUsageReadings(t *testing.T) {
	root := setupFakeRoot(t)
	defer os.RemoveAll(root)

	cg, err := NewRunContext(root, nil)
	assert.NoError(t, err)

	// No cpu.stat yet.
	_, err = cg.Usage()
	assert.Error(t, err)

	cpuStat := []byte("usage_usec 1400000\nuser_usec 900000\nsystem_usec 500000\n")
	assert.NoError(t, ioutil.WriteFile(filepath.Join(cg.Path(), cpuStatFile), cpuStat, 0644))
	assert.NoError(t, ioutil.WriteFile(filepath.Join(cg.Path(), memoryPeakFile), []byte("2048\n"), 0644))

	u, err := cg.Usage()
	assert.NoError(t, err)
	assert.Equal(t, 1400*time.Millisecond, u.CPUTime)
	assert.Equal(t, int64(2048), u.MemoryPeak)
}

func TestOomKilled(t *testing.T) {
	root := setupFakeRoot(t)
	defer os.RemoveAll(root)

	cg, err := NewRunContext(root, nil)
	assert.NoError(t, err)

	// Missing events file reads as no OOM.
	assert.False(t, cg.OomKilled())

	events := []byte("low 0\nhigh 0\nmax 3\noom 1\noom_kill 0\n")
	assert.NoError(t, ioutil.WriteFile(filepath.Join(cg.Path(), memoryEventsFile), events, 0644))
	assert.False(t, cg.OomKilled())

	events = []byte("low 0\nhigh 0\nmax 3\noom 1\noom_kill 2\n")
	assert.NoError(t, ioutil.WriteFile(filepath.Join(cg.Path(), memoryEventsFile), events, 0644))
	assert.True(t, cg.OomKilled())
}

func TestKillNeedsKernelSupport(t *testing.T) {
	root := setupFakeRoot(t)
	defer os.RemoveAll(root)

	cg, err := NewRunContext(root, nil)
	assert.NoError(t, err)

	// cgroup.kill only exists on kernels that support it.
	assert.Error(t, cg.Kill())

	assert.NoError(t, ioutil.WriteFile(filepath.Join(cg.Path(), killFile), []byte(""), 0644))
	assert.NoError(t, cg.Kill())
	data, err := ioutil.ReadFile(filepath.Join(cg.Path(), killFile))
	assert.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestRelease(t *testing.T) {
	root := setupFakeRoot(t)
	defer os.RemoveAll(root)

	cg, err := NewRunContext(root, nil)
	assert.NoError(t, err)
	assert.NoError(t, cg.AddProcess(123))

	assert.NoError(t, cg.Release())
	if _, err := os.Stat(cg.Path()); !os.IsNotExist(err) {
		t.Fatalf("Expected context dir to be removed, stat err: %v", err)
	}

	// Releasing an already-released context stays quiet.
	assert.NoError(t, cg.Release())
}
