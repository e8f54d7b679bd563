package os

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// Builds a /proc/<pid>/stat line with the given pid, pgid, ppid, cpu ticks
// (charged to utime) and rss in pages. All other fields are filler.
func statLine(pid, pgid, ppid int, ticks, rssPages int64) string {
	return fmt.Sprintf("%d (fake) S %d %d 0 0 0 0 0 0 0 0 %d 0 0 0 20 0 1 0 0 0 %d",
		pid, ppid, pgid, ticks, rssPages)
}

func watcherFromLines(t *testing.T, lines []string) *procWatcher {
	ap, pg, pp, err := parseProcs(lines)
	assert.NoError(t, err)
	return &procWatcher{allProcesses: ap, processGroups: pg, parentProcesses: pp}
}

func TestParseStat(t *testing.T) {
	// comm may contain spaces and parens
	p, err := parseStat("1234 (tricky (name) x) S 1 1000 1000 0 -1 4194304 0 0 0 0 7 3 5 5 20 0 1 0 100 4096 25")
	assert.NoError(t, err)
	assert.Equal(t, 1234, p.pid)
	assert.Equal(t, 1, p.ppid)
	assert.Equal(t, 1000, p.pgid)
	assert.Equal(t, int64(20), p.ticks)
	assert.Equal(t, int64(25)*int64(os.Getpagesize()), p.rss)
}

func TestParseStatMalformed(t *testing.T) {
	_, err := parseStat("no parens here")
	assert.Error(t, err)
	_, err = parseStat("1234 (short) S 1 1000")
	assert.Error(t, err)
	_, err = parseStat("abc (fake) S 1 1000 1000 0 -1 0 0 0 0 0 7 3 5 5 20 0 1 0 100 4096 25")
	assert.Error(t, err)
}

func TestProcGroup(t *testing.T) {
	// Three procs in one process group
	pw := watcherFromLines(t, []string{
		statLine(10, 10, 1, 100, 1),
		statLine(11, 10, 10, 50, 2),
		statLine(12, 10, 10, 50, 4),
	})
	mem, err := pw.MemUsage(10)
	assert.NoError(t, err)
	assert.Equal(t, execer.Memory(7*int64(os.Getpagesize())), mem)
	cpu, err := pw.CPUTime(10)
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Second, cpu)
}

func TestProcGroupAndChildren(t *testing.T) {
	// A group member forked children into their own group, and those
	// children forked again. All of them belong to the original run.
	pw := watcherFromLines(t, []string{
		statLine(10, 10, 1, 100, 1),
		statLine(11, 10, 10, 0, 2),
		statLine(12, 12, 11, 0, 4),
		statLine(13, 12, 12, 300, 8),
	})
	mem, err := pw.MemUsage(10)
	assert.NoError(t, err)
	assert.Equal(t, execer.Memory(15*int64(os.Getpagesize())), mem)
	cpu, err := pw.CPUTime(10)
	assert.NoError(t, err)
	assert.Equal(t, 4*time.Second, cpu)
}

func TestUnrelatedProcs(t *testing.T) {
	// Procs outside the group and not descended from it don't count
	pw := watcherFromLines(t, []string{
		statLine(10, 10, 1, 100, 1),
		statLine(20, 20, 1, 500, 64),
		statLine(21, 20, 20, 500, 64),
	})
	mem, err := pw.MemUsage(10)
	assert.NoError(t, err)
	assert.Equal(t, execer.Memory(1*int64(os.Getpagesize())), mem)
	cpu, err := pw.CPUTime(10)
	assert.NoError(t, err)
	assert.Equal(t, 1*time.Second, cpu)
}

func TestUnknownPid(t *testing.T) {
	pw := watcherFromLines(t, []string{statLine(10, 10, 1, 0, 1)})
	_, err := pw.MemUsage(999)
	assert.Error(t, err)
	_, err = pw.CPUTime(999)
	assert.Error(t, err)
}

func TestSnapshotFromProcRoot(t *testing.T) {
	dir, err := ioutil.TempDir("", "procroot")
	assert.NoError(t, err)
	defer os.RemoveAll(dir)

	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "42"), 0755))
	line := statLine(42, 42, 1, 300, 5)
	assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, "42", "stat"), []byte(line+"\n"), 0644))
	// Non-numeric entries like "self" are skipped
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "self"), 0755))

	pw := &procWatcher{procRoot: dir}
	assert.NoError(t, pw.GetAndSetProcs())

	mem, err := pw.MemUsage(42)
	assert.NoError(t, err)
	assert.Equal(t, execer.Memory(5*int64(os.Getpagesize())), mem)
	cpu, err := pw.CPUTime(42)
	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, cpu)
}
