package os

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// Clock tick divisor for the stat utime/stime fields, USER_HZ on every
// linux port.
const ticksPerSecond = 100

// Used for mocking resource sampling
type ProcessWatcher interface {
	GetAndSetProcs() error
	CPUTime(pid int) (time.Duration, error)
	MemUsage(pid int) (execer.Memory, error)
}

type proc struct {
	pid   int
	pgid  int
	ppid  int
	rss   int64 // bytes
	ticks int64 // cumulative cpu clock ticks, including reaped children
}

type procWatcher struct {
	procRoot        string
	allProcesses    map[int]proc
	processGroups   map[int][]proc
	parentProcesses map[int][]proc
}

func NewProcWatcher() ProcessWatcher {
	return &procWatcher{procRoot: "/proc"}
}

// Take a fresh snapshot of every process the kernel exposes, including pid,
// pgid, ppid, cpu ticks and resident memory, and set procWatcher's fields.
// Reading /proc directly keeps the engine from forking helpers while its own
// children are under measurement.
func (pw *procWatcher) GetAndSetProcs() error {
	entries, err := ioutil.ReadDir(pw.procRoot)
	if err != nil {
		return err
	}
	lines := []string{}
	for _, entry := range entries {
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		data, err := ioutil.ReadFile(filepath.Join(pw.procRoot, entry.Name(), "stat"))
		if err != nil {
			// The process went away mid-walk.
			continue
		}
		lines = append(lines, strings.TrimSpace(string(data)))
	}
	ap, pg, pp, err := parseProcs(lines)
	if err != nil {
		return err
	}
	pw.allProcesses = ap
	pw.processGroups = pg
	pw.parentProcesses = pp
	return nil
}

// Sums cpu time for a given process, including usage by related processes
func (pw *procWatcher) CPUTime(pid int) (time.Duration, error) {
	related, err := pw.relatedProcs(pid)
	if err != nil {
		return 0, err
	}
	var ticks int64
	for _, p := range related {
		ticks += p.ticks
	}
	return time.Duration(ticks) * (time.Second / ticksPerSecond), nil
}

// Sums memory usage for a given process, including usage by related processes
func (pw *procWatcher) MemUsage(pid int) (execer.Memory, error) {
	related, err := pw.relatedProcs(pid)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range related {
		total += p.rss
	}
	return execer.Memory(total), nil
}

// Collects pid's process group plus every descendant of its members.
// We have relatedProcesses & relatedProcessesMap b/c iterating over the range
// of a map while modifying it in place introduces non-deterministic flaky
// behavior wrt usage summation. We add related procs to the relatedProcesses
// slice iff they aren't present in relatedProcessesMap
func (pw *procWatcher) relatedProcs(pid int) (map[int]proc, error) {
	if _, ok := pw.allProcesses[pid]; !ok {
		return nil, fmt.Errorf("%d was not present in list of all processes", pid)
	}
	procGroupID := pw.allProcesses[pid].pgid
	relatedProcesses := []proc{}
	relatedProcessesMap := make(map[int]proc)
	// Seed relatedProcesses with all procs from pid's process group
	for idx := 0; idx < len(pw.processGroups[procGroupID]); idx++ {
		p := pw.processGroups[procGroupID][idx]
		relatedProcesses = append(relatedProcesses, pw.allProcesses[p.pid])
		relatedProcessesMap[p.pid] = p
	}

	// Add all child procs of processes in pid's process group (and their child procs as well)
	for i := 0; i < len(relatedProcesses); i++ {
		rp := relatedProcesses[i]
		for j := 0; j < len(pw.parentProcesses[rp.pid]); j++ {
			p := pw.parentProcesses[rp.pid][j]
			// Make sure it isn't already present in map
			if _, ok := relatedProcessesMap[p.pid]; !ok {
				relatedProcesses = append(relatedProcesses, pw.allProcesses[p.pid])
				relatedProcessesMap[p.pid] = p
			}
		}
	}
	return relatedProcessesMap, nil
}

// Format stat lines into pgid and ppid groups for summation of usage
func parseProcs(lines []string) (allProcesses map[int]proc, processGroups map[int][]proc,
	parentProcesses map[int][]proc, err error) {
	allProcesses = make(map[int]proc)
	processGroups = make(map[int][]proc)
	parentProcesses = make(map[int][]proc)
	for _, line := range lines {
		p, err := parseStat(line)
		if err != nil {
			return nil, nil, nil, err
		}
		allProcesses[p.pid] = p
		processGroups[p.pgid] = append(processGroups[p.pgid], p)
		parentProcesses[p.ppid] = append(parentProcesses[p.ppid], p)
	}
	return allProcesses, processGroups, parentProcesses, nil
}

// Parse one /proc/<pid>/stat line. The comm field is delimited by parens and
// may itself contain spaces and parens, so the remaining fields are counted
// from the last closing paren.
func parseStat(line string) (proc, error) {
	p := proc{}
	open := strings.IndexByte(line, '(')
	closing := strings.LastIndexByte(line, ')')
	if open < 0 || closing < 0 || closing < open {
		return p, fmt.Errorf("Malformed stat line: %q", line)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(line[:open]))
	if err != nil {
		return p, fmt.Errorf("Malformed pid in stat line: %q", line)
	}
	// After comm: state ppid pgrp session tty tpgid flags minflt cminflt
	// majflt cmajflt utime stime cutime cstime priority nice threads
	// itrealvalue starttime vsize rss ...
	rest := strings.Fields(line[closing+1:])
	if len(rest) < 22 {
		return p, fmt.Errorf("Expected at least 22 stat fields after comm, got %d: %q", len(rest), line)
	}
	p.pid = pid
	if p.ppid, err = strconv.Atoi(rest[1]); err != nil {
		return p, err
	}
	if p.pgid, err = strconv.Atoi(rest[2]); err != nil {
		return p, err
	}
	var ticks int64
	for _, i := range []int{11, 12, 13, 14} {
		t, err := strconv.ParseInt(rest[i], 10, 64)
		if err != nil {
			return p, err
		}
		ticks += t
	}
	p.ticks = ticks
	pages, err := strconv.ParseInt(rest[21], 10, 64)
	if err != nil {
		return p, err
	}
	p.rss = pages * int64(os.Getpagesize())
	return p, nil
}
