// Package runexec runs one command at a time to completion, enforcing
// independent cpu, wall clock and memory limits, capturing the command's
// merged output in a fixed on-disk format, and classifying why each run
// ended. A concurrent Stop() cancels the in-flight run at any point.
package runexec

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/VishalBhosale5/benchexec/cgroups"
	"github.com/VishalBhosale5/benchexec/common/stats"
	"github.com/VishalBhosale5/benchexec/runexec/execer"
	osexecer "github.com/VishalBhosale5/benchexec/runexec/execer/os"
)

// ErrRunInProgress is returned by ExecuteRun when the executor is already
// running a command.
var ErrRunInProgress = errors.New("a run is already in progress")

// RunExecutor executes one run at a time. ExecuteRun blocks until the
// command finished, however that happens; Stop() may be called from any
// goroutine to kill the current run and is a no-op when nothing runs.
type RunExecutor struct {
	exec       execer.Execer
	stat       stats.StatsReceiver
	cgroupRoot string

	mu      sync.Mutex
	current *runState
}

// NewRunExecutor returns an executor wired to the real os execer and the
// host cgroup hierarchy.
func NewRunExecutor() *RunExecutor {
	return NewCustomRunExecutor(osexecer.NewExecer(), stats.NilStatsReceiver(), cgroups.DefaultRoot)
}

// NewCustomRunExecutor lets callers swap the execer, the stats sink and
// the cgroup root, mostly for tests and embedding.
func NewCustomRunExecutor(exec execer.Execer, stat stats.StatsReceiver, cgroupRoot string) *RunExecutor {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &RunExecutor{exec: exec, stat: stat, cgroupRoot: cgroupRoot}
}

// ExecuteRun runs req to completion and reports how it went. Limit
// violations surface before any side effect; a second call while a run
// is active returns ErrRunInProgress.
func (r *RunExecutor) ExecuteRun(req RunRequest) (RunResult, error) {
	if err := req.normalize(); err != nil {
		return RunResult{}, err
	}

	state := &runState{}
	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return RunResult{}, ErrRunInProgress
	}
	r.current = state
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
	}()

	r.stat.Counter(stats.RunsStartedCounter).Inc(1)
	defer r.stat.Latency(stats.RunLatency_ms).Time().Stop()

	log.WithFields(log.Fields{
		"argv":     req.Argv,
		"hardcpu":  req.HardTimeLimit,
		"softcpu":  req.SoftTimeLimit,
		"wall":     req.WallTimeLimit,
		"memlimit": req.MemLimit,
	}).Info("Executing run")

	out, err := openOutputFile(req.OutputPath)
	if err != nil {
		r.stat.Counter(stats.RunFailuresCounter).Inc(1)
		return RunResult{}, &OutputError{Err: err}
	}
	if err := out.writeHeader(req.Argv); err != nil {
		out.Close()
		r.stat.Counter(stats.RunFailuresCounter).Inc(1)
		return RunResult{}, &OutputError{Err: err}
	}

	cg := r.createCgroup(req)

	process, err := r.exec.Exec(execer.Command{
		Argv:    req.Argv,
		Dir:     req.Dir,
		EnvVars: req.Env,
		Output:  out,
	})
	if err != nil {
		if cg != nil {
			cg.Release()
		}
		out.Close()
		r.stat.Counter(stats.RunFailuresCounter).Inc(1)
		return RunResult{}, &SpawnError{Err: err}
	}
	startTime := stats.Time.Now()

	if cg != nil {
		if err := cg.AddProcess(process.Pid()); err != nil {
			log.WithFields(log.Fields{
				"pid": process.Pid(),
				"err": err,
			}).Warn("Could not attach process to cgroup, degrading to timer enforcement")
			cg.Release()
			cg = nil
		}
	}

	if state.registerProcess(process) {
		// A stop raced the spawn, end the child before it gets going
		process.Kill()
	}

	var source usageSource
	var oom oomChecker
	if cg != nil {
		source = cgroupSource{cg}
		if req.MemLimit > 0 {
			oom = cg.OomKilled
		}
	} else {
		source = newProcSource(process.Pid())
	}
	watcher := newLimitWatcher(state, req, source, oom, r.stat)

	st := process.Wait()
	state.markExited()
	watcher.stop()
	wallTime := stats.Time.Since(startTime)

	cpuTime, memory := r.readUsage(cg, watcher, st)
	if cg != nil && cg.OomKilled() {
		if state.claimAfterExit(ReasonMemory) {
			r.stat.Counter(stats.RunMemoryLimitCounter).Inc(1)
		}
	}

	// Teardown in reverse-acquisition order: the child is reaped, then
	// the cgroup goes, the output file last.
	if cg != nil {
		if err := cg.Release(); err != nil {
			log.WithFields(log.Fields{
				"path": cg.Path(),
				"err":  err,
			}).Warn("Could not release run cgroup")
		}
	}
	exitStatus := st.ExitStatus()
	if err := out.Close(); err != nil {
		r.stat.Counter(stats.RunFailuresCounter).Inc(1)
		return RunResult{}, &OutputError{Err: err, ExitStatus: &exitStatus}
	}
	if st.Error != "" {
		r.stat.Counter(stats.RunFailuresCounter).Inc(1)
		return RunResult{}, &SpawnError{Err: errors.New(st.Error)}
	}

	result := RunResult{
		ExitCode:          exitStatus,
		WallTime:          wallTime.Seconds(),
		CPUTime:           cpuTime.Seconds(),
		Memory:            memory,
		TerminationReason: state.finalReason(),
	}
	r.recordResult(result)
	return result, nil
}

// Stop kills the in-flight run, classifying it as externally stopped.
// It returns without waiting for the child to die and is a harmless
// no-op when no run is active or the run already finished.
func (r *RunExecutor) Stop() {
	r.mu.Lock()
	state := r.current
	r.mu.Unlock()
	if state == nil {
		return
	}
	p, won := state.claim(ReasonKilled)
	if won {
		r.stat.Counter(stats.RunsStoppedCounter).Inc(1)
		log.Info("Stop requested, killing current run")
	}
	if p != nil {
		p.Kill()
	}
}

// createCgroup sets up the run's limiter context. Failure is degraded
// mode, never a run failure: the timers still enforce cpu and wall
// limits and metrics fall back to rusage and procfs.
func (r *RunExecutor) createCgroup(req RunRequest) cgroups.Cgroup {
	cg, err := cgroups.NewRunContext(r.cgroupRoot, r.stat.Scope("cgroups"))
	if err != nil {
		r.stat.Counter(stats.CgroupUnavailableCounter).Inc(1)
		log.WithFields(log.Fields{
			"err": err,
		}).Info("Cgroups unavailable, degrading to timer enforcement")
		return nil
	}
	if req.MemLimit > 0 {
		if err := cg.SetMemoryLimit(int64(req.MemLimit)); err != nil {
			log.WithFields(log.Fields{
				"path": cg.Path(),
				"err":  err,
			}).Warn("Could not set memory limit, continuing unenforced")
		}
	}
	return cg
}

// readUsage assembles the run's cpu and memory readings, preferring the
// cgroup's numbers over rusage and the poller's observations. Memory is
// nil only when nothing measured it.
func (r *RunExecutor) readUsage(cg cgroups.Cgroup, watcher *limitWatcher,
	st execer.ProcessStatus) (time.Duration, *uint64) {
	cpuTime := st.CPUTime
	var memory *uint64
	if cg != nil {
		if usage, err := cg.Usage(); err == nil {
			if usage.CPUTime > 0 {
				cpuTime = usage.CPUTime
			}
			if usage.MemoryPeak > 0 {
				m := uint64(usage.MemoryPeak)
				memory = &m
			}
		} else {
			log.WithFields(log.Fields{
				"path": cg.Path(),
				"err":  err,
			}).Warn("Could not read cgroup usage")
		}
	}
	if memory == nil {
		peak := watcher.peakMemory()
		if uint64(st.MaxRSS) > peak {
			peak = uint64(st.MaxRSS)
		}
		if peak > 0 {
			memory = &peak
		}
	}
	return cpuTime, memory
}

func (r *RunExecutor) recordResult(result RunResult) {
	r.stat.Counter(stats.RunsDoneCounter).Inc(1)
	r.stat.Histogram(stats.RunCPUTimeHistogram_ms).Update(int64(result.CPUTime * 1000))
	if result.Memory != nil {
		r.stat.Histogram(stats.RunMemoryPeakHistogram).Update(int64(*result.Memory))
	}
	log.WithFields(log.Fields{
		"exitcode": result.ExitCode,
		"walltime": result.WallTime,
		"cputime":  result.CPUTime,
		"reason":   result.TerminationReason,
	}).Info("Run finished")
	if log.IsLevelEnabled(log.TraceLevel) {
		log.Trace(spew.Sdump(result))
	}
}
