package runexec

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/VishalBhosale5/benchexec/cgroups"
	"github.com/VishalBhosale5/benchexec/common/stats"
	osexecer "github.com/VishalBhosale5/benchexec/runexec/execer/os"
)

// CPUPollInterval is how often the watcher samples cpu and memory usage.
// Shorter polls tighten limit overshoot at the cost of overhead.
var CPUPollInterval = 100 * time.Millisecond

// usageSource reports a run's cumulative cpu time and current memory.
type usageSource interface {
	Sample() (cpu time.Duration, mem uint64, err error)
}

// oomChecker reports whether the limiter killed a run member for memory.
type oomChecker func() bool

// limitWatcher arms one run's alarms: a one-shot wall timer plus a
// polling loop for the soft and hard cpu thresholds and the limiter's
// oom flag. Thresholds fire once; every fire goes through the run state
// so exactly one cause owns the termination reason.
type limitWatcher struct {
	state  *runState
	req    RunRequest
	source usageSource
	oom    oomChecker
	stat   stats.StatsReceiver

	doneCh chan struct{}
	wall   *time.Timer

	mu      sync.Mutex
	peakMem uint64
}

func newLimitWatcher(state *runState, req RunRequest, source usageSource,
	oom oomChecker, stat stats.StatsReceiver) *limitWatcher {
	w := &limitWatcher{
		state:  state,
		req:    req,
		source: source,
		oom:    oom,
		stat:   stat,
		doneCh: make(chan struct{}),
	}
	if req.WallTimeLimit > 0 {
		w.wall = time.AfterFunc(req.WallTimeLimit, w.fireWall)
	}
	if req.SoftTimeLimit > 0 || req.HardTimeLimit > 0 || oom != nil {
		go w.poll()
	}
	return w
}

// stop cancels the watchers, called as soon as the process is observed
// to have exited.
func (w *limitWatcher) stop() {
	if w.wall != nil {
		w.wall.Stop()
	}
	close(w.doneCh)
}

// peakMemory is the highest memory the poller observed, the best effort
// metric for degraded runs without a limiter context.
func (w *limitWatcher) peakMemory() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.peakMem
}

func (w *limitWatcher) fireWall() {
	p, won := w.state.claim(ReasonWallTime)
	if won {
		w.stat.Counter(stats.RunWallTimeLimitCounter).Inc(1)
		log.WithFields(log.Fields{
			"limit": w.req.WallTimeLimit,
		}).Info("Wall time limit reached, killing process")
	}
	if p != nil {
		p.Kill()
	}
}

func (w *limitWatcher) poll() {
	softPending := w.req.SoftTimeLimit > 0
	hardPending := w.req.HardTimeLimit > 0
	warnLimiter := rate.NewLimiter(rate.Every(10*time.Second), 1)
	ticker := time.NewTicker(CPUPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.doneCh:
			return
		case <-ticker.C:
		}
		if w.oom != nil && w.oom() {
			p, won := w.state.claim(ReasonMemory)
			if won {
				w.stat.Counter(stats.RunMemoryLimitCounter).Inc(1)
				log.WithFields(log.Fields{
					"limit": w.req.MemLimit,
				}).Info("Memory limit reached, killing process")
			}
			if p != nil {
				p.Kill()
			}
			return
		}
		if !softPending && !hardPending {
			continue
		}
		cpu, mem, err := w.source.Sample()
		if err != nil {
			if warnLimiter.Allow() {
				log.WithFields(log.Fields{
					"err": err,
				}).Warn("Could not sample cpu usage")
			}
			continue
		}
		w.mu.Lock()
		if mem > w.peakMem {
			w.peakMem = mem
		}
		w.mu.Unlock()
		if hardPending && cpu >= w.req.HardTimeLimit {
			// The hard threshold kills even when a prior cause owns the
			// reason, so overshoot stays bounded by the poll interval.
			hardPending, softPending = false, false
			p, won := w.state.claim(ReasonCPUTime)
			if won {
				w.stat.Counter(stats.RunCPUTimeLimitCounter).Inc(1)
				log.WithFields(log.Fields{
					"cputime": cpu,
					"limit":   w.req.HardTimeLimit,
				}).Info("Cpu time limit reached, killing process")
			}
			if p != nil {
				p.Kill()
			}
		} else if softPending && cpu >= w.req.SoftTimeLimit {
			softPending = false
			p, won := w.state.claim(ReasonSoftCPUTime)
			if won {
				w.stat.Counter(stats.RunSoftCPUTimeLimitCounter).Inc(1)
				log.WithFields(log.Fields{
					"cputime": cpu,
					"limit":   w.req.SoftTimeLimit,
				}).Info("Soft cpu time limit reached, interrupting process")
				if p != nil {
					p.Interrupt()
				}
			}
		}
	}
}

// cgroupSource samples out of the run's cgroup context.
type cgroupSource struct {
	cg cgroups.Cgroup
}

func (s cgroupSource) Sample() (time.Duration, uint64, error) {
	usage, err := s.cg.Usage()
	if err != nil {
		return 0, 0, err
	}
	var mem uint64
	if usage.MemoryPeak > 0 {
		mem = uint64(usage.MemoryPeak)
	}
	return usage.CPUTime, mem, nil
}

// procSource samples the process group out of procfs when no cgroup is
// available.
type procSource struct {
	pid int
	pw  osexecer.ProcessWatcher
}

func newProcSource(pid int) *procSource {
	return &procSource{pid: pid, pw: osexecer.NewProcWatcher()}
}

func (s *procSource) Sample() (time.Duration, uint64, error) {
	if err := s.pw.GetAndSetProcs(); err != nil {
		return 0, 0, err
	}
	cpu, err := s.pw.CPUTime(s.pid)
	if err != nil {
		return 0, 0, err
	}
	mem, err := s.pw.MemUsage(s.pid)
	if err != nil {
		return 0, 0, err
	}
	return cpu, uint64(mem), nil
}
