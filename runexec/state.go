package runexec

import (
	"sync"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// runState is the coordinator's shared view of one in-flight run. The
// limit watchers, Stop() and the waiter all funnel through it. The first
// cause to claim the termination reason owns it; later causes may still
// escalate their kill but never relabel the run, and nobody signals once
// the process is known to have exited.
type runState struct {
	mu      sync.Mutex
	process execer.Process
	reason  TerminationReason
	exited  bool
}

// claim records reason if it is the first cause attached to the run and
// returns the process handle to signal. A nil handle means the process
// already exited, or was not spawned yet, and must not be signaled. won
// reports reason ownership; a losing caller may still send its forceful
// kill since kills are idempotent.
func (s *runState) claim(reason TerminationReason) (p execer.Process, won bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return nil, false
	}
	if s.reason == ReasonNone {
		s.reason = reason
		won = true
	}
	return s.process, won
}

// claimAfterExit attaches a reason during result assembly, for the
// limiter's oom classification. No signaling happens here.
func (s *runState) claimAfterExit(reason TerminationReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != ReasonNone {
		return false
	}
	s.reason = reason
	return true
}

// registerProcess records the spawned child so concurrent claims can
// reach it. A true return means a stop already claimed the run while it
// was spawning and the caller has to kill the fresh process itself.
func (s *runState) registerProcess(p execer.Process) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.process = p
	return s.reason != ReasonNone
}

// markExited stops any later claim from signaling a reaped, possibly
// reused, pid.
func (s *runState) markExited() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = true
}

func (s *runState) finalReason() TerminationReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
