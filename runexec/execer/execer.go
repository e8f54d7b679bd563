package execer

// Execer lets you run one Unix command. It does not know about requests or
// results, it's just a way to run a process (or fake it). It's at the level
// of os/exec, not exec-as-a-service.

import (
	"io"
	"syscall"
	"time"
)

// Memory is a byte count of resident memory.
type Memory uint64

type Command struct {
	Argv []string

	// Directory to run in, inherited from the engine when empty.
	Dir string

	// Extra environment entries on top of the engine's own environment.
	EnvVars map[string]string

	// Merged destination for the child's stdout and stderr. May implement
	// WriterDelegater so the child can be handed a file descriptor directly.
	Output io.Writer
}

type Execer interface {
	Exec(command Command) (Process, error)
}

// Process is a started command. Interrupt and Kill may be called at any time
// from any goroutine and are idempotent; Wait must be called exactly once and
// blocks until the process has actually exited, not merely been signaled.
type Process interface {
	Pid() int

	// SIGTERM to the process group, escalating to SIGKILL if the process
	// is still alive once the grace period expires.
	Interrupt()

	// SIGKILL to the process group, immediately.
	Kill()

	Wait() ProcessStatus
}

// ProcessStatus is the reconciled outcome of one process.
type ProcessStatus struct {
	// Exit code when the process exited on its own.
	ExitCode int

	// Whether a signal ended the process, and which one.
	Signaled bool
	Signal   syscall.Signal

	// Accounting from the kernel's rusage of the reaped child, which folds
	// in everything the child itself waited for.
	CPUTime time.Duration
	MaxRSS  Memory

	// Set when the outcome could not be determined.
	Error string
}

// ExitStatus folds the outcome into a single number: the numeric signal value
// for signal deaths, the plain exit code otherwise.
func (st ProcessStatus) ExitStatus() int {
	if st.Signaled {
		return int(st.Signal)
	}
	return st.ExitCode
}
