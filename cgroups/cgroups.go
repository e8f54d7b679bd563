// Package cgroups places run processes in a dedicated cgroup v2 context so
// the kernel enforces memory ceilings and accounts cpu time for the whole
// process tree. Hosts without a usable v2 hierarchy get ErrUnavailable and
// runs proceed with polling-based accounting only.
package cgroups

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultRoot is where the v2 hierarchy is mounted on modern hosts.
const DefaultRoot = "/sys/fs/cgroup"

// ErrUnavailable indicates the host has no writable cgroup v2 hierarchy.
// Callers should treat this as a degraded mode, not a failure.
var ErrUnavailable = errors.New("no usable cgroup v2 hierarchy")

// IsUnavailable reports whether err means cgroups can't be used on this host.
func IsUnavailable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

// Usage holds accounting readings for one run context.
type Usage struct {
	// Cpu time consumed by all processes ever placed in the context,
	// including already-reaped ones.
	CPUTime time.Duration

	// High-water resident set in bytes, zero when the kernel doesn't
	// expose memory.peak.
	MemoryPeak int64
}

// Cgroup is a per-run context under the v2 hierarchy.
type Cgroup interface {
	// Absolute directory of the context.
	Path() string

	// Places pid in the context. Processes forked afterwards are included
	// automatically.
	AddProcess(pid int) error

	// Caps resident memory at limitBytes and disables swap so the cap
	// can't be dodged.
	SetMemoryLimit(limitBytes int64) error

	// Reads current accounting.
	Usage() (Usage, error)

	// Reports whether the kernel's OOM killer fired inside the context.
	OomKilled() bool

	// Asks the kernel to SIGKILL every process in the context.
	Kill() error

	// Kills stragglers and removes the context directory, retrying while
	// the kernel still holds exiting processes.
	Release() error
}
