package runexec

// TerminationReason classifies why a run ended. Empty means the process
// exited on its own.
type TerminationReason string

const (
	ReasonNone        TerminationReason = ""
	ReasonCPUTime     TerminationReason = "cputime"
	ReasonSoftCPUTime TerminationReason = "cputime-soft"
	ReasonWallTime    TerminationReason = "walltime"
	ReasonKilled      TerminationReason = "killed"
	ReasonMemory      TerminationReason = "memory"
)

// RunResult reports one finished run. ExitCode follows the signal
// convention: a process ended by signal s reports s itself, not 128+s
// and not a raw wait status.
type RunResult struct {
	ExitCode          int
	WallTime          float64 // seconds
	CPUTime           float64 // seconds
	Memory            *uint64 // peak bytes, nil when not measurable
	TerminationReason TerminationReason
}

// Values returns the documented key set and nothing else: cputime,
// walltime and exitcode always, memory and terminationreason only when
// present.
func (r RunResult) Values() map[string]interface{} {
	vals := map[string]interface{}{
		"cputime":  r.CPUTime,
		"walltime": r.WallTime,
		"exitcode": r.ExitCode,
	}
	if r.Memory != nil {
		vals["memory"] = *r.Memory
	}
	if r.TerminationReason != ReasonNone {
		vals["terminationreason"] = string(r.TerminationReason)
	}
	return vals
}
