package runexec

import (
	"time"
)

// Extra wall allowance layered over a bare cpu limit, so a run that
// blocks instead of burning cpu still ends.
const wallSlack = 30 * time.Second

// RunRequest describes a single run. Zero-valued limits mean unset.
type RunRequest struct {
	Argv          []string
	OutputPath    string
	Dir           string
	Env           map[string]string
	HardTimeLimit time.Duration // cpu time, forceful kill
	SoftTimeLimit time.Duration // cpu time, graceful kill first
	WallTimeLimit time.Duration
	MemLimit      uint64 // bytes
}

// normalize validates the limit invariants and fills the derived ones: a
// wall limit implies an equal cpu cap when no cpu limit is given, and a
// cpu limit implies a wall limit with slack when no wall limit is given.
func (req *RunRequest) normalize() error {
	if len(req.Argv) == 0 {
		return NewLimitError("no command to run")
	}
	if req.OutputPath == "" {
		return NewLimitError("no output file given")
	}
	if req.SoftTimeLimit > 0 {
		if req.HardTimeLimit == 0 {
			return NewLimitError("soft time limit without hard time limit")
		}
		if req.SoftTimeLimit > req.HardTimeLimit {
			return NewLimitError("soft time limit %v above hard time limit %v",
				req.SoftTimeLimit, req.HardTimeLimit)
		}
	}
	if req.HardTimeLimit == 0 && req.WallTimeLimit > 0 {
		req.HardTimeLimit = req.WallTimeLimit
	}
	if req.HardTimeLimit > 0 && req.WallTimeLimit == 0 {
		req.WallTimeLimit = req.HardTimeLimit + wallSlack
	}
	return nil
}
