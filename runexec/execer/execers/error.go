package execers

import (
	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// ErrExecer fails every exec, standing in for commands that cannot spawn.
type ErrExecer struct {
	Err error
}

func (e *ErrExecer) Exec(command execer.Command) (execer.Process, error) {
	return nil, e.Err
}
