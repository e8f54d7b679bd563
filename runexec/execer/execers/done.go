package execers

import (
	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// Creates a new doneExecer.
func NewDoneExecer() execer.Execer {
	return &doneExecer{}
}

// doneExecer finishes something as soon as its run
type doneExecer struct{}

func (e *doneExecer) Exec(command execer.Command) (execer.Process, error) {
	return e, nil
}

var completeStatus = execer.ProcessStatus{ExitCode: 0}

func (e *doneExecer) Pid() int {
	return 0
}

func (e *doneExecer) Wait() execer.ProcessStatus {
	return completeStatus
}

func (e *doneExecer) Interrupt() {}

func (e *doneExecer) Kill() {}
