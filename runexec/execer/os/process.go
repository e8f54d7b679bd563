package os

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// Implements runexec/execer.Process
type osProcess struct {
	cmd    *exec.Cmd
	wg     *sync.WaitGroup
	grace  time.Duration
	doneCh chan struct{} // closed once the process has been reaped

	mu          sync.Mutex
	interrupted bool
	killed      bool
}

func (p *osProcess) Pid() int {
	return p.cmd.Process.Pid
}

// Wait for the process to exit and reconcile its wait status.
// If the command exits on its own the exit code is reported; if a signal
// ended it, the signal is reported. Errors that prevent either land in Error.
func (p *osProcess) Wait() execer.ProcessStatus {
	// Wait for the output drain to finish, then reap the process itself.
	p.wg.Wait()
	pid := p.cmd.Process.Pid
	err := p.cmd.Wait()
	close(p.doneCh)
	log.WithFields(
		log.Fields{
			"pid": pid,
		}).Info("Finished waiting for process")

	st := execer.ProcessStatus{}
	if p.cmd.ProcessState != nil {
		if rusage, ok := p.cmd.ProcessState.SysUsage().(*syscall.Rusage); ok && rusage != nil {
			st.CPUTime = rusageCPUTime(rusage)
			st.MaxRSS = maxRSSBytes(rusage)
		}
	}

	if err == nil {
		st.ExitCode = 0
		return st
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				st.Signaled = true
				st.Signal = ws.Signal()
			} else {
				st.ExitCode = ws.ExitStatus()
			}
			return st
		}
		st.Error = "Could not find WaitStatus from exiterr.Sys()"
		return st
	}
	st.Error = err.Error()
	return st
}

// Attempt SIGTERM for a graceful exit, arranging escalation to SIGKILL if the
// process group is still around once the grace period expires.
func (p *osProcess) Interrupt() {
	p.mu.Lock()
	if p.interrupted || p.killed {
		p.mu.Unlock()
		return
	}
	p.interrupted = true
	p.mu.Unlock()

	pid := p.cmd.Process.Pid
	log.WithFields(
		log.Fields{
			"pid": pid,
		}).Info("Interrupting process group via SIGTERM")
	p.signalGroup(unix.SIGTERM)

	go func() {
		select {
		case <-p.doneCh:
			// Went down from the SIGTERM, nothing left to do.
		case <-time.After(p.grace):
			log.WithFields(
				log.Fields{
					"pid":   pid,
					"grace": p.grace,
				}).Info("Grace period expired, escalating to SIGKILL")
			p.Kill()
		}
	}()
}

// SIGKILL the process group immediately.
func (p *osProcess) Kill() {
	p.mu.Lock()
	if p.killed {
		p.mu.Unlock()
		return
	}
	p.killed = true
	p.mu.Unlock()

	log.WithFields(
		log.Fields{
			"pid": p.cmd.Process.Pid,
		}).Info("Killing process group via SIGKILL")
	p.signalGroup(unix.SIGKILL)
}

// Signals the whole group, falling back to the process alone when the group
// can't be resolved anymore.
func (p *osProcess) signalGroup(sig unix.Signal) {
	pid := p.cmd.Process.Pid
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		log.WithFields(
			log.Fields{
				"pid":   pid,
				"error": err,
			}).Debug("Error finding pgid")
		if err := p.cmd.Process.Signal(sig); err != nil {
			log.WithFields(
				log.Fields{
					"pid":    pid,
					"signal": sig,
					"error":  err,
				}).Debug("Error signaling process")
		}
		return
	}
	if err := unix.Kill(-pgid, sig); err != nil {
		log.WithFields(
			log.Fields{
				"pgid":   pgid,
				"signal": sig,
				"error":  err,
			}).Debug("Error signaling process group")
	}
}

func rusageCPUTime(ru *syscall.Rusage) time.Duration {
	sec := int64(ru.Utime.Sec) + int64(ru.Stime.Sec)
	usec := int64(ru.Utime.Usec) + int64(ru.Stime.Usec)
	return time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond
}
