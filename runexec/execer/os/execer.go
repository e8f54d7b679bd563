package os

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// DefaultGracePeriod bounds how long a SIGTERMed process gets before the
// escalation to SIGKILL.
const DefaultGracePeriod = 3 * time.Second

type WriterDelegater interface {
	// Return an underlying Writer. Why? Because some methods type assert to
	// a more specific type and are more clever (e.g., if it's an *os.File, hook it up
	// directly to a new process's stdout/stderr.)
	// We care about this cleverness, so an output sink both is-a and has-a Writer
	// Cf. runexec/output.go
	WriterDelegate() io.Writer
}

// Implements runexec/execer.Execer
type osExecer struct {
	grace time.Duration
}

func NewExecer() *osExecer {
	return &osExecer{grace: DefaultGracePeriod}
}

// NewExecerWithGrace overrides the SIGTERM escalation window.
func NewExecerWithGrace(grace time.Duration) *osExecer {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &osExecer{grace: grace}
}

// Start a command in its own process group and return an &osProcess wrapper
// for it. Stdin is left unset so the child reads from /dev/null, never from
// the engine's own stdin.
func (e *osExecer) Exec(command execer.Command) (execer.Process, error) {
	if len(command.Argv) == 0 {
		return nil, fmt.Errorf("No command specified.")
	}

	cmd := exec.Command(command.Argv[0], command.Argv[1:]...)
	cmd.Dir = command.Dir

	// Use the parent environment plus whatever additional env vars are provided.
	cmd.Env = os.Environ()
	for k, v := range command.EnvVars {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Sets pgid of all child processes to cmd's pid, so kills reach the
	// whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	output := command.Output
	if output == nil {
		output = ioutil.Discard
	}
	// Make sure to get the best possible Writer, so if possible os/exec can connect
	// the command's stdout/stderr directly to a file, instead of having to go through
	// our delegation
	if ow, ok := output.(WriterDelegater); ok {
		output = ow.WriterDelegate()
	}

	wg := &sync.WaitGroup{}
	proc := &osProcess{cmd: cmd, wg: wg, grace: e.grace, doneCh: make(chan struct{})}

	if f, ok := output.(*os.File); ok {
		// Both streams share the descriptor, the kernel interleaves them.
		// Writes from the child's descendants land in the file too.
		cmd.Stdout, cmd.Stderr = f, f
		if err := cmd.Start(); err != nil {
			return nil, err
		}
	} else {
		// Use a single pipe for both streams due to possible hang in
		// process.Wait().
		// See: https://github.com/noxiouz/stout/commit/42cc533a0bece540f2424faff2a960876b21ffd2
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		cmd.Stdout, cmd.Stderr = pw, pw
		if err := cmd.Start(); err != nil {
			pr.Close()
			pw.Close()
			return nil, err
		}
		// The child holds its own copy of the write end now.
		pw.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer pr.Close()
			io.Copy(output, pr)
		}()
	}

	log.WithFields(
		log.Fields{
			"pid":  cmd.Process.Pid,
			"args": cmd.Args,
		}).Info("Started process")
	return proc, nil
}
