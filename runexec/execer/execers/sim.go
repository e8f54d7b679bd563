package execers

import (
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

func NewSimExecer() *SimExecer {
	return &SimExecer{resumeCh: make(chan struct{})}
}

type SimExecer struct {
	resumeCh chan struct{}
}

// Fake pids start high so they never collide with real ones in mixed tests.
var simPid int64 = 77000

// SimExecer execs by simulating running argv.
// each arg in command.argv is simulated in order.
// valid args are:
// complete <exitcode int>
//   complete with exitcode
// pause
//   pause until SimExecer.Resume() is called or the process is signaled
// sleep <millis int>
//   sleep for millis milliseconds
// output <message>
//   write <message> to the command's output
// cpu <millis int>
//   grow simulated cpu usage by millis milliseconds
// mem <bytes int>
//   raise simulated peak memory to bytes
// trapterm
//   keep running through Interrupt, only Kill ends the process
func (e *SimExecer) Exec(command execer.Command) (execer.Process, error) {
	steps, err := e.parse(command.Argv)
	if err != nil {
		return nil, err
	}
	output := command.Output
	if output == nil {
		output = ioutil.Discard
	}
	p := &simProcess{
		pid:       int(atomic.AddInt64(&simPid, 1)),
		output:    output,
		termFatal: true,
		doneCh:    make(chan struct{}),
	}
	p.done = sync.NewCond(&p.mu)
	// Applied before the process starts so a signal can't race the step
	for _, s := range steps {
		if _, ok := s.(*trapTermStep); ok {
			p.termFatal = false
		}
	}
	go p.run(steps)
	return p, nil
}

func (e *SimExecer) Resume() {
	e.resumeCh <- struct{}{}
}

// parse parses an argv into sim steps
func (e *SimExecer) parse(argv []string) (steps []simStep, err error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("No command specified.")
	}
	for _, arg := range argv {
		s, err := e.parseArg(arg)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func (e *SimExecer) parseArg(arg string) (simStep, error) {
	if strings.HasPrefix(arg, "#") {
		return &noopStep{}, nil
	}
	splits := strings.SplitN(arg, " ", 2)
	opcode, rest := splits[0], ""
	if len(splits) == 2 {
		rest = splits[1]
	}
	switch opcode {
	case "complete":
		i, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("error parsing <n> in complete <n>:%s", err.Error())
		}
		return &completeStep{i}, nil
	case "pause":
		return &pauseStep{e.resumeCh}, nil
	case "sleep":
		i, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("error parsing <n> in sleep <n>:%s", err.Error())
		}
		return &sleepStep{time.Duration(i) * time.Millisecond}, nil
	case "output":
		return &outputStep{rest}, nil
	case "cpu":
		i, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("error parsing <n> in cpu <n>:%s", err.Error())
		}
		return &cpuStep{time.Duration(i) * time.Millisecond}, nil
	case "mem":
		i, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing <n> in mem <n>:%s", err.Error())
		}
		return &memStep{execer.Memory(i)}, nil
	case "trapterm":
		return &trapTermStep{}, nil
	}
	return nil, fmt.Errorf("can't simulate arg: %v", arg)
}

type simProcess struct {
	mu       sync.Mutex
	done     *sync.Cond
	finished bool
	status   execer.ProcessStatus
	doneCh   chan struct{}

	pid       int
	termFatal bool
	cpu       time.Duration
	rss       execer.Memory
	output    io.Writer
}

func (p *simProcess) Pid() int {
	return p.pid
}

func (p *simProcess) Wait() execer.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.finished {
		p.done.Wait()
	}
	return p.status
}

// Interrupt behaves like SIGTERM to a real process: fatal unless the
// simulated command ran trapterm.
func (p *simProcess) Interrupt() {
	p.mu.Lock()
	fatal := p.termFatal
	p.mu.Unlock()
	if fatal {
		p.finish(execer.ProcessStatus{Signaled: true, Signal: syscall.SIGTERM})
	}
}

func (p *simProcess) Kill() {
	p.finish(execer.ProcessStatus{Signaled: true, Signal: syscall.SIGKILL})
}

// Usage reports the simulated resource counters, letting tests stand in
// for cgroup or procfs sampling.
func (p *simProcess) Usage() (time.Duration, execer.Memory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cpu, p.rss
}

func (p *simProcess) finish(status execer.ProcessStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	status.CPUTime = p.cpu
	status.MaxRSS = p.rss
	p.status = status
	p.finished = true
	close(p.doneCh)
	p.done.Broadcast()
}

func (p *simProcess) isFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

func (p *simProcess) run(steps []simStep) {
	for _, step := range steps {
		if p.isFinished() {
			break
		}
		step.run(p)
	}
}

type simStep interface {
	run(p *simProcess)
}

type completeStep struct {
	exitCode int
}

func (s *completeStep) run(p *simProcess) {
	p.finish(execer.ProcessStatus{ExitCode: s.exitCode})
}

type pauseStep struct {
	ch chan struct{}
}

func (s *pauseStep) run(p *simProcess) {
	// wait for the first of being signaled or SimExecer.Resume()
	select {
	case <-p.doneCh:
	case <-s.ch:
	}
}

type sleepStep struct {
	duration time.Duration
}

func (s *sleepStep) run(p *simProcess) {
	time.Sleep(s.duration)
}

type outputStep struct {
	output string
}

func (s *outputStep) run(p *simProcess) {
	p.output.Write([]byte(s.output))
}

type cpuStep struct {
	amount time.Duration
}

func (s *cpuStep) run(p *simProcess) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cpu += s.amount
}

type memStep struct {
	bytes execer.Memory
}

func (s *memStep) run(p *simProcess) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.bytes > p.rss {
		p.rss = s.bytes
	}
}

type trapTermStep struct{}

func (s *trapTermStep) run(p *simProcess) {
}

type noopStep struct{}

func (s *noopStep) run(p *simProcess) {
}
