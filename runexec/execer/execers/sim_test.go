package execers

import (
	"bytes"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

func TestSimExec(t *testing.T) {
	ex := NewSimExecer()
	assertRun(ex, t, complete(0), "complete 0")
	assertRun(ex, t, complete(1), "complete 1")
	assertRun(ex, t, complete(4), "sleep 1", "complete 4")
	assertRun(ex, t, complete(0), "#this is a comment", "complete 0")
	argv := []string{"pause", "complete 0"}
	p := assertStart(ex, t, argv...)
	ex.Resume()
	assertStatus(t, complete(0), p, argv...)
}

func TestOutput(t *testing.T) {
	var out bytes.Buffer
	cmd := execer.Command{
		Argv:   []string{"output foo\n", "output bar\n", "complete 0"},
		Output: &out,
	}
	ex := NewSimExecer()
	p, err := ex.Exec(cmd)
	if err != nil {
		t.Fatal("Error running cmd", err)
	}
	st := p.Wait()
	if st != complete(0) {
		t.Fatalf("got status %v; expected %v", st, complete(0))
	}
	if out.String() != "foo\nbar\n" {
		t.Fatalf("got output %q; expected %q", out.String(), "foo\nbar\n")
	}
}

func TestInterrupt(t *testing.T) {
	ex := NewSimExecer()
	p := assertStart(ex, t, "pause", "complete 0")
	p.Interrupt()
	st := p.Wait()
	if !st.Signaled || st.Signal != syscall.SIGTERM {
		t.Fatalf("expected death by sigterm, got %v", st)
	}
	if st.ExitStatus() != 15 {
		t.Fatalf("expected exit status 15, got %d", st.ExitStatus())
	}
}

func TestTrapTerm(t *testing.T) {
	ex := NewSimExecer()
	p := assertStart(ex, t, "trapterm", "pause", "complete 0")
	p.Interrupt()
	p.Kill()
	st := p.Wait()
	if !st.Signaled || st.Signal != syscall.SIGKILL {
		t.Fatalf("expected death by sigkill, got %v", st)
	}
	if st.ExitStatus() != 9 {
		t.Fatalf("expected exit status 9, got %d", st.ExitStatus())
	}
}

func TestSimulatedUsage(t *testing.T) {
	ex := NewSimExecer()
	p := assertStart(ex, t, "cpu 1500", "mem 2048", "pause", "complete 0")
	sp := p.(*simProcess)

	var cpu time.Duration
	var mem execer.Memory
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		cpu, mem = sp.Usage()
		if cpu == 1500*time.Millisecond && mem == 2048 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if cpu != 1500*time.Millisecond || mem != 2048 {
		t.Fatalf("usage not visible while running: cpu %v mem %d", cpu, mem)
	}

	ex.Resume()
	st := p.Wait()
	if st.ExitCode != 0 || st.Signaled {
		t.Fatalf("expected clean exit, got %v", st)
	}
	if st.CPUTime != 1500*time.Millisecond || st.MaxRSS != 2048 {
		t.Fatalf("final status missing usage: %v", st)
	}
}

func TestErrExecer(t *testing.T) {
	ex := &ErrExecer{Err: errors.New("nope")}
	_, err := ex.Exec(execer.Command{Argv: []string{"true"}})
	if err == nil || err.Error() != "nope" {
		t.Fatalf("expected nope error, got %v", err)
	}
}

func TestDoneExecer(t *testing.T) {
	ex := NewDoneExecer()
	p, err := ex.Exec(execer.Command{Argv: []string{"true"}})
	if err != nil {
		t.Fatal(err)
	}
	st := p.Wait()
	if st.ExitCode != 0 || st.Signaled {
		t.Fatalf("unexpected status %v", st)
	}
}

func assertRun(ex execer.Execer, t *testing.T, expected execer.ProcessStatus, argv ...string) {
	p := assertStart(ex, t, argv...)
	assertStatus(t, expected, p, argv...)
}

func assertStart(ex execer.Execer, t *testing.T, argv ...string) execer.Process {
	cmd := execer.Command{}
	cmd.Argv = argv
	p, err := ex.Exec(cmd)
	if err != nil {
		t.Fatal("Error running cmd ", err)
	}
	return p
}

func assertStatus(t *testing.T, expected execer.ProcessStatus, p execer.Process, argv ...string) {
	st := p.Wait()
	if st != expected {
		t.Fatalf("Running %v, got %v, expected %v", argv, st, expected)
	}
}

func complete(exitCode int) execer.ProcessStatus {
	return execer.ProcessStatus{ExitCode: exitCode}
}
