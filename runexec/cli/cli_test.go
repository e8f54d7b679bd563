package cli

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/VishalBhosale5/benchexec/common/errors"
	"github.com/VishalBhosale5/benchexec/runexec"
	osexecer "github.com/VishalBhosale5/benchexec/runexec/execer/os"
)

// Diverts os.Stdout into a buffer until the returned func is called.
func captureStdout(t *testing.T) func() string {
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal("Cannot create pipe: ", err)
	}
	os.Stdout = w
	outCh := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outCh <- buf.String()
	}()
	return func() string {
		w.Close()
		os.Stdout = old
		return <-outCh
	}
}

func testCLI(t *testing.T) (*CLI, string, func()) {
	dir, err := ioutil.TempDir("", "runexeccli")
	if err != nil {
		t.Fatal(err)
	}
	ex := runexec.NewCustomRunExecutor(osexecer.NewExecer(), nil, filepath.Join(dir, "nocgroup"))
	return New(ex), filepath.Join(dir, "output.log"), func() { os.RemoveAll(dir) }
}

func TestResolveArgv(t *testing.T) {
	c := &CLI{}
	argv, err := c.resolveArgv([]string{"sleep", "10"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"sleep", "10"}, argv)

	c = &CLI{cmdline: "sh -c 'exit 0'"}
	argv, err = c.resolveArgv(nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"sh", "-c", "exit 0"}, argv)

	c = &CLI{cmdline: "true"}
	_, err = c.resolveArgv([]string{"false"})
	assert.Error(t, err)

	c = &CLI{}
	_, err = c.resolveArgv(nil)
	assert.Error(t, err)

	c = &CLI{cmdline: "   "}
	_, err = c.resolveArgv(nil)
	assert.Error(t, err)
}

func TestParseEnv(t *testing.T) {
	env, err := parseEnv(nil)
	assert.NoError(t, err)
	assert.Nil(t, env)

	env, err = parseEnv([]string{"A=1", "B=x=y"})
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, env)

	_, err = parseEnv([]string{"NOVALUE"})
	assert.Error(t, err)

	_, err = parseEnv([]string{"=bare"})
	assert.Error(t, err)
}

func TestExitCoded(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code errors.ExitCode
	}{
		{runexec.NewLimitError("bad"), errors.InvalidRequestExitCode},
		{&runexec.OutputError{Err: io.ErrClosedPipe}, errors.OutputFailureExitCode},
		{&runexec.SpawnError{Err: io.ErrClosedPipe}, errors.CouldNotExecExitCode},
	} {
		coded, ok := exitCoded(tc.err).(*errors.ExitCodeError)
		if !ok {
			t.Fatalf("expected *errors.ExitCodeError for %v", tc.err)
		}
		assert.Equal(t, tc.code, coded.GetExitCode())
	}

	plain := io.ErrClosedPipe
	assert.Equal(t, plain, exitCoded(plain))
}

func TestRunFromArgs(t *testing.T) {
	c, out, cleanup := testCLI(t)
	defer cleanup()

	c.rootCmd.SetArgs([]string{"--output", out, "--", "/bin/echo", "CLI_TOKEN"})
	restore := captureStdout(t)
	err := c.Exec()
	stdout := restore()
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	assert.True(t, len(lines) >= 3, "stdout %q", stdout)
	assert.True(t, strings.HasPrefix(lines[0], "cputime="), "stdout %q", stdout)
	assert.Contains(t, lines, "exitcode=0")

	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "CLI_TOKEN")
}

func TestRunFromCmdline(t *testing.T) {
	c, out, cleanup := testCLI(t)
	defer cleanup()

	c.rootCmd.SetArgs([]string{"--output", out, "--cmdline", "/bin/echo CLI_TOKEN"})
	restore := captureStdout(t)
	err := c.Exec()
	restore()
	assert.NoError(t, err)

	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	assert.Equal(t, "/bin/echo CLI_TOKEN", strings.Split(string(data), "\n")[0])
}

func TestInvalidRequestExitCode(t *testing.T) {
	c, out, cleanup := testCLI(t)
	defer cleanup()

	c.rootCmd.SetArgs([]string{"--output", out, "--softtimelimit", "1s", "--", "true"})
	err := c.Exec()
	coded, ok := err.(*errors.ExitCodeError)
	if !ok {
		t.Fatalf("expected *errors.ExitCodeError, got %T: %v", err, err)
	}
	assert.Equal(t, errors.InvalidRequestExitCode, coded.GetExitCode())
}
