package cli

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/VishalBhosale5/benchexec/common/errors"
	"github.com/VishalBhosale5/benchexec/runexec"
)

// CLI wraps a RunExecutor in a command line front end. The measured
// command comes either from the positional arguments (after --) or from
// a single shell-quoted --cmdline string.
type CLI struct {
	rootCmd *cobra.Command
	ex      *runexec.RunExecutor

	output    string
	cmdline   string
	dir       string
	env       []string
	hardLimit time.Duration
	softLimit time.Duration
	wallLimit time.Duration
	memLimit  uint64
	logLevel  string
}

func New(ex *runexec.RunExecutor) *CLI {
	c := &CLI{ex: ex}
	c.rootCmd = &cobra.Command{
		Use:   "runexec [flags] -- command [args...]",
		Short: "runexec runs one command under resource limits and measures it",
		RunE:  c.run,
	}
	f := c.rootCmd.Flags()
	f.StringVar(&c.output, "output", "output.log", "file receiving the command line and its merged stdout and stderr")
	f.StringVar(&c.cmdline, "cmdline", "", "command as one shell-quoted string, instead of positional arguments")
	f.StringVar(&c.dir, "dir", "", "working directory for the command")
	f.StringArrayVar(&c.env, "env", nil, "extra environment variable as NAME=VALUE, repeatable")
	f.DurationVar(&c.hardLimit, "timelimit", 0, "hard cpu time limit, e.g. 30s (0 disables)")
	f.DurationVar(&c.softLimit, "softtimelimit", 0, "soft cpu time limit, requires --timelimit")
	f.DurationVar(&c.wallLimit, "walltimelimit", 0, "wall clock limit (defaults from --timelimit)")
	f.Uint64Var(&c.memLimit, "memlimit", 0, "memory limit in bytes (0 disables)")
	f.StringVar(&c.logLevel, "log_level", "", "Log everything at this level and above (error|info|debug)")
	return c
}

func (c *CLI) Exec() error {
	return c.rootCmd.Execute()
}

func (c *CLI) run(cmd *cobra.Command, args []string) error {
	parseAndSetLevel(c.logLevel)

	argv, err := c.resolveArgv(args)
	if err != nil {
		return errors.NewError(err, errors.InvalidRequestExitCode)
	}
	env, err := parseEnv(c.env)
	if err != nil {
		return errors.NewError(err, errors.InvalidRequestExitCode)
	}

	// Ctrl-C stops the child and still reports the measured result.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		log.Infof("Signal %s received, stopping the run", sig)
		c.ex.Stop()
	}()

	result, err := c.ex.ExecuteRun(runexec.RunRequest{
		Argv:          argv,
		OutputPath:    c.output,
		Dir:           c.dir,
		Env:           env,
		HardTimeLimit: c.hardLimit,
		SoftTimeLimit: c.softLimit,
		WallTimeLimit: c.wallLimit,
		MemLimit:      c.memLimit,
	})
	if err != nil {
		return exitCoded(err)
	}
	printResult(result)
	return nil
}

func (c *CLI) resolveArgv(args []string) ([]string, error) {
	if c.cmdline == "" {
		if len(args) == 0 {
			return nil, fmt.Errorf("no command given, pass it after the flags or via --cmdline")
		}
		return args, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("give the command either positionally or via --cmdline, not both")
	}
	argv, err := shlex.Split(c.cmdline)
	if err != nil {
		return nil, fmt.Errorf("could not parse --cmdline: %v", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("--cmdline is empty")
	}
	return argv, nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("malformed --env %q, want NAME=VALUE", pair)
		}
		env[kv[0]] = kv[1]
	}
	return env, nil
}

// Engine failures become exit-coded errors so callers can tell a broken
// request apart from a measured command that merely failed.
func exitCoded(err error) error {
	switch err.(type) {
	case *runexec.LimitError:
		return errors.NewError(err, errors.InvalidRequestExitCode)
	case *runexec.OutputError:
		return errors.NewError(err, errors.OutputFailureExitCode)
	case *runexec.SpawnError:
		return errors.NewError(err, errors.CouldNotExecExitCode)
	}
	return err
}

func printResult(result runexec.RunResult) {
	vals := result.Values()
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%v\n", k, vals[k])
	}
}

func parseAndSetLevel(logLevel string) {
	if logLevel == "" {
		return
	}
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Error(err)
		return
	}
	log.SetLevel(level)
}
