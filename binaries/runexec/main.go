package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/VishalBhosale5/benchexec/common/errors"
	"github.com/VishalBhosale5/benchexec/common/log/hooks"
	"github.com/VishalBhosale5/benchexec/runexec"
	"github.com/VishalBhosale5/benchexec/runexec/cli"
)

// CLI binary to run and measure one command under resource limits
//	runexec --timelimit 30s --memlimit 1000000000 -- ./solver input.txt
//	Global flags: (see "-h" for all options)
//		--output [file for the command line and its merged output]
//		--timelimit / --softtimelimit / --walltimelimit / --memlimit
//		--log_level [<error|info|debug> level and above should be logged]

func main() {
	log.AddHook(hooks.NewContextHook())
	log.SetLevel(log.InfoLevel) // default, can be flag overridden

	c := cli.New(runexec.NewRunExecutor())
	if err := c.Exec(); err != nil {
		log.Error("Error running runexec ", err)
		if coded, ok := err.(*errors.ExitCodeError); ok {
			os.Exit(int(coded.GetExitCode()))
		}
		os.Exit(1)
	}
}
