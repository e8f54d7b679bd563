package runexec

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	osexecer "github.com/VishalBhosale5/benchexec/runexec/execer/os"
)

// Length of the separator line between the command header and the
// captured child bytes. Parsers strip lines 0 and 1 unconditionally.
const separatorLen = 80

var headerSeparator = strings.Repeat("-", separatorLen)

// outputFile is the run's output sink: line 0 is the space-joined
// command, line 1 the separator, everything after is the child's merged
// stdout+stderr, verbatim.
type outputFile struct {
	f       *os.File
	absPath string
}

func openOutputFile(path string) (*outputFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open output file %s", path)
	}
	return &outputFile{f: f, absPath: path}, nil
}

// writeHeader writes the command line and the separator line.
func (o *outputFile) writeHeader(argv []string) error {
	_, err := fmt.Fprintf(o.f, "%s\n%s\n", strings.Join(argv, " "), headerSeparator)
	return errors.Wrapf(err, "write output header %s", o.absPath)
}

// AsFile returns the path holding this run's output
func (o *outputFile) AsFile() string {
	return o.absPath
}

// Write implements io.Writer
func (o *outputFile) Write(p []byte) (n int, err error) {
	return o.f.Write(p)
}

// Close implements io.Closer
func (o *outputFile) Close() error {
	return o.f.Close()
}

// Return an underlying Writer. Why? Because some methods type assert to
// a more specific type and are more clever (e.g., if it's an *os.File, hook it up
// directly to a new process's stdout/stderr.)
// We care about this cleverness, so outputFile both is-a and has-a Writer
func (o *outputFile) WriterDelegate() io.Writer {
	return o.f
}

var _ osexecer.WriterDelegater = (*outputFile)(nil)
