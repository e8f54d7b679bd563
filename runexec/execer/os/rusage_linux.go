// +build linux

package os

import (
	"syscall"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// Linux reports ru_maxrss in kilobytes.
func maxRSSBytes(ru *syscall.Rusage) execer.Memory {
	return execer.Memory(ru.Maxrss) * 1024
}
