// +build !linux

package os

import (
	"syscall"

	"github.com/VishalBhosale5/benchexec/runexec/execer"
)

// Darwin reports ru_maxrss in bytes.
func maxRSSBytes(ru *syscall.Rusage) execer.Memory {
	return execer.Memory(ru.Maxrss)
}
