//go:build !unix

package procio

import (
	"os"
	"os/exec"
)

// Process groups are unavailable here; Kill terminates only the immediate
// child. This is a documented limitation on non-POSIX platforms.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(pid int, proc *os.Process) {
	_ = proc.Kill()
}
