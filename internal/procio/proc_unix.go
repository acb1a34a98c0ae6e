//go:build unix

package procio

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup makes the child a process-group leader so a later kill
// reaches shell-invoked helper chains too.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(pid int, proc *os.Process) {
	// Negative pid addresses the whole group. Fall back to the single
	// process if the group signal fails (the leader may already be gone).
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		_ = proc.Kill()
	}
}
