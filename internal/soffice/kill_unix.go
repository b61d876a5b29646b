//go:build unix

package soffice

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes the child a process group leader so that a timeout
// kills the whole tree. The libreoffice entry point is a launcher that spawns
// soffice.bin; killing the launcher alone leaves the real process running and
// still writing into the destination tree.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
