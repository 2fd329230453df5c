//go:build unix

package pipeline

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts each stage into its own group, so commands spawned by
// a shell line are terminated together with the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// kill signals the whole group of p. A group outlives its leader while any
// member runs, and its id is not reused for another process until then.
func kill(p *os.Process) error {
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// groupAlive reports whether any process is left in the group of p.
func groupAlive(p *os.Process) bool {
	err := unix.Kill(-p.Pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
