//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets Pdeathsig so a runtime CLI invocation does not
// outlive a test binary that is killed abruptly.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
	}
}
