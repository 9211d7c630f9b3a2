//go:build !windows

package hook

import (
	"os/exec"
	"syscall"
)

const defaultShell = "sh"

func shellArgs(script string) []string {
	return []string{"-c", script}
}

// configureProcess starts the shell in its own process group so a timeout
// also kills anything the script spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
