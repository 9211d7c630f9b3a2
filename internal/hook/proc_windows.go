//go:build windows

package hook

import "os/exec"

const defaultShell = "cmd"

func shellArgs(script string) []string {
	return []string{"/C", script}
}

func configureProcess(cmd *exec.Cmd) {}
