//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// detachProcess starts the background server in its own process group
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
