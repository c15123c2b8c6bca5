//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// detachProcess starts the background server without the parent console
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
