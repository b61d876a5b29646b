//go:build windows

package soffice

import "os/exec"

// setProcessGroup is a no-op on Windows; exec.CommandContext's default kill
// applies to the direct child only.
func setProcessGroup(cmd *exec.Cmd) {}
