// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import "syscall"

// The child is killed by the kernel if the daemon itself dies.
func platformAttrs(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = syscall.SIGKILL
}
