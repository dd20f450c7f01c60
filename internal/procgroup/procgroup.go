// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts child processes in their own process group and tears
// the whole group down, so helpers spawned by ffmpeg or yt-dlp never outlive
// the request that started them.
package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/hdmerge/internal/metrics"
)

// Terminate stops a process group: SIGTERM, then SIGKILL if the process has not
// exited within grace. waitCh must deliver the result of cmd.Wait exactly once;
// Terminate consumes it and returns that result. Safe to call on nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	signalGroup(cmd, syscall.SIGTERM)

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		metrics.IncProcWait(waitOutcome(err, false))
		return err
	case <-timer.C:
	}

	signalGroup(cmd, syscall.SIGKILL)

	// SIGKILL cannot be ignored, so the wait result is always delivered.
	err := <-waitCh
	metrics.IncProcWait(waitOutcome(err, true))
	return err
}

func waitOutcome(err error, forced bool) string {
	switch {
	case forced && err == nil:
		return "forced_exit0"
	case forced:
		return "forced_error"
	case err == nil:
		return "exit0"
	default:
		return "exit_nonzero"
	}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}
	if err := Kill(cmd, sig); err != nil {
		metrics.IncProcTerminate(name, "error")
		return
	}
	metrics.IncProcTerminate(name, "sent")
}
