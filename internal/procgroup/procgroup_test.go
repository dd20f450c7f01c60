// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import (
	"bufio"
	"os/exec"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T, script string) (*exec.Cmd, <-chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	return cmd, waitCh
}

func groupAlive(pgid int) bool {
	return syscall.Kill(-pgid, 0) == nil
}

func TestSet_NewGroupWithDeathSignal(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
	assert.Equal(t, syscall.SIGKILL, cmd.SysProcAttr.Pdeathsig)
}

func TestTerminate_GracefulExit(t *testing.T) {
	cmd, waitCh := start(t, "trap 'exit 0' TERM; while :; do sleep 0.05; done")
	time.Sleep(100 * time.Millisecond)

	begin := time.Now()
	err := Terminate(cmd, waitCh, 5*time.Second)
	assert.NoError(t, err)
	assert.Less(t, time.Since(begin), 3*time.Second)
}

func TestTerminate_EscalatesToKill(t *testing.T) {
	cmd, waitCh := start(t, "trap '' TERM; while :; do sleep 0.05; done")
	time.Sleep(100 * time.Millisecond)

	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.True(t, status.Signaled())
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestKill_ReachesGrandchildren(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30 & sleep 30 & echo ready; wait")
	Set(cmd)
	out, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	line, err := bufio.NewReader(out).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ready\n", line)

	pgid := cmd.Process.Pid
	require.True(t, groupAlive(pgid))

	require.NoError(t, Kill(cmd, syscall.SIGKILL))
	_ = cmd.Wait()

	assert.Eventually(t, func() bool { return !groupAlive(pgid) }, 2*time.Second, 20*time.Millisecond,
		"background sleeps of group %s survived", strconv.Itoa(pgid))
}

func TestKill_ExitedProcessIsNotAnError(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Run())

	err := Kill(cmd, syscall.SIGKILL)
	assert.NoError(t, err)
}

func TestNilCommands(t *testing.T) {
	assert.NoError(t, Kill(nil, syscall.SIGKILL))
	assert.NoError(t, Terminate(nil, nil, time.Second))
	assert.NoError(t, Terminate(&exec.Cmd{}, nil, time.Second))
}

func TestWaitOutcome(t *testing.T) {
	failed := &exec.ExitError{}
	assert.Equal(t, "exit0", waitOutcome(nil, false))
	assert.Equal(t, "exit_nonzero", waitOutcome(failed, false))
	assert.Equal(t, "forced_exit0", waitOutcome(nil, true))
	assert.Equal(t, "forced_error", waitOutcome(failed, true))
}
