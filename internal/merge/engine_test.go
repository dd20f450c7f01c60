// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package merge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/metrics"
	"github.com/ManuGH/hdmerge/internal/testutil"
)

// shEngine runs script under sh in place of ffmpeg; fds 3, 4 and 5 are wired as for ffmpeg.
func shEngine(t *testing.T, script string, cfg Config) *Engine {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg.Bin = "sh"
	cfg.Args = func(media.Container) []string { return []string{"-c", script} }
	return NewEngine(cfg)
}

func TestMerge_StreamsBothInputs(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := shEngine(t, "cat <&3 >&5; cat <&4 >&5", Config{})
	active := metrics.GetMergeActiveSessions()

	s, err := e.Merge(context.Background(), source("AUDIO"), source("VIDEO"), media.ContainerMP4)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, active+1, metrics.GetMergeActiveSessions())

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "AUDIOVIDEO", string(got))
	assert.NoError(t, s.Wait())
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, media.ContainerMP4, s.Container())
	require.NoError(t, s.Close())
	assert.Equal(t, active, metrics.GetMergeActiveSessions())
}

func TestMerge_LargeInputsBackpressure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	audio := bytes.Repeat([]byte("a"), 3<<20)
	video := bytes.Repeat([]byte("v"), 5<<20)
	e := shEngine(t, "cat <&3 >&5; cat <&4 >&5", Config{})

	before := metrics.CounterValue(metrics.MergeBytesTotal, pipeVideo)
	s, err := e.Merge(context.Background(),
		io.NopCloser(bytes.NewReader(audio)), io.NopCloser(bytes.NewReader(video)), media.ContainerWebM)
	require.NoError(t, err)

	n, err := io.Copy(io.Discard, s)
	require.NoError(t, err)
	assert.Equal(t, int64(len(audio)+len(video)), n)
	require.NoError(t, s.Close())
	assert.Equal(t, before+float64(len(video)), metrics.CounterValue(metrics.MergeBytesTotal, pipeVideo))
}

func TestMerge_NonZeroExitIsNotEOF(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := "cat <&3 >&5; cat <&4 >/dev/null; echo 'pipe:4: Invalid data found when processing input' >&2; exit 3"
	e := shEngine(t, script, Config{})

	s, err := e.Merge(context.Background(), source("partial"), source("garbage"), media.ContainerMP4)
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	assert.Equal(t, "partial", string(got), "partial output is delivered")
	require.Error(t, err, "a failed merge must not end with io.EOF")
	assert.ErrorIs(t, err, media.ErrMergeProcess)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Stderr, "pipe:4: Invalid data found when processing input")
	assert.Contains(t, err.Error(), "Invalid data found")

	assert.ErrorIs(t, s.Wait(), media.ErrMergeProcess)
}

func TestMerge_UpstreamErrorTearsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	audio := testutil.NewFailingReader([]byte("some audio"), errors.New("connection reset by peer"))
	video := testutil.NewBlockingReader()
	e := shEngine(t, "cat <&3 >&5; cat <&4 >&5", Config{KillTimeout: time.Second})

	s, err := e.Merge(context.Background(), audio, video, media.ContainerMP4)
	require.NoError(t, err)
	defer s.Close()

	_, err = io.ReadAll(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrUpstreamStream)
	assert.NotErrorIs(t, err, media.ErrMergeProcess)
	assert.Contains(t, err.Error(), "connection reset by peer")

	require.NoError(t, s.Close())
	assert.True(t, audio.Closed())
	assert.True(t, video.Closed())
}

func TestMerge_WriteErrorLeavesExitStatusInCharge(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// The process never reads its inputs; pumps hit a broken pipe.
	e := shEngine(t, "exec 3<&- 4<&-; echo done >&5", Config{})
	big := bytes.Repeat([]byte("x"), 1<<20)

	s, err := e.Merge(context.Background(),
		io.NopCloser(bytes.NewReader(big)), io.NopCloser(bytes.NewReader(big)), media.ContainerMatroska)
	require.NoError(t, err)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(got))
	require.NoError(t, s.Close())
}

func TestMerge_CloseMidStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	audio, video := testutil.NewBlockingReader(), testutil.NewBlockingReader()
	e := shEngine(t, "sleep 30", Config{KillTimeout: time.Second})

	s, err := e.Merge(context.Background(), audio, video, media.ContainerMP4)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.True(t, audio.Closed())
	assert.True(t, video.Closed())

	_, err = s.Read(make([]byte, 8))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, s.Wait(), errClosed)
}

func TestMerge_Capacity(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := shEngine(t, "sleep 30", Config{MaxSessions: 1, KillTimeout: time.Second})

	first, err := e.Merge(context.Background(), testutil.NewBlockingReader(), testutil.NewBlockingReader(), media.ContainerMP4)
	require.NoError(t, err)

	a, v := testutil.NewBlockingReader(), testutil.NewBlockingReader()
	_, err = e.Merge(context.Background(), a, v, media.ContainerMP4)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.True(t, a.Closed(), "rejected sources are closed")
	assert.True(t, v.Closed())

	require.NoError(t, first.Close())

	again, err := e.Merge(context.Background(), testutil.NewBlockingReader(), testutil.NewBlockingReader(), media.ContainerMP4)
	require.NoError(t, err, "slot is released when a session ends")
	require.NoError(t, again.Close())
}

func TestMerge_StartFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := NewEngine(Config{Bin: "/nonexistent/ffmpeg", MaxSessions: 1})

	for i := 0; i < 2; i++ {
		a, v := testutil.NewBlockingReader(), testutil.NewBlockingReader()
		_, err := e.Merge(context.Background(), a, v, media.ContainerMP4)
		require.Error(t, err)
		assert.ErrorIs(t, err, media.ErrMergeProcess, "attempt %d must not report capacity", i)
		assert.True(t, a.Closed())
		assert.True(t, v.Closed())
	}
}

func TestMerge_NoContainer(t *testing.T) {
	e := NewEngine(Config{})
	_, err := e.Merge(context.Background(), source(""), source(""), "")
	assert.ErrorIs(t, err, media.ErrMergeProcess)
}
