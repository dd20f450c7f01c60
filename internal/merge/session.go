// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/metrics"
	"github.com/ManuGH/hdmerge/internal/procgroup"
	"github.com/ManuGH/hdmerge/internal/telemetry"
)

const (
	pipeAudio = "audio_in"
	pipeVideo = "video_in"
	pipeOut   = "out"

	pumpBufferSize = 64 << 10
	stderrTail     = 8
)

// errClosed is the session error when Close ends a session that was still running.
var errClosed = errors.New("merge session closed")

// ExitError reports an abnormal ffmpeg exit. It matches media.ErrMergeProcess.
type ExitError struct {
	Code   int
	Stderr []string // last lines of ffmpeg stderr
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	if len(e.Stderr) > 0 {
		msg += ": " + e.Stderr[len(e.Stderr)-1]
	}
	return msg
}

func (e *ExitError) Unwrap() []error { return []error{media.ErrMergeProcess, e.Err} }

// Session is one running merge. It owns the process, both sources and the
// parent ends of the three pipes. Read it like a file; Close it when done.
type Session struct {
	id        string
	container media.Container
	cmd       *exec.Cmd

	audio, video     io.ReadCloser
	audioIn, videoIn *os.File // parent write ends of fd 3 and fd 4
	out              *os.File // parent read end of fd 5

	ring        *LineRing
	ctx         context.Context
	cancel      context.CancelCauseFunc
	span        trace.Span
	killTimeout time.Duration
	waitCh      chan error

	wg        sync.WaitGroup
	done      chan struct{}
	errMu     sync.Mutex
	err       error
	closeOnce sync.Once
	release   func()
	started   time.Time
	outBytes  atomic.Int64
	logger    zerolog.Logger
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// PID returns the ffmpeg process id, which is also its process group id.
func (s *Session) PID() int { return s.cmd.Process.Pid }

// Container returns the output container.
func (s *Session) Container() media.Container { return s.container }

// Read reads merged output. When ffmpeg exits abnormally or a source fails,
// Read returns that error instead of io.EOF once the output is drained.
func (s *Session) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	s.outBytes.Add(int64(n))
	if err == nil {
		return n, nil
	}

	// Output ended or the session was torn down; the exit status decides.
	<-s.done
	if serr := s.Err(); serr != nil {
		return n, serr
	}
	if errors.Is(err, os.ErrClosed) {
		return n, errClosed
	}
	return n, err
}

// Wait blocks until the process has exited and returns the session error, if any.
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

// Err returns the first recorded session error.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Stderr returns the captured tail of ffmpeg stderr.
func (s *Session) Stderr() []string { return s.ring.LastN(stderrTail) }

// Close terminates the process group if it is still running, releases every
// pipe and both sources, and waits for all session goroutines. It is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel(errClosed)
		s.wg.Wait()
		_ = s.out.Close()
		metrics.AddMergeBytes(pipeOut, s.outBytes.Load())
	})
	return nil
}

// fail records err if it is the first error and starts teardown.
func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
	s.cancel(err)
}

// supervise waits for the process to exit, or terminates it when the session
// context ends, then tears the session down.
func (s *Session) supervise() {
	defer s.wg.Done()

	var waitErr error
	exited := false
	select {
	case waitErr = <-s.waitCh:
		exited = true
	case <-s.ctx.Done():
		waitErr = procgroup.Terminate(s.cmd, s.waitCh, s.killTimeout)
	}

	switch {
	case exited && waitErr != nil:
		s.fail(s.exitError(waitErr))
	case !exited:
		s.fail(context.Cause(s.ctx))
	}

	// Cancel before closing sources so pumps do not report the close as an upstream failure.
	s.cancel(nil)
	closeQuietly(s.audioIn, s.videoIn, s.audio, s.video)

	err := s.Err()
	reason := exitReason(err)
	ev := s.logger.Info()
	if reason != "clean" && reason != "closed" {
		ev = s.logger.Warn().Strs(log.FieldStderr, s.Stderr())
	}
	ev.Err(err).
		Str("reason", reason).
		Dur(log.FieldDuration, time.Since(s.started)).
		Msg("merge session ended")

	metrics.RecordMergeExit(reason, time.Since(s.started))
	metrics.MergeActiveSessions.Dec()
	s.release()
	telemetry.EndSpan(s.span, errOrNil(err, reason))
	close(s.done)
}

func (s *Session) exitError(waitErr error) error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExitError{Code: code, Stderr: s.Stderr(), Err: waitErr}
}

// pump copies src into dst until src ends. A read error is an upstream failure;
// a write error means ffmpeg stopped reading and is left to the exit status.
func (s *Session) pump(name string, src io.Reader, dst *os.File) {
	defer s.wg.Done()

	var total int64
	defer func() { metrics.AddMergeBytes(name, total) }()

	buf := make([]byte, pumpBufferSize)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				if s.ctx.Err() == nil {
					s.logger.Debug().Err(werr).Str(log.FieldPipe, name).Msg("merge input closed by ffmpeg")
				}
				return
			}
			total += int64(n)
		}
		switch {
		case rerr == nil:
			continue
		case errors.Is(rerr, io.EOF):
			// Signal end of input to ffmpeg.
			_ = dst.Close()
			return
		case s.ctx.Err() != nil:
			return
		default:
			s.logger.Warn().Err(rerr).Str(log.FieldPipe, name).Int64(log.FieldBytes, total).Msg("source stream failed")
			s.fail(fmt.Errorf("%w: %s: %w", media.ErrUpstreamStream, strings.TrimSuffix(name, "_in"), rerr))
			return
		}
	}
}

func exitReason(err error) string {
	switch {
	case err == nil:
		return "clean"
	case errors.Is(err, errClosed):
		return "closed"
	case errors.Is(err, media.ErrUpstreamStream):
		return "upstream_error"
	case errors.Is(err, media.ErrMergeProcess):
		return "process_error"
	default:
		return "canceled"
	}
}

// errOrNil keeps consumer-initiated endings out of span error status.
func errOrNil(err error, reason string) error {
	if reason == "closed" || reason == "canceled" {
		return nil
	}
	return err
}
