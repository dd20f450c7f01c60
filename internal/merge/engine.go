// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package merge remuxes a separate audio and video byte stream into a single
// container stream with one ffmpeg process per session.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/hdmerge/internal/log"
	"github.com/ManuGH/hdmerge/internal/media"
	"github.com/ManuGH/hdmerge/internal/metrics"
	"github.com/ManuGH/hdmerge/internal/procgroup"
	"github.com/ManuGH/hdmerge/internal/telemetry"
)

// ErrCapacity is returned by Merge when the session limit is reached.
var ErrCapacity = errors.New("merge capacity exhausted")

// Config configures an Engine.
type Config struct {
	// Bin is the ffmpeg executable. Defaults to "ffmpeg".
	Bin string
	// KillTimeout is the grace period between SIGTERM and SIGKILL. Defaults to 5s.
	KillTimeout time.Duration
	// MaxSessions caps concurrent sessions. Defaults to 4.
	MaxSessions int64
	// StderrLines is how much ffmpeg stderr is kept for diagnostics. Defaults to 64.
	StderrLines int
	// Args builds the process arguments for an output container. Defaults to BuildArgs.
	Args func(media.Container) []string
}

// Engine starts merge sessions.
type Engine struct {
	bin         string
	killTimeout time.Duration
	stderrLines int
	sem         *semaphore.Weighted
	args        func(media.Container) []string
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Bin == "" {
		cfg.Bin = "ffmpeg"
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = 5 * time.Second
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 4
	}
	if cfg.StderrLines <= 0 {
		cfg.StderrLines = 64
	}
	if cfg.Args == nil {
		cfg.Args = BuildArgs
	}
	return &Engine{
		bin:         cfg.Bin,
		killTimeout: cfg.KillTimeout,
		stderrLines: cfg.StderrLines,
		sem:         semaphore.NewWeighted(cfg.MaxSessions),
		args:        cfg.Args,
	}
}

// Merge starts an ffmpeg process that reads audio on fd 3 and video on fd 4 and
// writes container output on fd 5, and returns the running Session.
//
// Merge takes ownership of both sources: they are closed when the session ends,
// or before Merge returns an error. The session lives until ctx is cancelled,
// the stream ends or fails, or Close is called; callers must always Close it.
func (e *Engine) Merge(ctx context.Context, audio, video io.ReadCloser, container media.Container) (*Session, error) {
	if !e.sem.TryAcquire(1) {
		closeQuietly(audio, video)
		return nil, ErrCapacity
	}

	s, err := e.start(ctx, audio, video, container)
	if err != nil {
		e.sem.Release(1)
		closeQuietly(audio, video)
		metrics.IncMergeStart(false)
		return nil, err
	}
	metrics.IncMergeStart(true)
	return s, nil
}

func (e *Engine) start(ctx context.Context, audio, video io.ReadCloser, container media.Container) (*Session, error) {
	if container == "" {
		return nil, fmt.Errorf("%w: no output container", media.ErrMergeProcess)
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	newPipe := func() (r, w *os.File, err error) {
		r, w, err = os.Pipe()
		if err == nil {
			files = append(files, r, w)
		}
		return r, w, err
	}

	audioR, audioW, err := newPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: audio pipe: %w", media.ErrMergeProcess, err)
	}
	videoR, videoW, err := newPipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: video pipe: %w", media.ErrMergeProcess, err)
	}
	outR, outW, err := newPipe()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: output pipe: %w", media.ErrMergeProcess, err)
	}

	id := uuid.NewString()
	ring := NewLineRing(e.stderrLines)

	cmd := exec.Command(e.bin, e.args(container)...) // #nosec G204 -- binary comes from config
	cmd.ExtraFiles = []*os.File{audioR, videoR, outW}
	cmd.Stderr = ring
	cmd.WaitDelay = e.killTimeout
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: start %s: %w", media.ErrMergeProcess, e.bin, err)
	}

	// The child holds its own copies now.
	_ = audioR.Close()
	_ = videoR.Close()
	_ = outW.Close()

	ctx = log.ContextWithSessionID(ctx, id)
	ctx, span := telemetry.Tracer("hdmerge/merge").Start(ctx, "merge.session")
	span.SetAttributes(telemetry.MergeAttributes(id, string(container), cmd.Process.Pid)...)
	sessCtx, cancel := context.WithCancelCause(ctx)

	logger := log.WithContext(sessCtx, log.WithComponent("merge")).With().
		Str(log.FieldContainer, string(container)).
		Int(log.FieldPID, cmd.Process.Pid).
		Logger()

	s := &Session{
		id:          id,
		container:   container,
		cmd:         cmd,
		audio:       audio,
		video:       video,
		audioIn:     audioW,
		videoIn:     videoW,
		out:         outR,
		ring:        ring,
		ctx:         sessCtx,
		cancel:      cancel,
		span:        span,
		killTimeout: e.killTimeout,
		waitCh:      make(chan error, 1),
		done:        make(chan struct{}),
		release:     func() { e.sem.Release(1) },
		started:     time.Now(),
		logger:      logger,
	}
	metrics.MergeActiveSessions.Inc()
	logger.Info().Str("command", cmd.String()).Msg("merge session started")

	s.wg.Add(4)
	go func() {
		defer s.wg.Done()
		s.waitCh <- cmd.Wait()
	}()
	go s.supervise()
	go s.pump(pipeAudio, audio, audioW)
	go s.pump(pipeVideo, video, videoW)

	return s, nil
}

func closeQuietly(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}
