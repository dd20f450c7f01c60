// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/hdmerge/internal/log"
)

// Task is a background loop owned by the App. It must return once ctx is done.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

// App owns the server lifecycle and the background loops that live alongside it.
type App struct {
	logger  zerolog.Logger
	manager Manager
	tasks   []namedTask
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager) *App {
	return &App{logger: logger, manager: manager}
}

// Go registers a background task started by Run.
func (a *App) Go(name string, task Task) {
	a.tasks = append(a.tasks, namedTask{name: name, run: task})
}

// Run starts the server and every task, and blocks until ctx is cancelled or
// one of them fails. A failing task brings the server down with it.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, t := range a.tasks {
		g.Go(func() error {
			if err := t.run(gctx); err != nil {
				a.logger.Error().
					Err(err).
					Str(log.FieldEvent, "task.failed").
					Str("task", t.name).
					Msg("background task failed")
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	return g.Wait()
}

// Every returns a Task that calls fn at each interval tick until ctx ends.
func Every(interval time.Duration, fn func(ctx context.Context)) Task {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		fn(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				fn(ctx)
			}
		}
	}
}
