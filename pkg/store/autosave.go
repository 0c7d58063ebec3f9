package store

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// DefaultAutosaveInterval is how often an editor saves without being asked.
const DefaultAutosaveInterval = 30 * time.Second

// Autosaver periodically saves a diagram snapshot. Empty diagrams are never
// saved, so a freshly opened chart is not overwritten before anything is
// drawn.
type Autosaver struct {
	interval time.Duration
	snapshot func() flow.Diagram
	save     func(context.Context, flow.Diagram) error
	log      *slog.Logger
}

// NewAutosaver returns an autosaver that calls save with snapshot() every
// interval. A non-positive interval uses DefaultAutosaveInterval; a nil
// logger discards.
func NewAutosaver(interval time.Duration, snapshot func() flow.Diagram, save func(context.Context, flow.Diagram) error, log *slog.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Autosaver{interval: interval, snapshot: snapshot, save: save, log: log}
}

// Interval returns the time between saves.
func (a *Autosaver) Interval() time.Duration { return a.interval }

// Run saves on every tick until ctx is done. Save errors are logged and
// the next tick tries again.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Tick(ctx); err != nil {
				a.log.Warn("autosave failed", "error", err)
			}
		}
	}
}

// Tick performs one autosave attempt and reports whether anything was
// saved.
func (a *Autosaver) Tick(ctx context.Context) (bool, error) {
	d := a.snapshot()
	if d.Empty() {
		return false, nil
	}
	if err := a.save(ctx, d); err != nil {
		return false, err
	}
	a.log.Debug("autosaved", "nodes", len(d.Nodes), "connections", len(d.Connections))
	return true, nil
}
