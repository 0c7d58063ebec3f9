// Package store keeps flowcharts on disk, one .flow file per chart.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
)

var (
	// ErrNotFound is returned for ids with no stored chart.
	ErrNotFound = errors.New("flowchart not found")
	// ErrInvalidID is returned for ids that cannot name a file.
	ErrInvalidID = errors.New("invalid flowchart id")
)

// Patch lists the fields an update changes. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Data        *flow.Diagram
}

// DefaultDir returns ~/.flowcharts, or .flowcharts when there is no home
// directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowcharts"
	}
	return filepath.Join(home, ".flowcharts")
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock sets the time source for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDSource sets where new chart ids come from.
func WithIDSource(ids flow.IDSource) Option {
	return func(s *Store) { s.ids = ids }
}

// Store is a directory of flowcharts. It is safe for concurrent use.
type Store struct {
	dir string
	mu  sync.RWMutex
	log *slog.Logger
	now func() time.Time
	ids flow.IDSource
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = flow.NewClockIDs(s.now)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a chart id is stored in.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+flowfile.Extension)
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Create stores a new chart and returns it with its id and timestamps set.
func (s *Store) Create(ctx context.Context, title, description string, data flow.Diagram) (*flow.Flowchart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	f := &flow.Flowchart{
		ID:          s.ids.NextID(),
		Title:       title,
		Description: description,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := flowfile.WriteFlowFile(s.Path(f.ID), f); err != nil {
		return nil, fmt.Errorf("write flowchart %s: %w", f.ID, err)
	}
	s.log.Info("flowchart created", "id", f.ID, "title", title)
	return f, nil
}

// Get loads the chart with id.
func (s *Store) Get(ctx context.Context, id string) (*flow.Flowchart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *Store) read(id string) (*flow.Flowchart, error) {
	f, err := flowfile.ReadFlowFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read flowchart %s: %w", id, err)
	}
	f.ID = id
	return f, nil
}

// List returns every chart, most recently updated first. Files that fail
// to parse are logged and skipped.
func (s *Store) List(ctx context.Context) ([]flow.Flowchart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}

	charts := make([]flow.Flowchart, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, flowfile.Extension) || strings.HasPrefix(name, ".") {
			continue
		}
		f, err := s.read(strings.TrimSuffix(name, flowfile.Extension))
		if err != nil {
			s.log.Warn("skipping unreadable flowchart", "file", name, "error", err)
			continue
		}
		charts = append(charts, *f)
	}

	sort.Slice(charts, func(i, j int) bool {
		if !charts[i].UpdatedAt.Equal(charts[j].UpdatedAt) {
			return charts[i].UpdatedAt.After(charts[j].UpdatedAt)
		}
		return charts[i].ID > charts[j].ID
	})
	return charts, nil
}

// Update applies p to the chart with id and bumps its updated_at.
func (s *Store) Update(ctx context.Context, id string, p Patch) (*flow.Flowchart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Data != nil {
		f.Data = *p.Data
	}
	f.UpdatedAt = s.now().UTC()
	if f.UpdatedAt.Before(f.CreatedAt) {
		f.UpdatedAt = f.CreatedAt
	}

	if err := flowfile.WriteFlowFile(s.Path(id), f); err != nil {
		return nil, fmt.Errorf("write flowchart %s: %w", id, err)
	}
	s.log.Debug("flowchart updated", "id", id, "nodes", len(f.Data.Nodes), "connections", len(f.Data.Connections))
	return f, nil
}

// Delete removes the chart with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete flowchart %s: %w", id, err)
	}
	s.log.Info("flowchart deleted", "id", id)
	return nil
}
