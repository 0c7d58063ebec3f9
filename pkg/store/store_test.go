package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// stepClock advances one minute on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := Open(t.TempDir(),
		WithClock(clock.Now),
		WithIDSource(&flow.SequenceIDs{Prefix: "fc"}),
	)
	require.NoError(t, err)
	return s
}

func sample() flow.Diagram {
	return flow.Diagram{
		Nodes:       []flow.Node{{ID: "a", Type: flow.TypeStart, X: 1, Y: 2, Label: "Начало"}},
		Connections: []flow.Connection{},
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created, err := s.Create(ctx, "Схема", "описание", sample())
	require.NoError(t, err)
	assert.Equal(t, "fc1", created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.FileExists(t, s.Path("fc1"))

	got, err := s.Get(ctx, "fc1")
	require.NoError(t, err)
	assert.Equal(t, "Схема", got.Title)
	assert.Equal(t, "описание", got.Description)
	assert.Equal(t, sample(), got.Data)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.Get(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
		assert.ErrorIs(t, s.Delete(ctx, id), ErrInvalidID, "id %q", id)
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, title := range []string{"first", "second", "third"} {
		_, err := s.Create(ctx, title, "", flow.Diagram{})
		require.NoError(t, err)
	}
	// Touching the first chart moves it to the top.
	title := "first, edited"
	_, err := s.Update(ctx, "fc1", Patch{Title: &title})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"fc1", "fc3", "fc2"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, title, list[0].Title)
}

func TestListSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.Create(ctx, "ok", "", sample())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.flow"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.flow"), 0o755))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ok", list[0].Title)
}

func TestUpdateOnlySetFields(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	created, err := s.Create(ctx, "title", "desc", sample())
	require.NoError(t, err)

	data := flow.Diagram{Nodes: []flow.Node{}, Connections: []flow.Connection{}}
	updated, err := s.Update(ctx, created.ID, Patch{Data: &data})
	require.NoError(t, err)
	assert.Equal(t, "title", updated.Title)
	assert.Equal(t, "desc", updated.Description)
	assert.Empty(t, updated.Data.Nodes)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Data.Nodes)
}

func TestUpdateMissing(t *testing.T) {
	s := openTestStore(t)
	title := "x"
	_, err := s.Update(context.Background(), "ghost", Patch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	created, err := s.Create(ctx, "gone soon", "", sample())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	assert.NoFileExists(t, s.Path(created.ID))
	assert.ErrorIs(t, s.Delete(ctx, created.ID), ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := openTestStore(t)

	_, err := s.Create(ctx, "x", "", sample())
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	created, err := s.Create(ctx, "shared", "", sample())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := sample()
			_, err := s.Update(ctx, created.ID, Patch{Data: &d})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, sample(), got.Data)
}

func TestAutosaverSkipsEmpty(t *testing.T) {
	var saves int
	a := NewAutosaver(0, func() flow.Diagram { return flow.Diagram{} }, func(context.Context, flow.Diagram) error {
		saves++
		return nil
	}, nil)
	assert.Equal(t, DefaultAutosaveInterval, a.Interval())

	saved, err := a.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 0, saves)
}

func TestAutosaverSavesSnapshot(t *testing.T) {
	var got flow.Diagram
	a := NewAutosaver(time.Second, sample, func(_ context.Context, d flow.Diagram) error {
		got = d
		return nil
	}, nil)

	saved, err := a.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, sample(), got)
}

func TestAutosaverReportsErrors(t *testing.T) {
	boom := errors.New("disk full")
	a := NewAutosaver(time.Second, sample, func(context.Context, flow.Diagram) error { return boom }, nil)
	saved, err := a.Tick(context.Background())
	assert.False(t, saved)
	assert.ErrorIs(t, err, boom)
}

func TestAutosaverRunStopsWithContext(t *testing.T) {
	var saves atomic.Int32
	a := NewAutosaver(5*time.Millisecond, sample, func(context.Context, flow.Diagram) error {
		saves.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return saves.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autosaver did not stop")
	}
}
