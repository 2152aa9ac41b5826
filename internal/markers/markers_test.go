package markers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
)

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.LoadMarker(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveMarker(ctx, "s1", "job1"))
	require.NoError(t, store.SaveMarker(ctx, "s1", "job2"))
	job, ok, err := store.LoadMarker(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, "job2", job, "at most one marker per session")

	_, ok, err = store.LoadMarker(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, ok, "markers are session scoped")

	require.NoError(t, store.ClearMarker(ctx, "s1"))
	require.NoError(t, store.ClearMarker(ctx, "s1"), "clearing twice is fine")
	_, ok, err = store.LoadMarker(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveLastDocument(ctx, "owner", "doc1"))
	doc, ok, err := store.LastDocument(ctx, "owner")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, "doc1", doc)

	assert.True(t, errors.Is(store.SaveMarker(ctx, " ", "job"), ErrInvalidKey))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SaveMarker(context.Background(), "tab-1", "abc"))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	job, ok, err := second.LoadMarker(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, "abc", job)
}

func TestPurgeMarkers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mem := NewMemoryStore()
	mem.now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, mem.SaveMarker(ctx, "old", "job-old"))
	mem.now = func() time.Time { return now }
	require.NoError(t, mem.SaveMarker(ctx, "fresh", "job-fresh"))

	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	files.now = mem.now
	require.NoError(t, files.SaveMarker(ctx, "fresh", "job-fresh"))
	files.now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, files.SaveMarker(ctx, "old", "job-old"))

	for name, store := range map[string]Store{"memory": mem, "file": files} {
		n, err := store.PurgeMarkers(ctx, now.Add(-30*time.Minute))
		require.NoError(t, err, name)
		assert.Equal(t, 1, n, name)
		_, ok, _ := store.LoadMarker(ctx, "old")
		assert.False(t, ok, name)
		_, ok, _ = store.LoadMarker(ctx, "fresh")
		assert.True(t, ok, name)
	}
}

func TestBindScopesToSessionAndOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := Bind(store, "tab-a", "user-1")
	b := Bind(store, "tab-b", "user-1")

	require.NoError(t, a.SaveMarker(ctx, "job-a"))
	_, ok, err := b.LoadMarker(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.SaveLastDocument(ctx, "doc-1"))
	doc, ok, err := b.LastDocument(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "last document is shared by owner")
	assert.EqualValues(t, "doc-1", doc)

	anon := Bind(store, "tab-c", "")
	require.NoError(t, anon.SaveLastDocument(ctx, "doc-2"))
	_, ok, err = anon.LastDocument(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenSelectsStore(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.Config{MarkerStore: "memory"}, db.DefaultCLIOptions())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, config.Config{MarkerStore: "file", StateDir: t.TempDir()}, db.DefaultCLIOptions())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(ctx, config.Config{MarkerStore: "file"}, db.DefaultCLIOptions())
	assert.Error(t, err)
}
