package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFilters(t *testing.T) {
	html := ExtensionFilter(".html", ".PHTML")
	assert.True(t, html("views/index.html"))
	assert.True(t, html("views/INDEX.HTML"))
	assert.True(t, html("views/layout.phtml"))
	assert.False(t, html("static/all.js"))

	exclude := ExcludeFilter("node_modules", "*.bak")
	assert.True(t, exclude("views/index.html"))
	assert.False(t, exclude("node_modules/pkg/index.html"))
	assert.False(t, exclude("views/index.html.bak"))
}

func TestDebouncerDeduplicates(t *testing.T) {
	d := &Debouncer{
		delay:  time.Hour,
		events: make(chan ChangeEvent, 10),
		output: make(chan []ChangeEvent, 1),
	}

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "a.html"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b.html"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a.html"})
	d.timer.Stop()
	d.flush()

	batch := <-d.output
	require.Len(t, batch, 2)
	assert.Equal(t, "a.html", batch[0].Path)
	assert.Equal(t, EventTypeModified, batch[0].Type)
	assert.Equal(t, "b.html", batch[1].Path)
	assert.Empty(t, d.pending)
}

func TestFileWatcherDeliversChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "views"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(ExtensionFilter(".html"))
	received := make(chan []ChangeEvent, 4)
	watcher.AddHandler(func(events []ChangeEvent) error {
		received <- events
		return nil
	})

	skip := func(path string) bool { return Excluded(path, []string{"node_modules"}) }
	require.NoError(t, watcher.AddRecursive(dir, skip))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	target := filepath.Join(dir, "views", "index.html")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "views", "ignored.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("<p>hi</p>"), 0o644))

	select {
	case events := <-received:
		require.NotEmpty(t, events)
		for _, e := range events {
			assert.Equal(t, ".html", filepath.Ext(e.Path))
		}
		assert.Equal(t, target, events[0].Path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change events")
	}
}
