package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"postdesk/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherBatchesMarkdownChanges(t *testing.T) {
	setupRepo(t)
	changes := make(chan []string, 4)

	w, err := NewWatcher(config.ContentRoot(), 50*time.Millisecond, func(paths []string) {
		changes <- paths
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writePost(t, "2024-01-01-a.md", "---\ntitle: A\n---\n")
	writePost(t, "2024-01-02-b.md", "---\ntitle: B\n---\n")
	writePost(t, "notes.txt", "ignored")

	select {
	case paths := <-changes:
		for _, p := range paths {
			assert.Equal(t, ".md", filepath.Ext(p))
		}
		assert.NotEmpty(t, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
	}

	// New subdirectories are picked up.
	require.NoError(t, os.MkdirAll(filepath.Join(config.PostsDir(), "series"), 0755))
	time.Sleep(100 * time.Millisecond)
	writePost(t, "series/2024-01-03-c.md", "---\ntitle: C\n---\n")

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if filepath.Base(p) == "2024-01-03-c.md" {
					found = true
				}
			}
		case <-deadline:
			t.Fatal("change in new directory not delivered")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherReportsMovedInDirectory(t *testing.T) {
	setupRepo(t)
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outside, "series", "part"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "series", "a.md"), []byte("---\ntitle: A\n---\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "series", "part", "b.md"), []byte("---\ntitle: B\n---\n"), 0644))

	changes := make(chan []string, 4)
	w, err := NewWatcher(config.ContentRoot(), 50*time.Millisecond, func(paths []string) {
		changes <- paths
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.Rename(filepath.Join(outside, "series"), filepath.Join(config.PostsDir(), "series")))

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for !seen["a.md"] || !seen["b.md"] {
		select {
		case paths := <-changes:
			for _, p := range paths {
				seen[filepath.Base(p)] = true
			}
		case <-deadline:
			t.Fatalf("moved-in files not reported, saw %v", seen)
		}
	}
}
