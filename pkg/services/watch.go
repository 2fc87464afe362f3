package services

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"postdesk/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

// ChangeHandler receives the Markdown files touched during one debounce
// window, sorted and deduplicated.
type ChangeHandler func(paths []string)

// Watcher reports Markdown changes below a directory tree.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	log      *logger.Logger
}

// NewWatcher watches root and every directory below it.
func NewWatcher(root string, debounce time.Duration, onChange ChangeHandler, log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Discard()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		debounce: debounce,
		watcher:  fw,
		onChange: onChange,
		log:      log.With("component", "watcher"),
	}
	if _, err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and its subdirectories. It returns the Markdown files
// already present below dir.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		if strings.HasSuffix(path, ".md") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Run delivers batched changes until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					files, err := w.addTree(event.Name)
					if err != nil {
						w.log.Warn("watch new directory", "path", event.Name, "error", err)
					}
					for _, f := range files {
						pending[f] = struct{}{}
					}
					if len(files) > 0 {
						timer.Reset(w.debounce)
					}
					continue
				}
			}
			if !strings.HasSuffix(event.Name, ".md") || event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]struct{}{}
			w.log.Debug("content changed", "files", len(paths))
			w.onChange(paths)
		}
	}
}
