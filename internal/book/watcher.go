package book

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changed pages under a book root.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	onChange func(pagePath string)
	logger   *slog.Logger
	done     chan struct{}
}

// NewWatcher watches root and every non-hidden directory below it.
func NewWatcher(root string, onChange func(string), logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		root:     root,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Watch starts a Watcher that invalidates the library's changed pages.
func (l *Library) Watch() (*Watcher, error) {
	w, err := NewWatcher(l.root, l.Invalidate, l.logger)
	if err != nil {
		return nil, err
	}
	w.Start()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watching directory", slog.String("dir", path))
		return nil
	})
}

// Start begins delivering changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", slog.String("error", err.Error()))

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory",
					slog.String("dir", event.Name),
					slog.String("error", err.Error()))
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Ext(event.Name) != ".html" {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	w.onChange(filepath.ToSlash(rel))
}

// Stop ends the watch.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
