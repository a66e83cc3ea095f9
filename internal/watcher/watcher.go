// Package watcher forwards file-system activity below a root directory to a Handler.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Handler receives file events. Directory events are never delivered.
type Handler interface {
	OnCreated(path string)
	OnModified(path string)
}

type Watcher struct {
	root    string
	handler Handler
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
}

// New watches root and every directory beneath it.
func New(root string, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{root: root, handler: handler, logger: logger, fsw: fsw}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers events until ctx is cancelled, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.logger.Info("watching", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", ev.Name, "error", err)
			}
		}
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.handler.OnCreated(ev.Name)
	case ev.Has(fsnotify.Write):
		w.handler.OnModified(ev.Name)
	}
}

// addTree registers dir and its subdirectories. Files already present in a newly
// created directory are reported as created, since their events predate the watch.
func (w *Watcher) addTree(dir string) error {
	initial := dir == w.root
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("walk %s: %w", dir, err)
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if !initial {
			w.handler.OnCreated(path)
		}
		return nil
	})
}
