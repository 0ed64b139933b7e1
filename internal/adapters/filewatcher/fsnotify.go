// Package filewatcher provides file system monitoring adapters.
// Implements ports.ListingWatcher using fsnotify.
package filewatcher

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/0xcro3dile/graphrag-web/internal/domain/ports"
)

// FSNotifyWatcher reports changes to a single file name inside a watched directory.
// The directory is watched rather than the file so atomic replacements are seen.
type FSNotifyWatcher struct {
	watcher  *fsnotify.Watcher
	fileName string
	logger   *slog.Logger
}

// NewFSNotifyWatcher creates a watcher for fileName (default "listing.json").
func NewFSNotifyWatcher(fileName string, logger *slog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if fileName == "" {
		fileName = "listing.json"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FSNotifyWatcher{
		watcher:  w,
		fileName: fileName,
		logger:   logger,
	}, nil
}

// Watch starts monitoring dir and emits events for the watched file.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.ListingEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.ListingEvent, 16)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != w.fileName {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Has(fsnotify.Create):
					op = ports.FileCreated
				case event.Has(fsnotify.Write):
					op = ports.FileModified
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.ListingEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watching listing", "dir", dir, "error", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}
