// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package callgraph

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called once per debounced burst of changes to the file.
type ChangeHandler func(ctx context.Context, path string)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the file must stay quiet before the handler runs.
	// Default: 200ms
	Debounce time.Duration

	// Logger receives watch errors. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns the default options.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		Debounce: 200 * time.Millisecond,
		Logger:   slog.Default(),
	}
}

// Watcher re-runs a handler when one call graph file changes.
//
// # Description
//
// Watches the file's directory rather than the file itself, because editors
// and generators often replace a file by renaming a temporary over it, which
// drops a watch held on the old inode. Events for other files in the
// directory are ignored.
//
// # Debouncing
//
// Every relevant event restarts a timer; the handler runs when the timer
// fires. A burst of writes therefore triggers one reload.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. The handler is always called
// from the same goroutine, never concurrently with itself.
type Watcher struct {
	path     string
	handler  ChangeHandler
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.Mutex
	watching bool
}

// NewWatcher creates a Watcher for path. Call Start to begin watching.
func NewWatcher(path string, handler ChangeHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultWatcherOptions().Debounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		handler:  handler,
		debounce: opts.Debounce,
		logger:   logger.With(slog.String("path", abs)),
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Start begins watching. Calling Start twice is a no-op.
//
// The watch loop exits when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watching = true

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("call graph changed", slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if w.handler != nil {
				w.handler(ctx, w.path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}
