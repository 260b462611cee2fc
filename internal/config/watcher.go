// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads the global configuration when the config file changes on
// disk, so edits take effect without restarting the client.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(*Config)

	mu      sync.Mutex
	pending time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher over the config directory. onReload is
// called with the freshly loaded config after each successful reload; it
// may be nil.
func NewWatcher(debounce time.Duration, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		onReload: onReload,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching the config directory.
func (w *Watcher) Watch() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()

	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents marks config file changes pending for the debounce loop.
// Editors rename or recreate the file on save, so Create and Rename count
// as changes alongside Write.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)
		}
	}
}

// processPending reloads once writes have settled for the debounce window.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if ready {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if !ready {
				continue
			}

			if err := ReloadGlobal(); err != nil {
				log.Printf("config: reload failed, keeping previous config: %v", err)
				continue
			}
			if w.onReload != nil {
				w.onReload(Global())
			}
		}
	}
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	return base == "config.toml" || base == "config.json"
}
