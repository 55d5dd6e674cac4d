/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"slidedeck/internal/domain"
	applog "slidedeck/internal/log"
)

// watchDebounce coalesces bursts of write events into one reload.
var watchDebounce = 250 * time.Millisecond

// Watcher reports external edits of a deck manifest.
type Watcher struct {
	fw     *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch observes h.ManifestPath and calls onChange with the new deck whenever
// another process rewrites it with valid content. Writes made through Save on
// h are ignored. onChange runs on the watcher goroutine.
func Watch(ctx context.Context, h *DeckHandle, onChange func(domain.Deck)) (*Watcher, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "watch").With(slog.String("path", h.ManifestPath))
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	target, err := filepath.Abs(h.ManifestPath)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	// Watch the directory: the manifest is replaced by rename on every save.
	if err := fw.Add(filepath.Dir(target)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	wctx, cancel := context.WithCancel(ctx)
	w := &Watcher{fw: fw, cancel: cancel, done: make(chan struct{})}

	reload := func() {
		if wctx.Err() != nil {
			return
		}
		b, err := os.ReadFile(target)
		if err != nil {
			l.Debug("read manifest failed", slog.Any("err", err))
			return
		}
		if h.ownWrite(b) {
			return
		}
		var d domain.Deck
		if err := decodeDeck(b, &d); err != nil {
			l.Warn("ignoring invalid external manifest", slog.Any("err", err))
			return
		}
		l.Info("manifest changed externally")
		onChange(d)
	}

	go func() {
		defer close(w.done)
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-wctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if abs, _ := filepath.Abs(ev.Name); abs != target {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, reload)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				l.Warn("watcher error", slog.Any("err", err))
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fw.Close()
	<-w.done
	return err
}
