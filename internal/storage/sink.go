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
	"sync"

	"slidedeck/internal/domain"
	applog "slidedeck/internal/log"
	"slidedeck/internal/patch"
)

// Sink is the storage end of the persistence bridge. Each update is applied to
// the in-memory deck, written to deck.json and recorded in the journal.
type Sink struct {
	mu       sync.Mutex
	h        *DeckHandle
	j        *Journal
	log      *slog.Logger
	onError  func(error)
	onCommit func(slideID string, u patch.Update)
}

// NewSink creates a sink for h. j may be nil to skip journaling.
func NewSink(h *DeckHandle, j *Journal) *Sink {
	return &Sink{h: h, j: j, log: applog.WithComponent("storage")}
}

// OnError registers a callback for failures of updates sent through For.
func (s *Sink) OnError(fn func(error)) { s.onError = fn }

// OnCommit registers a callback invoked after each successful update.
func (s *Sink) OnCommit(fn func(slideID string, u patch.Update)) { s.onCommit = fn }

// Deck returns a copy of the current deck.
func (s *Sink) Deck() domain.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.h.Deck
	d.Slides = make([]domain.Slide, len(s.h.Deck.Slides))
	for i, sl := range s.h.Deck.Slides {
		d.Slides[i] = sl
		d.Slides[i].Elements = make([]domain.Element, len(sl.Elements))
		for k, el := range sl.Elements {
			d.Slides[i].Elements[k] = el.Clone()
		}
	}
	return d
}

// Apply persists one update. On a manifest write failure the in-memory deck is
// rolled back. Journal failures are logged and do not fail the update.
func (s *Sink) Apply(ctx context.Context, slideID string, u patch.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx = applog.ContextWithSlide(applog.ContextWithDeck(ctx, s.h.Root), slideID)
	slide, ok := s.h.Deck.Slide(slideID)
	if !ok {
		return fmt.Errorf("apply update: unknown slide %s", slideID)
	}
	el, ok := slide.Element(u.ElementID)
	if !ok {
		return fmt.Errorf("apply update: unknown element %s on slide %s", u.ElementID, slideID)
	}
	prev := el.Clone()
	next, err := patch.ApplyUpdate(prev, u)
	if err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	*el = next
	if err := Save(s.h); err != nil {
		*el = prev
		return fmt.Errorf("apply update: %w", err)
	}
	if s.j != nil {
		if err := s.j.Record(ctx, slideID, u); err != nil {
			s.log.ErrorContext(ctx, "journal record failed", slog.String("element", u.ElementID), slog.Any("err", err))
		} else if err := s.j.PutElement(ctx, slideID, next); err != nil {
			s.log.ErrorContext(ctx, "journal element update failed", slog.String("element", u.ElementID), slog.Any("err", err))
		}
	}
	s.log.DebugContext(ctx, "update persisted", slog.String("element", u.ElementID), slog.Any("types", u.Types()))
	if s.onCommit != nil {
		s.onCommit(slideID, u)
	}
	return nil
}

// For returns the fire-and-forget update callback of one slide. Errors are
// logged and reported to the OnError callback.
func (s *Sink) For(slideID string) func(patch.Update) {
	return func(u patch.Update) {
		ctx := applog.ContextWithSlide(applog.ContextWithDeck(context.Background(), s.h.Root), slideID)
		if err := s.Apply(ctx, slideID, u); err != nil {
			s.log.ErrorContext(ctx, "persist update failed", slog.String("element", u.ElementID), slog.Any("err", err))
			if s.onError != nil {
				s.onError(err)
			}
		}
	}
}

// Reload replaces the in-memory deck, for example after an external edit.
func (s *Sink) Reload(d domain.Deck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.Deck = d
}
