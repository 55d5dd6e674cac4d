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
	"errors"
	"testing"

	"slidedeck/internal/domain"
	"slidedeck/internal/patch"
	"slidedeck/internal/transform"
)

func newSinkFixture(t *testing.T) (*Sink, *DeckHandle, *Journal, domain.Slide) {
	t.Helper()
	d := domain.NewDeck("Sink")
	s, err := domain.NewSlide(domain.LayoutTitleImage, 0)
	if err != nil {
		t.Fatal(err)
	}
	d.Slides = append(d.Slides, s)
	root := t.TempDir()
	h, err := InitDeck(root, d)
	if err != nil {
		t.Fatalf("InitDeck: %v", err)
	}
	j, err := OpenJournal(root)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return NewSink(h, j), h, j, s
}

func imageOf(t *testing.T, s domain.Slide) domain.Element {
	t.Helper()
	for _, el := range s.Elements {
		if el.Kind == domain.KindImage {
			return el
		}
	}
	t.Fatalf("slide has no image")
	return domain.Element{}
}

func TestSinkPersistsUpdates(t *testing.T) {
	ctx := context.Background()
	sink, h, j, s := newSinkFixture(t)
	img := imageOf(t, s)

	var commits int
	sink.OnCommit(func(string, patch.Update) { commits++ })

	start := img.ScaledOrDefault()
	end := transform.ResizeImage(start, transform.HandleSE, 30, 40)
	for _, u := range []patch.Update{patch.Move(img.ID, 5, 6), patch.Resized(img.ID, start, end)} {
		if err := sink.Apply(ctx, s.ID, u); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
	if commits != 2 {
		t.Fatalf("commits = %d, want 2", commits)
	}

	reopened, err := Open(h.Root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, el, ok := reopened.Deck.FindElement(img.ID)
	if !ok {
		t.Fatalf("element %s missing after reopen", img.ID)
	}
	if el.Scaled.X != 5 || el.Scaled.Y != 6 || el.Scaled.Scale != end.Scale {
		t.Fatalf("persisted transform = %+v", *el.Scaled)
	}
	n, _ := j.CommitCount(ctx)
	if n != 2 {
		t.Fatalf("journal commits = %d, want 2", n)
	}
}

func TestSinkRejectsIllegalUpdate(t *testing.T) {
	ctx := context.Background()
	sink, _, _, s := newSinkFixture(t)
	img := imageOf(t, s)

	err := sink.Apply(ctx, s.ID, patch.Update{ElementID: img.ID, Patches: []patch.Patch{patch.BoxSize{Width: transform.Float(300)}}})
	if !errors.Is(err, patch.ErrIllegal) {
		t.Fatalf("Apply err = %v, want ErrIllegal", err)
	}
	if err := sink.Apply(ctx, "nope", patch.Move(img.ID, 0, 0)); err == nil {
		t.Fatalf("expected unknown slide error")
	}
	if err := sink.Apply(ctx, s.ID, patch.Move("nope", 0, 0)); err == nil {
		t.Fatalf("expected unknown element error")
	}
	_, el, _ := func() (*domain.Slide, *domain.Element, bool) { d := sink.Deck(); return d.FindElement(img.ID) }()
	if el.Box != nil {
		t.Fatalf("rejected update leaked into deck: %+v", el)
	}
}

func TestSinkForReportsErrors(t *testing.T) {
	sink, _, _, s := newSinkFixture(t)
	var got error
	sink.OnError(func(err error) { got = err })
	sink.For(s.ID)(patch.Move("missing", 1, 1))
	if got == nil {
		t.Fatalf("expected OnError callback")
	}

	got = nil
	img := imageOf(t, s)
	sink.For(s.ID)(patch.Delete(img.ID))
	if got != nil {
		t.Fatalf("unexpected error: %v", got)
	}
	_, el, _ := func() (*domain.Slide, *domain.Element, bool) { d := sink.Deck(); return d.FindElement(img.ID) }()
	if !el.Hidden || el.Content != "" {
		t.Fatalf("delete not persisted: %+v", el)
	}
}
