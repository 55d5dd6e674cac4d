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
	"testing"

	"slidedeck/internal/domain"
)

func searchDeck(t *testing.T) *DeckHandle {
	t.Helper()
	d := domain.NewDeck("Quarterly Review")
	bullets, err := domain.NewSlide(domain.LayoutBullets, 2)
	if err != nil {
		t.Fatal(err)
	}
	if el, ok := bullets.ElementByRole(domain.BulletDescription(0)); ok {
		el.Content = "Revenue grew 12% in Q3"
	}
	if el, ok := bullets.ElementByRole(domain.BulletDescription(1)); ok {
		el.Content = "revenue_target missed"
		el.Hidden = true
	}
	d.Slides = append(d.Slides, bullets)
	h, err := InitDeck(t.TempDir(), d)
	if err != nil {
		t.Fatalf("InitDeck: %v", err)
	}
	return h
}

func TestSearchText(t *testing.T) {
	h := searchDeck(t)
	ctx := context.Background()

	res, err := Search(ctx, h, SearchQuery{Text: "REVENUE"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("want 1 visible match, got %d: %+v", len(res), res)
	}
	if res[0].Role != domain.BulletDescription(0) || res[0].Snippet != "[Revenue] grew 12% in Q3" {
		t.Fatalf("unexpected result %+v", res[0])
	}

	res, err = Search(ctx, h, SearchQuery{Text: "revenue", IncludeHidden: true})
	if err != nil || len(res) != 2 {
		t.Fatalf("with hidden: %d results, err %v", len(res), err)
	}

	// LIKE wildcards in the term are literal
	res, err = Search(ctx, h, SearchQuery{Text: "12%", IncludeHidden: true})
	if err != nil || len(res) != 1 {
		t.Fatalf("percent literal: %d results, err %v", len(res), err)
	}
	res, err = Search(ctx, h, SearchQuery{Text: "e_t", IncludeHidden: true})
	if err != nil || len(res) != 1 || res[0].Role != domain.BulletDescription(1) {
		t.Fatalf("underscore literal: %+v, err %v", res, err)
	}
}

func TestSearchFilters(t *testing.T) {
	h := searchDeck(t)
	ctx := context.Background()
	first := h.Deck.Slides[0].ID

	res, err := Search(ctx, h, SearchQuery{SlideID: first})
	if err != nil || len(res) != 2 {
		t.Fatalf("slide filter: %d results, err %v", len(res), err)
	}
	res, err = Search(ctx, h, SearchQuery{Kinds: []domain.Kind{domain.KindImage}})
	if err != nil || len(res) != 0 {
		t.Fatalf("kind filter: %d results, err %v", len(res), err)
	}
	res, err = Search(ctx, h, SearchQuery{Limit: 3})
	if err != nil || len(res) != 3 {
		t.Fatalf("limit: %d results, err %v", len(res), err)
	}
	if _, err := Search(ctx, nil, SearchQuery{}); err == nil {
		t.Fatalf("nil handle should fail")
	}
}

func TestSnippetWindow(t *testing.T) {
	got := snippet("the quick brown fox jumps", "brown", 4)
	if got != "…ick [brown] fox…" {
		t.Fatalf("got %q", got)
	}
	if snippet("abc", "z", 3) != "" {
		t.Fatalf("no match should be empty")
	}
}
