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
	"fmt"
	"strings"
	"unicode/utf8"

	"slidedeck/internal/domain"
)

// SearchQuery describes a text search over the journaled element table.
// Text matches element content case-insensitively; empty Text lists elements.
// Kinds and SlideID are optional filters. Hidden elements are skipped unless
// IncludeHidden is set.
type SearchQuery struct {
	Text          string
	Kinds         []domain.Kind
	SlideID       string
	IncludeHidden bool
	Limit         int
	Offset        int
}

// SearchResult is a single matching element. Snippet marks the first match
// with [ ] when Text was given.
type SearchResult struct {
	ElementID string
	SlideID   string
	Kind      domain.Kind
	Role      domain.Role
	Snippet   string
}

// Search refreshes the journal's element table from h and runs q against it.
func Search(ctx context.Context, h *DeckHandle, q SearchQuery) ([]SearchResult, error) {
	if h == nil || strings.TrimSpace(h.Root) == "" {
		return nil, errors.New("deck root is required")
	}
	j, err := OpenJournal(h.Root)
	if err != nil {
		return nil, err
	}
	defer j.Close()
	if err := j.SnapshotDeck(ctx, h.Deck); err != nil {
		return nil, err
	}
	return j.Search(ctx, q)
}

// Search runs q against the current element table.
func (j *Journal) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	sb.WriteString("SELECT element_id, slide_id, kind, COALESCE(role,''), COALESCE(content,'')\n")
	sb.WriteString("FROM elements\nWHERE 1=1\n")
	text := strings.TrimSpace(q.Text)
	if text != "" {
		sb.WriteString(" AND lower(content) LIKE ? ESCAPE '\\'\n")
		args = append(args, likeContains(escapeLike(strings.ToLower(text))))
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, string(k))
		}
	}
	if q.SlideID != "" {
		sb.WriteString(" AND slide_id = ?\n")
		args = append(args, q.SlideID)
	}
	if !q.IncludeHidden {
		sb.WriteString(" AND hidden = 0\n")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY slide_id, element_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := j.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind, role, content string
		if err := rows.Scan(&r.ElementID, &r.SlideID, &kind, &role, &content); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Kind, r.Role = domain.Kind(kind), domain.Role(role)
		if text != "" {
			r.Snippet = snippet(content, text, 20)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeContains(s string) string { return "%" + s + "%" }

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// snippet returns up to radius runes around the first case-insensitive match.
func snippet(content, term string, radius int) string {
	lc := strings.ToLower(content)
	if len(lc) != len(content) {
		return content
	}
	i := strings.Index(lc, strings.ToLower(term))
	if i < 0 || i+len(term) > len(content) {
		return ""
	}
	end := i + len(term)
	start := i
	for n := 0; n < radius && start > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(content[:start])
		start -= size
	}
	stop := end
	for n := 0; n < radius && stop < len(content); n++ {
		_, size := utf8.DecodeRuneInString(content[stop:])
		stop += size
	}
	out := content[start:i] + "[" + content[i:end] + "]" + content[end:stop]
	if start > 0 {
		out = "…" + out
	}
	if stop < len(content) {
		out += "…"
	}
	return out
}
