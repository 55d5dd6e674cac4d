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
	"os"
	"testing"

	"slidedeck/internal/domain"
	"slidedeck/internal/patch"
	"slidedeck/internal/transform"
)

func TestOpenJournalMigratesToCurrentSchema(t *testing.T) {
	root := t.TempDir()
	j, err := OpenJournal(root)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()
	v, err := j.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != schemaVersion {
		t.Fatalf("schema = %d, want %d", v, schemaVersion)
	}
	if _, err := os.Stat(JournalPath(root)); err != nil {
		t.Fatalf("journal file missing: %v", err)
	}
}

func TestJournalRecordAndHistory(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	start := transform.DefaultScaled()
	updates := []patch.Update{
		patch.Move("e1", 10, 20),
		patch.Resized("e1", start, transform.ResizeImage(start, transform.HandleW, -50, 0)),
		patch.Replace("e2", "hello"),
	}
	for _, u := range updates {
		if err := j.Record(ctx, "s1", u); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	n, err := j.CommitCount(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CommitCount = %d, %v; want 3", n, err)
	}
	hist, err := j.History(ctx, "e1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want 2", len(hist))
	}
	if len(hist[0].Types) != 2 || hist[0].Types[0] != patch.TypePosition || hist[0].Types[1] != patch.TypeScale {
		t.Fatalf("newest commit types = %v", hist[0].Types)
	}
	if hist[1].Update.ElementID != "e1" || len(hist[1].Update.Patches) != 1 {
		t.Fatalf("oldest commit = %+v", hist[1].Update)
	}
	if p, ok := hist[1].Update.Patches[0].(patch.Position); !ok || p.X != 10 || p.Y != 20 {
		t.Fatalf("decoded patch = %#v", hist[1].Update.Patches[0])
	}
	if hist[0].At.IsZero() {
		t.Fatalf("commit timestamp not parsed")
	}
	limited, err := j.History(ctx, "e1", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("History(limit 1) = %d, %v", len(limited), err)
	}
}

func TestJournalSnapshotAndElement(t *testing.T) {
	ctx := context.Background()
	j, err := OpenJournal(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	d := domain.NewDeck("Snap")
	if err := j.SnapshotDeck(ctx, d); err != nil {
		t.Fatalf("SnapshotDeck: %v", err)
	}
	want := d.Slides[0].Elements[0]
	got, err := j.Element(ctx, want.ID)
	if err != nil {
		t.Fatalf("Element: %v", err)
	}
	if got.Content != want.Content || got.Kind != want.Kind {
		t.Fatalf("element = %+v, want %+v", got, want)
	}
	want.Content = "changed"
	if err := j.PutElement(ctx, d.Slides[0].ID, want); err != nil {
		t.Fatalf("PutElement: %v", err)
	}
	got, _ = j.Element(ctx, want.ID)
	if got.Content != "changed" {
		t.Fatalf("content after put = %q", got.Content)
	}
}

func TestDetectAndRebuildJournal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := domain.NewDeck("Rebuild")

	rebuilt, err := DetectAndRebuildJournal(ctx, root, d)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if rebuilt {
		t.Fatalf("fresh journal should not need a rebuild")
	}

	if err := os.WriteFile(JournalPath(root), []byte("garbage, not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(JournalPath(root) + "-wal")
	_ = os.Remove(JournalPath(root) + "-shm")
	rebuilt, err = DetectAndRebuildJournal(ctx, root, d)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !rebuilt {
		t.Fatalf("corrupt journal should be rebuilt")
	}
	j, err := OpenJournal(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if _, err := j.Element(ctx, d.Slides[0].Elements[0].ID); err != nil {
		t.Fatalf("rebuilt journal lacks snapshot: %v", err)
	}
}
