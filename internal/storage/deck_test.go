/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidedeck/internal/domain"
)

func countBackups(t *testing.T, root string) int {
	t.Helper()
	list, err := listBackups(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("listBackups: %v", err)
	}
	return len(list)
}

func TestInitDeckCreatesStructureAndManifest(t *testing.T) {
	root := t.TempDir()
	d := domain.NewDeck("Test Deck")

	h, err := InitDeck(root, d)
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	b, err := os.ReadFile(h.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.Deck
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.Title != d.Title || got.ID != d.ID {
		t.Fatalf("manifest mismatch: got %q/%q want %q/%q", got.Title, got.ID, d.Title, d.ID)
	}
	for _, dir := range []string{AssetsDirName, ExportsDirName, BackupsDirName} {
		p := filepath.Join(root, dir)
		if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", p)
		}
	}
	if _, err := InitDeck("  ", d); err == nil {
		t.Fatalf("expected error for blank root")
	}
}

func TestSaveCreatesBackupAndPrunes(t *testing.T) {
	root := t.TempDir()
	h, err := InitDeck(root, domain.NewDeck("Backups"))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	if n := countBackups(t, root); n != 0 {
		t.Fatalf("backups after init = %d, want 0", n)
	}
	for i := 0; i < MaxBackups+5; i++ {
		h.Deck.Metadata.Notes = strings.Repeat("x", i)
		if err := Save(h); err != nil {
			t.Fatalf("Save #%d: %v", i, err)
		}
	}
	if n := countBackups(t, root); n == 0 || n > MaxBackups {
		t.Fatalf("backups = %d, want 1..%d", n, MaxBackups)
	}
}

func TestOpenFallsBackToBackup(t *testing.T) {
	root := t.TempDir()
	h, err := InitDeck(root, domain.NewDeck("Original"))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	h.Deck.Title = "Second"
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(h.ManifestPath, []byte("{ not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Deck.Title != "Original" {
		t.Fatalf("recovered title = %q, want %q", got.Deck.Title, "Original")
	}
}

func TestOpenRejectsSchemaViolationWithoutBackup(t *testing.T) {
	root := t.TempDir()
	bad := `{"id":"d","title":"t","slides":[{"id":"s","layout":"title","elements":[{"id":"e","kind":"image","scaled":{"x":0,"y":0,"scaleX":9,"scaleY":1,"scale":1}}]}]}`
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); err == nil {
		t.Fatalf("expected error opening out-of-range manifest")
	}
	if err := ValidateManifest([]byte(bad)); !errors.Is(err, ErrInvalidDeck) {
		t.Fatalf("ValidateManifest err = %v, want ErrInvalidDeck", err)
	}
}

func TestSaveRejectsInvalidDeck(t *testing.T) {
	root := t.TempDir()
	h, err := InitDeck(root, domain.NewDeck("Valid"))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	h.Deck.Slides[0].Elements[0].Kind = "video"
	if err := Save(h); !errors.Is(err, ErrInvalidDeck) {
		t.Fatalf("Save err = %v, want ErrInvalidDeck", err)
	}
}

func TestManifestConformsToSchema(t *testing.T) {
	d := domain.NewDeck("Schema")
	for _, l := range domain.Layouts {
		s, err := domain.NewSlide(l, 3)
		if err != nil {
			t.Fatalf("NewSlide(%s): %v", l, err)
		}
		d.Slides = append(d.Slides, s)
	}
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("ValidateManifest: %v", err)
	}
	if len(Schema()) == 0 {
		t.Fatalf("empty embedded schema")
	}
}

func TestSaveAs(t *testing.T) {
	h, err := InitDeck(t.TempDir(), domain.NewDeck("Move"))
	if err != nil {
		t.Fatalf("InitDeck error: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "copy")
	if err := SaveAs(h, dst); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if _, err := Open(dst); err != nil {
		t.Fatalf("Open copy: %v", err)
	}
}

func TestAutosaveCrashWritesSeparateFile(t *testing.T) {
	root := t.TempDir()
	h, err := InitDeck(root, domain.NewDeck("Crashy"))
	if err != nil {
		t.Fatalf("InitDeck: %v", err)
	}
	before, _ := os.ReadFile(h.ManifestPath)
	h.Deck.Title = "unsaved edit"

	path, err := AutosaveCrash(h)
	if err != nil {
		t.Fatalf("AutosaveCrash: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "crash-") {
		t.Fatalf("unexpected name %s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read autosave: %v", err)
	}
	if !strings.Contains(string(b), "unsaved edit") {
		t.Fatalf("autosave lacks in-memory state")
	}
	after, _ := os.ReadFile(h.ManifestPath)
	if string(before) != string(after) {
		t.Fatalf("manifest must not change")
	}
	if n := countBackups(t, root); n != 0 {
		t.Fatalf("crash file counted as backup: %d", n)
	}
	if _, err := AutosaveCrash(nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
