/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"slidedeck/internal/domain"
)

const (
	ManifestFileName = "deck.json"
	BackupsDirName   = "backups"
	AssetsDirName    = "assets"
	ExportsDirName   = "exports"

	// MaxBackups is the number of manifest backups kept per deck.
	MaxBackups = 20
)

var standardSubDirs = []string{
	AssetsDirName,
	ExportsDirName,
	BackupsDirName,
}

// DeckHandle keeps track of a deck loaded from or saved to disk.
// Root is the deck directory containing deck.json and subfolders.
type DeckHandle struct {
	Root         string
	ManifestPath string
	Deck         domain.Deck

	mu       sync.Mutex
	lastHash [32]byte
}

// InitDeck creates a deck directory at root, scaffolds the standard subfolders
// and writes the manifest transactionally.
func InitDeck(root string, deck domain.Deck) (*DeckHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	h := &DeckHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName), Deck: deck}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create deck root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads a deck from root. If the manifest is missing, unparsable or
// invalid, the latest valid backup is used instead.
func Open(root string) (*DeckHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	h := &DeckHandle{Root: root, ManifestPath: mpath}
	b, err := os.ReadFile(mpath)
	if err == nil {
		var d domain.Deck
		if err = decodeDeck(b, &d); err == nil {
			h.Deck = d
			h.lastHash = sha256.Sum256(b)
			return h, nil
		}
	}
	d, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	h.Deck = *d
	return h, nil
}

// decodeDeck validates raw manifest bytes and decodes them into d.
func decodeDeck(b []byte, d *domain.Deck) error {
	if err := ValidateManifest(b); err != nil {
		return err
	}
	if err := json.Unmarshal(b, d); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	return nil
}

// Encode returns the human-readable manifest bytes of d.
func Encode(d domain.Deck) ([]byte, error) {
	if d.Slides == nil {
		d.Slides = []domain.Slide{}
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Save validates and writes h.Deck with transactional semantics, keeping a
// timestamped backup of the previous manifest.
func Save(h *DeckHandle) error {
	if h == nil {
		return errors.New("nil DeckHandle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid DeckHandle: missing paths")
	}
	if err := h.Deck.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDeck, err)
	}
	data, err := Encode(h.Deck)
	if err != nil {
		return err
	}
	if err := ValidateManifest(data); err != nil {
		return err
	}

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(h.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
		pruneBackups(bdir, MaxBackups)
	}

	dir := filepath.Dir(h.ManifestPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(h.ManifestPath); err == nil {
		_ = os.Remove(h.ManifestPath)
	}
	if rerr := os.Rename(temp, h.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	h.mu.Lock()
	h.lastHash = sha256.Sum256(data)
	h.mu.Unlock()
	return nil
}

// SaveAs writes the manifest to a new root folder and updates the handle.
func SaveAs(h *DeckHandle, newRoot string) error {
	if h == nil {
		return errors.New("nil DeckHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	h.Root = newRoot
	h.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(h)
}

// ownWrite reports whether data is what this handle last wrote.
func (h *DeckHandle) ownWrite(data []byte) bool {
	sum := sha256.Sum256(data)
	h.mu.Lock()
	defer h.mu.Unlock()
	return bytes.Equal(sum[:], h.lastHash[:])
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

func listBackups(bdir string) ([]string, error) {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func pruneBackups(bdir string, keep int) {
	list, err := listBackups(bdir)
	if err != nil || len(list) <= keep {
		return
	}
	for _, p := range list[:len(list)-keep] {
		_ = os.Remove(p)
	}
}

// openFromLatestBackup returns the newest backup that passes validation.
func openFromLatestBackup(root string) (*domain.Deck, error) {
	list, err := listBackups(filepath.Join(root, BackupsDirName))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err != nil {
			lastErr = err
			continue
		}
		var d domain.Deck
		if err := decodeDeck(b, &d); err != nil {
			lastErr = err
			continue
		}
		return &d, nil
	}
	return nil, fmt.Errorf("no valid backup: %w", lastErr)
}

// AutosaveCrash writes the in-memory deck next to the backups as
// crash-<stamp>.deck.json without touching deck.json. Schema validation is
// skipped so a partly broken deck is still captured.
func AutosaveCrash(h *DeckHandle) (string, error) {
	if h == nil || h.Root == "" {
		return "", errors.New("invalid DeckHandle: missing root")
	}
	data, err := Encode(h.Deck)
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("crash-%s.%s", time.Now().Format("20060102-150405"), ManifestFileName))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash autosave: %w", err)
	}
	return path, nil
}
