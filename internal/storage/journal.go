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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidedeck/internal/domain"
	applog "slidedeck/internal/log"
	"slidedeck/internal/patch"
	"slidedeck/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// JournalDirName stores all per-deck derived data under the deck root.
	JournalDirName  = ".sld"
	JournalFileName = "journal.sqlite"

	// schemaVersion tracks the local SQLite schema of the journal.
	schemaVersion = 2
)

// JournalPath returns the full path to the deck's journal database file.
func JournalPath(deckRoot string) string {
	return filepath.Join(deckRoot, JournalDirName, JournalFileName)
}

// Journal is the per-deck SQLite log of persisted element updates.
type Journal struct {
	db   *sql.DB
	path string
}

// Commit is one recorded update.
type Commit struct {
	ID        int64
	At        time.Time
	SlideID   string
	ElementID string
	Types     []patch.Type
	Update    patch.Update
}

// OpenJournal ensures the journal exists at .sld/journal.sqlite, enables WAL
// and brings the schema up to date.
func OpenJournal(deckRoot string) (*Journal, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "journal_open").With(
		slog.String("root", deckRoot),
	)
	if strings.TrimSpace(deckRoot) == "" {
		return nil, errors.New("deck root is required")
	}
	if err := os.MkdirAll(filepath.Join(deckRoot, JournalDirName), 0o755); err != nil {
		l.Error("create .sld dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .sld dir: %w", err)
	}

	path := JournalPath(deckRoot)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureJournalSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure journal schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("journal ready", slog.String("path", path))
	return &Journal{db: db, path: path}, nil
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh databases start at 1 so every migration runs once.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureJournalSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS commits (
			id         INTEGER PRIMARY KEY,
			ts         TEXT NOT NULL,
			slide_id   TEXT NOT NULL,
			element_id TEXT NOT NULL,
			types      TEXT NOT NULL,
			payload    TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS elements (
			element_id TEXT PRIMARY KEY,
			slide_id   TEXT NOT NULL,
			kind       TEXT NOT NULL,
			role       TEXT,
			content    TEXT,
			hidden     INTEGER NOT NULL DEFAULT 0,
			data       TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_commits_element ON commits(element_id, id);`,
				`CREATE INDEX IF NOT EXISTS idx_elements_slide ON elements(slide_id);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion returns the schema number stored in the database.
func (j *Journal) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := j.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// Record appends u to the commit log.
func (j *Journal) Record(ctx context.Context, slideID string, u patch.Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	types := make([]string, 0, len(u.Patches))
	for _, t := range u.Types() {
		types = append(types, string(t))
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO commits(ts, slide_id, element_id, types, payload) VALUES(?,?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339Nano), slideID, u.ElementID, strings.Join(types, ","), string(payload))
	if err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// History returns the newest commits of an element, newest first. limit <= 0 means all.
func (j *Journal) History(ctx context.Context, elementID string, limit int) ([]Commit, error) {
	q := `SELECT id, ts, slide_id, element_id, types, payload FROM commits WHERE element_id=? ORDER BY id DESC`
	args := []any{elementID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []Commit
	for rows.Next() {
		var (
			c            Commit
			ts, types, p string
		)
		if err := rows.Scan(&c.ID, &ts, &c.SlideID, &c.ElementID, &types, &p); err != nil {
			return nil, err
		}
		c.At, _ = time.Parse(time.RFC3339Nano, ts)
		for _, t := range strings.Split(types, ",") {
			if t != "" {
				c.Types = append(c.Types, patch.Type(t))
			}
		}
		if err := json.Unmarshal([]byte(p), &c.Update); err != nil {
			return nil, fmt.Errorf("decode commit %d: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CommitCount returns the number of recorded commits.
func (j *Journal) CommitCount(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits`).Scan(&n)
	return n, err
}

// SnapshotDeck replaces the elements table with the current state of d.
func (j *Journal) SnapshotDeck(ctx context.Context, d domain.Deck) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM elements;`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear elements: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO elements(element_id, slide_id, kind, role, content, hidden, data, updated_at) VALUES(?,?,?,?,?,?,?,?);`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range d.Slides {
		for _, el := range s.Elements {
			if err := upsertElement(ctx, ins, s.ID, el, now); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PutElement stores the current state of one element.
func (j *Journal) PutElement(ctx context.Context, slideID string, el domain.Element) error {
	stmt, err := j.db.PrepareContext(ctx, `INSERT OR REPLACE INTO elements(element_id, slide_id, kind, role, content, hidden, data, updated_at) VALUES(?,?,?,?,?,?,?,?);`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	return upsertElement(ctx, stmt, slideID, el, time.Now().UTC().Format(time.RFC3339))
}

func upsertElement(ctx context.Context, stmt *sql.Stmt, slideID string, el domain.Element, now string) error {
	data, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("encode element %s: %w", el.ID, err)
	}
	if _, err := stmt.ExecContext(ctx, el.ID, slideID, string(el.Kind), string(el.Role), el.Content, el.Hidden, string(data), now); err != nil {
		return fmt.Errorf("store element %s: %w", el.ID, err)
	}
	return nil
}

// Element reads the journaled state of one element.
func (j *Journal) Element(ctx context.Context, id string) (domain.Element, error) {
	var data string
	if err := j.db.QueryRowContext(ctx, `SELECT data FROM elements WHERE element_id=?`, id).Scan(&data); err != nil {
		return domain.Element{}, err
	}
	var el domain.Element
	if err := json.Unmarshal([]byte(data), &el); err != nil {
		return domain.Element{}, fmt.Errorf("decode element %s: %w", id, err)
	}
	return el, nil
}

// DetectAndRebuildJournal checks the journal for corruption and recreates it
// from the manifest when needed. It returns true when a rebuild happened.
// Commit history is lost on rebuild; the file is backed up first.
func DetectAndRebuildJournal(ctx context.Context, deckRoot string, d domain.Deck) (bool, error) {
	path := JournalPath(deckRoot)
	j, err := OpenJournal(deckRoot)
	if err == nil {
		var chk string
		qerr := j.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk)
		if qerr == nil && strings.Contains(strings.ToLower(chk), "ok") {
			if _, perr := j.db.ExecContext(ctx, `SELECT 1 FROM commits LIMIT 1;`); perr == nil {
				_ = j.Close()
				return false, nil
			}
		}
		_ = j.Close()
	}
	backupJournalFile(path)
	_ = os.Remove(path)
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
	j, err = OpenJournal(deckRoot)
	if err != nil {
		return false, fmt.Errorf("rebuild journal: %w", err)
	}
	defer j.Close()
	if err := j.SnapshotDeck(ctx, d); err != nil {
		return false, err
	}
	return true, nil
}

// backupJournalFile copies the journal into a timestamped backup in .sld/backups.
func backupJournalFile(path string) {
	bdir := filepath.Join(filepath.Dir(path), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
