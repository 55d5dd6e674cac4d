/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/domain"
)

// openPGForTest connects to SLD_PG_DSN and applies migrations, skipping the
// test when no database is available.
func openPGForTest(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("SLD_PG_DSN")
	if dsn == "" {
		t.Skip("SLD_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := openDB(ctx, dsn, slog.Default())
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDeckRoundTripPG(t *testing.T) {
	db := openPGForTest(t)
	s, err := NewServer(Config{StorageDir: t.TempDir()}, db)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx := context.Background()
	c := NewClient(ts.URL+"/", "")
	d := domain.NewDeck("Quarterly")
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM decks WHERE id = $1`, d.ID) })

	_, _, err = c.GetDeck(ctx, d.ID)
	require.ErrorIs(t, err, ErrNotFound)

	first, err := c.PutDeck(ctx, d, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Version)

	d.Title = "Quarterly review"
	second, err := c.PutDeck(ctx, d, first.Version)
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.Version)

	_, err = c.PutDeck(ctx, d, first.Version)
	require.ErrorIs(t, err, ErrConflict)

	got, ver, err := c.GetDeck(ctx, d.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)
	assert.Equal(t, "Quarterly review", got.Title)
	assert.Len(t, got.Slides, 1)

	list, err := c.ListDecks(ctx)
	require.NoError(t, err)
	found := false
	for _, s := range list {
		found = found || s.ID == d.ID
	}
	assert.True(t, found)
}

func TestMigrationsIdempotentPG(t *testing.T) {
	db := openPGForTest(t)
	require.NoError(t, applyMigrations(context.Background(), db, slog.Default()))
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM schema_migrations`).Scan(&n))
	assert.GreaterOrEqual(t, n, 2)
}
