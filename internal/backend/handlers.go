/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slidedeck/internal/domain"
	"slidedeck/internal/storage"
)

// maxDeckBytes bounds a PUT deck body.
const maxDeckBytes = 8 << 20

func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	if !AllowedExt(fh.Filename) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		return
	}
	if fh.Size > s.cfg.MaxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	if err := s.files.Save(name, io.LimitReader(f, s.cfg.MaxUpload)); err != nil {
		s.log.Error("save upload", slog.String("name", name), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store file"})
		return
	}
	s.log.Info("stored upload", slog.String("name", name), slog.Int64("size", fh.Size))
	c.JSON(http.StatusCreated, gin.H{"url": s.fileURL(c, name), "name": name})
}

func (s *Server) getFile(c *gin.Context) {
	p, err := s.files.Path(c.Param("name"))
	switch {
	case errors.Is(err, ErrBadName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	default:
		c.File(p)
	}
}

func (s *Server) deleteFile(c *gin.Context) {
	err := s.files.Delete(c.Param("name"))
	switch {
	case errors.Is(err, ErrBadName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

// DeckSummary is one row of GET /api/decks.
type DeckSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeckEnvelope is the GET /api/decks/:id response.
type DeckEnvelope struct {
	DeckSummary
	Deck json.RawMessage `json:"deck"`
}

func (s *Server) listDecks(c *gin.Context) {
	rows, err := s.db.QueryContext(c.Request.Context(), `SELECT id, title, version, updated_at FROM decks ORDER BY updated_at DESC`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()
	list := []DeckSummary{}
	for rows.Next() {
		var d DeckSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.Version, &d.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getDeck(c *gin.Context) {
	env := DeckEnvelope{DeckSummary: DeckSummary{ID: c.Param("id")}}
	var doc []byte
	row := s.db.QueryRowContext(c.Request.Context(), `SELECT title, doc, version, updated_at FROM decks WHERE id = $1`, env.ID)
	switch err := row.Scan(&env.Title, &doc, &env.Version, &env.UpdatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "no such deck"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	env.Deck = json.RawMessage(doc)
	c.JSON(http.StatusOK, env)
}

// putDeck stores the body as the deck document. An If-Match header carrying
// the current version makes the write conditional.
func (s *Server) putDeck(c *gin.Context) {
	id := c.Param("id")
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDeckBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := storage.ValidateManifest(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var d domain.Deck
	if err := json.Unmarshal(body, &d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if d.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deck id does not match path"})
		return
	}
	if err := d.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	out := DeckSummary{ID: id, Title: d.Title}
	var row *sql.Row
	if match := strings.Trim(c.GetHeader("If-Match"), `" `); match != "" {
		want, perr := strconv.ParseInt(match, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "If-Match must be a version number"})
			return
		}
		row = s.db.QueryRowContext(ctx, `UPDATE decks SET title = $2, doc = $3, version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $4 RETURNING version, updated_at`, id, d.Title, string(body), want)
	} else {
		row = s.db.QueryRowContext(ctx, `INSERT INTO decks(id, title, doc) VALUES($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, doc = EXCLUDED.doc,
				version = decks.version + 1, updated_at = now()
			RETURNING version, updated_at`, id, d.Title, string(body))
	}
	switch err := row.Scan(&out.Version, &out.UpdatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusConflict, gin.H{"error": "version mismatch"})
		return
	case err != nil:
		s.log.Error("put deck", slog.String("id", id), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
