/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend is the upload and deck server the editor talks to. Uploaded
// images live on disk; deck documents live in Postgres when a DSN is configured.
package backend

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	applog "slidedeck/internal/log"
	"slidedeck/internal/version"
)

// DefaultMaxUpload bounds one uploaded file.
const DefaultMaxUpload int64 = 32 << 20

// Config holds server configuration.
type Config struct {
	Addr       string // http bind address, e.g. ":8080"
	StorageDir string
	PublicURL  string // prefix for returned file URLs; derived from the request when empty
	Token      string // bearer token required on write routes when set
	PGDSN      string
	MaxUpload  int64
	Release    bool
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.StorageDir == "" {
		c.StorageDir = "uploads"
	}
	if c.MaxUpload <= 0 {
		c.MaxUpload = DefaultMaxUpload
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	return c
}

// Server wires the HTTP routes to the file store and the optional deck database.
type Server struct {
	cfg   Config
	files *FileStore
	db    *sql.DB
	log   *slog.Logger
}

// NewServer creates a server. db may be nil, in which case the deck routes are not mounted.
func NewServer(cfg Config, db *sql.DB) (*Server, error) {
	cfg = cfg.withDefaults()
	fs, err := NewFileStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}
	return &Server{cfg: cfg, files: fs, db: db, log: applog.WithComponent("backend")}, nil
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog(), cors())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/readyz", s.ready)
	r.GET("/version", func(c *gin.Context) { c.String(http.StatusOK, version.String()) })

	r.GET("/files/:name", s.getFile)

	auth := r.Group("/", s.requireToken())
	auth.POST("/upload", s.upload)
	auth.DELETE("/files/:name", s.deleteFile)

	if s.db != nil {
		api := auth.Group("/api")
		api.GET("/decks", s.listDecks)
		api.GET("/decks/:id", s.getDeck)
		api.PUT("/decks/:id", s.putDeck)
	}
	return r
}

func (s *Server) ready(c *gin.Context) {
	if s.db == nil {
		c.String(http.StatusOK, "ready")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		c.String(http.StatusServiceUnavailable, "db not ready")
		return
	}
	c.String(http.StatusOK, "ready")
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Token == "" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		const prefix = "bearer "
		if !strings.HasPrefix(strings.ToLower(auth), prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimSpace(auth[len(prefix):])
		if subtle.ConstantTimeCompare([]byte(tok), []byte(s.cfg.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, If-Match")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) fileURL(c *gin.Context, name string) string {
	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/files/" + name
}

// Start opens the database when configured, applies migrations and serves
// until ctx is cancelled.
func Start(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	l := applog.WithOperation(applog.WithComponent("backend"), "start")

	var db *sql.DB
	if cfg.PGDSN != "" {
		var err error
		db, err = openDB(ctx, cfg.PGDSN, l)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				l.Warn("db close", slog.Any("err", err))
			}
		}()
	} else {
		l.Info("no postgres dsn configured; deck routes disabled")
	}

	srv, err := NewServer(cfg, db)
	if err != nil {
		return err
	}
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	l.Info("listening", slog.String("addr", cfg.Addr), slog.String("storage", cfg.StorageDir))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l.Info("shutting down")
	return hs.Shutdown(sctx)
}

func openDB(ctx context.Context, dsn string, l *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
