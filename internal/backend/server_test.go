/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/upload"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.StorageDir == "" {
		cfg.StorageDir = t.TempDir()
	}
	s, err := NewServer(cfg, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthAndReady(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(ts.URL + p)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

func TestUploadThenFetch(t *testing.T) {
	dir := t.TempDir()
	_, ts := newTestServer(t, Config{StorageDir: dir})

	c := upload.NewClient(ts.URL, "", 0)
	u, err := c.Upload(context.Background(), "Photo.PNG", []byte("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, ts.URL+"/files/"), u)
	assert.True(t, strings.HasSuffix(u, ".png"), "extension lowercased: %s", u)

	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "png-bytes", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUploadPublicURL(t *testing.T) {
	_, ts := newTestServer(t, Config{PublicURL: "https://cdn.example.com/"})
	u, err := upload.NewClient(ts.URL, "", 0).Upload(context.Background(), "a.jpg", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://cdn.example.com/files/"), u)
}

func TestUploadRejects(t *testing.T) {
	_, ts := newTestServer(t, Config{MaxUpload: 4})

	body, ct := multipartBody(t, "file", "notes.txt", []byte("hi"))
	resp, err := http.Post(ts.URL+"/upload", ct, body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	body, ct = multipartBody(t, "image", "a.png", []byte("hi"))
	resp, err = http.Post(ts.URL+"/upload", ct, body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "wrong field name")

	body, ct = multipartBody(t, "file", "a.png", []byte("too large"))
	resp, err = http.Post(ts.URL+"/upload", ct, body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestTokenRequired(t *testing.T) {
	_, ts := newTestServer(t, Config{Token: "s3cret"})

	_, err := upload.NewClient(ts.URL, "", 0).Upload(context.Background(), "a.png", []byte("x"))
	var se *upload.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	_, err = upload.NewClient(ts.URL, "wrong", 0).Upload(context.Background(), "a.png", []byte("x"))
	require.ErrorAs(t, err, &se)

	u, err := upload.NewClient(ts.URL, "s3cret", 0).Upload(context.Background(), "a.png", []byte("x"))
	require.NoError(t, err)

	// files are public
	resp, err := http.Get(u)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFilesNotFoundAndDelete(t *testing.T) {
	dir := t.TempDir()
	_, ts := newTestServer(t, Config{StorageDir: dir})

	resp, err := http.Get(ts.URL + "/files/missing.png")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.png"), []byte("x"), 0o644))
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/files/x.png", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, err = os.Stat(filepath.Join(dir, "x.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeckRoutesNeedDatabase(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	resp, err := http.Get(ts.URL + "/api/decks/abc")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", ".", "..", "../x.png", "a/b.png", `a\b.png`} {
		assert.ErrorIs(t, fs.Save(name, strings.NewReader("x")), ErrBadName, name)
	}
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt("a.PNG"))
	assert.True(t, AllowedExt("b.webp"))
	assert.False(t, AllowedExt("c.svg"))
	assert.False(t, AllowedExt("noext"))
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0002_decks_updated.sql")
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	_, err = parseVersion("decks.sql")
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, Config{Token: "t"})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/upload", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestDeckEnvelopeJSON(t *testing.T) {
	env := DeckEnvelope{DeckSummary: DeckSummary{ID: "d1", Version: 3}, Deck: json.RawMessage(`{"id":"d1"}`)}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"deck":{"id":"d1"}`)
	assert.Contains(t, string(b), `"version":3`)
}
