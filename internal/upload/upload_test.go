/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "pic.png", hdr.Filename)
		assert.Equal(t, "payload", string(b))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://cdn.example/files/abc.png"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok", time.Second)
	url, err := c.Upload(context.Background(), "/tmp/pic.png", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/files/abc.png", url)
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name:    "bad gateway",
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) },
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.Code)
			},
		},
		{
			name:    "missing url",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) },
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNoURL) },
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
			check:   func(t *testing.T, err error) { assert.Error(t, err) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, "", time.Second).Upload(context.Background(), "x.png", []byte{1})
			tt.check(t, err)
		})
	}
}

func TestUploadNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := NewClient(url, "", time.Second).Upload(context.Background(), "x.png", []byte{1})
	assert.Error(t, err)

	_, err = NewClient("", "", 0).Upload(context.Background(), "x.png", nil)
	assert.Error(t, err)
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func decodeDataURL(t *testing.T, u string) image.Image {
	t.Helper()
	payload, ok := strings.CutPrefix(u, "data:image/png;base64,")
	require.True(t, ok, "unexpected prefix in %q", u[:min(len(u), 40)])
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestPreviewDownscales(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(400, 200), nil))

	u, err := NewPreviewer(100).Preview(buf.Bytes())
	require.NoError(t, err)
	img := decodeDataURL(t, u)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestPreviewKeepsSmallImages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(30, 20)))

	u, err := NewPreviewer(0).Preview(buf.Bytes())
	require.NoError(t, err)
	img := decodeDataURL(t, u)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())

	_, err = NewPreviewer(0).Preview([]byte("not an image"))
	assert.Error(t, err)
}
