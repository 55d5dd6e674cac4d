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
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"slidedeck/internal/domain"
)

// ErrConflict is returned by PutDeck when the stored version moved on.
var ErrConflict = errors.New("deck version conflict")

// ErrNotFound is returned by GetDeck for unknown ids.
var ErrNotFound = errors.New("deck not found")

// Client talks to the deck routes of the server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, header http.Header, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, u.Path, ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, u.Path, ErrConflict)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// ListDecks returns stored decks, most recently updated first.
func (c *Client) ListDecks(ctx context.Context) ([]DeckSummary, error) {
	var list []DeckSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/decks", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetDeck fetches a deck and its stored version.
func (c *Client) GetDeck(ctx context.Context, id string) (domain.Deck, int64, error) {
	var env DeckEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/decks/"+url.PathEscape(id), nil, nil, &env); err != nil {
		return domain.Deck{}, 0, err
	}
	var d domain.Deck
	if err := json.Unmarshal(env.Deck, &d); err != nil {
		return domain.Deck{}, 0, fmt.Errorf("decode deck: %w", err)
	}
	return d, env.Version, nil
}

// PutDeck stores d. A positive ifVersion makes the write conditional on the
// stored version; ErrConflict reports a mismatch.
func (c *Client) PutDeck(ctx context.Context, d domain.Deck, ifVersion int64) (DeckSummary, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return DeckSummary{}, err
	}
	var h http.Header
	if ifVersion > 0 {
		h = http.Header{"If-Match": []string{strconv.FormatInt(ifVersion, 10)}}
	}
	var out DeckSummary
	if err := c.doJSON(ctx, http.MethodPut, "/api/decks/"+url.PathEscape(d.ID), b, h, &out); err != nil {
		return DeckSummary{}, err
	}
	return out, nil
}
