/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry is an opt-in, anonymous event sender. The editor reports
// gesture commit and upload fallback counts through a Counter; crash reports
// can be uploaded by internal/crash.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "slidedeck/internal/log"
	"slidedeck/internal/version"
)

// Event names reported by the desktop shell.
const (
	EventGestureCommit  = "gesture_commit"
	EventUploadFallback = "upload_fallback"
	EventSessionSummary = "session_summary"
)

// Config holds runtime configuration for telemetry and crash uploads.
// Telemetry is disabled unless OptIn is set and an endpoint is configured.
//
// Environment variables (read by FromEnv):
//   - SLD_TELEMETRY_OPT_IN: "1", "true", "yes" to enable
//   - SLD_TELEMETRY_URL: URL events are POSTed to as JSON
//   - SLD_CRASH_UPLOAD_URL: URL crash reports are POSTed to
//   - SLD_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
//   - SLD_TELEMETRY_DEBUG: log send attempts when set
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("SLD_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("SLD_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("SLD_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("SLD_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("SLD_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Client is an async sender that drops events on errors and never blocks the
// caller; its queue is bounded.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	q       chan map[string]any
	pending atomic.Int64
	crashes sync.WaitGroup
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package client, creating it from env on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package client and closes the previous one.
func SetDefault(c *Client) {
	defaultMu.Lock()
	prev := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if prev != nil && prev != c {
		prev.Close()
	}
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client sends events.
func Enabled() bool { return Default().Enabled() }

// Event queues a small JSON event if enabled. props must not carry content or paths.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		c.pending.Add(-1)
	}
}

// Event sends through the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// Flush waits until queued events are sent, ctx ends, or a short deadline passes.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.pending.Load() > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	done := make(chan struct{})
	go func() { c.crashes.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(time.Until(deadline)):
	}
}

// Close stops the sender goroutine. Queued events are dropped.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(item), "event")
			c.pending.Add(-1)
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (c *Client) post(url, contentType string, body []byte, what string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("kind", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("kind", what), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a serialized crash report to the crash URL if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	c.crashes.Add(1)
	go func() {
		defer c.crashes.Done()
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b, "crash")
	}()
}

// UploadCrash uses the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }

// Counter accumulates named counts and reports them as one event.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
	c      *Client
}

// NewCounter creates a counter reporting through c, or the default client when nil.
func NewCounter(c *Client) *Counter {
	return &Counter{counts: map[string]int{}, c: c}
}

// Inc adds one to name.
func (k *Counter) Inc(name string) {
	k.mu.Lock()
	k.counts[name]++
	k.mu.Unlock()
}

// Snapshot returns a copy of the current counts.
func (k *Counter) Snapshot() map[string]int {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make(map[string]int, len(k.counts))
	for n, v := range k.counts {
		out[n] = v
	}
	return out
}

// Report sends the counts as event and resets them. Nothing is sent when all counts are zero.
func (k *Counter) Report(event string) {
	k.mu.Lock()
	counts := k.counts
	k.counts = map[string]int{}
	k.mu.Unlock()
	if len(counts) == 0 {
		return
	}
	props := make(map[string]any, len(counts))
	for n, v := range counts {
		props[n] = v
	}
	c := k.c
	if c == nil {
		c = Default()
	}
	c.Event(event, props)
}
