/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notify keeps transient, auto-dismissing user notifications.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level of a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// DefaultTTL applies when a Center is created with a non-positive TTL.
const DefaultTTL = 4 * time.Second

// Notification is one message shown to the user.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Center stores active notifications. It is safe for concurrent use.
type Center struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
	subs  []func(Notification)
}

// NewCenter returns a Center whose notifications expire after ttl.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// SetClock replaces the time source, for tests.
func (c *Center) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Subscribe registers fn for every new notification. fn runs on the caller's goroutine.
func (c *Center) Subscribe(fn func(Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Push adds a notification and returns it.
func (c *Center) Push(level Level, msg string) Notification {
	c.mu.Lock()
	now := c.now()
	n := Notification{ID: uuid.NewString(), Level: level, Message: msg, CreatedAt: now, ExpiresAt: now.Add(c.ttl)}
	c.items = append(c.items, n)
	subs := append([]func(Notification){}, c.subs...)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
	return n
}

func (c *Center) Info(msg string)  { c.Push(LevelInfo, msg) }
func (c *Center) Warn(msg string)  { c.Push(LevelWarn, msg) }
func (c *Center) Error(msg string) { c.Push(LevelError, msg) }

// Dismiss removes a notification. It reports whether it was present.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Active prunes expired notifications and returns the rest, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	kept := c.items[:0]
	for _, n := range c.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	c.items = kept
	return append([]Notification(nil), kept...)
}
