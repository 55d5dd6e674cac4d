/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"

	"slidedeck/internal/geom"
)

// ErrGestureActive is returned when a second gesture tries to subscribe.
var ErrGestureActive = errors.New("a gesture is already active")

// PointerListener receives slide-wide pointer motion while it holds the bus.
type PointerListener interface {
	PointerMoved(p geom.Pt)
	PointerReleased(p geom.Pt)
}

// PointerBus forwards pointer move and release events to at most one listener.
// Listeners acquire it for the length of a gesture and must call the returned
// release func when done; Release also drops the listener after dispatch.
type PointerBus struct {
	l   PointerListener
	gen uint64
}

func NewPointerBus() *PointerBus { return &PointerBus{} }

// Acquire subscribes l. The returned func is idempotent and only releases this subscription.
func (b *PointerBus) Acquire(l PointerListener) (func(), error) {
	if l == nil {
		return nil, errors.New("nil pointer listener")
	}
	if b.l != nil {
		return nil, ErrGestureActive
	}
	b.gen++
	gen := b.gen
	b.l = l
	return func() {
		if b.gen == gen {
			b.l = nil
		}
	}, nil
}

// Active reports whether a listener holds the bus.
func (b *PointerBus) Active() bool { return b.l != nil }

// Move dispatches a pointer move in delivery order.
func (b *PointerBus) Move(p geom.Pt) {
	if b.l != nil {
		b.l.PointerMoved(p)
	}
}

// Release dispatches the pointer release and always ends the subscription.
func (b *PointerBus) Release(p geom.Pt) {
	l, gen := b.l, b.gen
	if l == nil {
		return
	}
	defer func() {
		if b.gen == gen {
			b.l = nil
		}
	}()
	l.PointerReleased(p)
}
