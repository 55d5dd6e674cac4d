/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor implements the interactive selection, drag and resize engine
// behind every editable slide element.
//
// A Slide mounts one Controller per element. Controllers share a Coordinator,
// which keeps at most one element selected, a PointerBus, which admits at most
// one active gesture, and a Toolbar that follows the selected text element.
// Live transforms change on every pointer move; the UpdateFunc only sees
// content replacements and one commit per finished gesture.
//
// Nothing in this package is safe for concurrent use. All calls are expected
// on the UI goroutine.
package editor

import (
	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
	"slidedeck/internal/patch"
	"slidedeck/internal/transform"
)

// UpdateFunc receives persisted changes. It is fire-and-forget.
type UpdateFunc func(patch.Update)

// Entity identifies an element and its variant.
type Entity struct {
	ID   string
	Kind domain.Kind
	Role domain.Role
}

// EntityOf derives the entity of a stored element.
func EntityOf(el domain.Element) Entity { return Entity{ID: el.ID, Kind: el.Kind, Role: el.Role} }

// IsText reports whether the entity is a text element.
func (e Entity) IsText() bool { return e.Kind == domain.KindText }

// Mode is the coarse interaction state of one element.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSelected
	ModeDragging
	ModeResizing
)

func (m Mode) String() string {
	switch m {
	case ModeSelected:
		return "selected"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	}
	return "idle"
}

// State is the observable runtime state of one element. Scaled is meaningful
// for images and logos, Box for text.
type State struct {
	Kind       domain.Kind
	IsSelected bool
	IsDragging bool
	DragHandle transform.Handle
	Scaled     transform.Scaled
	Box        transform.Box
	Content    string
	Hidden     bool
	Editing    bool
	Style      domain.Style
}

// Mode derives the state-machine position from the flags.
func (s State) Mode() Mode {
	switch {
	case s.IsDragging && s.DragHandle == transform.HandleMove:
		return ModeDragging
	case s.IsDragging:
		return ModeResizing
	case s.IsSelected:
		return ModeSelected
	}
	return ModeIdle
}

// Position is the element's top-left corner in slide coordinates.
func (s State) Position() geom.Pt {
	if s.Kind.Scaled() {
		return geom.Pt{X: s.Scaled.X, Y: s.Scaled.Y}
	}
	return geom.Pt{X: s.Box.X, Y: s.Box.Y}
}

func (s State) clone() State {
	s.Box = s.Box.Clone()
	return s
}

func stateOf(el domain.Element) State {
	st := State{Kind: el.Kind, Content: el.Content, Hidden: el.Hidden}
	if el.Kind.Scaled() {
		st.Scaled = el.ScaledOrDefault()
	} else {
		st.Box = el.BoxOrDefault()
		st.Style = el.StyleOrDefault()
	}
	return st
}
