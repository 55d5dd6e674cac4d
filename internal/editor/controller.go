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
	"log/slog"

	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
	"slidedeck/internal/patch"
	"slidedeck/internal/transform"
)

// ErrNotText is returned by text-only operations on images and logos.
var ErrNotText = errors.New("element is not a text element")

// ErrNotImage is returned by image-only operations on text elements.
var ErrNotImage = errors.New("element is not an image or logo")

// Controller owns the runtime state of one element.
type Controller struct {
	entity   Entity
	state    State
	slide    *Slide
	g        *gesture
	rendered geom.Size
	preEdit  string

	observers map[int]func(prev, next State)
	nextObs   int
	log       *slog.Logger
}

// Handlers are the UI callbacks of one element.
type Handlers struct {
	OnClick          func(ev PointerEvent)
	OnDragStart      func(ev PointerEvent) bool
	OnResizeStart    func(h transform.Handle, ev PointerEvent) bool
	OnDelete         func()
	OnContentReplace func(value string)
}

// PointerEvent is a press at Pos on the UI node Target (which may be nil).
type PointerEvent struct {
	Pos    geom.Pt
	Target Node
}

func (c *Controller) Entity() Entity { return c.entity }
func (c *Controller) ID() string     { return c.entity.ID }

// State returns a copy of the current runtime state.
func (c *Controller) State() State { return c.state.clone() }

// SetRenderedSize records the unscaled on-screen size of the element. Text
// resizes fall back to it when the box has no explicit width or height.
func (c *Controller) SetRenderedSize(sz geom.Size) {
	if sz.W >= 0 && sz.H >= 0 {
		c.rendered = sz
	}
}

// Bounds is the element rectangle in slide coordinates.
func (c *Controller) Bounds() geom.Rect {
	p := c.state.Position()
	if c.entity.Kind.Scaled() {
		s := c.state.Scaled
		return geom.R(p.X, p.Y, c.rendered.W*s.Scale*s.ScaleX, c.rendered.H*s.Scale*s.ScaleY)
	}
	sz := c.state.Box.Size(c.rendered)
	return geom.R(p.X, p.Y, sz.W, sz.H)
}

// Observe registers fn for every state change and returns its cancel func.
func (c *Controller) Observe(fn func(prev, next State)) func() {
	if c.observers == nil {
		c.observers = map[int]func(prev, next State){}
	}
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() { delete(c.observers, id) }
}

func (c *Controller) set(mut func(*State)) {
	prev := c.state.clone()
	mut(&c.state)
	next := c.state.clone()
	for i := 0; i < c.nextObs; i++ {
		if fn, ok := c.observers[i]; ok {
			fn(prev, next)
		}
	}
}

// Select selects the element and deselects every sibling. A second call on a
// selected image or logo toggles it off; text selection never toggles and
// opens the toolbar.
func (c *Controller) Select() {
	if c.state.IsSelected {
		if c.entity.IsText() {
			c.slide.toolbar.Anchor(c)
		} else {
			c.Deselect()
		}
		return
	}
	c.slide.coord.claim(c)
	c.set(func(s *State) { s.IsSelected = true })
	if c.entity.IsText() {
		c.slide.toolbar.Anchor(c)
	}
}

// Deselect clears the selection and commits any running gesture or text edit.
// The toolbar stays open.
func (c *Controller) Deselect() {
	if c.g != nil {
		c.g.finish()
	}
	if c.state.Editing {
		c.CommitEdit()
	}
	if !c.state.IsSelected {
		return
	}
	c.set(func(s *State) { s.IsSelected = false })
	c.slide.coord.released(c)
}

// StartGesture arms a move gesture at ev.Pos. It does nothing unless the
// element is selected, and ignores presses that landed on a resize handle or
// inside text being edited.
func (c *Controller) StartGesture(ev PointerEvent) bool {
	if !c.state.IsSelected {
		return false
	}
	if ev.Target != nil {
		hit := Classify(ev.Target)
		if hit.Region == RegionHandle || (c.state.Editing && hit.Region == RegionEditable) {
			return false
		}
	}
	return c.begin(transform.HandleMove, ev.Pos)
}

// StartResize arms a resize gesture from handle h.
func (c *Controller) StartResize(h transform.Handle, ev PointerEvent) bool {
	if !c.state.IsSelected || !h.IsResize() {
		return false
	}
	return c.begin(h, ev.Pos)
}

func (c *Controller) begin(h transform.Handle, p geom.Pt) bool {
	if c.g != nil || !p.Finite() {
		return false
	}
	g := &gesture{
		c:           c,
		handle:      h,
		startPtr:    p,
		lastPtr:     p,
		startScaled: c.state.Scaled,
		startBox:    c.state.Box.Clone(),
		rendered:    c.rendered,
	}
	release, err := c.slide.bus.Acquire(g)
	if err != nil {
		c.log.Debug("gesture rejected", slog.String("id", c.entity.ID), slog.Any("err", err))
		return false
	}
	g.release = release
	c.g = g
	c.set(func(s *State) {
		s.IsDragging = true
		s.DragHandle = h
	})
	c.log.Debug("gesture start", slog.String("id", c.entity.ID), slog.String("handle", h.String()))
	return true
}

func (c *Controller) applyLive(s transform.Scaled, b transform.Box) {
	c.set(func(st *State) {
		if c.entity.Kind.Scaled() {
			st.Scaled = s
		} else {
			st.Box = b
		}
	})
}

func (c *Controller) endGesture(g *gesture) {
	if c.g != g {
		return
	}
	c.g = nil
	c.set(func(s *State) {
		s.IsDragging = false
		s.DragHandle = transform.HandleNone
	})
	var u patch.Update
	switch {
	case g.handle == transform.HandleMove:
		p := c.state.Position()
		u = patch.Move(c.entity.ID, p.X, p.Y)
	case c.entity.Kind.Scaled():
		u = patch.Resized(c.entity.ID, g.startScaled, c.state.Scaled)
	default:
		u = patch.ResizedBox(c.entity.ID, g.startBox, c.state.Box)
	}
	c.log.Debug("gesture commit", slog.String("id", c.entity.ID), slog.String("handle", g.handle.String()), slog.Int("moves", g.moves))
	c.slide.emit(u)
}

// ReplaceContent sets a new URL or text and persists it immediately.
// Replacing the content of a deleted element makes it visible again.
func (c *Controller) ReplaceContent(value string) {
	wasHidden := c.state.Hidden
	c.set(func(s *State) {
		s.Content = value
		s.Hidden = false
	})
	u := patch.Replace(c.entity.ID, value)
	if wasHidden {
		u.Patches = append(u.Patches, patch.Visibility{Visible: true})
	}
	c.slide.emit(u)
}

// Delete clears the content, hides the element and deselects it. The runtime
// state survives as an empty placeholder. A toolbar targeting the element
// closes.
func (c *Controller) Delete() {
	if c.g != nil {
		c.g.finish()
	}
	wasSelected := c.state.IsSelected
	c.set(func(s *State) {
		s.Content = ""
		s.Hidden = true
		s.Editing = false
		s.IsSelected = false
	})
	if wasSelected {
		c.slide.coord.released(c)
	}
	if c.slide.toolbar.Target() == c {
		c.slide.toolbar.Close()
	}
	c.slide.emit(patch.Delete(c.entity.ID))
}

// Restyle sets and persists the style of a text element.
func (c *Controller) Restyle(st domain.Style) error {
	if !c.entity.IsText() {
		return ErrNotText
	}
	c.set(func(s *State) { s.Style = st })
	c.slide.emit(patch.Restyle(c.entity.ID, st))
	return nil
}

// BeginEdit starts in-place text editing of a selected text element.
func (c *Controller) BeginEdit() bool {
	if !c.entity.IsText() || !c.state.IsSelected || c.state.Editing {
		return false
	}
	c.preEdit = c.state.Content
	c.set(func(s *State) { s.Editing = true })
	return true
}

// EditText updates the live text while editing. Nothing is persisted.
func (c *Controller) EditText(text string) {
	if !c.state.Editing {
		return
	}
	c.set(func(s *State) { s.Content = text })
}

// CommitEdit ends editing and persists the text if it changed.
func (c *Controller) CommitEdit() {
	if !c.state.Editing {
		return
	}
	c.set(func(s *State) { s.Editing = false })
	if c.state.Content != c.preEdit {
		c.slide.emit(patch.Replace(c.entity.ID, c.state.Content))
	}
}

// CancelEdit ends editing and restores the pre-edit text. Running gestures
// are not affected.
func (c *Controller) CancelEdit() {
	if !c.state.Editing {
		return
	}
	c.set(func(s *State) {
		s.Content = c.preEdit
		s.Editing = false
	})
}

// Handlers returns the callbacks a UI binds to this element.
func (c *Controller) Handlers() Handlers {
	return Handlers{
		OnClick: func(PointerEvent) {
			if c.entity.IsText() && c.state.IsSelected && !c.state.Editing {
				c.BeginEdit()
				return
			}
			c.Select()
		},
		OnDragStart: c.StartGesture,
		OnResizeStart: func(h transform.Handle, ev PointerEvent) bool {
			return c.StartResize(h, ev)
		},
		OnDelete:         c.Delete,
		OnContentReplace: c.ReplaceContent,
	}
}
