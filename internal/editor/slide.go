/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"log/slog"

	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
	applog "slidedeck/internal/log"
	"slidedeck/internal/patch"
)

// DefaultToolbarOffset places the toolbar above its element.
var DefaultToolbarOffset = geom.Pt{X: 0, Y: -56}

// Options configure a Slide.
type Options struct {
	Services      Services
	ToolbarOffset *geom.Pt
	Logger        *slog.Logger
}

// Slide is the editing session of one slide: its controllers, the selection
// coordinator, the pointer bus and the toolbar.
type Slide struct {
	id       string
	coord    *Coordinator
	bus      *PointerBus
	toolbar  *Toolbar
	onUpdate UpdateFunc
	svc      Services
	log      *slog.Logger
}

// NewSlide mounts every element of s. onUpdate may be nil.
func NewSlide(s domain.Slide, onUpdate UpdateFunc, opts Options) (*Slide, error) {
	offset := DefaultToolbarOffset
	if opts.ToolbarOffset != nil {
		offset = *opts.ToolbarOffset
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	sl := &Slide{
		id:       s.ID,
		coord:    NewCoordinator(),
		bus:      NewPointerBus(),
		toolbar:  NewToolbar(offset),
		onUpdate: onUpdate,
		svc:      opts.Services,
		log:      l.With(slog.String("slide", s.ID)),
	}
	for _, el := range s.Elements {
		if _, err := sl.Mount(el); err != nil {
			return nil, err
		}
	}
	return sl, nil
}

// Mount creates and registers the controller of el, seeded from its stored transform.
func (s *Slide) Mount(el domain.Element) (*Controller, error) {
	if el.ID == "" {
		return nil, fmt.Errorf("mount: %w: empty id", domain.ErrInvalidElement)
	}
	switch el.Kind {
	case domain.KindImage, domain.KindLogo, domain.KindText:
	default:
		return nil, fmt.Errorf("mount %s: %w: kind %q", el.ID, domain.ErrInvalidElement, el.Kind)
	}
	c := &Controller{
		entity: EntityOf(el),
		state:  stateOf(el),
		slide:  s,
		log:    s.log,
	}
	if err := s.coord.Register(c); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	return c, nil
}

// Unmount removes an element's controller.
func (s *Slide) Unmount(id string) {
	if t := s.toolbar.Target(); t != nil && t.ID() == id {
		s.toolbar.Close()
	}
	s.coord.Unregister(id)
}

func (s *Slide) ID() string                 { return s.id }
func (s *Slide) Coordinator() *Coordinator  { return s.coord }
func (s *Slide) Bus() *PointerBus           { return s.bus }
func (s *Slide) Toolbar() *Toolbar          { return s.toolbar }
func (s *Slide) Controllers() []*Controller { return s.coord.Controllers() }

func (s *Slide) Controller(id string) (*Controller, bool) { return s.coord.Controller(id) }

func (s *Slide) emit(u patch.Update) {
	if s.onUpdate != nil && !u.Empty() {
		s.onUpdate(u)
	}
}

// Tap routes a click. Clicks outside every interactive region deselect all;
// clicks on the toolbar or a handle leave the selection alone.
func (s *Slide) Tap(ev PointerEvent) {
	hit := Classify(ev.Target)
	switch hit.Region {
	case RegionOutside:
		s.coord.DeselectAll()
	case RegionElement, RegionEditable:
		if c, ok := s.coord.Controller(hit.ElementID); ok {
			c.Handlers().OnClick(ev)
		}
	}
}

// DragStart routes the first drag event to a resize or move gesture.
func (s *Slide) DragStart(ev PointerEvent) bool {
	hit := Classify(ev.Target)
	c, ok := s.coord.Controller(hit.ElementID)
	if !ok {
		return false
	}
	h := c.Handlers()
	if hit.Region == RegionHandle {
		return h.OnResizeStart(hit.Handle, ev)
	}
	return h.OnDragStart(ev)
}

// DragMove forwards pointer motion to the active gesture.
func (s *Slide) DragMove(p geom.Pt) { s.bus.Move(p) }

// DragEnd forwards the pointer release. It always ends the active gesture.
func (s *Slide) DragEnd(p geom.Pt) { s.bus.Release(p) }

// Escape cancels in-progress text editing. Gestures are unaffected.
func (s *Slide) Escape() {
	for _, c := range s.coord.Controllers() {
		c.CancelEdit()
	}
}
