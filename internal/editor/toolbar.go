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
	"fmt"
	"math"
	"regexp"
	"strings"

	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
)

// ErrNoTarget is returned by toolbar actions when no text element was ever targeted.
var ErrNoTarget = errors.New("toolbar has no target element")

// Font size bounds accepted by the toolbar.
const (
	MinFontSize = 8.0
	MaxFontSize = 200.0
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Toolbar is the floating style toolbar of a slide. It anchors above the
// selected text element and follows it through drags. Deselecting the element
// keeps the toolbar open on its last target; only selecting a different
// element re-anchors it.
type Toolbar struct {
	offset geom.Pt

	open     bool
	target   *Controller
	original geom.Pt
	live     geom.Pt

	dragging  bool
	dragStart geom.Pt
	unobserve func()
}

// NewToolbar returns a closed toolbar placed at offset from its target's top-left corner.
func NewToolbar(offset geom.Pt) *Toolbar { return &Toolbar{offset: offset} }

// Open reports whether the toolbar is visible.
func (t *Toolbar) Open() bool { return t.open }

// Target returns the last targeted element, which may no longer be selected.
func (t *Toolbar) Target() *Controller { return t.target }

// Position is the live toolbar position in slide coordinates.
func (t *Toolbar) Position() geom.Pt { return t.live }

// Anchor opens the toolbar on c. It is a no-op while already open on c.
func (t *Toolbar) Anchor(c *Controller) {
	if t.open && t.target == c {
		return
	}
	if t.unobserve != nil {
		t.unobserve()
	}
	t.target = c
	t.open = true
	t.dragging = false
	t.original = c.Bounds().Min().Add(t.offset)
	t.live = t.original
	t.unobserve = c.Observe(t.track)
}

func (t *Toolbar) track(prev, next State) {
	if !prev.IsDragging && next.IsDragging {
		t.dragging = true
		t.dragStart = prev.Position()
	}
	if t.dragging {
		t.live = t.original.Add(next.Position().Sub(t.dragStart))
	}
	if prev.IsDragging && !next.IsDragging {
		t.dragging = false
		t.original = t.live
	}
}

// Close hides the toolbar and forgets its target.
func (t *Toolbar) Close() {
	if t.unobserve != nil {
		t.unobserve()
		t.unobserve = nil
	}
	t.open = false
	t.target = nil
	t.dragging = false
}

func (t *Toolbar) restyle(mut func(*domain.Style) error) error {
	if t.target == nil {
		return ErrNoTarget
	}
	st := t.target.state.Style
	if err := mut(&st); err != nil {
		return err
	}
	return t.target.Restyle(st)
}

// SetFontSize sets the font size, clamped to [MinFontSize, MaxFontSize].
func (t *Toolbar) SetFontSize(size float64) error {
	return t.restyle(func(st *domain.Style) error {
		if math.IsNaN(size) || math.IsInf(size, 0) {
			return fmt.Errorf("font size %v is not finite", size)
		}
		st.FontSize = geom.Clamp(size, MinFontSize, MaxFontSize)
		return nil
	})
}

// StepFontSize grows or shrinks the font size by delta points.
func (t *Toolbar) StepFontSize(delta float64) error {
	if t.target == nil {
		return ErrNoTarget
	}
	return t.SetFontSize(t.target.state.Style.FontSize + delta)
}

func (t *Toolbar) SetFont(name string) error {
	return t.restyle(func(st *domain.Style) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return errors.New("empty font name")
		}
		st.Font = name
		return nil
	})
}

// SetColor accepts #rrggbb.
func (t *Toolbar) SetColor(hex string) error {
	return t.restyle(func(st *domain.Style) error {
		if !hexColor.MatchString(hex) {
			return fmt.Errorf("invalid color %q", hex)
		}
		st.Color = strings.ToLower(hex)
		return nil
	})
}

func (t *Toolbar) SetAlign(a domain.Align) error {
	return t.restyle(func(st *domain.Style) error {
		switch a {
		case domain.AlignLeft, domain.AlignCenter, domain.AlignRight:
			st.Align = a
			return nil
		}
		return fmt.Errorf("invalid alignment %q", a)
	})
}

func (t *Toolbar) ToggleBold() error {
	return t.restyle(func(st *domain.Style) error { st.Bold = !st.Bold; return nil })
}

func (t *Toolbar) ToggleItalic() error {
	return t.restyle(func(st *domain.Style) error { st.Italic = !st.Italic; return nil })
}

// Delete deletes the target element and closes the toolbar.
func (t *Toolbar) Delete() error {
	if t.target == nil {
		return ErrNoTarget
	}
	t.target.Delete()
	t.Close()
	return nil
}
