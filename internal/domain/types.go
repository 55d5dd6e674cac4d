/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the deck document model: a deck holds slides, a slide holds
// the editable elements the selection engine operates on. Decks serialize to the
// human-readable deck.json manifest.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"slidedeck/internal/transform"
)

// Slide canvas size in points. Element transforms are expressed in this space.
const (
	SlideWidth  = 960.0
	SlideHeight = 540.0
)

// ErrInvalidElement reports an element whose kind and transform do not match.
var ErrInvalidElement = errors.New("invalid element")

// Kind tags the variant of an element.
type Kind string

const (
	KindImage Kind = "image"
	KindLogo  Kind = "logo"
	KindText  Kind = "text"
)

// Scaled reports whether the kind uses the scale-based transform.
func (k Kind) Scaled() bool { return k == KindImage || k == KindLogo }

// Role identifies a text element inside its layout.
type Role string

const (
	RoleTitle       Role = "title"
	RoleDescription Role = "description"
)

// BulletTitle returns the role of the title of list item i.
func BulletTitle(i int) Role { return Role("bullet" + strconv.Itoa(i) + "-title") }

// BulletDescription returns the role of the description of list item i.
func BulletDescription(i int) Role { return Role("bullet" + strconv.Itoa(i) + "-description") }

// Bullet decodes a bullet role into its item index and field ("title" or "description").
func (r Role) Bullet() (index int, field string, ok bool) {
	s, found := strings.CutPrefix(string(r), "bullet")
	if !found {
		return 0, "", false
	}
	num, field, found := strings.Cut(s, "-")
	if !found || (field != "title" && field != "description") {
		return 0, "", false
	}
	i, err := strconv.Atoi(num)
	if err != nil || i < 0 {
		return 0, "", false
	}
	return i, field, true
}

// Valid reports whether r is a known text role.
func (r Role) Valid() bool {
	if r == RoleTitle || r == RoleDescription {
		return true
	}
	_, _, ok := r.Bullet()
	return ok
}

// Align is a horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Style carries the toolbar-editable text attributes.
type Style struct {
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
	Color    string  `json:"color,omitempty"` // #rrggbb
	Align    Align   `json:"align,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
	Italic   bool    `json:"italic,omitempty"`
}

// DefaultStyle is used for text elements without a stored style.
func DefaultStyle() Style {
	return Style{Font: "Helvetica", FontSize: 24, Color: "#222222", Align: AlignLeft}
}

// Element is one editable item on a slide. Exactly one of Scaled (image, logo)
// or Box (text) is set.
type Element struct {
	ID      string            `json:"id"`
	Kind    Kind              `json:"kind"`
	Role    Role              `json:"role,omitempty"`
	Content string            `json:"content,omitempty"` // URL for image/logo, text otherwise
	Scaled  *transform.Scaled `json:"scaled,omitempty"`
	Box     *transform.Box    `json:"box,omitempty"`
	Style   *Style            `json:"style,omitempty"`
	Hidden  bool              `json:"hidden,omitempty"`
}

// NewImage creates an image element at (x, y) with the default scale.
func NewImage(x, y float64) Element {
	s := transform.DefaultScaled().Moved(x, y)
	return Element{ID: NewID(), Kind: KindImage, Scaled: &s}
}

// NewLogo creates a logo element at (x, y) with the default scale.
func NewLogo(x, y float64) Element {
	s := transform.DefaultScaled().Moved(x, y)
	return Element{ID: NewID(), Kind: KindLogo, Scaled: &s}
}

// NewText creates a text element with the given role and initial content.
func NewText(role Role, content string, box transform.Box) Element {
	b := box.Clone()
	st := DefaultStyle()
	return Element{ID: NewID(), Kind: KindText, Role: role, Content: content, Box: &b, Style: &st}
}

// Validate checks that the element's variant and transform agree.
func (e Element) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidElement)
	}
	switch e.Kind {
	case KindImage, KindLogo:
		if e.Box != nil || e.Role != "" {
			return fmt.Errorf("%w: %s %s carries text fields", ErrInvalidElement, e.Kind, e.ID)
		}
		if e.Scaled != nil {
			if err := e.Scaled.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidElement, e.ID, err)
			}
		}
	case KindText:
		if e.Scaled != nil {
			return fmt.Errorf("%w: text %s carries a scale", ErrInvalidElement, e.ID)
		}
		if !e.Role.Valid() {
			return fmt.Errorf("%w: text %s has unknown role %q", ErrInvalidElement, e.ID, e.Role)
		}
		if e.Box != nil {
			if err := e.Box.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidElement, e.ID, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidElement, e.Kind)
	}
	return nil
}

// ScaledOrDefault returns the stored scale transform or the default seed.
func (e Element) ScaledOrDefault() transform.Scaled {
	if e.Scaled == nil {
		return transform.DefaultScaled()
	}
	return e.Scaled.Normalize()
}

// BoxOrDefault returns a copy of the stored box or the zero box.
func (e Element) BoxOrDefault() transform.Box {
	if e.Box == nil {
		return transform.Box{}
	}
	return e.Box.Normalize()
}

// StyleOrDefault returns the stored style or DefaultStyle.
func (e Element) StyleOrDefault() Style {
	if e.Style == nil {
		return DefaultStyle()
	}
	return *e.Style
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	out := e
	if e.Scaled != nil {
		s := *e.Scaled
		out.Scaled = &s
	}
	if e.Box != nil {
		b := e.Box.Clone()
		out.Box = &b
	}
	if e.Style != nil {
		st := *e.Style
		out.Style = &st
	}
	return out
}

// Slide is one page of a deck.
type Slide struct {
	ID       string    `json:"id"`
	Layout   Layout    `json:"layout"`
	Elements []Element `json:"elements"`
	Notes    string    `json:"notes,omitempty"`
}

// Element returns a pointer to the element with the given id.
func (s *Slide) Element(id string) (*Element, bool) {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return &s.Elements[i], true
		}
	}
	return nil, false
}

// Deck is the root document.
type Deck struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Metadata Metadata `json:"metadata,omitempty"`
	Slides   []Slide  `json:"slides"`
}

// Metadata contains optional descriptive information.
type Metadata struct {
	Author string `json:"author,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// NewDeck creates a deck with a single title slide.
func NewDeck(title string) Deck {
	first, _ := NewSlide(LayoutTitle, 0)
	if el, ok := first.ElementByRole(RoleTitle); ok {
		el.Content = title
	}
	return Deck{ID: NewID(), Title: title, Slides: []Slide{first}}
}

// Slide returns a pointer to the slide with the given id.
func (d *Deck) Slide(id string) (*Slide, bool) {
	for i := range d.Slides {
		if d.Slides[i].ID == id {
			return &d.Slides[i], true
		}
	}
	return nil, false
}

// FindElement locates an element anywhere in the deck.
func (d *Deck) FindElement(id string) (*Slide, *Element, bool) {
	for i := range d.Slides {
		if el, ok := d.Slides[i].Element(id); ok {
			return &d.Slides[i], el, true
		}
	}
	return nil, nil, false
}

// Validate checks ids are unique and every element is consistent.
func (d Deck) Validate() error {
	seen := map[string]bool{}
	for _, s := range d.Slides {
		if s.ID == "" || seen[s.ID] {
			return fmt.Errorf("%w: duplicate or empty slide id %q", ErrInvalidElement, s.ID)
		}
		seen[s.ID] = true
		for _, el := range s.Elements {
			if seen[el.ID] {
				return fmt.Errorf("%w: duplicate id %q", ErrInvalidElement, el.ID)
			}
			seen[el.ID] = true
			if err := el.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewID returns a fresh random identifier.
func NewID() string { return uuid.NewString() }
