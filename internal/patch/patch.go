/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package patch defines the closed set of partial element updates reported
// through the persistence bridge, and the single reducer that applies them.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"

	"slidedeck/internal/domain"
	"slidedeck/internal/transform"
)

// ErrIllegal reports a patch that does not apply to the element's kind.
var ErrIllegal = errors.New("illegal patch")

// Type is the discriminator used in the JSON encoding.
type Type string

const (
	TypePosition   Type = "position"
	TypeScale      Type = "scale"
	TypeBoxSize    Type = "boxSize"
	TypeContent    Type = "content"
	TypeStyle      Type = "style"
	TypeVisibility Type = "visibility"
)

// Patch is one field-category change. The set of implementations is closed.
type Patch interface {
	Type() Type
	sealed()
}

// Position moves an element.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale sets the scale factors of an image or logo.
type Scale struct {
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
	Scale  float64 `json:"scale"`
}

// BoxSize sets the explicit size of a text box. Nil fields are left unchanged.
type BoxSize struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// Content replaces the URL (image, logo) or text of an element.
type Content struct {
	Value string `json:"value"`
}

// Style replaces the text style of a text element.
type Style struct {
	Style domain.Style `json:"style"`
}

// Visibility shows or hides an element.
type Visibility struct {
	Visible bool `json:"visible"`
}

func (Position) Type() Type   { return TypePosition }
func (Scale) Type() Type      { return TypeScale }
func (BoxSize) Type() Type    { return TypeBoxSize }
func (Content) Type() Type    { return TypeContent }
func (Style) Type() Type      { return TypeStyle }
func (Visibility) Type() Type { return TypeVisibility }

func (Position) sealed()   {}
func (Scale) sealed()      {}
func (BoxSize) sealed()    {}
func (Content) sealed()    {}
func (Style) sealed()      {}
func (Visibility) sealed() {}

// Allowed reports whether a patch of type t may be applied to an element of kind k.
func Allowed(k domain.Kind, t Type) bool {
	switch t {
	case TypePosition, TypeContent, TypeVisibility:
		return true
	case TypeScale:
		return k.Scaled()
	case TypeBoxSize, TypeStyle:
		return k == domain.KindText
	}
	return false
}

// Apply returns a copy of el with p applied. The input element is not modified.
func Apply(el domain.Element, p Patch) (domain.Element, error) {
	if p == nil {
		return el, fmt.Errorf("%w: nil patch", ErrIllegal)
	}
	if !Allowed(el.Kind, p.Type()) {
		return el, fmt.Errorf("%w: %s on %s element %s", ErrIllegal, p.Type(), el.Kind, el.ID)
	}
	out := el.Clone()
	switch v := p.(type) {
	case Position:
		if el.Kind.Scaled() {
			s := out.ScaledOrDefault()
			s.X, s.Y = v.X, v.Y
			out.Scaled = &s
		} else {
			b := out.BoxOrDefault()
			b.X, b.Y = v.X, v.Y
			out.Box = &b
		}
	case Scale:
		s := out.ScaledOrDefault()
		s.ScaleX, s.ScaleY, s.Scale = v.ScaleX, v.ScaleY, v.Scale
		s = s.Normalize()
		out.Scaled = &s
	case BoxSize:
		b := out.BoxOrDefault()
		if v.Width != nil {
			b.Width = transform.Float(*v.Width)
		}
		if v.Height != nil {
			b.Height = transform.Float(*v.Height)
		}
		b = b.Normalize()
		out.Box = &b
	case Content:
		out.Content = v.Value
	case Style:
		st := v.Style
		out.Style = &st
	case Visibility:
		out.Hidden = !v.Visible
	default:
		return el, fmt.Errorf("%w: unknown patch %T", ErrIllegal, p)
	}
	return out, nil
}

// Update is one call into the persistence bridge: a set of patches for one element.
type Update struct {
	ElementID string
	Patches   []Patch
}

// Empty reports whether u carries no patches.
func (u Update) Empty() bool { return len(u.Patches) == 0 }

// Types lists the patch types in order.
func (u Update) Types() []Type {
	out := make([]Type, len(u.Patches))
	for i, p := range u.Patches {
		out[i] = p.Type()
	}
	return out
}

// Find returns the first patch of type t.
func (u Update) Find(t Type) (Patch, bool) {
	for _, p := range u.Patches {
		if p.Type() == t {
			return p, true
		}
	}
	return nil, false
}

// ApplyUpdate applies every patch of u to el. On error el is returned unchanged.
func ApplyUpdate(el domain.Element, u Update) (domain.Element, error) {
	if u.ElementID != el.ID {
		return el, fmt.Errorf("%w: update for %s applied to %s", ErrIllegal, u.ElementID, el.ID)
	}
	out := el
	for _, p := range u.Patches {
		next, err := Apply(out, p)
		if err != nil {
			return el, err
		}
		out = next
	}
	return out, nil
}

type wirePatch struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireUpdate struct {
	ElementID string      `json:"elementId"`
	Patches   []wirePatch `json:"patches"`
}

// MarshalJSON encodes u with a type discriminator per patch.
func (u Update) MarshalJSON() ([]byte, error) {
	w := wireUpdate{ElementID: u.ElementID, Patches: make([]wirePatch, 0, len(u.Patches))}
	for _, p := range u.Patches {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		w.Patches = append(w.Patches, wirePatch{Type: p.Type(), Data: b})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the format written by MarshalJSON.
func (u *Update) UnmarshalJSON(b []byte) error {
	var w wireUpdate
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	u.ElementID = w.ElementID
	u.Patches = u.Patches[:0]
	for _, wp := range w.Patches {
		p, err := decode(wp)
		if err != nil {
			return err
		}
		u.Patches = append(u.Patches, p)
	}
	return nil
}

func decode(wp wirePatch) (Patch, error) {
	var err error
	switch wp.Type {
	case TypePosition:
		var v Position
		err = json.Unmarshal(wp.Data, &v)
		return v, err
	case TypeScale:
		var v Scale
		err = json.Unmarshal(wp.Data, &v)
		return v, err
	case TypeBoxSize:
		var v BoxSize
		err = json.Unmarshal(wp.Data, &v)
		return v, err
	case TypeContent:
		var v Content
		err = json.Unmarshal(wp.Data, &v)
		return v, err
	case TypeStyle:
		var v Style
		err = json.Unmarshal(wp.Data, &v)
		return v, err
	case TypeVisibility:
		var v Visibility
		err = json.Unmarshal(wp.Data, &v)
		return v, err
	}
	return nil, fmt.Errorf("%w: unknown patch type %q", ErrIllegal, wp.Type)
}
