/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transform holds the spatial state of slide elements and the
// handle-specific resize math applied during pointer gestures.
//
// Two shapes exist: Scaled for images and logos (position plus scale factors)
// and Box for text (position plus explicit pixel width/height). All functions
// are pure; callers own the live values.
package transform

import (
	"errors"
	"fmt"
	"math"

	"slidedeck/internal/geom"
)

// Bounds enforced by every resize.
const (
	MinScale      = 0.2
	MaxScale      = 3.0
	MinTextWidth  = 100.0
	MinTextHeight = 50.0
)

// Rates applied to the cumulative pointer delta.
const (
	cornerRate  = 0.003
	sideRate    = 0.002
	anchorShift = 0.25
)

// ErrOutOfRange reports a transform that violates its bounds.
var ErrOutOfRange = errors.New("transform out of range")

// Scaled is the transform of an image or logo element.
// Scale drives proportional resizing; ScaleX/ScaleY are only written by image side handles.
type Scaled struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
	Scale  float64 `json:"scale"`
}

// DefaultScaled is the seed used when no transform was persisted.
func DefaultScaled() Scaled { return Scaled{ScaleX: 1, ScaleY: 1, Scale: 1} }

type field struct {
	name string
	v    float64
}

// Validate checks finiteness and scale bounds. Fields are checked in
// declaration order, so the first offending field is always the one reported.
func (s Scaled) Validate() error {
	fields := []field{{"x", s.X}, {"y", s.Y}, {"scaleX", s.ScaleX}, {"scaleY", s.ScaleY}, {"scale", s.Scale}}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrOutOfRange, f.name)
		}
	}
	for _, f := range fields[2:] {
		if f.v < MinScale || f.v > MaxScale {
			return fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrOutOfRange, f.name, f.v, MinScale, MaxScale)
		}
	}
	return nil
}

// Normalize repairs a persisted transform: non-finite positions become 0,
// zero scales (absent in older documents) become 1, everything else is clamped.
func (s Scaled) Normalize() Scaled {
	fix := func(v float64) float64 {
		if v == 0 {
			return 1
		}
		return clampScale(v)
	}
	return Scaled{X: finiteOr(s.X, 0), Y: finiteOr(s.Y, 0), ScaleX: fix(s.ScaleX), ScaleY: fix(s.ScaleY), Scale: fix(s.Scale)}
}

// Moved returns s translated by (dx, dy).
func (s Scaled) Moved(dx, dy float64) Scaled {
	s.X += dx
	s.Y += dy
	return s
}

// Box is the transform of a text element. Width and Height are optional;
// nil means "use the rendered size".
type Box struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// Validate checks finiteness and the text size floor.
func (b Box) Validate() error {
	if math.IsNaN(b.X) || math.IsInf(b.X, 0) || math.IsNaN(b.Y) || math.IsInf(b.Y, 0) {
		return fmt.Errorf("%w: position is not finite", ErrOutOfRange)
	}
	if b.Width != nil && !(*b.Width >= MinTextWidth) {
		return fmt.Errorf("%w: width=%v below %v", ErrOutOfRange, *b.Width, MinTextWidth)
	}
	if b.Height != nil && !(*b.Height >= MinTextHeight) {
		return fmt.Errorf("%w: height=%v below %v", ErrOutOfRange, *b.Height, MinTextHeight)
	}
	return nil
}

// Normalize repairs a persisted box the same way Scaled.Normalize does.
func (b Box) Normalize() Box {
	out := Box{X: finiteOr(b.X, 0), Y: finiteOr(b.Y, 0)}
	if b.Width != nil {
		out.Width = Float(math.Max(MinTextWidth, finiteOr(*b.Width, MinTextWidth)))
	}
	if b.Height != nil {
		out.Height = Float(math.Max(MinTextHeight, finiteOr(*b.Height, MinTextHeight)))
	}
	return out
}

// Moved returns b translated by (dx, dy). Width/Height pointers are copied.
func (b Box) Moved(dx, dy float64) Box {
	out := b.Clone()
	out.X += dx
	out.Y += dy
	return out
}

// Clone returns a deep copy so callers never share the optional size fields.
func (b Box) Clone() Box {
	out := Box{X: b.X, Y: b.Y}
	if b.Width != nil {
		out.Width = Float(*b.Width)
	}
	if b.Height != nil {
		out.Height = Float(*b.Height)
	}
	return out
}

// Size resolves the box size, falling back to the rendered size for absent fields.
func (b Box) Size(rendered geom.Size) geom.Size {
	sz := rendered
	if b.Width != nil {
		sz.W = *b.Width
	}
	if b.Height != nil {
		sz.H = *b.Height
	}
	return sz
}

// Equal compares two boxes by value.
func (b Box) Equal(o Box) bool {
	return b.X == o.X && b.Y == o.Y && optEqual(b.Width, o.Width) && optEqual(b.Height, o.Height)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func optEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func clampScale(v float64) float64 { return geom.Clamp(v, MinScale, MaxScale) }

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
