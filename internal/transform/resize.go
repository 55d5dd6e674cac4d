/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import (
	"math"

	"slidedeck/internal/geom"
)

// ResizeImage applies an image resize for handle h with cumulative pointer delta (dx, dy).
// Corners scale proportionally through Scale; side handles scale one axis and shift the
// position by a quarter of the delta so the opposite edge stays roughly in place.
func ResizeImage(start Scaled, h Handle, dx, dy float64) Scaled {
	out := start
	switch h {
	case HandleNW, HandleNE, HandleSW, HandleSE:
		out.Scale = clampScale(start.Scale * cornerFactor(h, dx, dy))
	case HandleN:
		out.ScaleY = clampScale(start.ScaleY * (1 + dy*-sideRate))
		out.Y = start.Y + dy*anchorShift
	case HandleS:
		out.ScaleY = clampScale(start.ScaleY * (1 + dy*sideRate))
	case HandleW:
		out.ScaleX = clampScale(start.ScaleX * (1 + dx*-sideRate))
		out.X = start.X + dx*anchorShift
	case HandleE:
		out.ScaleX = clampScale(start.ScaleX * (1 + dx*sideRate))
	}
	return out
}

// ResizeLogo applies the corner formula for every grip; logos never scale anisotropically.
func ResizeLogo(start Scaled, h Handle, dx, dy float64) Scaled {
	out := start
	if h.IsResize() {
		out.Scale = clampScale(start.Scale * cornerFactor(h, dx, dy))
	}
	return out
}

// cornerFactor grows when the pointer moves away from the element horizontally:
// leftwards for the west corners, rightwards for everything else.
func cornerFactor(h Handle, dx, dy float64) float64 {
	distance := math.Sqrt(dx*dx + dy*dy)
	direction := -1.0
	if h == HandleNW || h == HandleSW {
		if dx < 0 {
			direction = 1
		}
	} else if dx > 0 {
		direction = 1
	}
	return 1 + distance*direction*cornerRate
}

// ResizeBox applies a text resize in pixels. rendered supplies the size used when the
// start box has no explicit width or height. Position is never changed.
func ResizeBox(start Box, rendered geom.Size, h Handle, dx, dy float64) Box {
	out := start.Clone()
	if !h.IsResize() {
		return out
	}
	sz := start.Size(rendered)
	switch h {
	case HandleE, HandleNE, HandleSE:
		out.Width = Float(math.Max(MinTextWidth, sz.W+dx))
	case HandleW, HandleNW, HandleSW:
		out.Width = Float(math.Max(MinTextWidth, sz.W-dx))
	}
	switch h {
	case HandleS, HandleSE, HandleSW:
		out.Height = Float(math.Max(MinTextHeight, sz.H+dy))
	case HandleN, HandleNE, HandleNW:
		out.Height = Float(math.Max(MinTextHeight, sz.H-dy))
	}
	return out
}
