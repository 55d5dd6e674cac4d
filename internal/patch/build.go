/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package patch

import (
	"slidedeck/internal/domain"
	"slidedeck/internal/transform"
)

// Move is the commit of a move gesture.
func Move(id string, x, y float64) Update {
	return Update{ElementID: id, Patches: []Patch{Position{X: x, Y: y}}}
}

// Resized is the commit of an image or logo resize: the scale factors, preceded
// by the position when the handle shifted it.
func Resized(id string, start, end transform.Scaled) Update {
	u := Update{ElementID: id}
	if start.X != end.X || start.Y != end.Y {
		u.Patches = append(u.Patches, Position{X: end.X, Y: end.Y})
	}
	u.Patches = append(u.Patches, Scale{ScaleX: end.ScaleX, ScaleY: end.ScaleY, Scale: end.Scale})
	return u
}

// ResizedBox is the commit of a text resize.
func ResizedBox(id string, start, end transform.Box) Update {
	u := Update{ElementID: id}
	if start.X != end.X || start.Y != end.Y {
		u.Patches = append(u.Patches, Position{X: end.X, Y: end.Y})
	}
	var bs BoxSize
	if end.Width != nil {
		bs.Width = transform.Float(*end.Width)
	}
	if end.Height != nil {
		bs.Height = transform.Float(*end.Height)
	}
	u.Patches = append(u.Patches, bs)
	return u
}

// Replace reports new content for an element.
func Replace(id, value string) Update {
	return Update{ElementID: id, Patches: []Patch{Content{Value: value}}}
}

// Restyle reports a new text style.
func Restyle(id string, st domain.Style) Update {
	return Update{ElementID: id, Patches: []Patch{Style{Style: st}}}
}

// Delete hides an element and clears its content.
func Delete(id string) Update {
	return Update{ElementID: id, Patches: []Patch{Visibility{Visible: false}, Content{}}}
}

// Show makes a hidden element visible again.
func Show(id string) Update {
	return Update{ElementID: id, Patches: []Patch{Visibility{Visible: true}}}
}
