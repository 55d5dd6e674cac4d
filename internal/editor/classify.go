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

	"slidedeck/internal/transform"
)

// Region is the outcome of classifying a pointer target.
type Region int

const (
	RegionOutside Region = iota
	RegionElement
	RegionHandle
	RegionEditable
	RegionToolbar
)

func (r Region) String() string {
	switch r {
	case RegionOutside:
		return "outside"
	case RegionElement:
		return "element"
	case RegionHandle:
		return "handle"
	case RegionEditable:
		return "editable"
	case RegionToolbar:
		return "toolbar"
	}
	return fmt.Sprintf("Region(%d)", int(r))
}

// Marker is the structural information a UI node carries about itself.
type Marker struct {
	Element  string           // element id
	Handle   transform.Handle // resize grip
	Editable bool             // content-editable text region
	Toolbar  bool
}

// Node is one level of the UI tree a pointer event landed in.
type Node interface {
	Marker() Marker
	Parent() Node
}

// Tag is a minimal Node.
type Tag struct {
	Mark Marker
	Up   *Tag
}

func (t *Tag) Marker() Marker { return t.Mark }

func (t *Tag) Parent() Node {
	if t.Up == nil {
		return nil
	}
	return t.Up
}

// Hit is a classified pointer target.
type Hit struct {
	Region    Region
	ElementID string
	Handle    transform.Handle
}

// Inside reports whether the target belongs to any interactive region.
func (h Hit) Inside() bool { return h.Region != RegionOutside }

// Classify walks n and its ancestors. The innermost handle or editable marker
// decides the region; the nearest element marker supplies the id. A toolbar
// anywhere in the ancestry wins.
func Classify(n Node) Hit {
	var hit Hit
	for ; n != nil; n = n.Parent() {
		m := n.Marker()
		if m.Toolbar {
			return Hit{Region: RegionToolbar}
		}
		if hit.Region == RegionOutside {
			switch {
			case m.Handle != transform.HandleNone:
				hit.Region, hit.Handle = RegionHandle, m.Handle
			case m.Editable:
				hit.Region = RegionEditable
			}
		}
		if m.Element != "" && hit.ElementID == "" {
			hit.ElementID = m.Element
			if hit.Region == RegionOutside {
				hit.Region = RegionElement
			}
		}
	}
	return hit
}
