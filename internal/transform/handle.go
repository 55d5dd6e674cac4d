/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import (
	"fmt"
	"strings"
)

// Handle names the affordance a gesture was started from: the element body
// (HandleMove) or one of the eight resize grips.
type Handle string

const (
	HandleNone Handle = ""
	HandleMove Handle = "move"
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

// ResizeHandles lists the eight grips in drawing order (corners first).
var ResizeHandles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE, HandleN, HandleS, HandleW, HandleE}

// ParseHandle accepts the lowercase handle names used in documents and UI markers.
func ParseHandle(s string) (Handle, error) {
	h := Handle(strings.ToLower(strings.TrimSpace(s)))
	if h == HandleMove || h.IsResize() {
		return h, nil
	}
	return HandleNone, fmt.Errorf("unknown handle %q", s)
}

// IsResize reports whether h is one of the eight resize grips.
func (h Handle) IsResize() bool {
	switch h {
	case HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return true
	}
	return false
}

// IsCorner reports whether h is a corner grip.
func (h Handle) IsCorner() bool {
	switch h {
	case HandleNE, HandleNW, HandleSE, HandleSW:
		return true
	}
	return false
}

func (h Handle) String() string {
	if h == HandleNone {
		return "none"
	}
	return string(h)
}
