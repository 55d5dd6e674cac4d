/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
	"slidedeck/internal/transform"
)

// gesture is one press-move-release interaction. It owns the bus subscription.
type gesture struct {
	c           *Controller
	handle      transform.Handle
	startPtr    geom.Pt
	lastPtr     geom.Pt
	startScaled transform.Scaled
	startBox    transform.Box
	rendered    geom.Size
	moves       int
	release     func()
	done        bool
}

func (g *gesture) PointerMoved(p geom.Pt) {
	if g.done || !p.Finite() {
		return
	}
	g.lastPtr = p
	g.moves++
	d := p.Sub(g.startPtr)
	g.c.applyLive(g.compute(d.X, d.Y))
}

func (g *gesture) PointerReleased(p geom.Pt) {
	if p.Finite() && p != g.lastPtr {
		g.PointerMoved(p)
	}
	g.finish()
}

// compute returns the transform for the cumulative delta. Only the field
// matching the element kind is meaningful.
func (g *gesture) compute(dx, dy float64) (transform.Scaled, transform.Box) {
	kind := g.c.entity.Kind
	if g.handle == transform.HandleMove {
		if kind.Scaled() {
			return g.startScaled.Moved(dx, dy), transform.Box{}
		}
		return transform.Scaled{}, g.startBox.Moved(dx, dy)
	}
	switch kind {
	case domain.KindImage:
		return transform.ResizeImage(g.startScaled, g.handle, dx, dy), transform.Box{}
	case domain.KindLogo:
		return transform.ResizeLogo(g.startScaled, g.handle, dx, dy), transform.Box{}
	}
	return transform.Scaled{}, transform.ResizeBox(g.startBox, g.rendered, g.handle, dx, dy)
}

// finish ends the gesture exactly once: the subscription is released before
// the controller commits.
func (g *gesture) finish() {
	if g.done {
		return
	}
	g.done = true
	if g.release != nil {
		g.release()
	}
	g.c.endGesture(g)
}
