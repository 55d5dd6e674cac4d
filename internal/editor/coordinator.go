/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "fmt"

// Coordinator is the per-slide registry of controllers and the single owner
// of the selected element id.
type Coordinator struct {
	byID     map[string]*Controller
	order    []string
	selected string

	subs    map[int]func(selected string)
	nextSub int
}

func NewCoordinator() *Coordinator {
	return &Coordinator{byID: map[string]*Controller{}, subs: map[int]func(string){}}
}

// Register adds a controller. Ids must be unique within the slide.
func (c *Coordinator) Register(ctrl *Controller) error {
	id := ctrl.ID()
	if _, dup := c.byID[id]; dup {
		return fmt.Errorf("element %s already registered", id)
	}
	c.byID[id] = ctrl
	c.order = append(c.order, id)
	return nil
}

// Unregister removes a controller, deselecting it first.
func (c *Coordinator) Unregister(id string) {
	ctrl, ok := c.byID[id]
	if !ok {
		return
	}
	ctrl.Deselect()
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Controller looks up a registered controller.
func (c *Coordinator) Controller(id string) (*Controller, bool) {
	ctrl, ok := c.byID[id]
	return ctrl, ok
}

// Controllers returns the registered controllers in mount order.
func (c *Coordinator) Controllers() []*Controller {
	out := make([]*Controller, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Selected returns the selected element id or "".
func (c *Coordinator) Selected() string { return c.selected }

// Subscribe registers fn for selection changes and returns its cancel func.
func (c *Coordinator) Subscribe(fn func(selected string)) func() {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

// DeselectAll deselects every element.
func (c *Coordinator) DeselectAll() {
	for _, ctrl := range c.Controllers() {
		if ctrl.state.IsSelected || ctrl.g != nil || ctrl.state.Editing {
			ctrl.Deselect()
		}
	}
	c.setSelected("")
}

// claim makes ctrl the selected element. Every other selected sibling is
// deselected first, so the pass is idempotent and the last caller wins.
func (c *Coordinator) claim(ctrl *Controller) {
	for _, other := range c.Controllers() {
		if other != ctrl && other.state.IsSelected {
			other.Deselect()
		}
	}
	c.setSelected(ctrl.ID())
}

func (c *Coordinator) released(ctrl *Controller) {
	if c.selected == ctrl.ID() {
		c.setSelected("")
	}
}

func (c *Coordinator) setSelected(id string) {
	if c.selected == id {
		return
	}
	c.selected = id
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			fn(id)
		}
	}
}
