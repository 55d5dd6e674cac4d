/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"

	"slidedeck/internal/transform"
)

// Layout names a preset arrangement of elements.
type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutTitleImage Layout = "title-image"
	LayoutBullets    Layout = "bullets"
	LayoutLogoTitle  Layout = "logo-title"
)

// Layouts lists the built-in presets.
var Layouts = []Layout{LayoutTitle, LayoutTitleImage, LayoutBullets, LayoutLogoTitle}

// MaxBullets bounds the item count accepted by the bullets preset.
const MaxBullets = 12

const margin = 48.0

// NewSlide builds a slide from a preset. bullets is only used by LayoutBullets.
func NewSlide(layout Layout, bullets int) (Slide, error) {
	s := Slide{ID: NewID(), Layout: layout}
	title := func(y float64) Element {
		return NewText(RoleTitle, "Title", transform.Box{X: margin, Y: y, Width: transform.Float(SlideWidth - 2*margin), Height: transform.Float(72)})
	}
	switch layout {
	case LayoutTitle:
		s.Elements = []Element{
			title(180),
			NewText(RoleDescription, "Subtitle", transform.Box{X: margin, Y: 270, Width: transform.Float(SlideWidth - 2*margin)}),
		}
	case LayoutTitleImage:
		s.Elements = []Element{
			title(margin),
			NewImage(SlideWidth/2, 150),
			NewText(RoleDescription, "Description", transform.Box{X: margin, Y: 150, Width: transform.Float(SlideWidth/2 - 2*margin)}),
		}
	case LayoutBullets:
		if bullets < 1 || bullets > MaxBullets {
			return Slide{}, fmt.Errorf("bullets preset: item count %d not in [1, %d]", bullets, MaxBullets)
		}
		s.Elements = append(s.Elements, title(margin))
		row := (SlideHeight - 150 - margin) / float64(bullets)
		for i := 0; i < bullets; i++ {
			y := 150 + float64(i)*row
			s.Elements = append(s.Elements,
				NewText(BulletTitle(i), fmt.Sprintf("Item %d", i+1), transform.Box{X: margin, Y: y, Width: transform.Float(260)}),
				NewText(BulletDescription(i), "", transform.Box{X: margin + 280, Y: y, Width: transform.Float(SlideWidth - 2*margin - 280)}),
			)
		}
	case LayoutLogoTitle:
		s.Elements = []Element{
			NewLogo(margin, margin),
			title(200),
		}
	default:
		return Slide{}, fmt.Errorf("unknown layout %q", layout)
	}
	return s, nil
}

// ElementByRole returns the first text element with the given role.
func (s *Slide) ElementByRole(r Role) (*Element, bool) {
	for i := range s.Elements {
		if s.Elements[i].Kind == KindText && s.Elements[i].Role == r {
			return &s.Elements[i], true
		}
	}
	return nil, false
}
