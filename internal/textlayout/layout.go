/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures word-wrapped text with the Go font family so
// text elements without a stored height get a size that fits their content.
package textlayout

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
)

// Line is one wrapped line and its advance width in points.
type Line struct {
	Text  string
	Width float64
}

// Box is the result of laying out a text element.
type Box struct {
	Lines      []Line
	Width      float64 // widest line
	LineHeight float64
}

// Size is the box footprint in points.
func (b Box) Size() geom.Size {
	return geom.Size{W: b.Width, H: b.LineHeight * float64(len(b.Lines))}
}

type faceKey struct {
	bold, italic bool
	size         float64
}

// Measurer lays out text. The zero value is ready to use and safe for
// concurrent use.
type Measurer struct {
	mu    sync.Mutex
	fonts map[faceKey]*opentype.Font
	faces map[faceKey]font.Face
}

var fontData = map[[2]bool][]byte{
	{false, false}: goregular.TTF,
	{true, false}:  gobold.TTF,
	{false, true}:  goitalic.TTF,
	{true, true}:   gobolditalic.TTF,
}

// face resolves and caches the Go font variant for st at 72 dpi.
func (m *Measurer) face(st domain.Style) (font.Face, error) {
	size := st.FontSize
	if size <= 0 {
		size = domain.DefaultStyle().FontSize
	}
	k := faceKey{bold: st.Bold, italic: st.Italic, size: size}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.faces[k]; ok {
		return f, nil
	}
	if m.faces == nil {
		m.faces = map[faceKey]font.Face{}
		m.fonts = map[faceKey]*opentype.Font{}
	}
	fk := faceKey{bold: st.Bold, italic: st.Italic}
	otf, ok := m.fonts[fk]
	if !ok {
		var err error
		otf, err = opentype.Parse(fontData[[2]bool{st.Bold, st.Italic}])
		if err != nil {
			return nil, fmt.Errorf("parse go font: %w", err)
		}
		m.fonts[fk] = otf
	}
	f, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("font face %.1fpt: %w", size, err)
	}
	m.faces[k] = f
	return f, nil
}

// Layout wraps text at word boundaries to maxWidth points. Explicit newlines
// always break. A word wider than maxWidth gets a line of its own. maxWidth <= 0
// disables wrapping.
func (m *Measurer) Layout(text string, st domain.Style, maxWidth float64) (Box, error) {
	face, err := m.face(st)
	if err != nil {
		return Box{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	met := face.Metrics()
	box := Box{LineHeight: toPt(met.Height)}
	d := &font.Drawer{Face: face}
	space := toPt(d.MeasureString(" "))

	var cur strings.Builder
	curW := 0.0
	flush := func() {
		box.Lines = append(box.Lines, Line{Text: cur.String(), Width: curW})
		box.Width = math.Max(box.Width, curW)
		cur.Reset()
		curW = 0
	}
	for i, para := range strings.Split(text, "\n") {
		if i > 0 {
			flush()
		}
		for _, word := range strings.Fields(para) {
			w := toPt(d.MeasureString(word))
			if cur.Len() > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += w
		}
	}
	flush()
	return box, nil
}

// Fit returns the size of a text element of the given width: the width itself
// and the wrapped height, never less than minHeight.
func (m *Measurer) Fit(text string, st domain.Style, width, minHeight float64) geom.Size {
	b, err := m.Layout(text, st, width)
	if err != nil {
		return geom.Size{W: width, H: minHeight}
	}
	return geom.Size{W: width, H: math.Max(math.Ceil(b.Size().H), minHeight)}
}

func toPt(v fixed.Int26_6) float64 { return float64(v) / 64 }
