//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests drive the Fyne slide canvas with the in-memory test driver.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"slidedeck/internal/domain"
	"slidedeck/internal/editor"
	"slidedeck/internal/geom"
)

func almostEqual(a, b, eps float32) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func newTestCanvas(t *testing.T) (*SlideCanvas, *Session) {
	t.Helper()
	test.NewTempApp(t)
	s := openTestSession(t)
	sc := NewSlideCanvas(s)
	sc.Resize(fyne.NewSize(1000, 600))
	return sc, s
}

func TestSlideCanvas_CoordinateRoundTrip(t *testing.T) {
	sc, _ := newTestCanvas(t)
	p := geom.Pt{X: 480, Y: 270}
	pos := sc.toScreen(p)
	if !almostEqual(pos.X, 500, 0.01) || !almostEqual(pos.Y, 300, 0.01) {
		t.Fatalf("slide centre should map to widget centre, got %v", pos)
	}
	back := sc.toSlide(pos)
	if !almostEqual(float32(back.X), 480, 0.01) || !almostEqual(float32(back.Y), 270, 0.01) {
		t.Fatalf("round trip mismatch: %v", back)
	}
}

func TestSlideCanvas_LayoutPage(t *testing.T) {
	sc, _ := newTestCanvas(t)
	r, ok := sc.CreateRenderer().(*slideCanvasRenderer)
	if !ok {
		t.Fatalf("expected slideCanvasRenderer, got %T", sc.CreateRenderer())
	}
	r.Layout(sc.Size())
	_, _, scale := sc.origin()
	if !almostEqual(r.page.Size().Width, 960*scale, 0.5) || !almostEqual(r.page.Size().Height, 540*scale, 0.5) {
		t.Fatalf("unexpected page size %v at scale %v", r.page.Size(), scale)
	}
	if len(r.visuals) != 2 {
		t.Fatalf("expected 2 element visuals, got %d", len(r.visuals))
	}
}

func TestSlideCanvas_TapSelectsAndShowsToolbar(t *testing.T) {
	sc, s := newTestCanvas(t)
	test.Tap(sc)
	if s.Slide().Coordinator().Selected() != "" {
		t.Fatalf("tap on the page margin must not select")
	}
	sc.Tapped(&fyne.PointEvent{Position: sc.toScreen(geom.Pt{X: 100, Y: 200})})
	title := titleController(t, s)
	if !title.State().IsSelected {
		t.Fatalf("title should be selected after tap")
	}
	if !sc.toolbar.Visible() {
		t.Fatalf("toolbar should be visible for selected text")
	}
}

func TestSlideCanvas_DragMovesSelection(t *testing.T) {
	sc, s := newTestCanvas(t)
	start := sc.toScreen(geom.Pt{X: 100, Y: 200})
	sc.Tapped(&fyne.PointEvent{Position: start})

	_, _, scale := sc.origin()
	step := fyne.Delta{DX: 10 * scale, DY: 0}
	pos := start.Add(step)
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: pos}, Dragged: step})
	pos = pos.Add(step)
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: pos}, Dragged: step})
	sc.DragEnd()

	title := titleController(t, s)
	if title.State().IsDragging {
		t.Fatalf("gesture should end on DragEnd")
	}
	if x := title.Bounds().X; x < 67.9 || x > 68.1 {
		t.Fatalf("expected x about 68, got %v", x)
	}
}

func TestSlideCanvas_DragOnEmptyAreaIsIgnored(t *testing.T) {
	sc, s := newTestCanvas(t)
	start := sc.toScreen(geom.Pt{X: 5, Y: 5})
	step := fyne.Delta{DX: 20, DY: 20}
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: start.Add(step)}, Dragged: step})
	sc.DragEnd()
	if s.Counter().Snapshot()["gesture_commit"] != 0 {
		t.Fatalf("no gesture expected")
	}
}

func TestHexColor(t *testing.T) {
	r, g, b, _ := hexColor("#ff8000").RGBA()
	if r>>8 != 0xff || g>>8 != 0x80 || b>>8 != 0 {
		t.Fatalf("unexpected color %d %d %d", r>>8, g>>8, b>>8)
	}
	r, _, _, _ = hexColor("nope").RGBA()
	if r>>8 != 34 {
		t.Fatalf("expected fallback color")
	}
}

func TestSlideCanvas_DeletedImageKeepsPlaceholder(t *testing.T) {
	sc, s := newTestCanvas(t)
	if err := s.AddSlide(domain.LayoutTitleImage, 0); err != nil {
		t.Fatalf("AddSlide: %v", err)
	}
	sc.Refresh()
	var img *editor.Controller
	for _, c := range s.Slide().Controllers() {
		if c.Entity().Kind == domain.KindImage {
			img = c
		}
	}
	if img == nil {
		t.Fatalf("no image element")
	}
	centre := sc.toScreen(img.Bounds().Center())
	sc.Tapped(&fyne.PointEvent{Position: centre})
	img.Delete()
	sc.Refresh()

	r := sc.CreateRenderer().(*slideCanvasRenderer)
	r.Layout(sc.Size())
	var found bool
	for _, v := range r.visuals {
		if v.id == img.ID() {
			found = true
			if len(v.dashes) != 4*dashesPerSide {
				t.Fatalf("expected dashed outline, got %d dashes", len(v.dashes))
			}
		}
	}
	if !found {
		t.Fatalf("deleted image should still be drawn as a placeholder")
	}

	sc.Tapped(&fyne.PointEvent{Position: centre})
	if !img.State().IsSelected {
		t.Fatalf("tapping the placeholder should select it")
	}
	if sc.selected() != img {
		t.Fatalf("canvas should report the placeholder as selected")
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadImageData(t *testing.T) {
	test.NewTempApp(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(root, "assets", "pic.png")
	writePNG(t, abs)

	for _, content := range []string{"file://" + filepath.ToSlash(abs), abs, "assets/pic.png"} {
		data, name, err := loadImageData(content, root)
		if err != nil {
			t.Fatalf("%s: %v", content, err)
		}
		if name != "pic.png" {
			t.Fatalf("%s: unexpected name %q", content, name)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Fatalf("%s: bytes are not the png: %v", content, err)
		}
	}
	if _, _, err := loadImageData("assets/missing.png", root); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}
