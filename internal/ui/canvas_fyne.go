//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"slidedeck/internal/domain"
	"slidedeck/internal/editor"
	"slidedeck/internal/geom"
	applog "slidedeck/internal/log"
	"slidedeck/internal/transform"
)

var (
	colBackground  = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	colSelection   = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	colPlaceholder = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	colOutline     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// SlideCanvas renders the slide of a Session and routes pointer input to its
// editor engine.
type SlideCanvas struct {
	widget.BaseWidget

	sess *Session
	zoom float32

	// drag routing
	dragging bool
	live     bool
	last     geom.Pt

	// slide the coordinator subscription belongs to
	subscribed *editor.Slide
	images     map[string]cachedImage

	toolbar  *fyne.Container
	fontSize *widget.Label
	align    *widget.Select
	colorIn  *widget.Entry
	edit     *widget.Entry
	editing  string

	// OnFocus moves keyboard focus to the text entry when editing starts.
	OnFocus func(*widget.Entry)
}

// cachedImage is the decoded picture of one element content value. img is
// nil while a remote load is in flight or after it failed.
type cachedImage struct {
	content string
	img     *canvas.Image
	loading bool
	err     error
}

// dashesPerSide is the number of dashes drawn along each edge of an empty
// image or logo frame.
const dashesPerSide = 8

// NewSlideCanvas creates the widget. s may be nil until a deck is opened.
func NewSlideCanvas(s *Session) *SlideCanvas {
	c := &SlideCanvas{sess: s, zoom: 1, images: map[string]cachedImage{}}
	c.buildToolbar()
	c.ExtendBaseWidget(c)
	return c
}

// SetSession switches the canvas to another deck.
func (c *SlideCanvas) SetSession(s *Session) {
	c.sess = s
	c.subscribed = nil
	c.images = map[string]cachedImage{}
	c.dragging, c.live = false, false
	c.Refresh()
}

func (c *SlideCanvas) slide() *editor.Slide {
	if c.sess == nil {
		return nil
	}
	return c.sess.Slide()
}

func (c *SlideCanvas) selected() *editor.Controller {
	sl := c.slide()
	if sl == nil {
		return nil
	}
	ctrl, _ := sl.Controller(sl.Coordinator().Selected())
	return ctrl
}

func (c *SlideCanvas) buildToolbar() {
	tb := func() *editor.Toolbar { return c.slide().Toolbar() }
	apply := func(err error) {
		if err != nil && c.sess != nil {
			c.sess.Notices().Warn(err.Error())
		}
		c.Refresh()
	}
	c.fontSize = widget.NewLabel("")
	smaller := widget.NewButton("A-", func() { apply(tb().StepFontSize(-2)) })
	larger := widget.NewButton("A+", func() { apply(tb().StepFontSize(2)) })
	bold := widget.NewButton("B", func() { apply(tb().ToggleBold()) })
	italic := widget.NewButton("I", func() { apply(tb().ToggleItalic()) })
	c.align = widget.NewSelect([]string{string(domain.AlignLeft), string(domain.AlignCenter), string(domain.AlignRight)}, func(v string) {
		if c.slide() == nil || !tb().Open() {
			return
		}
		if st := tb().Target().State().Style; string(st.Align) == v {
			return
		}
		apply(tb().SetAlign(domain.Align(v)))
	})
	c.colorIn = widget.NewEntry()
	c.colorIn.SetPlaceHolder("#rrggbb")
	c.colorIn.OnSubmitted = func(v string) { apply(tb().SetColor(v)) }
	del := widget.NewButton("Delete", func() { apply(tb().Delete()) })
	c.edit = widget.NewEntry()
	c.edit.OnChanged = func(v string) {
		if t := c.editTarget(); t != nil {
			t.EditText(v)
		}
	}
	c.edit.OnSubmitted = func(string) {
		if t := c.editTarget(); t != nil {
			t.CommitEdit()
		}
		c.Refresh()
	}
	c.edit.Hide()
	c.toolbar = container.NewHBox(smaller, c.fontSize, larger, bold, italic, c.align, c.colorIn, del, c.edit)
	c.toolbar.Hide()
}

func (c *SlideCanvas) editTarget() *editor.Controller {
	sl := c.slide()
	if sl == nil || !sl.Toolbar().Open() {
		return nil
	}
	t := sl.Toolbar().Target()
	if t == nil || !t.State().Editing {
		return nil
	}
	return t
}

// syncToolbar mirrors the engine's toolbar into the widgets.
func (c *SlideCanvas) syncToolbar() {
	sl := c.slide()
	if sl == nil || !sl.Toolbar().Open() || sl.Toolbar().Target() == nil {
		c.toolbar.Hide()
		c.editing = ""
		return
	}
	t := sl.Toolbar().Target()
	st := t.State()
	c.fontSize.SetText(strconv.FormatFloat(st.Style.FontSize, 'f', -1, 64) + " pt")
	c.align.SetSelected(string(st.Style.Align))
	if !c.colorIn.Disabled() && c.colorIn.Text != st.Style.Color {
		c.colorIn.SetText(st.Style.Color)
	}
	switch {
	case st.Editing && c.editing != t.ID():
		c.editing = t.ID()
		c.edit.SetText(st.Content)
		c.edit.Show()
		if c.OnFocus != nil {
			c.OnFocus(c.edit)
		}
	case !st.Editing:
		c.editing = ""
		c.edit.Hide()
	}
	c.toolbar.Show()
}

func (c *SlideCanvas) origin() (x, y, scale float32) {
	size := c.Size()
	fit := min(size.Width/domain.SlideWidth, size.Height/domain.SlideHeight) * 0.95
	scale = fit * c.zoom
	x = size.Width/2 - domain.SlideWidth*scale/2
	y = size.Height/2 - domain.SlideHeight*scale/2
	return x, y, scale
}

func (c *SlideCanvas) toScreen(p geom.Pt) fyne.Position {
	x, y, s := c.origin()
	return fyne.NewPos(x+float32(p.X)*s, y+float32(p.Y)*s)
}

func (c *SlideCanvas) toSlide(pos fyne.Position) geom.Pt {
	x, y, s := c.origin()
	if s == 0 {
		return geom.Pt{}
	}
	return geom.Pt{X: float64((pos.X - x) / s), Y: float64((pos.Y - y) / s)}
}

func (c *SlideCanvas) screenRect(r geom.Rect) (fyne.Position, fyne.Size) {
	_, _, s := c.origin()
	return c.toScreen(r.Min()), fyne.NewSize(float32(r.W)*s, float32(r.H)*s)
}

// Tapped routes a click through the engine's classifier.
func (c *SlideCanvas) Tapped(e *fyne.PointEvent) {
	sl := c.slide()
	if sl == nil {
		return
	}
	sl.Tap(PointerAt(sl, c.toSlide(e.Position)))
	c.Refresh()
}

// Dragged starts a gesture on the first event and feeds motion afterwards.
func (c *SlideCanvas) Dragged(e *fyne.DragEvent) {
	sl := c.slide()
	if sl == nil {
		return
	}
	p := c.toSlide(e.Position)
	if !c.dragging {
		c.dragging = true
		start := c.toSlide(e.Position.Subtract(e.Dragged))
		c.live = sl.DragStart(PointerAt(sl, start))
	}
	if !c.live {
		return
	}
	c.last = p
	sl.DragMove(p)
	c.Refresh()
}

// DragEnd releases the pointer and commits the gesture.
func (c *SlideCanvas) DragEnd() {
	sl := c.slide()
	if sl != nil && c.live {
		sl.DragEnd(c.last)
	}
	c.dragging, c.live = false, false
	c.Refresh()
}

// Scrolled zooms around the slide centre.
func (c *SlideCanvas) Scrolled(e *fyne.ScrollEvent) {
	f := float32(1.1)
	if e.Scrolled.DY < 0 {
		f = 1 / f
	}
	c.zoom = min(max(c.zoom*f, 0.25), 4)
	c.Refresh()
}

func (c *SlideCanvas) MinSize() fyne.Size {
	return fyne.NewSize(domain.SlideWidth/2, domain.SlideHeight/2)
}

// CreateRenderer builds the slide background. Element visuals are rebuilt on refresh.
func (c *SlideCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(colBackground)
	page := canvas.NewRectangle(color.White)
	page.StrokeColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	page.StrokeWidth = 1
	bbox := canvas.NewRectangle(color.Transparent)
	bbox.StrokeColor = colSelection
	bbox.StrokeWidth = 1
	bbox.Hide()
	handles := make([]*canvas.Rectangle, len(transform.ResizeHandles))
	for i := range handles {
		handles[i] = canvas.NewRectangle(colSelection)
		handles[i].Hide()
	}
	r := &slideCanvasRenderer{sc: c, bg: bg, page: page, bbox: bbox, handles: handles}
	r.rebuild()
	return r
}

type elementVisual struct {
	id      string
	frame   *canvas.Rectangle
	label   *canvas.Text
	img     *canvas.Image
	objects []fyne.CanvasObject
	dashes  []*canvas.Line // outline of an empty placeholder
}

type slideCanvasRenderer struct {
	sc       *SlideCanvas
	bg, page *canvas.Rectangle
	bbox     *canvas.Rectangle
	handles  []*canvas.Rectangle
	visuals  []elementVisual
	objects  []fyne.CanvasObject
}

func (r *slideCanvasRenderer) Destroy()                     {}
func (r *slideCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *slideCanvasRenderer) MinSize() fyne.Size           { return r.sc.MinSize() }

func (r *slideCanvasRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.sc.Size())
	canvas.Refresh(r.sc)
}

// rebuild recreates element visuals from controller state, in mount order.
func (r *slideCanvasRenderer) rebuild() {
	sc := r.sc
	r.visuals = r.visuals[:0]
	objs := []fyne.CanvasObject{r.bg, r.page}
	sl := sc.slide()
	if sl != nil {
		if sc.subscribed != sl {
			sc.subscribed = sl
			sl.Coordinator().Subscribe(func(string) { sc.Refresh() })
		}
		sc.sess.Remeasure()
		for _, ctrl := range sl.Controllers() {
			if !Reachable(ctrl) {
				continue
			}
			v := r.visualFor(ctrl, ctrl.State())
			r.visuals = append(r.visuals, v)
			objs = append(objs, v.objects...)
			for _, d := range v.dashes {
				objs = append(objs, d)
			}
		}
	}
	objs = append(objs, r.bbox)
	for _, h := range r.handles {
		objs = append(objs, h)
	}
	sc.syncToolbar()
	objs = append(objs, sc.toolbar)
	r.objects = objs
}

func (r *slideCanvasRenderer) visualFor(ctrl *editor.Controller, st editor.State) elementVisual {
	v := elementVisual{id: ctrl.ID()}
	v.frame = canvas.NewRectangle(color.Transparent)
	v.frame.StrokeColor = colOutline
	v.frame.StrokeWidth = 1
	if ctrl.Entity().IsText() {
		style := st.Style
		v.label = canvas.NewText(st.Content, hexColor(style.Color))
		v.label.TextStyle = fyne.TextStyle{Bold: style.Bold, Italic: style.Italic}
		switch style.Align {
		case domain.AlignCenter:
			v.label.Alignment = fyne.TextAlignCenter
		case domain.AlignRight:
			v.label.Alignment = fyne.TextAlignTrailing
		}
		v.objects = []fyne.CanvasObject{v.frame, v.label}
		return v
	}
	if st.Hidden {
		v.frame.StrokeWidth = 0
		v.label = canvas.NewText(fmt.Sprintf("Empty %s: Slide > Replace Image", ctrl.Entity().Kind), colOutline)
		v.label.Alignment = fyne.TextAlignCenter
		v.objects = []fyne.CanvasObject{v.frame, v.label}
		v.dashes = make([]*canvas.Line, 4*dashesPerSide)
		for i := range v.dashes {
			v.dashes[i] = canvas.NewLine(colOutline)
			v.dashes[i].StrokeWidth = 1
		}
		return v
	}
	if img := r.sc.imageFor(ctrl.ID(), st.Content); img != nil {
		v.img = img
		v.objects = []fyne.CanvasObject{img, v.frame}
		return v
	}
	v.frame.FillColor = colPlaceholder
	name := string(ctrl.Entity().Kind)
	if st.Content != "" && !strings.HasPrefix(st.Content, "data:") {
		name = st.Content
	}
	v.label = canvas.NewText(name, color.Black)
	v.label.Alignment = fyne.TextAlignCenter
	v.objects = []fyne.CanvasObject{v.frame, v.label}
	return v
}

// imageFor returns the picture for content, decoded once per content value.
// Data URL previews decode inline. URLs and file paths load off the UI
// goroutine; until they arrive, or when they fail, nil is returned and the
// element is drawn as a labelled placeholder.
func (c *SlideCanvas) imageFor(id, content string) *canvas.Image {
	if content == "" {
		return nil
	}
	if ci, ok := c.images[id]; ok && ci.content == content {
		return ci.img
	}
	if strings.HasPrefix(content, "data:") {
		_, payload, ok := strings.Cut(content, ";base64,")
		if !ok {
			return nil
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil
		}
		img := canvas.NewImageFromReader(bytes.NewReader(data), id)
		img.FillMode = canvas.ImageFillStretch
		c.images[id] = cachedImage{content: content, img: img}
		return img
	}
	root := ""
	if c.sess != nil {
		root = c.sess.Handle().Root
	}
	c.images[id] = cachedImage{content: content, loading: true}
	go func() {
		data, name, err := loadImageData(content, root)
		fyne.Do(func() {
			if ci, ok := c.images[id]; !ok || ci.content != content {
				return
			}
			if err != nil {
				applog.WithComponent("ui").Warn("image load failed", slog.String("content", content), slog.Any("err", err))
				c.images[id] = cachedImage{content: content, err: err}
				return
			}
			img := canvas.NewImageFromReader(bytes.NewReader(data), name)
			img.FillMode = canvas.ImageFillStretch
			c.images[id] = cachedImage{content: content, img: img}
			c.Refresh()
		})
	}()
	return nil
}

// loadImageData reads the bytes behind an element content value: an http(s)
// or file URI, an absolute path, or a path relative to the deck root.
func loadImageData(content, root string) ([]byte, string, error) {
	var u fyne.URI
	if strings.Contains(content, "://") {
		parsed, err := fstorage.ParseURI(content)
		if err != nil {
			return nil, "", fmt.Errorf("parse image uri: %w", err)
		}
		u = parsed
	} else {
		p := content
		if !filepath.IsAbs(p) && root != "" {
			p = filepath.Join(root, p)
		}
		u = fstorage.NewFileURI(p)
	}
	rc, err := fstorage.Reader(u)
	if err != nil {
		return nil, "", fmt.Errorf("open image %s: %w", u, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", u, err)
	}
	return data, u.Name(), nil
}

// layoutDashes spreads the dash segments evenly around the frame at pos/sz.
func layoutDashes(dashes []*canvas.Line, pos fyne.Position, sz fyne.Size) {
	if len(dashes) < 4*dashesPerSide {
		return
	}
	side := func(k int, from, to fyne.Position) {
		dx := (to.X - from.X) / dashesPerSide
		dy := (to.Y - from.Y) / dashesPerSide
		for i := 0; i < dashesPerSide; i++ {
			start := fyne.NewPos(from.X+dx*float32(i), from.Y+dy*float32(i))
			d := dashes[k*dashesPerSide+i]
			d.Position1 = start
			d.Position2 = fyne.NewPos(start.X+dx/2, start.Y+dy/2)
		}
	}
	tl := pos
	tr := fyne.NewPos(pos.X+sz.Width, pos.Y)
	br := fyne.NewPos(pos.X+sz.Width, pos.Y+sz.Height)
	bl := fyne.NewPos(pos.X, pos.Y+sz.Height)
	side(0, tl, tr)
	side(1, tr, br)
	side(2, br, bl)
	side(3, bl, tl)
}

func (r *slideCanvasRenderer) Layout(size fyne.Size) {
	sc := r.sc
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	pos, sz := sc.screenRect(geom.R(0, 0, domain.SlideWidth, domain.SlideHeight))
	r.page.Move(pos)
	r.page.Resize(sz)

	_, _, scale := sc.origin()
	sl := sc.slide()
	for _, v := range r.visuals {
		ctrl, ok := sl.Controller(v.id)
		if !ok {
			continue
		}
		pos, sz := sc.screenRect(ctrl.Bounds())
		for _, o := range v.objects {
			o.Move(pos)
			o.Resize(sz)
		}
		if v.label != nil && ctrl.Entity().IsText() {
			v.label.TextSize = float32(ctrl.State().Style.FontSize) * scale
		}
		layoutDashes(v.dashes, pos, sz)
	}

	r.bbox.Hide()
	for _, h := range r.handles {
		h.Hide()
	}
	if ctrl := sc.selected(); ctrl != nil && Reachable(ctrl) {
		b := ctrl.Bounds()
		pos, sz := sc.screenRect(b)
		r.bbox.Move(pos)
		r.bbox.Resize(sz)
		r.bbox.Show()
		for i, h := range transform.ResizeHandles {
			hp, hs := sc.screenRect(HandleRect(b, h))
			r.handles[i].Move(hp)
			r.handles[i].Resize(hs)
			r.handles[i].Show()
		}
	}

	if sl != nil && sl.Toolbar().Open() {
		sc.toolbar.Move(sc.toScreen(sl.Toolbar().Position()))
		sc.toolbar.Resize(sc.toolbar.MinSize())
	}
}

// hexColor parses #rrggbb, falling back to near-black.
func hexColor(s string) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.RGBA{R: 34, G: 34, B: 34, A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
