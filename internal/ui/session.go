/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"slidedeck/internal/config"
	"slidedeck/internal/domain"
	"slidedeck/internal/editor"
	"slidedeck/internal/export"
	"slidedeck/internal/geom"
	applog "slidedeck/internal/log"
	"slidedeck/internal/notify"
	"slidedeck/internal/patch"
	"slidedeck/internal/storage"
	"slidedeck/internal/telemetry"
	"slidedeck/internal/textlayout"
	"slidedeck/internal/transform"
	"slidedeck/internal/upload"
)

// HandleSize is the edge length of a resize grip in slide points.
const HandleSize = 10.0

// textLineHeight sizes text elements that have no stored height.
const textLineHeight = 48.0

// ToolbarSize is the footprint of the floating toolbar in slide points.
var ToolbarSize = geom.Size{W: 420, H: 40}

// Session ties one open deck to the editor engine of the slide on screen.
// It is not safe for concurrent use; UI callbacks run on one goroutine.
type Session struct {
	h       *storage.DeckHandle
	journal *storage.Journal
	sink    *storage.Sink
	slide   *editor.Slide
	index   int
	cfg     config.AppConfig
	svc     editor.Services
	notices *notify.Center
	counter *telemetry.Counter
	log     *slog.Logger

	watchMu sync.Mutex
	watcher *storage.Watcher
}

// fallbackNotifier counts upload fallbacks before showing them.
type fallbackNotifier struct {
	c *notify.Center
	k *telemetry.Counter
}

func (n fallbackNotifier) Warn(msg string) {
	n.k.Inc(telemetry.EventUploadFallback)
	n.c.Warn(msg)
}

// OpenSession opens the deck at dir and shows its first slide. token
// authenticates image uploads and may be empty.
func OpenSession(dir string, cfg config.AppConfig, token string) (*Session, error) {
	h, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	if len(h.Deck.Slides) == 0 {
		return nil, errors.New("open deck: no slides")
	}
	s := &Session{
		h:       h,
		cfg:     cfg,
		notices: notify.NewCenter(cfg.NoticeTTL()),
		counter: telemetry.NewCounter(nil),
		log:     applog.WithComponent("ui").With(slog.String("deck", h.Root)),
	}
	if _, err := storage.DetectAndRebuildJournal(context.Background(), h.Root, h.Deck); err != nil {
		s.log.Warn("journal rebuild failed", slog.Any("err", err))
	}
	j, err := storage.OpenJournal(h.Root)
	if err != nil {
		s.log.Warn("journal unavailable, continuing without history", slog.Any("err", err))
		j = nil
	} else if err := j.SnapshotDeck(context.Background(), h.Deck); err != nil {
		s.log.Warn("journal snapshot failed", slog.Any("err", err))
	}
	s.journal = j
	s.sink = storage.NewSink(h, j)
	s.sink.OnError(func(err error) { s.notices.Error("Could not save change: " + err.Error()) })
	s.sink.OnCommit(func(_ string, u patch.Update) {
		if _, ok := u.Find(patch.TypePosition); ok {
			s.counter.Inc(telemetry.EventGestureCommit)
		}
	})
	s.svc = editor.Services{Notifier: fallbackNotifier{c: s.notices, k: s.counter}}
	if cfg.Upload.BaseURL != "" {
		s.svc.Uploader = upload.NewClient(cfg.Upload.BaseURL, token, cfg.UploadTimeout())
	}
	s.svc.Previewer = upload.NewPreviewer(cfg.Upload.PreviewMaxPx)
	if err := s.Show(0); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) Handle() *storage.DeckHandle { return s.h }
func (s *Session) Slide() *editor.Slide        { return s.slide }
func (s *Session) SlideIndex() int             { return s.index }
func (s *Session) Notices() *notify.Center     { return s.notices }
func (s *Session) Counter() *telemetry.Counter { return s.counter }

// Deck returns a copy of the persisted deck.
func (s *Session) Deck() domain.Deck { return s.sink.Deck() }

// SlideCount is the number of slides in the deck.
func (s *Session) SlideCount() int { return len(s.h.Deck.Slides) }

// Show replaces the editor with a fresh one for slide i. Pending gestures on
// the previous slide are committed first.
func (s *Session) Show(i int) error {
	d := s.sink.Deck()
	if i < 0 || i >= len(d.Slides) {
		return fmt.Errorf("show slide: index %d out of range [0, %d)", i, len(d.Slides))
	}
	if s.slide != nil {
		s.slide.Coordinator().DeselectAll()
	}
	off := s.cfg.ToolbarOffset()
	sd := d.Slides[i]
	sl, err := editor.NewSlide(sd, s.sink.For(sd.ID), editor.Options{Services: s.svc, ToolbarOffset: &off, Logger: s.log})
	if err != nil {
		return fmt.Errorf("show slide %s: %w", sd.ID, err)
	}
	s.slide, s.index = sl, i
	s.Remeasure()
	return nil
}

// Remeasure refreshes the rendered size of every element of the current
// slide, so text without a stored height follows its content.
func (s *Session) Remeasure() {
	for _, c := range s.slide.Controllers() {
		c.SetRenderedSize(RenderedSize(c.State()))
	}
}

// AddSlide appends a slide built from a preset and shows it.
func (s *Session) AddSlide(layout domain.Layout, bullets int) error {
	sl, err := domain.NewSlide(layout, bullets)
	if err != nil {
		return err
	}
	s.h.Deck.Slides = append(s.h.Deck.Slides, sl)
	if err := storage.Save(s.h); err != nil {
		s.h.Deck.Slides = s.h.Deck.Slides[:len(s.h.Deck.Slides)-1]
		return err
	}
	if s.journal != nil {
		ctx := applog.ContextWithDeck(context.Background(), s.h.Root)
		for _, el := range sl.Elements {
			if err := s.journal.PutElement(ctx, sl.ID, el); err != nil {
				s.log.WarnContext(ctx, "journal element insert failed", slog.Any("err", err))
			}
		}
	}
	return s.Show(len(s.h.Deck.Slides) - 1)
}

// Reload adopts a deck changed on disk by another process and re-shows the
// current slide, clamped to the new slide count.
func (s *Session) Reload(d domain.Deck) error {
	s.sink.Reload(d)
	i := s.index
	if i >= len(d.Slides) {
		i = len(d.Slides) - 1
	}
	if i < 0 {
		return errors.New("reload: deck has no slides")
	}
	s.notices.Info("Deck changed on disk and was reloaded.")
	return s.Show(i)
}

// Watch reloads the deck when deck.json changes externally. apply runs the
// reload and must hop onto the UI goroutine.
func (s *Session) Watch(ctx context.Context, apply func(func())) error {
	w, err := storage.Watch(ctx, s.h, func(d domain.Deck) {
		apply(func() {
			if err := s.Reload(d); err != nil {
				s.log.Error("reload failed", slog.Any("err", err))
			}
		})
	})
	if err != nil {
		return err
	}
	s.watchMu.Lock()
	s.watcher = w
	s.watchMu.Unlock()
	return nil
}

// Close ends the session, reports usage counts and releases the journal.
func (s *Session) Close() error {
	if s.slide != nil {
		s.slide.Coordinator().DeselectAll()
	}
	s.counter.Report(telemetry.EventSessionSummary)
	var errs []error
	s.watchMu.Lock()
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
		s.watcher = nil
	}
	s.watchMu.Unlock()
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	return errors.Join(errs...)
}

// Export writes the deck as PDF, relative paths going to the exports folder.
func (s *Session) Export(out string) (string, error) {
	return export.ExportDeckPDF(s.h, out, export.PDFOptions{})
}

var measurer textlayout.Measurer

// RenderedSize is the unscaled on-screen size of an element. Text fills the
// rest of the slide width unless sized and grows with its wrapped content.
func RenderedSize(st editor.State) geom.Size {
	switch st.Kind {
	case domain.KindImage:
		return export.DefaultImageSize
	case domain.KindLogo:
		return export.DefaultLogoSize
	}
	w := geom.Clamp(domain.SlideWidth-st.Box.X, 0, domain.SlideWidth)
	if st.Box.Width != nil {
		w = *st.Box.Width
	}
	return measurer.Fit(st.Content, st.Style, w, textLineHeight)
}

// HandleRect is the grip square of h on the rectangle r.
func HandleRect(r geom.Rect, h transform.Handle) geom.Rect {
	var c geom.Pt
	switch h {
	case transform.HandleNW:
		c = r.Min()
	case transform.HandleNE:
		c = geom.Pt{X: r.X + r.W, Y: r.Y}
	case transform.HandleSW:
		c = geom.Pt{X: r.X, Y: r.Y + r.H}
	case transform.HandleSE:
		c = r.Max()
	case transform.HandleN:
		c = geom.Pt{X: r.X + r.W/2, Y: r.Y}
	case transform.HandleS:
		c = geom.Pt{X: r.X + r.W/2, Y: r.Y + r.H}
	case transform.HandleW:
		c = geom.Pt{X: r.X, Y: r.Y + r.H/2}
	case transform.HandleE:
		c = geom.Pt{X: r.X + r.W, Y: r.Y + r.H/2}
	default:
		return geom.Rect{}
	}
	return geom.R(c.X-HandleSize/2, c.Y-HandleSize/2, HandleSize, HandleSize)
}

// ToolbarRect is the area covered by the toolbar, or false when it is closed.
func ToolbarRect(sl *editor.Slide) (geom.Rect, bool) {
	if !sl.Toolbar().Open() {
		return geom.Rect{}, false
	}
	p := sl.Toolbar().Position()
	return geom.R(p.X, p.Y, ToolbarSize.W, ToolbarSize.H), true
}

// Reachable reports whether c can be hit. Deleted images and logos stay on
// the slide as empty placeholders so they can be refilled; deleted text is gone.
func Reachable(c *editor.Controller) bool {
	return !c.State().Hidden || c.Entity().Kind.Scaled()
}

// Target finds what lies under p: the toolbar, a grip of the selected element,
// an element body (text bodies are editable regions) or nothing. Later
// elements are drawn on top and win.
func Target(sl *editor.Slide, p geom.Pt) editor.Node {
	if r, ok := ToolbarRect(sl); ok && r.Contains(p) {
		return &editor.Tag{Mark: editor.Marker{Toolbar: true}}
	}
	cs := sl.Controllers()
	for i := len(cs) - 1; i >= 0; i-- {
		c := cs[i]
		if !c.State().IsSelected || !Reachable(c) {
			continue
		}
		b := c.Bounds()
		for _, h := range transform.ResizeHandles {
			if HandleRect(b, h).Contains(p) {
				return &editor.Tag{Mark: editor.Marker{Handle: h}, Up: &editor.Tag{Mark: editor.Marker{Element: c.ID()}}}
			}
		}
	}
	for i := len(cs) - 1; i >= 0; i-- {
		c := cs[i]
		if !Reachable(c) || !c.Bounds().Contains(p) {
			continue
		}
		el := &editor.Tag{Mark: editor.Marker{Element: c.ID()}}
		if c.Entity().IsText() {
			return &editor.Tag{Mark: editor.Marker{Editable: true}, Up: el}
		}
		return el
	}
	return nil
}

// PointerAt builds the pointer event for a press at p.
func PointerAt(sl *editor.Slide, p geom.Pt) editor.PointerEvent {
	return editor.PointerEvent{Pos: p, Target: Target(sl, p)}
}
