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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"slidedeck/internal/config"
	"slidedeck/internal/crash"
	"slidedeck/internal/domain"
	"slidedeck/internal/editor"
	applog "slidedeck/internal/log"
	"slidedeck/internal/notify"
	"slidedeck/internal/storage"
	"slidedeck/internal/version"
)

// Run starts the desktop editor. dir optionally names a deck to open.
func Run(dir string) error {
	cfg, token, err := config.Load()
	if err != nil {
		applog.WithComponent("ui").Warn("config load failed, using defaults", slog.Any("err", err))
	}
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	var h *storage.DeckHandle
	defer crash.Recover(&h)

	fyneApp := app.NewWithID("slidedeck")
	w := fyneApp.NewWindow("Slide Deck")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Open a deck folder to start editing.")
	var sess *Session
	sc := NewSlideCanvas(nil)
	sc.OnFocus = func(e *widget.Entry) { w.Canvas().Focus(e) }

	slides := widget.NewList(
		func() int {
			if sess == nil {
				return 0
			}
			return sess.SlideCount()
		},
		func() fyne.CanvasObject { return widget.NewLabel("Slide 000") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(fmt.Sprintf("Slide %d", id+1))
		},
	)
	slides.OnSelected = func(id widget.ListItemID) {
		if sess == nil || id == sess.SlideIndex() {
			return
		}
		if err := sess.Show(id); err != nil {
			dialog.ShowError(err, w)
			return
		}
		sc.Refresh()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open := func(path string) error {
		abs, _ := filepath.Abs(path)
		s, err := OpenSession(abs, cfg, token)
		if err != nil {
			return err
		}
		if sess != nil {
			_ = sess.Close()
		}
		sess, h = s, s.Handle()
		s.Notices().Subscribe(func(n notify.Notification) {
			fyne.Do(func() { status.SetText(string(n.Level) + ": " + n.Message) })
		})
		if err := s.Watch(ctx, fyne.Do); err != nil {
			l.Warn("watch deck failed", slog.Any("err", err))
		}
		sc.SetSession(s)
		slides.Refresh()
		slides.Select(0)
		w.SetTitle(fmt.Sprintf("Slide Deck - %s", h.Deck.Title))
		status.SetText("Opened " + abs)
		addRecentDeck(prefs, abs)
		l.Info("deck opened", slog.String("root", abs), slog.Int("slides", s.SlideCount()))
		return nil
	}

	openItem := fyne.NewMenuItem("Open Deck…", func() {
		dialog.ShowFolderOpen(func(lu fyne.ListableURI, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if lu == nil {
				return
			}
			if err := open(lu.Path()); err != nil {
				dialog.ShowError(err, w)
			}
		}, w)
	})
	var recentItems []*fyne.MenuItem
	for _, p := range loadRecentDecks(prefs) {
		p := p
		recentItems = append(recentItems, fyne.NewMenuItem(p, func() {
			if err := open(p); err != nil {
				dialog.ShowError(err, w)
			}
		}))
	}
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("", recentItems...)

	var addItems []*fyne.MenuItem
	for _, layout := range domain.Layouts {
		layout := layout
		addItems = append(addItems, fyne.NewMenuItem(string(layout), func() {
			if sess == nil {
				return
			}
			bullets := 0
			if layout == domain.LayoutBullets {
				bullets = 3
			}
			if err := sess.AddSlide(layout, bullets); err != nil {
				dialog.ShowError(err, w)
				return
			}
			slides.Refresh()
			slides.Select(sess.SlideIndex())
			sc.Refresh()
		}))
	}
	addItem := fyne.NewMenuItem("Add Slide", nil)
	addItem.ChildMenu = fyne.NewMenu("", addItems...)

	exportItem := fyne.NewMenuItem("Export PDF…", func() {
		if sess == nil {
			dialog.ShowInformation("Export PDF", "No deck open.", w)
			return
		}
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			out := uc.URI().Path()
			_ = uc.Close()
			path, err := sess.Export(out)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			dialog.ShowInformation("Export PDF", "Exported to "+path, w)
		}, w)
		save.SetFileName("deck.pdf")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf"}))
		save.Show()
	})

	replaceItem := fyne.NewMenuItem("Replace Image…", func() {
		c := sc.selected()
		if c == nil || c.Entity().IsText() {
			dialog.ShowInformation("Replace Image", "Select an image or logo first.", w)
			return
		}
		fo := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			sc.ReplaceImage(c, rc.URI().Name(), data, time.Duration(cfg.Upload.TimeoutMs)*time.Millisecond)
		}, w)
		fo.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}))
		fo.Show()
	})

	aboutItem := fyne.NewMenuItem("About Slide Deck", func() {
		info := fmt.Sprintf("Slide Deck\nVersion: %s\nOS: %s\nArch: %s\nGo: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		dialog.ShowInformation("About", info, w)
	})

	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", openItem, recentItem, fyne.NewMenuItemSeparator(), exportItem),
		fyne.NewMenu("Slide", addItem, replaceItem),
		fyne.NewMenu("Help", aboutItem),
	))

	w.Canvas().SetOnTypedKey(func(k *fyne.KeyEvent) {
		if sess == nil {
			return
		}
		switch k.Name {
		case fyne.KeyEscape:
			sess.Slide().Escape()
			sc.Refresh()
		case fyne.KeyDelete:
			if c := sc.selected(); c != nil && !c.State().Editing {
				c.Delete()
				sc.Refresh()
			}
		}
	})

	split := container.NewHSplit(slides, sc)
	split.Offset = 0.15
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if sess != nil {
			if err := sess.Close(); err != nil {
				l.Warn("close session", slog.Any("err", err))
			}
		}
		w.Close()
	})

	if dir != "" {
		if err := open(dir); err != nil {
			l.Error("auto-open deck failed", slog.Any("err", err))
			status.SetText("Could not open " + dir + ": " + err.Error())
		}
	}

	w.ShowAndRun()
	return nil
}

// ReplaceImage uploads data off the UI goroutine and applies the result back on it.
func (c *SlideCanvas) ReplaceImage(ctrl *editor.Controller, name string, data []byte, timeout time.Duration) {
	if c.sess == nil {
		return
	}
	sl := c.sess.Slide()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		src, err := sl.ResolveImage(ctx, name, data)
		fyne.Do(func() {
			if err != nil {
				c.sess.Notices().Error("Could not load image " + name + ": " + err.Error())
				return
			}
			if err := ctrl.ApplyImage(src); err != nil {
				c.sess.Notices().Error(err.Error())
			}
			c.Refresh()
		})
	}()
}

const recentPrefsKey = "recent.decks"
const recentMax = 10

func loadRecentDecks(p fyne.Preferences) []string {
	out := []string{}
	for _, s := range p.StringListWithFallback(recentPrefsKey, nil) {
		if _, err := os.Stat(filepath.Join(s, storage.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentDeck(p fyne.Preferences, path string) {
	out := []string{path}
	for _, s := range loadRecentDecks(p) {
		if s != path {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	p.SetStringList(recentPrefsKey, out)
}
