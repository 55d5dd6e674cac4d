/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"slidedeck/internal/backend"
	"slidedeck/internal/config"
	"slidedeck/internal/crash"
	"slidedeck/internal/domain"
	"slidedeck/internal/export"
	applog "slidedeck/internal/log"
	"slidedeck/internal/storage"
	"slidedeck/internal/ui"
	"slidedeck/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Slide Deck")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  slidedeck version|-v|--version              Show version")
	fmt.Fprintln(w, "  slidedeck init <dir> <title>                Create a new deck at <dir>")
	fmt.Fprintln(w, "  slidedeck open <dir>                        Open the deck at <dir> and print a summary")
	fmt.Fprintln(w, "  slidedeck add-slide <dir> <layout> [items]  Append a preset slide (title, title-image, bullets, logo-title)")
	fmt.Fprintln(w, "  slidedeck history <dir> <element> [limit]   Show journaled changes of one element")
	fmt.Fprintln(w, "  slidedeck search <dir> <text>               Find elements whose text contains <text>")
	fmt.Fprintln(w, "  slidedeck export <dir> <out.pdf> [slides]   Export as PDF; slides is a 1-based list like 1,3")
	fmt.Fprintln(w, "  slidedeck push <dir> [server]               Store the deck on the backend")
	fmt.Fprintln(w, "  slidedeck pull <dir> <id> [server]          Fetch a deck from the backend into <dir>")
	fmt.Fprintln(w, "  slidedeck serve                             Run the upload and deck server")
	fmt.Fprintln(w, "  slidedeck ui [<dir>]                        Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	applog.Init(cfg.LogOptions())
	var h *storage.DeckHandle
	defer crash.Recover(&h)
	code := run(os.Args[1:], cfg, os.Stdout, &h)
	if code != 0 {
		os.Exit(code)
	}
}

// run executes one command. h receives the deck the command opened so the
// crash handler can autosave it.
func run(args []string, cfg config.AppConfig, out io.Writer, h **storage.DeckHandle) int {
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(out)
		return 0
	}
	fail := func(op string, err error) int {
		l.Error(op+" failed", slog.Any("err", err))
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	need := func(n int, msg string) bool {
		if len(args) < n {
			fmt.Fprintln(out, msg)
			usage(out)
			return false
		}
		return true
	}
	openDeck := func(dir string) (*storage.DeckHandle, error) {
		abs, _ := filepath.Abs(dir)
		dh, err := storage.Open(abs)
		if err == nil {
			*h = dh
		}
		return dh, err
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, "Slide Deck")
		fmt.Fprintln(out, version.String())
		return 0
	case "init":
		if !need(3, "init requires <dir> and <title>") {
			return 2
		}
		abs, _ := filepath.Abs(args[1])
		l.Info("init deck", slog.String("root", abs), slog.String("title", args[2]))
		dh, err := storage.InitDeck(abs, domain.NewDeck(args[2]))
		if err != nil {
			return fail("init", err)
		}
		*h = dh
		fmt.Fprintln(out, "Created deck at", abs)
		return 0
	case "open":
		if !need(2, "open requires <dir>") {
			return 2
		}
		dh, err := openDeck(args[1])
		if err != nil {
			return fail("open", err)
		}
		fmt.Fprintf(out, "Opened deck: %s\n", dh.Deck.Title)
		fmt.Fprintf(out, "Slides: %d\n", len(dh.Deck.Slides))
		for i, s := range dh.Deck.Slides {
			fmt.Fprintf(out, "  %d. %s (%d elements)\n", i+1, s.Layout, len(s.Elements))
		}
		fmt.Fprintln(out, "Root:", dh.Root)
		return 0
	case "add-slide":
		if !need(3, "add-slide requires <dir> and <layout>") {
			return 2
		}
		items := 0
		if len(args) > 3 {
			n, err := strconv.Atoi(args[3])
			if err != nil {
				return fail("add-slide", fmt.Errorf("item count: %w", err))
			}
			items = n
		}
		slide, err := domain.NewSlide(domain.Layout(args[2]), items)
		if err != nil {
			return fail("add-slide", err)
		}
		dh, err := openDeck(args[1])
		if err != nil {
			return fail("add-slide", err)
		}
		dh.Deck.Slides = append(dh.Deck.Slides, slide)
		if err := storage.Save(dh); err != nil {
			return fail("add-slide", err)
		}
		fmt.Fprintf(out, "Added %s slide %d (%s)\n", slide.Layout, len(dh.Deck.Slides), slide.ID)
		return 0
	case "history":
		if !need(3, "history requires <dir> and <element>") {
			return 2
		}
		limit := 20
		if len(args) > 3 {
			if n, err := strconv.Atoi(args[3]); err == nil {
				limit = n
			}
		}
		dh, err := openDeck(args[1])
		if err != nil {
			return fail("history", err)
		}
		j, err := storage.OpenJournal(dh.Root)
		if err != nil {
			return fail("history", err)
		}
		defer j.Close()
		commits, err := j.History(context.Background(), args[2], limit)
		if err != nil {
			return fail("history", err)
		}
		if len(commits) == 0 {
			fmt.Fprintln(out, "No journaled changes.")
		}
		for _, c := range commits {
			types := make([]string, len(c.Types))
			for i, t := range c.Types {
				types[i] = string(t)
			}
			fmt.Fprintf(out, "%d  %s  %s\n", c.ID, c.At.Format("2006-01-02 15:04:05"), strings.Join(types, ","))
		}
		return 0
	case "search":
		if !need(3, "search requires <dir> and <text>") {
			return 2
		}
		dh, err := openDeck(args[1])
		if err != nil {
			return fail("search", err)
		}
		res, err := storage.Search(context.Background(), dh, storage.SearchQuery{Text: strings.Join(args[2:], " ")})
		if err != nil {
			return fail("search", err)
		}
		slideNo := map[string]int{}
		for i, s := range dh.Deck.Slides {
			slideNo[s.ID] = i + 1
		}
		for _, r := range res {
			fmt.Fprintf(out, "slide %d  %s  %s\n", slideNo[r.SlideID], r.ElementID, r.Snippet)
		}
		fmt.Fprintf(out, "%d match(es)\n", len(res))
		return 0
	case "export":
		if !need(3, "export requires <dir> and <out.pdf>") {
			return 2
		}
		dh, err := openDeck(args[1])
		if err != nil {
			return fail("export", err)
		}
		opt := export.PDFOptions{}
		if len(args) > 3 {
			idx, err := parseSlideList(args[3])
			if err != nil {
				return fail("export", err)
			}
			opt.Slides = idx
		}
		path, err := export.ExportDeckPDF(dh, args[2], opt)
		if err != nil {
			return fail("export", err)
		}
		fmt.Fprintln(out, "Exported to", path)
		return 0
	case "push":
		if !need(2, "push requires <dir>") {
			return 2
		}
		dh, err := openDeck(args[1])
		if err != nil {
			return fail("push", err)
		}
		c := backend.NewClient(serverURL(cfg, args, 2), config.ServerToken())
		sum, err := c.PutDeck(context.Background(), dh.Deck, 0)
		if err != nil {
			return fail("push", err)
		}
		fmt.Fprintf(out, "Pushed %s (version %d)\n", sum.ID, sum.Version)
		return 0
	case "pull":
		if !need(3, "pull requires <dir> and <id>") {
			return 2
		}
		c := backend.NewClient(serverURL(cfg, args, 3), config.ServerToken())
		d, ver, err := c.GetDeck(context.Background(), args[2])
		if err != nil {
			return fail("pull", err)
		}
		abs, _ := filepath.Abs(args[1])
		dh, err := storage.Open(abs)
		if err != nil {
			dh, err = storage.InitDeck(abs, d)
		} else {
			dh.Deck = d
			err = storage.Save(dh)
		}
		if err != nil {
			return fail("pull", err)
		}
		*h = dh
		fmt.Fprintf(out, "Pulled %s (version %d) into %s\n", d.ID, ver, abs)
		return 0
	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		bc := backend.Config{
			Addr:       cfg.Backend.Addr,
			StorageDir: cfg.Backend.StorageDir,
			PublicURL:  cfg.Backend.PublicURL,
			PGDSN:      cfg.Backend.PGDSN,
			Token:      config.ServerToken(),
			Release:    true,
		}
		if err := backend.Start(ctx, bc); err != nil {
			return fail("serve", err)
		}
		return 0
	case "ui":
		var dir string
		if len(args) >= 2 {
			dir = args[1]
		}
		if err := ui.Run(dir); err != nil {
			fmt.Fprintln(out, "Error:", err)
			return 1
		}
		return 0
	}
	usage(out)
	return 2
}

// serverURL picks the backend base URL from args[i], the configured public
// URL, or the local bind address.
func serverURL(cfg config.AppConfig, args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	if cfg.Backend.PublicURL != "" {
		return cfg.Backend.PublicURL
	}
	addr := cfg.Backend.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// parseSlideList turns "1,3" into zero-based slide indexes.
func parseSlideList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid slide number %q", part)
		}
		out = append(out, n-1)
	}
	return out, nil
}
