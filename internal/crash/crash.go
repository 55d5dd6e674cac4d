/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report, an autosave of the open
// deck and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "slidedeck/internal/log"
	"slidedeck/internal/storage"
	"slidedeck/internal/telemetry"
	"slidedeck/internal/version"
)

// ExitCode is the process exit code after a recovered panic.
const ExitCode = 2

var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

// Recover captures a panic, logs it with its stack, writes a crash report,
// autosaves the deck *hp points at (if any) and exits with ExitCode. hp is
// read only after the panic, so the deck may be opened after the defer.
//
// Usage: defer crash.Recover(&h)
func Recover(hp **storage.DeckHandle) {
	r := recover()
	if r == nil {
		return
	}
	var h *storage.DeckHandle
	if hp != nil {
		h = *hp
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(h, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if h != nil {
		if path, err := storage.AutosaveCrash(h); err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else {
			l.Info("crash autosave written", slog.String("path", path))
		}
	}
	_, _ = fmt.Fprintf(stderr, "slidedeck hit a fatal error. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(ExitCode)
}

func report(h *storage.DeckHandle, panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "slidedeck crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if h != nil {
		fmt.Fprintf(&buf, "Deck: %s (%d slides)\n", h.Root, len(h.Deck.Slides))
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\nStack:\n%s\n", panicVal, stack)
	return buf.Bytes()
}

// writeReport stores the report under the deck's backups folder, or the temp
// dir without a deck, and hands it to the opt-in crash upload.
func writeReport(h *storage.DeckHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if h != nil && h.Root != "" {
		dir = filepath.Join(h.Root, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = os.TempDir()
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405.000")))
	body := report(h, panicVal, stack)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(body)
	return path, nil
}
