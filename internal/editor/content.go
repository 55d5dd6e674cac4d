/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Previewer renders image bytes into a self-contained URL for local display.
type Previewer interface {
	Preview(data []byte) (string, error)
}

// Notifier surfaces transient, non-blocking messages.
type Notifier interface {
	Warn(msg string)
}

// Services are the collaborators used for content replacement. Any may be nil.
type Services struct {
	Uploader  Uploader
	Previewer Previewer
	Notifier  Notifier
}

const uploadFailedNotice = "Upload failed. Showing a local preview that will not be saved."

// ImageSource is the resolved content of an image replacement.
type ImageSource struct {
	URL   string
	Local bool  // ephemeral preview, never persisted
	Cause error // upload failure behind a local preview
}

// ResolveImage uploads data and falls back to a local preview on failure.
// It does not touch controller state and may run off the UI goroutine.
func (s *Slide) ResolveImage(ctx context.Context, filename string, data []byte) (ImageSource, error) {
	var cause error
	if s.svc.Uploader != nil {
		url, err := s.svc.Uploader.Upload(ctx, filename, data)
		if err == nil {
			return ImageSource{URL: url}, nil
		}
		cause = err
	} else {
		cause = errors.New("no uploader configured")
	}
	s.log.Warn("upload failed, falling back to local preview", slog.String("file", filename), slog.Any("err", cause))
	if s.svc.Previewer == nil {
		return ImageSource{}, fmt.Errorf("upload %s: %w", filename, cause)
	}
	preview, err := s.svc.Previewer.Preview(data)
	if err != nil {
		return ImageSource{}, fmt.Errorf("preview %s: %w", filename, err)
	}
	return ImageSource{URL: preview, Local: true, Cause: cause}, nil
}

// ApplyImage installs a resolved image. Uploaded URLs are persisted; local
// previews only change the live state and raise a notification.
func (c *Controller) ApplyImage(src ImageSource) error {
	if c.entity.IsText() {
		return ErrNotImage
	}
	if !src.Local {
		c.ReplaceContent(src.URL)
		return nil
	}
	c.set(func(s *State) {
		s.Content = src.URL
		s.Hidden = false
	})
	if n := c.slide.svc.Notifier; n != nil {
		n.Warn(uploadFailedNotice)
	}
	return nil
}

// ReplaceImage resolves and applies an image in one blocking call.
func (c *Controller) ReplaceImage(ctx context.Context, filename string, data []byte) error {
	if c.entity.IsText() {
		return ErrNotImage
	}
	src, err := c.slide.ResolveImage(ctx, filename, data)
	if err != nil {
		if n := c.slide.svc.Notifier; n != nil {
			n.Warn("Could not load image: " + filename)
		}
		return err
	}
	return c.ApplyImage(src)
}
