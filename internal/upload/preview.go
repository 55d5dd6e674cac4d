/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package upload

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultPreviewMaxPx bounds the longer side of a local preview.
const DefaultPreviewMaxPx = 1024

// Previewer turns image bytes into a PNG data URL, downscaled to MaxPx.
type Previewer struct {
	MaxPx int
}

func NewPreviewer(maxPx int) *Previewer {
	if maxPx <= 0 {
		maxPx = DefaultPreviewMaxPx
	}
	return &Previewer{MaxPx: maxPx}
}

// Preview decodes PNG, JPEG, GIF, WebP or BMP data.
func (p *Previewer) Preview(data []byte) (string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("preview: decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > p.MaxPx || b.Dy() > p.MaxPx {
		img = imaging.Fit(img, p.MaxPx, p.MaxPx, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("preview: encode %s as png: %w", format, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
