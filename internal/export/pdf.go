/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders decks to PDF.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"slidedeck/internal/domain"
	"slidedeck/internal/geom"
	"slidedeck/internal/storage"
)

// Unscaled sizes of image and logo elements, in slide units.
var (
	DefaultImageSize = geom.Size{W: 320, H: 240}
	DefaultLogoSize  = geom.Size{W: 120, H: 120}
)

// PDFOptions controls PDF export. One slide unit maps to one point.
type PDFOptions struct {
	ImageSize geom.Size
	LogoSize  geom.Size
	// TextHeight is used for text boxes without a stored height.
	TextHeight float64
	// Slides selects slide indexes; empty exports all.
	Slides []int
	// AssetsDir resolves relative image paths.
	AssetsDir string
	// Frames draws a hairline around image and logo elements.
	Frames bool
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.ImageSize.W <= 0 || o.ImageSize.H <= 0 {
		o.ImageSize = DefaultImageSize
	}
	if o.LogoSize.W <= 0 || o.LogoSize.H <= 0 {
		o.LogoSize = DefaultLogoSize
	}
	if o.TextHeight <= 0 {
		o.TextHeight = 50
	}
	return o
}

// DeckPDF writes d as a PDF with one page per slide. Hidden elements are skipped.
func DeckPDF(d domain.Deck, w io.Writer, opt PDFOptions) error {
	opt = opt.withDefaults()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		OrientationStr: "P",
		Size:           gofpdf.SizeType{Wd: domain.SlideWidth, Ht: domain.SlideHeight},
	})
	pdf.SetTitle(d.Title, true)
	if d.Metadata.Author != "" {
		pdf.SetAuthor(d.Metadata.Author, true)
	}
	pdf.SetCreator("slidedeck", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r := renderer{pdf: pdf, tr: tr, opt: opt}
	for _, idx := range slideIndexes(len(d.Slides), opt.Slides) {
		pdf.AddPage()
		for _, el := range d.Slides[idx].Elements {
			if el.Hidden {
				continue
			}
			r.element(el)
			if err := pdf.Error(); err != nil {
				return fmt.Errorf("slide %d element %s: %w", idx+1, el.ID, err)
			}
		}
	}
	if pdf.PageCount() == 0 {
		return fmt.Errorf("deck %q has no slides to export", d.Title)
	}
	return pdf.Output(w)
}

// ExportDeckPDF writes the deck of h to outPath. Relative paths land in the deck's exports folder.
func ExportDeckPDF(h *storage.DeckHandle, outPath string, opt PDFOptions) (string, error) {
	if h == nil {
		return "", fmt.Errorf("deck handle is nil")
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(h.Root, storage.ExportsDirName, outPath)
	}
	if opt.AssetsDir == "" {
		opt.AssetsDir = filepath.Join(h.Root, storage.AssetsDirName)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	var buf bytes.Buffer
	if err := DeckPDF(h.Deck, &buf, opt); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return outPath, nil
}

func slideIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, len(specific))
	for _, i := range specific {
		if i >= 0 && i < total {
			out = append(out, i)
		}
	}
	return out
}

type renderer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	opt PDFOptions
}

func (r renderer) element(el domain.Element) {
	switch el.Kind {
	case domain.KindText:
		r.text(el)
	case domain.KindImage:
		r.picture(el, r.opt.ImageSize)
	case domain.KindLogo:
		r.picture(el, r.opt.LogoSize)
	}
}

func (r renderer) text(el domain.Element) {
	if strings.TrimSpace(el.Content) == "" {
		return
	}
	st := el.StyleOrDefault()
	box := el.BoxOrDefault()
	sz := box.Size(geom.Size{W: domain.SlideWidth - box.X, H: r.opt.TextHeight})

	fontStyle := ""
	if st.Bold {
		fontStyle += "B"
	}
	if st.Italic {
		fontStyle += "I"
	}
	size := st.FontSize
	if size <= 0 {
		size = domain.DefaultStyle().FontSize
	}
	r.pdf.SetFont(coreFont(st.Font), fontStyle, size)
	cr, cg, cb := parseHex(st.Color)
	r.pdf.SetTextColor(cr, cg, cb)

	r.pdf.ClipRect(box.X, box.Y, sz.W, sz.H, false)
	r.pdf.SetXY(box.X, box.Y)
	r.pdf.MultiCell(sz.W, size*1.2, r.tr(el.Content), "", alignStr(st.Align), false)
	r.pdf.ClipEnd()
}

func (r renderer) picture(el domain.Element, base geom.Size) {
	s := el.ScaledOrDefault()
	w := base.W * s.Scale * s.ScaleX
	h := base.H * s.Scale * s.ScaleY
	if name, ok := r.register(el); ok {
		r.pdf.ImageOptions(name, s.X, s.Y, w, h, false, gofpdf.ImageOptions{}, 0, "")
	} else {
		// Remote or unreadable sources are drawn as a labelled placeholder.
		r.pdf.SetFillColor(235, 235, 235)
		r.pdf.Rect(s.X, s.Y, w, h, "F")
		if el.Content != "" {
			r.pdf.SetFont("Helvetica", "", 9)
			r.pdf.SetTextColor(120, 120, 120)
			r.pdf.ClipRect(s.X, s.Y, w, h, false)
			r.pdf.SetXY(s.X+4, s.Y+4)
			r.pdf.MultiCell(w-8, 11, r.tr(el.Content), "", "L", false)
			r.pdf.ClipEnd()
		}
	}
	if r.opt.Frames {
		r.pdf.SetDrawColor(160, 160, 160)
		r.pdf.SetLineWidth(0.5)
		r.pdf.Rect(s.X, s.Y, w, h, "D")
	}
}

// register makes the element's image known to the document. Data URLs and
// local files are supported; anything that does not decode is skipped.
func (r renderer) register(el domain.Element) (string, bool) {
	src := strings.TrimSpace(el.Content)
	if src == "" {
		return "", false
	}
	var (
		typ  string
		data []byte
		err  error
	)
	if meta, payload, ok := strings.Cut(src, ","); ok && strings.HasPrefix(meta, "data:") {
		if !strings.HasSuffix(meta, ";base64") {
			return "", false
		}
		typ = imageType(strings.TrimPrefix(strings.SplitN(meta, ";", 2)[0], "data:"))
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		if strings.Contains(src, "://") {
			return "", false
		}
		path := src
		if !filepath.IsAbs(path) && r.opt.AssetsDir != "" {
			path = filepath.Join(r.opt.AssetsDir, path)
		}
		typ = imageType(filepath.Ext(path))
		data, err = os.ReadFile(path)
	}
	if err != nil || typ == "" {
		return "", false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", false
	}
	name := "el-" + el.ID
	info := r.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: typ}, bytes.NewReader(data))
	return name, info != nil && r.pdf.Ok()
}

// imageType maps a MIME type or file extension to a gofpdf image type.
func imageType(s string) string {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png", "image/png":
		return "PNG"
	case "jpg", "jpeg", "image/jpeg":
		return "JPG"
	case "gif", "image/gif":
		return "GIF"
	}
	return ""
}

func coreFont(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "times", "times new roman", "serif":
		return "Times"
	case "courier", "courier new", "monospace":
		return "Courier"
	default:
		return "Helvetica"
	}
}

func alignStr(a domain.Align) string {
	switch a {
	case domain.AlignCenter:
		return "C"
	case domain.AlignRight:
		return "R"
	default:
		return "L"
	}
}

// parseHex reads #rrggbb, falling back to the default text color.
func parseHex(s string) (int, int, int) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		s = strings.TrimPrefix(domain.DefaultStyle().Color, "#")
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		v = 0x222222
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
