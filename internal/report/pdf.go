// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Layout constants, in millimetres on an A4 portrait page.
const (
	pageMargin   = 19.0
	contentWidth = 210 - 2*pageMargin

	lineHeight   = 4.2
	columnGap    = 8.0
	columnWidth  = (contentWidth - columnGap) / 2
	sectionSpace = 6.0

	logoMaxHeight = 18.0
	logoMaxWidth  = 60.0

	primaryMaxWidth  = 150.0
	primaryMaxHeight = 100.0

	gridColumns   = 3
	gridCellWidth = 54.0
	gridCellHight = 40.0
	gridGap       = 4.0

	// breakY is the Y position past which a new block starts on a fresh
	// page.
	breakY = 297 - pageMargin - 12
)

// Section accent colors from the original report design.
var (
	titleColor   = [3]int{255, 92, 40}  // #ff5c28
	dividerColor = [3]int{89, 180, 166} // #59B4A6
	labelColor   = [3]int{51, 51, 51}   // #333333
)

// RenderOptions carries rendering configuration.
type RenderOptions struct {
	// FontPath optionally points at a Unicode TTF for right-to-left
	// scripts. Empty or unreadable paths fall back to the built-in fonts.
	FontPath string
}

// Render serializes a composed document to PDF bytes. Composition-level
// degradations (missing logo, missing Unicode font, unreadable image
// file) fall back rather than failing the run; only a broken PDF stream
// itself is an error.
func Render(doc *Document, opts RenderOptions) ([]byte, error) {
	r := newRenderer(opts)
	r.render(doc)

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf *fpdf.Fpdf

	// family is the active font family; unicodeFont reports whether it can
	// carry non-Latin scripts.
	family      string
	unicodeFont bool
}

func newRenderer(opts RenderOptions) *renderer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	r := &renderer{pdf: pdf, family: "Helvetica"}
	r.loadUnicodeFont(opts.FontPath)
	return r
}

// loadUnicodeFont registers the configured TTF for regular and bold
// styles. Any failure degrades to the built-in Latin fonts.
func (r *renderer) loadUnicodeFont(path string) {
	if path == "" {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	r.pdf.AddUTF8Font("unicode", "", path)
	r.pdf.AddUTF8Font("unicode", "B", path)
	if r.pdf.Err() {
		r.pdf.ClearError()
		return
	}
	r.family = "unicode"
	r.unicodeFont = true
}

func (r *renderer) text(s string) string {
	return shapeForDisplay(truncate(s), r.unicodeFont)
}

func (r *renderer) render(doc *Document) {
	r.pdf.SetTitle(doc.Title, true)
	if !doc.Generated.IsZero() {
		// Pin the PDF dates to the run timestamp so identical documents
		// serialize identically.
		r.pdf.SetCreationDate(doc.Generated)
		r.pdf.SetModificationDate(doc.Generated)
	}
	r.pdf.AddPage()

	r.renderHeader(doc)
	for _, sec := range doc.Sections {
		r.renderSection(sec)
	}
	r.renderFooter(doc)
}

func (r *renderer) renderHeader(doc *Document) {
	y := r.pdf.GetY()
	logoBottom := y
	for i, logo := range doc.Logos {
		w, h, err := fitImage(logo, logoMaxWidth, logoMaxHeight)
		if err != nil {
			continue
		}
		x := pageMargin
		if i == 1 {
			x = 210 - pageMargin - w
		}
		r.pdf.ImageOptions(logo, x, y, w, h, false, imageOpts(logo), 0, "")
		if y+h > logoBottom {
			logoBottom = y + h
		}
	}
	r.pdf.SetY(logoBottom + 4)

	r.pdf.SetFont(r.family, "B", 16)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.CellFormat(contentWidth, 9, r.text(doc.Title), "", 1, "C", false, 0, "")
	r.pdf.Ln(4)
}

func (r *renderer) renderSection(sec Section) {
	if r.pdf.GetY() > breakY {
		r.pdf.AddPage()
	}

	r.pdf.SetFont(r.family, "B", 13)
	r.pdf.SetTextColor(titleColor[0], titleColor[1], titleColor[2])
	r.pdf.CellFormat(contentWidth, 7, r.text(sec.Title), "", 1, "L", false, 0, "")
	r.pdf.Ln(1)

	if len(sec.Rows) == 0 && (sec.Images == nil || (sec.Images.Primary == nil && len(sec.Images.Additional) == 0)) {
		r.pdf.SetFont(r.family, "", 9)
		r.pdf.SetTextColor(0, 0, 0)
		r.pdf.CellFormat(contentWidth, lineHeight, "(No data available)", "", 1, "L", false, 0, "")
	} else {
		r.renderFieldColumns(sec.Rows)
		if sec.Images != nil {
			r.renderImages(sec.Images)
		}
	}

	r.renderDivider()
}

// renderFieldColumns lays populated rows out in two columns, filling the
// left column top to bottom first, as in the original report.
func (r *renderer) renderFieldColumns(rows []FieldRow) {
	if len(rows) == 0 {
		return
	}
	perColumn := (len(rows) + 1) / 2
	for i := 0; i < perColumn; i++ {
		y := r.pdf.GetY()
		if y > breakY {
			r.pdf.AddPage()
			y = r.pdf.GetY()
		}
		leftH := r.renderFieldCell(pageMargin, y, rows[i])
		rightH := 0.0
		if i+perColumn < len(rows) {
			rightH = r.renderFieldCell(pageMargin+columnWidth+columnGap, y, rows[i+perColumn])
		}
		if rightH > leftH {
			leftH = rightH
		}
		r.pdf.SetXY(pageMargin, y+leftH+1.5)
	}
}

// renderFieldCell draws one bold label plus wrapped value at (x, y) and
// returns the height consumed.
func (r *renderer) renderFieldCell(x, y float64, row FieldRow) float64 {
	r.pdf.SetXY(x, y)
	r.pdf.SetFont(r.family, "B", 9)
	r.pdf.SetTextColor(labelColor[0], labelColor[1], labelColor[2])
	r.pdf.MultiCell(columnWidth, lineHeight, r.text(row.Label)+":", "", "L", false)

	r.pdf.SetX(x)
	r.pdf.SetFont(r.family, "", 9)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.MultiCell(columnWidth, lineHeight, r.text(row.Value), "", "L", false)

	return r.pdf.GetY() - y
}

func (r *renderer) renderImages(block *ImageBlock) {
	r.pdf.Ln(2)

	if block.Primary != nil {
		r.pdf.SetFont(r.family, "B", 9)
		r.pdf.SetTextColor(labelColor[0], labelColor[1], labelColor[2])
		r.pdf.CellFormat(contentWidth, lineHeight, "Primary Display Photo:", "", 1, "L", false, 0, "")

		w, h := fitBox(float64(block.Primary.Width), float64(block.Primary.Height), primaryMaxWidth, primaryMaxHeight)
		if r.pdf.GetY()+h > 297-pageMargin {
			r.pdf.AddPage()
		}
		x := pageMargin + (contentWidth-w)/2
		r.pdf.ImageOptions(block.Primary.Path, x, r.pdf.GetY(), w, h, false, imageOpts(block.Primary.Path), 0, "")
		r.pdf.SetY(r.pdf.GetY() + h + 3)
	}

	if len(block.Additional) > 0 {
		r.pdf.SetFont(r.family, "B", 9)
		r.pdf.SetTextColor(labelColor[0], labelColor[1], labelColor[2])
		r.pdf.CellFormat(contentWidth, lineHeight, "Additional Images:", "", 1, "L", false, 0, "")
		r.renderImageGrid(block.Additional)
	}

	if block.Primary == nil && len(block.Additional) == 0 {
		r.pdf.SetFont(r.family, "", 9)
		r.pdf.SetTextColor(0, 0, 0)
		r.pdf.CellFormat(contentWidth, lineHeight, "(No images available)", "", 1, "L", false, 0, "")
	}
}

// renderImageGrid draws thumbnails in fixed rows of three. A row that
// would cross the bottom margin moves whole to the next page; images are
// never dropped.
func (r *renderer) renderImageGrid(images []Image) {
	for start := 0; start < len(images); start += gridColumns {
		end := start + gridColumns
		if end > len(images) {
			end = len(images)
		}
		y := r.pdf.GetY()
		if y+gridCellHight > 297-pageMargin {
			r.pdf.AddPage()
			y = r.pdf.GetY()
		}
		for col, img := range images[start:end] {
			w, h := fitBox(float64(img.Width), float64(img.Height), gridCellWidth, gridCellHight)
			x := pageMargin + float64(col)*(gridCellWidth+gridGap) + (gridCellWidth-w)/2
			r.pdf.ImageOptions(img.Path, x, y+(gridCellHight-h)/2, w, h, false, imageOpts(img.Path), 0, "")
		}
		r.pdf.SetY(y + gridCellHight + gridGap)
	}
}

func (r *renderer) renderDivider() {
	if r.pdf.GetY() > 297-pageMargin-2 {
		r.pdf.AddPage()
	}
	y := r.pdf.GetY() + 1.5
	r.pdf.SetDrawColor(dividerColor[0], dividerColor[1], dividerColor[2])
	r.pdf.SetLineWidth(0.6)
	r.pdf.Line(pageMargin, y, 210-pageMargin, y)
	r.pdf.SetY(y + sectionSpace)
}

func (r *renderer) renderFooter(doc *Document) {
	r.pdf.SetFont(r.family, "", 8)
	r.pdf.SetTextColor(120, 120, 120)
	stamp := "Generated " + doc.Generated.Format("2006-01-02 15:04")
	r.pdf.CellFormat(contentWidth, lineHeight, stamp, "", 1, "R", false, 0, "")
}

// fitBox scales (w, h) to fit inside (maxW, maxH) preserving aspect
// ratio. Unknown dimensions fill the box.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	return w * scale, h * scale
}

// fitImage reads an image file's pixel dimensions and fits them into the
// given box.
func fitImage(path string, maxW, maxH float64) (float64, float64, error) {
	w, h, err := imageDims(path)
	if err != nil {
		return 0, 0, err
	}
	fw, fh := fitBox(float64(w), float64(h), maxW, maxH)
	return fw, fh, nil
}

func imageOpts(path string) fpdf.ImageOptions {
	t := "PNG"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		t = "JPG"
	}
	return fpdf.ImageOptions{ImageType: t, ReadDpi: false}
}

// imageDims reads a file's pixel dimensions by content, without decoding
// the full image.
func imageDims(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
