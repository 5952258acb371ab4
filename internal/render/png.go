// Package render draws a board to a PNG image.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/starford/corkboard/internal/board"
)

const (
	padding  = 40.0
	maxSide  = 4096.0
	fontSize = 13.0
	inset    = 10.0
)

// Colours for items that carry none of their own.
const (
	taskFill   = "#ffffff"
	widgetFill = "#f8fafc"
	borderHex  = "#94a3b8"
	textHex    = "#1e293b"
	groupHex   = "#64748b"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

var (
	fontOnce sync.Once
	ttf      *truetype.Font
	fontErr  error
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		ttf, fontErr = truetype.Parse(gomono.TTF)
	})
	return ttf, fontErr
}

// PNG draws items in paint order and writes the image to w. The image
// covers the extent of all items plus a margin and is scaled down when it
// would exceed 4096 pixels on a side.
func PNG(w io.Writer, items []board.Item) error {
	extent, ok := board.Extent(items)
	if !ok {
		extent = board.Rect{Max: board.Position{X: 400, Y: 300}}
	}
	width := extent.Max.X - extent.Min.X + 2*padding
	height := extent.Max.Y - extent.Min.Y + 2*padding
	scale := math.Min(1, maxSide/math.Max(width, height))

	f, err := loadFont()
	if err != nil {
		return fmt.Errorf("render: parse font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	dc := gg.NewContext(pixels(width*scale), pixels(height*scale))
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(face)
	dc.Scale(scale, scale)
	dc.Translate(padding-extent.Min.X, padding-extent.Min.Y)

	for _, it := range board.PaintOrder(items) {
		drawItem(dc, it)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode: %w", err)
	}
	return nil
}

func drawItem(dc *gg.Context, it board.Item) {
	x, y := it.Position.X, it.Position.Y
	wd, ht := it.Size.Width, it.Size.Height

	switch b := it.Body.(type) {
	case board.Group:
		if fill, ok := parseHex(b.Color); ok {
			dc.SetHexColor(fill)
			dc.DrawRoundedRectangle(x, y, wd, ht, 12)
			dc.Fill()
		}
		dc.SetDash(8, 6)
		dc.SetHexColor(groupHex)
		dc.SetLineWidth(2)
		dc.DrawRoundedRectangle(x, y, wd, ht, 12)
		dc.Stroke()
		dc.SetDash()
		dc.SetHexColor(groupHex)
		dc.DrawString(b.Title, x+inset, y+inset+fontSize)
		return
	case board.Note:
		card(dc, x, y, wd, ht, orDefault(b.Color, board.NoteColors[0]))
		text(dc, b.Content, x, y, wd, ht)
	case board.Task:
		card(dc, x, y, wd, ht, taskFill)
		mark := "[ ]"
		if b.Completed {
			mark = "[x]"
		}
		body := fmt.Sprintf("%s %s\n%s", mark, b.Title, b.Priority)
		if b.Deadline != "" {
			body += " · due " + b.Deadline
		}
		if b.Description != "" {
			body += "\n\n" + b.Description
		}
		text(dc, body, x, y, wd, ht)
	case board.ExpenseWidget:
		card(dc, x, y, wd, ht, widgetFill)
		lines := []string{b.Title, ""}
		for _, e := range b.Expenses {
			lines = append(lines, fmt.Sprintf("%s  %s", e.Amount.StringFixed(2), e.Description))
		}
		text(dc, strings.Join(lines, "\n"), x, y, wd, ht)
	}
}

func card(dc *gg.Context, x, y, w, h float64, fill string) {
	dc.SetHexColor(fill)
	dc.DrawRoundedRectangle(x, y, w, h, 8)
	dc.Fill()
	dc.SetHexColor(borderHex)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, w, h, 8)
	dc.Stroke()
}

// text draws s wrapped to the card and clipped to its height.
func text(dc *gg.Context, s string, x, y, w, h float64) {
	dc.SetHexColor(textHex)
	lineHeight := fontSize * 1.4
	maxLines := int((h - 2*inset) / lineHeight)
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, dc.WordWrap(para, w-2*inset)...)
	}
	if len(lines) > maxLines {
		lines = lines[:max(maxLines, 0)]
	}
	for i, line := range lines {
		dc.DrawString(line, x+inset, y+inset+fontSize+float64(i)*lineHeight)
	}
}

func pixels(v float64) int {
	return max(1, int(math.Round(v)))
}

func parseHex(s string) (string, bool) {
	if hexColor.MatchString(s) {
		return s, true
	}
	return "", false
}

func orDefault(s, def string) string {
	if v, ok := parseHex(s); ok {
		return v
	}
	return def
}
