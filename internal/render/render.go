// Package render draws puzzle positions as PNG images
package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	"chesscoach/internal/puzzle"
)

const (
	DefaultSize = 480
	MinSize     = 160
	MaxSize     = 1600
)

// Options control board orientation and highlights
type Options struct {
	Size        int
	Flip        bool   // black at the bottom
	LastMove    string // UCI, both squares tinted
	CheckSquare string // king square tinted red
	Coordinates bool
}

type rgb [3]float64

var (
	lightSquare  = rgb{0.94, 0.85, 0.71}
	darkSquare   = rgb{0.71, 0.53, 0.39}
	lastMoveTint = rgb{0.96, 0.89, 0.35}
	checkTint    = rgb{0.91, 0.30, 0.24}
)

var (
	fontOnce sync.Once
	fontData *truetype.Font
	fontErr  error
)

func loadFont(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = truetype.Parse(gobold.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return truetype.NewFace(fontData, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// PNG draws the position described by fen
func PNG(fen string, opts Options) ([]byte, error) {
	b, err := puzzle.ParseFEN(fen)
	if err != nil {
		return nil, err
	}

	size := opts.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("image size %d out of range [%d, %d]", size, MinSize, MaxSize)
	}
	// whole-pixel squares
	size -= size % 8
	sq := float64(size / 8)

	highlights := map[string]rgb{}
	if len(opts.LastMove) >= 4 {
		mv := strings.ToLower(opts.LastMove)
		highlights[mv[:2]] = lastMoveTint
		highlights[mv[2:4]] = lastMoveTint
	}
	if opts.CheckSquare != "" {
		highlights[strings.ToLower(opts.CheckSquare)] = checkTint
	}

	dc := gg.NewContext(size, size)

	pieceFace, err := loadFont(sq * 0.55)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	coordFace, err := loadFont(sq * 0.18)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			square := squareAt(row, col, opts.Flip)
			x, y := float64(col)*sq, float64(row)*sq

			fill := lightSquare
			if (row+col)%2 == 1 {
				fill = darkSquare
			}
			dc.SetRGB(fill[0], fill[1], fill[2])
			dc.DrawRectangle(x, y, sq, sq)
			dc.Fill()

			if tint, ok := highlights[square]; ok {
				dc.SetRGBA(tint[0], tint[1], tint[2], 0.6)
				dc.DrawRectangle(x, y, sq, sq)
				dc.Fill()
			}

			if p := b.PieceAt(square); p != 0 {
				drawPiece(dc, pieceFace, p, x+sq/2, y+sq/2, sq)
			}
		}
	}

	if opts.Coordinates {
		drawCoordinates(dc, coordFace, sq, opts.Flip)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode board: %w", err)
	}
	return buf.Bytes(), nil
}

// drawPiece draws a disc in the piece color with its letter on top
func drawPiece(dc *gg.Context, face font.Face, p byte, cx, cy, sq float64) {
	white := p >= 'A' && p <= 'Z'

	dc.Push()
	if white {
		dc.SetRGB(0.98, 0.98, 0.96)
	} else {
		dc.SetRGB(0.12, 0.12, 0.14)
	}
	dc.DrawCircle(cx, cy, sq*0.38)
	dc.FillPreserve()
	dc.SetRGBA(0, 0, 0, 0.7)
	dc.SetLineWidth(sq * 0.03)
	dc.Stroke()

	dc.SetFontFace(face)
	if white {
		dc.SetRGB(0.1, 0.1, 0.1)
	} else {
		dc.SetRGB(0.95, 0.95, 0.95)
	}
	dc.DrawStringAnchored(strings.ToUpper(string(p)), cx, cy, 0.5, 0.35)
	dc.Pop()
}

func drawCoordinates(dc *gg.Context, face font.Face, sq float64, flip bool) {
	dc.Push()
	dc.SetFontFace(face)
	dc.SetRGBA(0, 0, 0, 0.55)
	for i := 0; i < 8; i++ {
		file := squareAt(7, i, flip)[:1]
		rank := squareAt(i, 0, flip)[1:]
		dc.DrawStringAnchored(file, float64(i)*sq+sq-4, 8*sq-4, 1, 0)
		dc.DrawStringAnchored(rank, 3, float64(i)*sq+3, 0, 1)
	}
	dc.Pop()
}

// squareAt maps a screen row and column to an algebraic square
func squareAt(row, col int, flip bool) string {
	if flip {
		row, col = 7-row, 7-col
	}
	return string([]byte{byte('a' + col), byte('8' - row)})
}
