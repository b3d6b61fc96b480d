// Package render draws the board as a PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
)

const (
	cellSize   = 36
	margin     = 40
	titleSpace = 24
	stoneSize  = cellSize - 4
)

var (
	boardColor     = color.RGBA{222, 184, 135, 255}
	lineColor      = color.RGBA{92, 64, 36, 255}
	labelColor     = color.RGBA{60, 40, 20, 255}
	highlightColor = color.NRGBA{R: 220, G: 38, B: 38, A: 230}
)

type Options struct {
	LastMove *domain.Pos
	Title    string
}

// PNG renders grid with coordinate labels and the last move marked.
func PNG(ctx context.Context, grid board.Grid, opts Options) ([]byte, error) {
	span := cellSize * (domain.Size - 1)
	width := span + margin*2
	height := span + margin*2 + titleSpace
	origin := boardOrigin()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(boardColor), image.Point{}, imagedraw.Src)

	drawGrid(img, origin)
	drawLabels(img, origin, opts.Title)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	for r := 0; r < domain.Size; r++ {
		for c := 0; c < domain.Size; c++ {
			cell := grid[r][c]
			if cell == domain.Empty {
				continue
			}
			stone, err := renderStone(cell, stoneSize)
			if err != nil {
				return nil, err
			}
			center := intersection(origin, domain.Pos{Row: r, Col: c})
			tl := center.Sub(image.Pt(stoneSize/2, stoneSize/2))
			imagedraw.Draw(img, image.Rectangle{Min: tl, Max: tl.Add(image.Pt(stoneSize, stoneSize))}, stone, image.Point{}, imagedraw.Over)
		}
	}
	if opts.LastMove != nil && opts.LastMove.InRange() {
		drawDisc(img, intersection(origin, *opts.LastMove), 5, highlightColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders into dir/name and returns the written path.
func WriteFile(ctx context.Context, dir, name string, grid board.Grid, opts Options) (string, error) {
	data, err := PNG(ctx, grid, opts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

func boardOrigin() image.Point { return image.Pt(margin, margin+titleSpace) }

func intersection(origin image.Point, p domain.Pos) image.Point {
	return image.Pt(origin.X+p.Col*cellSize, origin.Y+p.Row*cellSize)
}

func drawGrid(img *image.RGBA, origin image.Point) {
	span := cellSize * (domain.Size - 1)
	line := image.NewUniform(lineColor)
	for i := 0; i < domain.Size; i++ {
		off := i * cellSize
		h := image.Rect(origin.X, origin.Y+off, origin.X+span+1, origin.Y+off+1)
		v := image.Rect(origin.X+off, origin.Y, origin.X+off+1, origin.Y+span+1)
		imagedraw.Draw(img, h, line, image.Point{}, imagedraw.Src)
		imagedraw.Draw(img, v, line, image.Point{}, imagedraw.Src)
	}
	// star points
	for _, p := range []domain.Pos{{Row: 3, Col: 3}, {Row: 3, Col: 11}, {Row: 7, Col: 7}, {Row: 11, Col: 3}, {Row: 11, Col: 11}} {
		drawDisc(img, intersection(origin, p), 3, lineColor)
	}
}

func drawLabels(img *image.RGBA, origin image.Point, title string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	span := cellSize * (domain.Size - 1)

	for i := 0; i < domain.Size; i++ {
		col := string(rune('A' + i))
		x := origin.X + i*cellSize
		drawCentered(d, col, x, origin.Y-margin/2+ascent/2)
		drawCentered(d, col, x, origin.Y+span+margin/2+ascent/2)

		row := strconv.Itoa(i + 1)
		y := origin.Y + i*cellSize + ascent/2
		drawCentered(d, row, origin.X-margin/2, y)
		drawCentered(d, row, origin.X+span+margin/2, y)
	}
	if title != "" {
		drawCentered(d, title, img.Bounds().Dx()/2, titleSpace/2+ascent)
	}
}

func drawCentered(d *font.Drawer, text string, cx, baseline int) {
	w := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(cx-w/2, baseline)
	d.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	src := image.NewUniform(clr)
	rr := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rr {
				continue
			}
			px := image.Rect(center.X+x, center.Y+y, center.X+x+1, center.Y+y+1)
			imagedraw.Draw(img, px, src, image.Point{}, imagedraw.Over)
		}
	}
}
