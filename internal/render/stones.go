package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/omok-client/internal/domain"
)

//go:embed assets/stones/*.svg
var stoneFiles embed.FS

type stoneCacheKey struct {
	cell domain.Cell
	size int
}

var (
	stoneCache   = map[stoneCacheKey]image.Image{}
	stoneCacheMu sync.RWMutex
)

func renderStone(cell domain.Cell, size int) (image.Image, error) {
	key := stoneCacheKey{cell: cell, size: size}

	stoneCacheMu.RLock()
	if img, ok := stoneCache[key]; ok {
		stoneCacheMu.RUnlock()
		return img, nil
	}
	stoneCacheMu.RUnlock()

	name, err := stoneAssetName(cell)
	if err != nil {
		return nil, err
	}
	data, err := stoneFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read stone asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse stone svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	stoneCacheMu.Lock()
	stoneCache[key] = img
	stoneCacheMu.Unlock()
	return img, nil
}

// X plays black.
func stoneAssetName(cell domain.Cell) (string, error) {
	switch cell {
	case domain.PlayerX:
		return "assets/stones/black.svg", nil
	case domain.PlayerO:
		return "assets/stones/white.svg", nil
	default:
		return "", fmt.Errorf("no stone for %v", cell)
	}
}
