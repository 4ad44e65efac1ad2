// Package preview builds the small JPEG thumbnail attached to delivered
// artifacts. The byte cache is an explicit object owned by whoever delivers
// artifacts, not ambient process-global state.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"lukechampine.com/blake3"

	"github.com/wisevoice/wisevoice/pkg/logger"
)

const (
	canvasSize  = 320
	jpegQuality = 95
)

// Cache stores rendered thumbnail bytes keyed by the blake3 hash of the
// source path. Entries live for the cache's lifetime; construct one cache
// per delivery component at startup.
type Cache struct {
	logger *logger.Logger

	mu      sync.Mutex
	entries map[[32]byte][]byte
}

// NewCache creates an empty thumbnail cache.
func NewCache(log *logger.Logger) *Cache {
	return &Cache{
		logger:  log.Named("preview"),
		entries: make(map[[32]byte][]byte),
	}
}

// Thumbnail returns JPEG bytes for the image at path, fit onto a white
// 320x320 canvas. When path is empty or unreadable a generated placeholder
// is returned instead. The returned slice is shared; callers must not
// modify it.
func (c *Cache) Thumbnail(path string) ([]byte, error) {
	key := blake3.Sum256([]byte(path))

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	img, err := c.loadImage(path)
	if err != nil {
		c.logger.Warn("Falling back to placeholder thumbnail",
			logger.String("path", path),
			logger.Error(err))
		img = placeholder()
	}

	rendered, err := encodeCanvas(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = rendered
	c.mu.Unlock()
	return rendered, nil
}

func (c *Cache) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("no thumbnail source configured")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// encodeCanvas centers img on a white square canvas, scaling down with
// nearest-neighbor sampling when it does not fit.
func encodeCanvas(img image.Image) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	src := img.Bounds()
	width, height := src.Dx(), src.Dy()
	scale := 1.0
	if width > canvasSize || height > canvasSize {
		sx := float64(canvasSize) / float64(width)
		sy := float64(canvasSize) / float64(height)
		scale = sx
		if sy < sx {
			scale = sy
		}
	}
	targetW := int(float64(width) * scale)
	targetH := int(float64(height) * scale)
	offsetX := (canvasSize - targetW) / 2
	offsetY := (canvasSize - targetH) / 2

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := src.Min.X + int(float64(x)/scale)
			srcY := src.Min.Y + int(float64(y)/scale)
			canvas.Set(offsetX+x, offsetY+y, img.At(srcX, srcY))
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// placeholder is a solid tile with a white inner border, used when no source
// image is available.
func placeholder() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	fill := color.RGBA{R: 230, G: 50, B: 50, A: 255}
	border := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	const margin, stroke = 10, 4

	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	for y := margin; y < canvasSize-margin; y++ {
		for x := margin; x < canvasSize-margin; x++ {
			onEdge := x < margin+stroke || x >= canvasSize-margin-stroke ||
				y < margin+stroke || y >= canvasSize-margin-stroke
			if onEdge {
				img.Set(x, y, border)
			}
		}
	}
	return img
}
