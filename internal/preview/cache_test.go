package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/wisevoice/wisevoice/pkg/logger"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
}

func TestThumbnailEncodesJPEG(t *testing.T) {
	cache := NewCache(logger.Nop())
	path := filepath.Join(t.TempDir(), "cover.png")
	writePNG(t, path, 640, 480)

	got, err := cache.Thumbnail(path)
	if err != nil {
		t.Fatalf("Thumbnail error = %v", err)
	}
	if !bytes.HasPrefix(got, []byte{0xff, 0xd8}) {
		t.Fatalf("output missing JPEG magic: %x", got[:4])
	}
}

func TestThumbnailCachedByPath(t *testing.T) {
	cache := NewCache(logger.Nop())
	path := filepath.Join(t.TempDir(), "cover.png")
	writePNG(t, path, 64, 64)

	first, err := cache.Thumbnail(path)
	if err != nil {
		t.Fatal(err)
	}

	// A cache hit must not touch the filesystem again.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := cache.Thumbnail(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("cached thumbnail differs from first render")
	}
}

func TestThumbnailPlaceholderWhenSourceMissing(t *testing.T) {
	cache := NewCache(logger.Nop())

	got, err := cache.Thumbnail(filepath.Join(t.TempDir(), "absent.png"))
	if err != nil {
		t.Fatalf("Thumbnail error = %v", err)
	}
	if !bytes.HasPrefix(got, []byte{0xff, 0xd8}) {
		t.Fatalf("placeholder missing JPEG magic: %x", got[:4])
	}

	empty, err := cache.Thumbnail("")
	if err != nil {
		t.Fatalf("Thumbnail(\"\") error = %v", err)
	}
	if len(empty) == 0 {
		t.Fatal("empty-path placeholder is empty")
	}
}

func TestThumbnailDistinctPathsDistinctEntries(t *testing.T) {
	cache := NewCache(logger.Nop())
	dir := t.TempDir()

	small := filepath.Join(dir, "small.png")
	large := filepath.Join(dir, "large.png")
	writePNG(t, small, 20, 20)
	writePNG(t, large, 1000, 500)

	a, err := cache.Thumbnail(small)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Thumbnail(large)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("distinct sources rendered identical thumbnails")
	}
}
