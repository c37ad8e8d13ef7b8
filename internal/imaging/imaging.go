// Package imaging converts raw capture images into PNG for chat upload.
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"time"

	_ "golang.org/x/image/bmp"

	"github.com/starford/pfnbot/internal/apperr"
)

// Converter re-encodes capture images as PNG files in a temp directory.
// Converted files are left for the OS to reclaim.
type Converter struct {
	dir string
	now func() time.Time
}

// New returns a Converter writing into dir, or os.TempDir() when dir is empty.
func New(dir string) *Converter {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Converter{dir: dir, now: time.Now}
}

// Convert decodes src and writes it as a fresh PNG, returning the PNG path.
// Decode failures wrap apperr.ErrUnreadableImage.
func (c *Converter) Convert(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("imaging: open %s: %w: %v", src, apperr.ErrUnreadableImage, err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return "", fmt.Errorf("imaging: decode %s: %w: %v", src, apperr.ErrUnreadableImage, err)
	}

	out, err := os.CreateTemp(c.dir, fmt.Sprintf("pfn_png_tmp_%d_*.png", c.now().UnixNano()))
	if err != nil {
		return "", fmt.Errorf("imaging: create temp: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("imaging: encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("imaging: close %s: %w", out.Name(), err)
	}
	return out.Name(), nil
}
