package portraitserver

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	PortraitSize = 512
	JPEGQuality  = 85

	// maxSourcePixels rejects decompression bombs before the full decode.
	maxSourcePixels = 64 << 20
)

// normalizePortrait decodes a JPEG/PNG/GIF/WEBP image, crops the centered
// square and resamples it to PortraitSize×PortraitSize, encoded as JPEG.
func normalizePortrait(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("%w: unsupported dimensions %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	// RGBA keeps alpha through the resample; the JPEG encoder drops it.
	dst := image.NewRGBA(image.Rect(0, 0, PortraitSize, PortraitSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, centerSquare(img.Bounds()), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode portrait: %w", err)
	}
	return buf.Bytes(), nil
}

// centerSquare returns the largest square centered in b.
func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	size := min(w, h)
	x := b.Min.X + (w-size)/2
	y := b.Min.Y + (h-size)/2
	return image.Rect(x, y, x+size, y+size)
}
