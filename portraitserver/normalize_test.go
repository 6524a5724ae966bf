package portraitserver

import (
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

// 1x1 lossless WEBP.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestNormalizePortraitFormats(t *testing.T) {
	webp, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	translucent := solidImage(40, 90, color.NRGBA{R: 10, G: 200, B: 30, A: 60})

	paletted := image.NewPaletted(image.Rect(0, 0, 64, 32), color.Palette{color.Transparent, red})
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			paletted.SetColorIndex(x, y, 1)
		}
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "jpeg landscape", data: encodeJPEG(t, solidImage(800, 300, white))},
		{name: "png with alpha", data: encodePNG(t, translucent)},
		{name: "gif with transparency", data: encodeGIF(t, paletted)},
		{name: "tiny upscale", data: encodePNG(t, solidImage(3, 5, blue))},
		{name: "webp lossless", data: webp},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := normalizePortrait(tc.data)
			require.NoError(t, err)

			img := decodeJPEG(t, out)
			assert.Equal(t, image.Rect(0, 0, PortraitSize, PortraitSize), img.Bounds())
		})
	}
}

func TestNormalizePortraitKeepsCenter(t *testing.T) {
	// 300x200: the crop keeps columns 50..250. Blue bands are cut away,
	// the red marker sits on the exact center.
	src := solidImage(300, 200, white)
	for y := 0; y < 200; y++ {
		for x := 0; x < 50; x++ {
			src.Set(x, y, blue)
			src.Set(299-x, y, blue)
		}
	}
	for y := 90; y < 110; y++ {
		for x := 140; x < 160; x++ {
			src.Set(x, y, red)
		}
	}

	out, err := normalizePortrait(encodePNG(t, src))
	require.NoError(t, err)
	img := decodeJPEG(t, out)

	center := PortraitSize / 2
	for _, p := range []image.Point{
		image.Pt(center, center),
		image.Pt(center-15, center),
		image.Pt(center+15, center),
		image.Pt(center, center-15),
		image.Pt(center, center+15),
	} {
		r, g, b := rgb8(img, p.X, p.Y)
		assert.True(t, r > 200 && g < 80 && b < 80, "pixel %v should be red, got %d,%d,%d", p, r, g, b)
	}

	for _, p := range []image.Point{
		image.Pt(2, center),
		image.Pt(PortraitSize-3, center),
		image.Pt(2, 2),
		image.Pt(PortraitSize-3, PortraitSize-3),
	} {
		r, g, b := rgb8(img, p.X, p.Y)
		assert.True(t, r > 200 && g > 200 && b > 200, "pixel %v should be white, got %d,%d,%d", p, r, g, b)
	}
}

func TestNormalizePortraitRejectsBadData(t *testing.T) {
	valid := encodePNG(t, solidImage(64, 64, white))

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not an image", data: []byte("definitely not pixels")},
		{name: "truncated png", data: valid[:len(valid)/2]},
		{name: "empty", data: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalizePortrait(tc.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidImage), "got %v", err)
		})
	}
}

func TestCenterSquare(t *testing.T) {
	assert.Equal(t, image.Rect(50, 0, 250, 200), centerSquare(image.Rect(0, 0, 300, 200)))
	assert.Equal(t, image.Rect(0, 25, 100, 125), centerSquare(image.Rect(0, 0, 100, 150)))
	assert.Equal(t, image.Rect(10, 10, 20, 20), centerSquare(image.Rect(10, 10, 21, 20)))
}
