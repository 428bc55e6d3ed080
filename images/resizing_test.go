package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestResize(t *testing.T) {
	src := solidImage(64, 48, color.RGBA{R: 255, G: 128, B: 0, A: 255})

	for _, interp := range []Interpolation{InterpolationNearest, InterpolationBilinear, InterpolationLanczos3} {
		t.Run(string(interp), func(t *testing.T) {
			f, err := Resize(src, 32, 32, interp)
			require.NoError(t, err)
			require.NoError(t, f.Validate())
			assert.Equal(t, 32, f.Width)
			assert.Equal(t, 32, f.Height)

			// Solid color survives any filter.
			off := 16*f.RowStride() + 16*4
			assert.InDelta(t, 255, int(f.Pix[off]), 1)
			assert.InDelta(t, 128, int(f.Pix[off+1]), 1)
			assert.InDelta(t, 0, int(f.Pix[off+2]), 1)
		})
	}
}

func TestResizeSameSizeIsPassThrough(t *testing.T) {
	src := solidImage(16, 16, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	f, err := Resize(src, 16, 16, InterpolationBilinear)
	require.NoError(t, err)

	src.Pix[0] = 42
	assert.Equal(t, byte(42), f.Pix[0])
}

func TestResizeInvalidSize(t *testing.T) {
	_, err := Resize(solidImage(4, 4, color.RGBA{}), 0, 4, InterpolationBilinear)
	assert.Error(t, err)
}

func TestOpenAndDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(5, 3, color.RGBA{R: 9, A: 255})))

	img, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())

	path := filepath.Join(t.TempDir(), "frame-1.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	img, err = Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dy())

	_, err = Open(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestParseInterpolation(t *testing.T) {
	i, err := ParseInterpolation("")
	require.NoError(t, err)
	assert.Equal(t, InterpolationBilinear, i)

	i, err = ParseInterpolation(" Lanczos3 ")
	require.NoError(t, err)
	assert.Equal(t, InterpolationLanczos3, i)

	_, err = ParseInterpolation("bicubic")
	assert.Error(t, err)
}
