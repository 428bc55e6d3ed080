package images

import (
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Interpolation selects the resampling filter used when scaling a source image to the
// model input size.
type Interpolation string

const (
	// InterpolationNearest is nearest-neighbor resampling.
	InterpolationNearest Interpolation = "nearest"
	// InterpolationBilinear is bilinear resampling.
	InterpolationBilinear Interpolation = "bilinear"
	// InterpolationLanczos3 is Lanczos resampling with a = 3.
	InterpolationLanczos3 Interpolation = "lanczos3"
)

// ParseInterpolation parses nearest, bilinear or lanczos3. An empty string selects
// bilinear.
func ParseInterpolation(s string) (Interpolation, error) {
	switch i := Interpolation(strings.ToLower(strings.TrimSpace(s))); i {
	case "":
		return InterpolationBilinear, nil
	case InterpolationNearest, InterpolationBilinear, InterpolationLanczos3:
		return i, nil
	}
	return "", errors.Errorf("unknown interpolation %q", s)
}

func (i Interpolation) function() resize.InterpolationFunction {
	switch i {
	case InterpolationNearest:
		return resize.NearestNeighbor
	case InterpolationLanczos3:
		return resize.Lanczos3
	default:
		return resize.Bilinear
	}
}

// Resize stretches img to exactly width x height and returns it as a Frame.
//
// The aspect ratio is not preserved; detection models exported for mobile devices are
// trained on stretched square inputs and boxes are mapped back with Rect.Scale.
//
// Arguments:
//   - img: The source image.
//   - width: The model input width.
//   - height: The model input height.
//   - interp: The resampling filter.
//
// Returns:
//   - Frame: A frame of exactly width x height pixels.
//   - error: An error if the requested size is invalid.
func Resize(img image.Image, width, height int, interp Interpolation) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, errors.Errorf("invalid target size %dx%d", width, height)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return FrameFromImage(img), nil
	}
	return FrameFromImage(resize.Resize(uint(width), uint(height), img, interp.function())), nil
}

// Open decodes an image file, applying the EXIF orientation tag so that photos taken
// in portrait mode come out upright.
//
// Arguments:
//   - path: Path to a JPEG, PNG, GIF, BMP or TIFF file.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the file cannot be read or decoded.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "open image %s", path)
	}
	return img, nil
}

// Decode decodes an image from r, applying the EXIF orientation tag.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}
