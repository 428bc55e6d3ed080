package main

import (
	"github.com/nvr-ai/go-detect/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// frameFromMat wraps the pixels of an 8-bit BGR or BGRA Mat without copying. The frame
// is only valid while mat is open and unchanged.
func frameFromMat(mat gocv.Mat) (images.Frame, error) {
	var format images.PixelFormat
	switch mat.Type() {
	case gocv.MatTypeCV8UC3:
		format = images.PixelFormatBGR888
	case gocv.MatTypeCV8UC4:
		format = images.PixelFormatBGRA8888
	default:
		return images.Frame{}, errors.Errorf("unsupported mat type %v", mat.Type())
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return images.Frame{}, errors.Wrap(err, "mat data")
	}
	return images.Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Stride: mat.Step(),
		Format: format,
		Pix:    data,
	}, nil
}
