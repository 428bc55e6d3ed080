// Package postprocess - Postprocessing utilities for detection models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detect/images"
)

// Candidate is one decoded row of the raw model output, before filtering.
type Candidate struct {
	// Index is the position of the candidate along the box axis of the raw output.
	Index int
	// CenterX is the horizontal center of the box.
	CenterX float32
	// CenterY is the vertical center of the box.
	CenterY float32
	// Width of the box.
	Width float32
	// Height of the box.
	Height float32
	// ClassIndex is the arg-max over the class scores.
	ClassIndex int
	// Score is the best class score, multiplied by objectness when the model has it.
	Score float32
}

// Box returns the candidate box in corner form.
func (c Candidate) Box() images.Rect {
	return images.RectFromCenter(c.CenterX, c.CenterY, c.Width, c.Height)
}

// Detection represents a single detection result returned to the caller.
type Detection struct {
	// Box is expressed in the unit of the model output (normalized or input pixels).
	Box images.Rect
	// Label is the class name from the label table.
	Label string
	// ClassIndex is the position of Label in the label table.
	ClassIndex int
	// Confidence is the score the detection was ranked by.
	Confidence float32
}

// Scaled returns a copy of d with its box multiplied by (sx, sy) and clamped to the
// [0, sx] x [0, sy] frame. Use it to map normalized boxes onto source image pixels.
func (d Detection) Scaled(sx, sy float32) Detection {
	d.Box = d.Box.Scale(sx, sy).Clamp(sx, sy)
	return d
}

func (d Detection) String() string {
	return fmt.Sprintf("%s %.2f %s", d.Label, d.Confidence, d.Box)
}
