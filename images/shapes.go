// Package images - Geometry, frames and scaling utilities for the detection pipeline.
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned bounding box in corner form.
//
// Coordinates share the unit of whatever produced them: normalized [0,1] for most
// exported YOLO models, or input-tensor pixels. Use Scale to map a normalized box
// onto a source image.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// RectFromCenter builds a Rect from a center point and a width/height.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The box in corner form.
func RectFromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width returns the width of the rectangle. Degenerate boxes report zero.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns the height of the rectangle. Degenerate boxes report zero.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns the area of the rectangle, or 0 when either side is zero or negative.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Scale multiplies the x coordinates by sx and the y coordinates by sy.
//
// Arguments:
//   - sx: Horizontal scale, e.g. the source image width for a normalized box.
//   - sy: Vertical scale, e.g. the source image height for a normalized box.
//
// Returns:
//   - Rect: The scaled box.
//
// @example
// px := det.Box.Scale(float32(img.Bounds().Dx()), float32(img.Bounds().Dy()))
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{X1: r.X1 * sx, Y1: r.Y1 * sy, X2: r.X2 * sx, Y2: r.Y2 * sy}
}

// Clamp limits the rectangle to [0,w] x [0,h].
func (r Rect) Clamp(w, h float32) Rect {
	return Rect{
		X1: math32.Min(math32.Max(r.X1, 0), w),
		Y1: math32.Min(math32.Max(r.Y1, 0), h),
		X2: math32.Min(math32.Max(r.X2, 0), w),
		Y2: math32.Min(math32.Max(r.Y2, 0), h),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.4f, %.4f)-(%.4f, %.4f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// IoU = area(r ∩ o) / (area(r) + area(o) - area(r ∩ o)). A box with zero or negative
// width or height has zero area; whenever the intersection or the union is zero the
// result is 0, so the division never sees a zero denominator.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle.
//
// Returns:
//   - float32: A value in [0, 1].
//
// @example
// a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
// b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
// iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
func CalculateIoU(r, o Rect) float32 {
	areaR := r.Area()
	areaO := o.Area()
	if areaR <= 0 || areaO <= 0 {
		return 0
	}

	interW := math32.Min(r.X2, o.X2) - math32.Max(r.X1, o.X1)
	interH := math32.Min(r.Y2, o.Y2) - math32.Max(r.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	union := areaR + areaO - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
