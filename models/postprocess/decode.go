package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
)

// geometryAttributes is the number of box values (cx, cy, w, h) that precede the scores.
const geometryAttributes = 4

// Layout assigns the two axes of the raw output tensor. It is an export convention that
// cannot be discovered from the tensor itself, so it is fixed when the model is loaded.
type Layout int

const (
	// LayoutAttributesFirst is (M, N): one row per attribute, one column per box.
	// Ultralytics YOLOv8/v11 exports produce [1, 84, 8400].
	LayoutAttributesFirst Layout = iota
	// LayoutBoxesFirst is (N, M): one row per box. YOLOv5 and most TFLite exports.
	LayoutBoxesFirst
)

func (l Layout) String() string {
	switch l {
	case LayoutAttributesFirst:
		return "attributes_first"
	case LayoutBoxesFirst:
		return "boxes_first"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout converts the configuration spelling of a layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "attributes_first", "":
		return LayoutAttributesFirst, nil
	case "boxes_first":
		return LayoutBoxesFirst, nil
	default:
		return 0, errors.Wrapf(common.ErrConfiguration, "unknown output layout %q", s)
	}
}

// DecoderConfig is the raw output contract negotiated at model load.
type DecoderConfig struct {
	// Layout selects which axis holds the boxes.
	Layout Layout
	// NumBoxes is N, the number of candidate boxes.
	NumBoxes int
	// NumClasses is C, the number of class scores per box. Must equal the label count.
	NumClasses int
	// Objectness is true when a fifth box attribute carries an objectness score
	// (YOLOv4/v5 exports) that multiplies the class scores.
	Objectness bool
}

// Attributes returns M, the number of values per box.
func (c DecoderConfig) Attributes() int {
	m := geometryAttributes + c.NumClasses
	if c.Objectness {
		m++
	}
	return m
}

// Shape returns the expected 2D output shape in layout order.
func (c DecoderConfig) Shape() []int64 {
	rows, cols := c.dims()
	return []int64{rows, cols}
}

func (c DecoderConfig) dims() (rows, cols int64) {
	if c.Layout == LayoutBoxesFirst {
		return int64(c.NumBoxes), int64(c.Attributes())
	}
	return int64(c.Attributes()), int64(c.NumBoxes)
}

// Validate checks the configuration for internal consistency.
func (c DecoderConfig) Validate() error {
	if c.Layout != LayoutAttributesFirst && c.Layout != LayoutBoxesFirst {
		return errors.Wrapf(common.ErrConfiguration, "unknown output layout %d", c.Layout)
	}
	if c.NumBoxes <= 0 {
		return errors.Wrapf(common.ErrConfiguration, "invalid box count %d", c.NumBoxes)
	}
	if c.NumClasses <= 0 {
		return errors.Wrapf(common.ErrConfiguration, "invalid class count %d", c.NumClasses)
	}
	return nil
}

// NegotiateDecoderConfig derives the decoder configuration from the output shape an
// engine reports at load time, asserting that the attribute axis matches numClasses.
//
// Arguments:
//   - shape: The engine output shape, with or without a leading batch dimension of 1.
//   - layout: The axis assignment of the model export.
//   - numClasses: The number of labels.
//   - objectness: Whether the model carries an objectness column.
//
// Returns:
//   - DecoderConfig: The negotiated configuration.
//   - error: A wrapped common.ErrConfiguration when the shape and label count disagree.
//
// @example
//
//	cfg, err := postprocess.NegotiateDecoderConfig([]int64{1, 84, 8400}, postprocess.LayoutAttributesFirst, 80, false)
//	// cfg.NumBoxes == 8400
func NegotiateDecoderConfig(shape []int64, layout Layout, numClasses int, objectness bool) (DecoderConfig, error) {
	dims, ok := squeezeBatch(shape)
	if !ok {
		return DecoderConfig{}, errors.Wrapf(common.ErrConfiguration, "output shape %v is not 2D", shape)
	}

	cfg := DecoderConfig{Layout: layout, NumClasses: numClasses, Objectness: objectness}
	boxes, attrs := dims[1], dims[0]
	if layout == LayoutBoxesFirst {
		boxes, attrs = dims[0], dims[1]
	}
	if attrs != int64(cfg.Attributes()) {
		return DecoderConfig{}, errors.Wrapf(common.ErrConfiguration,
			"output shape %v (%s) has %d attributes per box, %d labels need %d",
			shape, layout, attrs, numClasses, cfg.Attributes())
	}
	cfg.NumBoxes = int(boxes)
	if err := cfg.Validate(); err != nil {
		return DecoderConfig{}, err
	}
	return cfg, nil
}

// squeezeBatch drops a leading batch dimension of 1 and reports whether the remainder is 2D.
func squeezeBatch(shape []int64) ([]int64, bool) {
	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	return shape, len(shape) == 2
}

// Decoder converts a raw output tensor into Candidates.
type Decoder struct {
	config DecoderConfig
	// boxStride and attrStride address raw[box*boxStride + attr*attrStride].
	boxStride  int
	attrStride int
}

// NewDecoder validates config and returns a decoder bound to its layout.
//
// Arguments:
//   - config: The output contract negotiated at load.
//
// Returns:
//   - *Decoder: The decoder.
//   - error: A wrapped common.ErrConfiguration if config is invalid.
func NewDecoder(config DecoderConfig) (*Decoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Decoder{config: config}
	if config.Layout == LayoutBoxesFirst {
		d.boxStride, d.attrStride = config.Attributes(), 1
	} else {
		d.boxStride, d.attrStride = 1, config.NumBoxes
	}
	return d, nil
}

// Config returns the configuration the decoder was built with.
func (d *Decoder) Config() DecoderConfig {
	return d.config
}

// OutputSize returns N * M, the number of values in one raw output.
func (d *Decoder) OutputSize() int {
	return d.config.NumBoxes * d.config.Attributes()
}

// Decode reads every box of raw and appends one Candidate per box to dst.
//
// The class is the arg-max over the class scores (the first maximum wins on ties) and the
// score is that maximum, times the objectness value when the model has one. No filtering
// happens here.
//
// Arguments:
//   - raw: The output tensor values.
//   - shape: The shape the engine reported for raw.
//   - dst: A reusable slice; it is truncated to zero length before appending.
//
// Returns:
//   - []Candidate: dst with N candidates in box order.
//   - error: A wrapped common.ErrShape if shape or len(raw) disagree with the configuration.
func (d *Decoder) Decode(raw []float32, shape []int64, dst []Candidate) ([]Candidate, error) {
	dst = dst[:0]

	dims, ok := squeezeBatch(shape)
	rows, cols := d.config.dims()
	if !ok || dims[0] != rows || dims[1] != cols {
		return dst, errors.Wrapf(common.ErrShape,
			"output shape %v, expected %v (%s)", shape, d.config.Shape(), d.config.Layout)
	}
	if len(raw) != d.OutputSize() {
		return dst, errors.Wrapf(common.ErrShape, "output holds %d values, shape %v needs %d", len(raw), shape, d.OutputSize())
	}

	first := geometryAttributes
	if d.config.Objectness {
		first++
	}
	bs, as := d.boxStride, d.attrStride

	for i := 0; i < d.config.NumBoxes; i++ {
		base := i * bs

		best, bestScore := 0, raw[base+first*as]
		for c := 1; c < d.config.NumClasses; c++ {
			if s := raw[base+(first+c)*as]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if d.config.Objectness {
			bestScore *= raw[base+geometryAttributes*as]
		}

		dst = append(dst, Candidate{
			Index:      i,
			CenterX:    raw[base],
			CenterY:    raw[base+as],
			Width:      raw[base+2*as],
			Height:     raw[base+3*as],
			ClassIndex: best,
			Score:      bestScore,
		})
	}
	return dst, nil
}
