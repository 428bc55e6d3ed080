// Package preprocess converts camera frames into model input tensors.
package preprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/images"
	"github.com/pkg/errors"
)

// Channels is the number of color channels written per pixel. Alpha is always dropped.
const Channels = 3

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne NormalizationType = iota
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
	// NormalizeStandardize scales to [0, 1] then applies per-channel (v - mean) / std.
	NormalizeStandardize
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone
)

// ChannelOrder defines the ordering of image channels in the tensor.
type ChannelOrder int

const (
	// ChannelOrderHWC is Height-Width-Channel ordering (TFLite and most mobile exports).
	ChannelOrderHWC ChannelOrder = iota
	// ChannelOrderCHW is Channel-Height-Width ordering (common for ONNX).
	ChannelOrderCHW
)

// ColorMode defines the channel order the model was trained on.
type ColorMode int

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR is BGR color mode (common for OpenCV models).
	ColorModeBGR
)

// Config defines the input contract of a model. It is fixed for the lifetime of an Encoder.
type Config struct {
	// Name of the model for debugging purposes.
	Name string `yaml:"name"`
	// InputWidth is the expected width of the model input.
	InputWidth int `yaml:"input_width"`
	// InputHeight is the expected height of the model input.
	InputHeight int `yaml:"input_height"`
	// Normalization defines how to normalize pixel values.
	Normalization NormalizationType `yaml:"normalization"`
	// Mean for standardization, in tensor channel order.
	Mean [Channels]float32 `yaml:"mean"`
	// Std for standardization, in tensor channel order.
	Std [Channels]float32 `yaml:"std"`
	// ChannelOrder defines the tensor layout (HWC or CHW).
	ChannelOrder ChannelOrder `yaml:"channel_order"`
	// ColorMode defines the color order the model expects.
	ColorMode ColorMode `yaml:"color_mode"`
}

// YOLOConfig returns the configuration of a square YOLO export: RGB, [0, 1], HWC.
//
// Arguments:
//   - size: The square input edge in pixels (320, 416 and 640 are typical).
//
// Returns:
//   - Config: The model input configuration.
//
// @example
//
//	enc, err := preprocess.NewEncoder(preprocess.YOLOConfig(640))
func YOLOConfig(size int) Config {
	return Config{
		Name:          "yolo",
		InputWidth:    size,
		InputHeight:   size,
		Normalization: NormalizeZeroToOne,
		ChannelOrder:  ChannelOrderHWC,
		ColorMode:     ColorModeRGB,
	}
}

// ImageNetConfig returns a CHW configuration standardized with the ImageNet statistics.
func ImageNetConfig(width, height int) Config {
	return Config{
		Name:          "imagenet",
		InputWidth:    width,
		InputHeight:   height,
		Normalization: NormalizeStandardize,
		Mean:          [Channels]float32{0.485, 0.456, 0.406},
		Std:           [Channels]float32{0.229, 0.224, 0.225},
		ChannelOrder:  ChannelOrderCHW,
		ColorMode:     ColorModeRGB,
	}
}

// Validate checks the configuration for internal consistency.
//
// Returns:
//   - error: A wrapped common.ErrConfiguration, or nil.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Wrapf(common.ErrConfiguration, "invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.Normalization < NormalizeZeroToOne || c.Normalization > NormalizeNone {
		return errors.Wrapf(common.ErrConfiguration, "unknown normalization %d", c.Normalization)
	}
	if c.ChannelOrder != ChannelOrderHWC && c.ChannelOrder != ChannelOrderCHW {
		return errors.Wrapf(common.ErrConfiguration, "unknown channel order %d", c.ChannelOrder)
	}
	if c.ColorMode != ColorModeRGB && c.ColorMode != ColorModeBGR {
		return errors.Wrapf(common.ErrConfiguration, "unknown color mode %d", c.ColorMode)
	}
	if c.Normalization == NormalizeStandardize {
		for i, s := range c.Std {
			if s <= 0 {
				return errors.Wrapf(common.ErrConfiguration, "std[%d] must be positive, got %v", i, s)
			}
		}
	}
	return nil
}

// TensorSize returns the number of float32 values in one input tensor.
func (c Config) TensorSize() int {
	return c.InputWidth * c.InputHeight * Channels
}

// Shape returns the tensor shape with a leading batch dimension of 1.
func (c Config) Shape() []int64 {
	w, h := int64(c.InputWidth), int64(c.InputHeight)
	if c.ChannelOrder == ChannelOrderCHW {
		return []int64{1, Channels, h, w}
	}
	return []int64{1, h, w, Channels}
}

// Encoder turns Frames into normalized float32 tensors.
//
// An Encoder is immutable after construction and safe for concurrent use as long as
// every caller supplies its own destination buffer.
type Encoder struct {
	config Config
	// lut maps a byte value to its normalized value for each tensor channel.
	lut [Channels][256]float32
}

// NewEncoder validates config and precomputes the normalization lookup tables.
//
// Arguments:
//   - config: The model input configuration.
//
// Returns:
//   - *Encoder: The encoder.
//   - error: A wrapped common.ErrConfiguration if config is invalid.
func NewEncoder(config Config) (*Encoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Encoder{config: config}
	for c := 0; c < Channels; c++ {
		for v := 0; v < 256; v++ {
			e.lut[c][v] = normalize(float32(v), c, config)
		}
	}
	return e, nil
}

func normalize(v float32, channel int, config Config) float32 {
	switch config.Normalization {
	case NormalizeMinusOneToOne:
		return v/127.5 - 1
	case NormalizeStandardize:
		return (v/255 - config.Mean[channel]) / config.Std[channel]
	case NormalizeNone:
		return v
	default:
		return v / 255
	}
}

// Config returns the configuration the encoder was built with.
func (e *Encoder) Config() Config {
	return e.config
}

// TensorSize returns the number of float32 values Encode writes.
func (e *Encoder) TensorSize() int {
	return e.config.TensorSize()
}

// Encode writes frame into dst as a normalized tensor.
//
// Every element of dst is overwritten. Encode never allocates, never retains frame and
// never resizes: the frame must already have the model input dimensions.
//
// Arguments:
//   - frame: A frame of exactly InputWidth x InputHeight pixels.
//   - dst: The destination tensor with exactly TensorSize() elements.
//
// Returns:
//   - error: A wrapped common.ErrDimensionMismatch if frame or dst have the wrong size.
//
// @example
//
//	dst := make([]float32, enc.TensorSize())
//	if err := enc.Encode(frame, dst); err != nil {
//	    return err
//	}
func (e *Encoder) Encode(frame images.Frame, dst []float32) error {
	w, h := e.config.InputWidth, e.config.InputHeight
	if frame.Width != w || frame.Height != h {
		return errors.Wrapf(common.ErrDimensionMismatch,
			"frame is %dx%d, model expects %dx%d", frame.Width, frame.Height, w, h)
	}
	if err := frame.Validate(); err != nil {
		return errors.Wrap(common.ErrDimensionMismatch, err.Error())
	}
	if len(dst) != e.TensorSize() {
		return errors.Wrapf(common.ErrDimensionMismatch,
			"tensor holds %d values, model expects %d", len(dst), e.TensorSize())
	}

	rOff, gOff, bOff := frame.Format.Offsets()
	if e.config.ColorMode == ColorModeBGR {
		rOff, bOff = bOff, rOff
	}
	bpp := frame.Format.BytesPerPixel()
	stride := frame.RowStride()
	lut0, lut1, lut2 := &e.lut[0], &e.lut[1], &e.lut[2]

	if e.config.ChannelOrder == ChannelOrderCHW {
		plane := w * h
		c0, c1, c2 := dst[:plane], dst[plane:2*plane], dst[2*plane:]
		i := 0
		for y := 0; y < h; y++ {
			row := frame.Pix[y*stride : y*stride+w*bpp]
			for x := 0; x < len(row); x += bpp {
				c0[i] = lut0[row[x+rOff]]
				c1[i] = lut1[row[x+gOff]]
				c2[i] = lut2[row[x+bOff]]
				i++
			}
		}
		return nil
	}

	i := 0
	for y := 0; y < h; y++ {
		row := frame.Pix[y*stride : y*stride+w*bpp]
		for x := 0; x < len(row); x += bpp {
			dst[i] = lut0[row[x+rOff]]
			dst[i+1] = lut1[row[x+gOff]]
			dst[i+2] = lut2[row[x+bOff]]
			i += Channels
		}
	}
	return nil
}

// Range returns the smallest and largest value the encoder can produce on channel c.
// Used by callers that sanity check tensors.
func (e *Encoder) Range(c int) (lo, hi float32) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for _, v := range e.lut[c] {
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}
	return lo, hi
}
