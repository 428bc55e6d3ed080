// Package preprocess - Textual names of the encoder settings, as used in config files.
package preprocess

import (
	"strings"

	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
)

var normalizationNames = map[string]NormalizationType{
	"":                 NormalizeZeroToOne,
	"zero_to_one":      NormalizeZeroToOne,
	"minus_one_to_one": NormalizeMinusOneToOne,
	"standardize":      NormalizeStandardize,
	"none":             NormalizeNone,
}

// ParseNormalization parses zero_to_one, minus_one_to_one, standardize or none.
// An empty string selects zero_to_one.
func ParseNormalization(s string) (NormalizationType, error) {
	n, ok := normalizationNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, errors.Wrapf(common.ErrConfiguration, "unknown normalization %q", s)
	}
	return n, nil
}

// ParseChannelOrder parses hwc or chw. An empty string selects hwc.
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hwc", "nhwc":
		return ChannelOrderHWC, nil
	case "chw", "nchw":
		return ChannelOrderCHW, nil
	}
	return 0, errors.Wrapf(common.ErrConfiguration, "unknown channel order %q", s)
}

// ParseColorMode parses rgb or bgr. An empty string selects rgb.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rgb":
		return ColorModeRGB, nil
	case "bgr":
		return ColorModeBGR, nil
	}
	return 0, errors.Wrapf(common.ErrConfiguration, "unknown color mode %q", s)
}

func (c ChannelOrder) String() string {
	if c == ChannelOrderCHW {
		return "chw"
	}
	return "hwc"
}

func (c ColorMode) String() string {
	if c == ColorModeBGR {
		return "bgr"
	}
	return "rgb"
}
