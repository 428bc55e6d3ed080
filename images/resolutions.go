// Package images - Camera stream resolutions, used to size benchmark inputs.
package images

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ResolutionType is the common name of a camera resolution.
type ResolutionType string

const (
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeQHD540   ResolutionType = "qHD 540p"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType2MP43    ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType3MP43    ResolutionType = "3MP (4:3)"
	ResolutionType4MP169   ResolutionType = "4MP (16:9)"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
	ResolutionTypeCustom   ResolutionType = "custom"
)

// Resolution is the frame size of a camera stream.
type Resolution struct {
	Name   ResolutionType `json:"name"   yaml:"name"`
	Width  int            `json:"width"  yaml:"width"`
	Height int            `json:"height" yaml:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return math.Round(float64(r.Width*r.Height)/1e4) / 100
}

// Scale returns the factors that map a box in a width x height model input onto r.
func (r Resolution) Scale(width, height int) (sx, sy float32) {
	return float32(r.Width) / float32(width), float32(r.Height) / float32(height)
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// resolutions is ordered by pixel count.
var resolutions = []Resolution{
	{ResolutionTypeNHD, 640, 360},
	{ResolutionTypeVGA, 640, 480},
	{ResolutionTypeQHD540, 960, 540},
	{ResolutionTypeHD720p, 1280, 720},
	{ResolutionType1MP54, 1280, 1024},
	{ResolutionType2MP43, 1600, 1200},
	{ResolutionTypeFHD1080p, 1920, 1080},
	{ResolutionType3MP43, 2048, 1536},
	{ResolutionTypeQHD1440p, 2560, 1440},
	{ResolutionType4MP169, 2688, 1520},
	{ResolutionType4KUHD, 3840, 2160},
}

// Resolutions returns the known camera resolutions by increasing pixel count.
func Resolutions() []Resolution {
	return slices.Clone(resolutions)
}

// ResolutionByType looks up a known resolution.
func ResolutionByType(t ResolutionType) (Resolution, bool) {
	i := slices.IndexFunc(resolutions, func(r Resolution) bool { return r.Name == t })
	if i < 0 {
		return Resolution{}, false
	}
	return resolutions[i], true
}

// HighestResolutionUnder returns the largest known resolution that fits in width x height.
func HighestResolutionUnder(width, height int) (Resolution, bool) {
	var fits []Resolution
	for _, r := range resolutions {
		if r.Width <= width && r.Height <= height {
			fits = append(fits, r)
		}
	}
	if len(fits) == 0 {
		return Resolution{}, false
	}
	return slices.MaxFunc(fits, func(a, b Resolution) int {
		return cmp.Compare(a.Width*a.Height, b.Width*b.Height)
	}), true
}

// ParseResolution parses a known name such as "HD 720p" or a "<width>x<height>" size.
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if r, ok := ResolutionByType(ResolutionType(s)); ok {
		return r, nil
	}

	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		width, errW := strconv.Atoi(w)
		height, errH := strconv.Atoi(h)
		if errW == nil && errH == nil && width > 0 && height > 0 {
			for _, r := range resolutions {
				if r.Width == width && r.Height == height {
					return r, nil
				}
			}
			return Resolution{Name: ResolutionTypeCustom, Width: width, Height: height}, nil
		}
	}
	return Resolution{}, errors.Errorf("unknown resolution %q", s)
}
