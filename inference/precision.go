// Package inference - Numeric precision of accelerated execution.
package inference

import (
	"strings"

	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
)

// Precision represents the numeric precision an accelerator runs a model at.
type Precision string

// Precision constants are the supported precisions for inference.
const (
	PrecisionDefault Precision = ""
	PrecisionFP16    Precision = "FP16"
	PrecisionFP32    Precision = "FP32"
	// PrecisionAccuracy keeps the precision of the exported model.
	PrecisionAccuracy Precision = "ACCURACY"
)

// ParsePrecision parses a precision name, ignoring case. An empty string selects the
// accelerator default.
func ParsePrecision(s string) (Precision, error) {
	switch p := Precision(strings.ToUpper(strings.TrimSpace(s))); p {
	case PrecisionDefault, PrecisionFP16, PrecisionFP32, PrecisionAccuracy:
		return p, nil
	}
	return PrecisionDefault, errors.Wrapf(common.ErrConfiguration, "unknown precision %q", s)
}
