// Package common - Error taxonomy shared by every stage of the detection pipeline.
package common

import "github.com/pkg/errors"

var (
	// ErrDimensionMismatch is returned when a frame (or destination tensor) does not
	// have the exact size the model expects. Resizing happens upstream.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrShape is returned when the engine output disagrees with the shape
	// negotiated at model load.
	ErrShape = errors.New("output shape error")

	// ErrEngineFailure is returned when the inference engine fails, including
	// delegate initialization after the CPU fallback was attempted.
	ErrEngineFailure = errors.New("inference engine failure")

	// ErrUnknownClassIndex is returned for a decoded class index outside the label
	// table. It only ever skips the offending candidate.
	ErrUnknownClassIndex = errors.New("unknown class index")

	// ErrConfiguration is returned at load time when the model, labels and
	// pipeline settings disagree. A detector is never built past this error.
	ErrConfiguration = errors.New("configuration error")
)
