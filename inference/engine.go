// Package inference - Inference engine boundary and backend selection.
package inference

import (
	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Engine runs a model on a single input tensor and fills a single output tensor.
//
// The input and output shapes are negotiated when the engine is built and never change
// afterwards. Run blocks until the output is ready; an engine may use internal worker
// threads but never runs two calls concurrently on behalf of one caller.
type Engine interface {
	// Backend returns the backend the engine was actually built with.
	Backend() Backend
	// InputShape returns the input tensor shape, including the batch dimension.
	InputShape() []int64
	// OutputShape returns the output tensor shape, including the batch dimension.
	OutputShape() []int64
	// Run copies input into the model, runs it and copies the result into output.
	// Both slices must have exactly the element count of their shapes.
	Run(input, output []float32) error
	// Close releases the native resources of the engine.
	Close() error
}

// Factory builds an engine for a backend. It is called at most twice by Load.
type Factory func(backend Backend) (Engine, error)

// Load builds an engine with the preferred backend, falling back to the CPU backend once
// when an accelerator backend fails to initialize.
//
// The backend choice is final for the lifetime of the returned engine: there is no
// further probing or switching.
//
// Arguments:
//   - factory: Builds an engine for a given backend.
//   - preferred: The backend to try first.
//   - log: The logger, or nil for no logging.
//
// Returns:
//   - Engine: The engine.
//   - error: A wrapped common.ErrEngineFailure when no backend could be built.
//
// @example
//
//	engine, err := inference.Load(func(b inference.Backend) (inference.Engine, error) {
//	    return providers.NewEngine(cfg, b, log)
//	}, inference.BackendCoreML, log)
func Load(factory Factory, preferred Backend, log *zap.Logger) (Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	engine, err := build(factory, preferred)
	if err == nil {
		log.Info("inference engine ready", zap.Stringer("backend", engine.Backend()))
		return engine, nil
	}
	if preferred == BackendCPU {
		return nil, errors.Wrapf(common.ErrEngineFailure, "cpu backend: %v", err)
	}

	log.Warn("accelerator backend unavailable, falling back to cpu",
		zap.Stringer("backend", preferred), zap.Error(err))

	engine, cpuErr := build(factory, BackendCPU)
	if cpuErr != nil {
		return nil, errors.Wrapf(common.ErrEngineFailure, "%s backend: %v; cpu fallback: %v", preferred, err, cpuErr)
	}
	log.Info("inference engine ready", zap.Stringer("backend", engine.Backend()), zap.Bool("fallback", true))
	return engine, nil
}

func build(factory Factory, backend Backend) (Engine, error) {
	engine, err := factory(backend)
	if err == nil && engine == nil {
		err = errors.Errorf("factory returned no engine for %s", backend)
	}
	return engine, err
}

// ShapeSize returns the element count of shape, or 0 if any dimension is not positive.
func ShapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range shape {
		if d <= 0 {
			return 0
		}
		n *= d
	}
	return int(n)
}
