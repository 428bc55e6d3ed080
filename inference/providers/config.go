// Package providers - ONNX Runtime engine configuration.
package providers

import (
	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/pkg/errors"
)

// DefaultCPUThreads is the intra-op thread count of the CPU backend, also used when an
// accelerator fails and the engine falls back to the CPU.
const DefaultCPUThreads = 4

// Config represents the configuration of an ONNX Runtime engine.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// LibraryPath overrides the onnxruntime shared library location (see GetSharedLibPath).
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// InputName is the model input node. Empty selects the first input.
	InputName string `json:"input_name" yaml:"input_name"`
	// OutputName is the model output node. Empty selects the first output.
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputShape overrides the input shape read from the model (needed for dynamic axes).
	InputShape []int64 `json:"input_shape" yaml:"input_shape"`
	// OutputShape overrides the output shape read from the model.
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`

	// CPU configures the CPU backend.
	CPU CPUOptions `json:"cpu" yaml:"cpu"`
	// CoreML configures the CoreML backend.
	CoreML CoreMLOptions `json:"coreml" yaml:"coreml"`
	// CUDA configures the CUDA backend.
	CUDA CUDAOptions `json:"cuda" yaml:"cuda"`
	// OpenVINO configures the OpenVINO backend.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
	// Optimization holds graph level session settings shared by every backend.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.CPU.Threads <= 0 {
		c.CPU.Threads = DefaultCPUThreads
	}
	if c.Optimization.GraphOptimizationLevel == "" {
		c.Optimization.GraphOptimizationLevel = GraphOptimizationExtended
	}
	if p, err := inference.ParsePrecision(string(c.OpenVINO.Precision)); err == nil {
		c.OpenVINO.Precision = p
	}
}

// Validate checks the configuration for internal consistency.
//
// Returns:
//   - error: A wrapped common.ErrConfiguration, or nil.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.Wrap(common.ErrConfiguration, "model_path is required")
	}
	for _, shape := range [][]int64{c.InputShape, c.OutputShape} {
		for _, d := range shape {
			if d <= 0 {
				return errors.Wrapf(common.ErrConfiguration, "shape %v has a non-positive dimension", shape)
			}
		}
	}
	if c.CPU.Threads < 0 || c.CPU.InterOpThreads < 0 {
		return errors.Wrap(common.ErrConfiguration, "thread counts must not be negative")
	}
	if _, err := c.Optimization.level(); err != nil {
		return err
	}
	if _, err := inference.ParsePrecision(string(c.OpenVINO.Precision)); err != nil {
		return errors.Wrap(err, "openvino")
	}
	return nil
}
