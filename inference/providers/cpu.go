// Package providers - CPU based execution provider.
package providers

import (
	"github.com/nvr-ai/go-detect/inference"
	ort "github.com/yalue/onnxruntime_go"
)

// CPUOptions contains arguments for the default CPU execution provider.
type CPUOptions struct {
	// Threads is the intra-op thread count (parallelism inside one node).
	Threads int `json:"threads" yaml:"threads"`
	// InterOpThreads is the inter-op thread count (parallel independent nodes). 0 lets
	// the runtime decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// apply configures the thread pools. The CPU provider itself is always present.
func (o CPUOptions) apply(options *ort.SessionOptions) error {
	if err := options.SetIntraOpNumThreads(o.Threads); err != nil {
		return err
	}
	return options.SetInterOpNumThreads(o.InterOpThreads)
}

// appendExecutionProvider enables the execution provider for backend on options.
//
// Arguments:
//   - options: The session options being built.
//   - backend: The requested backend.
//   - cfg: The engine configuration holding the per-backend options.
//
// Returns:
//   - error: An error if the provider is unknown or the runtime rejects it.
func appendExecutionProvider(options *ort.SessionOptions, backend inference.Backend, cfg Config) error {
	switch backend {
	case inference.BackendCPU:
		return nil
	case inference.BackendCoreML:
		return options.AppendExecutionProviderCoreML(cfg.CoreML.Flags())
	case inference.BackendOpenVINO:
		return options.AppendExecutionProviderOpenVINO(cfg.OpenVINO.ToMap())
	case inference.BackendCUDA:
		cuda, err := cfg.CUDA.ToNativeProviderOptions()
		if err != nil {
			return err
		}
		defer cuda.Destroy()
		return options.AppendExecutionProviderCUDA(cuda)
	default:
		return errUnsupportedBackend(backend)
	}
}
