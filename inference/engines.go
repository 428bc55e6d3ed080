// Package inference - Inference engine interface and implementations
package inference

import (
	"strings"

	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
)

// Backend is the hardware path an engine executes on.
type Backend string

const (
	// BackendCPU runs on the CPU thread pool of the runtime.
	BackendCPU Backend = "cpu"
	// BackendCoreML delegates to Apple CoreML (GPU / Neural Engine).
	BackendCoreML Backend = "coreml"
	// BackendCUDA delegates to an NVIDIA GPU.
	BackendCUDA Backend = "cuda"
	// BackendOpenVINO delegates to Intel OpenVINO (CPU / GPU / NPU).
	BackendOpenVINO Backend = "openvino"
)

// Backends is a list of all supported backends.
var Backends = []Backend{BackendCPU, BackendCoreML, BackendCUDA, BackendOpenVINO}

func (b Backend) String() string {
	return string(b)
}

// IsAccelerator reports whether the backend runs anywhere but the plain CPU path.
func (b Backend) IsAccelerator() bool {
	return b != BackendCPU
}

// ParseBackend converts a configuration value into a Backend. "gpu" is accepted as an
// alias for the accelerator of the current platform family and resolves to CoreML on
// darwin and CUDA elsewhere.
//
// Arguments:
//   - s: The configuration value, case-insensitive.
//   - goos: The target operating system (runtime.GOOS).
//
// Returns:
//   - Backend: The backend.
//   - error: A wrapped common.ErrConfiguration for unknown values.
func ParseBackend(s, goos string) (Backend, error) {
	switch v := Backend(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return BackendCPU, nil
	case "gpu":
		if goos == "darwin" {
			return BackendCoreML, nil
		}
		return BackendCUDA, nil
	case BackendCPU, BackendCoreML, BackendCUDA, BackendOpenVINO:
		return v, nil
	default:
		return "", errors.Wrapf(common.ErrConfiguration, "unknown backend %q", s)
	}
}
