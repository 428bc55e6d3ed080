// Package providers - Utility functions.
package providers

import (
	"os"
	"runtime"
	"sync"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// LibraryPathEnv names the environment variable that overrides the shared library path.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the onnxruntime shared library for the current
// platform. LibraryPathEnv takes precedence over the bundled third_party location.
//
// Returns:
//   - string: The path to the shared library, or "" for an unsupported platform.
func GetSharedLibPath() string {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	return sharedLibPathFor(runtime.GOOS, runtime.GOARCH)
}

func sharedLibPathFor(goos, goarch string) string {
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return "./third_party/onnxruntime.dll"
		}
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib"
	case "linux":
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment loads the shared library and initializes the process-wide runtime
// environment. Only the first successful path is used for the lifetime of the process.
func initEnvironment(libPath string) error {
	if libPath == "" {
		return errors.Wrapf(common.ErrEngineFailure, "no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(common.ErrEngineFailure, "onnxruntime library not found at %s: %v", libPath, err)
	}

	envOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		envErr = ort.InitializeEnvironment()
	})
	if envErr != nil {
		return errors.Wrapf(common.ErrEngineFailure, "initialize onnxruntime: %v", envErr)
	}
	return nil
}

// Shutdown releases the process-wide runtime environment. Call it once on exit, after
// every engine has been closed.
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func errUnsupportedBackend(backend inference.Backend) error {
	return errors.Wrapf(common.ErrConfiguration, "unsupported backend %q", backend)
}
