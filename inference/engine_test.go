package inference

import (
	"testing"

	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubEngine struct {
	backend Backend
}

func (s *stubEngine) Backend() Backend                 { return s.backend }
func (s *stubEngine) InputShape() []int64              { return []int64{1, 4, 4, 3} }
func (s *stubEngine) OutputShape() []int64             { return []int64{1, 5, 10} }
func (s *stubEngine) Run(input, output []float32) error { return nil }
func (s *stubEngine) Close() error                     { return nil }

// recordingFactory fails for every backend listed in failing and records each attempt.
func recordingFactory(attempts *[]Backend, failing ...Backend) Factory {
	return func(b Backend) (Engine, error) {
		*attempts = append(*attempts, b)
		for _, f := range failing {
			if f == b {
				return nil, errors.Errorf("%s delegate unavailable", b)
			}
		}
		return &stubEngine{backend: b}, nil
	}
}

func TestLoadPreferredBackend(t *testing.T) {
	var attempts []Backend
	engine, err := Load(recordingFactory(&attempts), BackendCoreML, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendCoreML, engine.Backend())
	assert.Equal(t, []Backend{BackendCoreML}, attempts)
}

func TestLoadFallsBackToCPUOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var attempts []Backend
	engine, err := Load(recordingFactory(&attempts, BackendCUDA), BackendCUDA, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, BackendCPU, engine.Backend())
	assert.Equal(t, []Backend{BackendCUDA, BackendCPU}, attempts)
	assert.Equal(t, 1, logs.FilterMessage("accelerator backend unavailable, falling back to cpu").Len())
}

func TestLoadFailsWhenCPUFails(t *testing.T) {
	t.Run("After accelerator failure", func(t *testing.T) {
		var attempts []Backend
		_, err := Load(recordingFactory(&attempts, BackendOpenVINO, BackendCPU), BackendOpenVINO, nil)
		assert.True(t, errors.Is(err, common.ErrEngineFailure), "got %v", err)
		assert.Equal(t, []Backend{BackendOpenVINO, BackendCPU}, attempts)
	})

	t.Run("CPU preferred is not retried", func(t *testing.T) {
		var attempts []Backend
		_, err := Load(recordingFactory(&attempts, BackendCPU), BackendCPU, nil)
		assert.True(t, errors.Is(err, common.ErrEngineFailure), "got %v", err)
		assert.Equal(t, []Backend{BackendCPU}, attempts)
	})

	t.Run("Nil engine counts as failure", func(t *testing.T) {
		_, err := Load(func(Backend) (Engine, error) { return nil, nil }, BackendCoreML, nil)
		assert.True(t, errors.Is(err, common.ErrEngineFailure), "got %v", err)
	})
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in   string
		goos string
		want Backend
	}{
		{"", "linux", BackendCPU},
		{"CPU", "linux", BackendCPU},
		{"coreml", "darwin", BackendCoreML},
		{" cuda ", "linux", BackendCUDA},
		{"openvino", "windows", BackendOpenVINO},
		{"gpu", "darwin", BackendCoreML},
		{"gpu", "linux", BackendCUDA},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in, tt.goos)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q on %s", tt.in, tt.goos)
	}

	_, err := ParseBackend("nnapi", "linux")
	assert.True(t, errors.Is(err, common.ErrConfiguration))

	assert.False(t, BackendCPU.IsAccelerator())
	assert.True(t, BackendCoreML.IsAccelerator())
}

func TestShapeSize(t *testing.T) {
	assert.Equal(t, 640*640*3, ShapeSize([]int64{1, 640, 640, 3}))
	assert.Equal(t, 0, ShapeSize(nil))
	assert.Equal(t, 0, ShapeSize([]int64{1, -1, 84}))
}

func TestParsePrecision(t *testing.T) {
	tests := map[string]Precision{
		"":         PrecisionDefault,
		"fp16":     PrecisionFP16,
		" FP32 ":   PrecisionFP32,
		"accuracy": PrecisionAccuracy,
	}
	for in, want := range tests {
		got, err := ParsePrecision(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParsePrecision("int8")
	assert.True(t, errors.Is(err, common.ErrConfiguration))
}
