package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/preprocess"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
model:
  name: scale-reader
  input_width: 320
  channel_order: chw
  color_mode: bgr
  layout: boxes_first
  objectness: true
  family: scale
provider:
  backend: cuda
  model_path: models/scale.onnx
  cpu:
    threads: 2
  cuda:
    device_id: 1
thresholds:
  confidence: 0.5
log:
  level: debug
  format: json
history_size: 16
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.Model.InputWidth)
	assert.Equal(t, 320, cfg.Model.InputHeight, "height defaults to width")
	assert.Equal(t, models.ModelFamilyScale, cfg.Model.Family)
	assert.True(t, cfg.Model.Objectness)

	assert.Equal(t, "models/scale.onnx", cfg.Provider.ModelPath)
	assert.Equal(t, 2, cfg.Provider.CPU.Threads)
	assert.Equal(t, 1, cfg.Provider.CUDA.DeviceID)
	assert.Equal(t, providers.GraphOptimizationExtended, cfg.Provider.Optimization.GraphOptimizationLevel)
	backend, err := cfg.Provider.ParsedBackend()
	require.NoError(t, err)
	assert.Equal(t, inference.BackendCUDA, backend)

	assert.Equal(t, float32(0.5), cfg.Thresholds.ConfidenceThreshold)
	assert.Equal(t, postprocess.DefaultIoUThreshold, cfg.Thresholds.IoUThreshold, "absent keys keep defaults")
	assert.Equal(t, postprocess.DefaultMaxDetections, cfg.Thresholds.MaxDetections)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 16, cfg.HistorySize)

	enc, err := cfg.Model.Encoder()
	require.NoError(t, err)
	assert.Equal(t, preprocess.ChannelOrderCHW, enc.ChannelOrder)
	assert.Equal(t, preprocess.ColorModeBGR, enc.ColorMode)
	assert.Equal(t, []int64{1, 3, 320, 320}, enc.Shape())

	layout, err := cfg.Model.OutputLayout()
	require.NoError(t, err)
	assert.Equal(t, postprocess.LayoutBoxesFirst, layout)

	labels, err := cfg.Model.LoadLabels()
	require.NoError(t, err)
	assert.Equal(t, 15, labels.Len())
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, "provider:\n  model_path: yolo11n.onnx\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultInputSize, cfg.Model.InputWidth)
	assert.Equal(t, models.ModelFamilyYOLO, cfg.Model.Family)
	assert.Equal(t, string(inference.BackendCPU), cfg.Provider.Backend)
	assert.Equal(t, providers.DefaultCPUThreads, cfg.Provider.CPU.Threads)
	assert.Equal(t, postprocess.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("Malformed YAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "model: [unterminated"))
		assert.True(t, errors.Is(err, common.ErrConfiguration), "got %v", err)
	})

	t.Run("Every problem is reported", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
model:
  normalization: minmax
  layout: sideways
provider:
  backend: tpu
thresholds:
  iou: 1.5
log:
  format: xml
history_size: -1
`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrConfiguration))
		// normalization, layout, backend, model_path, iou, format, history_size
		assert.Len(t, multierr.Errors(err), 7)
	})
}

func TestInputSizeDefaults(t *testing.T) {
	tests := []struct {
		name          string
		model         string
		width, height int
	}{
		{"Neither edge", "name: yolo", DefaultInputSize, DefaultInputSize},
		{"Width only", "input_width: 320", 320, 320},
		{"Height only", "input_height: 416", 416, 416},
		{"Both edges", "input_width: 640\n  input_height: 384", 640, 384},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "model:\n  "+tt.model+"\nprovider:\n  model_path: m.onnx\n")
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.width, cfg.Model.InputWidth)
			assert.Equal(t, tt.height, cfg.Model.InputHeight)

			enc, err := cfg.Model.Encoder()
			require.NoError(t, err)
			assert.Equal(t, []int64{1, int64(tt.height), int64(tt.width), 3}, enc.Shape())
		})
	}

	def := Default()
	assert.Equal(t, DefaultInputSize, def.Model.InputWidth)
	assert.Equal(t, DefaultInputSize, def.Model.InputHeight)
	assert.Equal(t, models.ModelFamilyYOLO, def.Model.Family)
}

func TestReadDefersValidation(t *testing.T) {
	path := writeConfig(t, "thresholds:\n  confidence: 0.4\n")

	_, err := Load(path)
	assert.True(t, errors.Is(err, common.ErrConfiguration), "model_path is required")

	cfg, err := Read(path)
	require.NoError(t, err)
	cfg.Provider.ModelPath = "yolo11n.onnx"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float32(0.4), cfg.Thresholds.ConfidenceThreshold)
}

func TestModelConfigEncoderStandardize(t *testing.T) {
	m := ModelConfig{
		InputWidth:    224,
		InputHeight:   224,
		Normalization: "standardize",
		Mean:          []float32{0.485, 0.456, 0.406},
		Std:           []float32{0.229, 0.224, 0.225},
	}
	enc, err := m.Encoder()
	require.NoError(t, err)
	assert.Equal(t, preprocess.NormalizeStandardize, enc.Normalization)
	assert.Equal(t, float32(0.224), enc.Std[1])

	m.Std = m.Std[:2]
	_, err = m.Encoder()
	assert.True(t, errors.Is(err, common.ErrConfiguration))
}

func TestModelConfigLabelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\ndog\n"), 0o600))

	labels, err := ModelConfig{Labels: path, Family: models.ModelFamilyVOC}.LoadLabels()
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, labels.Names())
}
