// Package config loads the YAML configuration of the detection tools.
package config

import (
	"os"
	"runtime"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/logger"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/preprocess"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultInputSize is the square input edge of the stock YOLO exports.
const DefaultInputSize = 640

// Config is the root configuration.
type Config struct {
	Model      ModelConfig            `yaml:"model"`
	Provider   ProviderConfig         `yaml:"provider"`
	Thresholds postprocess.Thresholds `yaml:"thresholds"`
	Log        logger.LogConfig       `yaml:"log"`
	// HistorySize is the number of per-call timings kept by the detector. 0 disables it.
	HistorySize int `yaml:"history_size"`
}

// ModelConfig describes the model input contract, its output layout and its labels.
type ModelConfig struct {
	Name          string    `yaml:"name"`
	InputWidth    int       `yaml:"input_width"`
	InputHeight   int       `yaml:"input_height"`
	Normalization string    `yaml:"normalization"`
	Mean          []float32 `yaml:"mean"`
	Std           []float32 `yaml:"std"`
	ChannelOrder  string    `yaml:"channel_order"`
	ColorMode     string    `yaml:"color_mode"`

	// Layout is attributes_first (1, 4+C, N) or boxes_first (1, N, 4+C).
	Layout string `yaml:"layout"`
	// Objectness marks YOLOv4/v5 style outputs with a fifth objectness column.
	Objectness bool `yaml:"objectness"`
	// NormalizedBoxes marks models that emit boxes in [0, 1] instead of input pixels.
	NormalizedBoxes bool `yaml:"normalized_boxes"`
	// Interpolation is the filter used to resize source images: nearest, bilinear or
	// lanczos3.
	Interpolation string `yaml:"interpolation"`

	// Labels is a text or YAML metadata label file. It takes precedence over Family.
	Labels string `yaml:"labels"`
	// Family selects a built-in label table when Labels is empty.
	Family models.ModelFamily `yaml:"family"`
}

// ProviderConfig selects the inference backend and configures the ONNX Runtime engine.
type ProviderConfig struct {
	// Backend is cpu, coreml, cuda, openvino or gpu (the platform accelerator).
	Backend          string `yaml:"backend"`
	providers.Config `yaml:",inline"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := base()
	cfg.SetDefaults()
	return cfg
}

// base holds the defaults a file is parsed over. Values that depend on other keys,
// such as an input height that follows the width, are left to SetDefaults.
func base() Config {
	return Config{
		Model:      ModelConfig{Name: "yolo"},
		Provider:   ProviderConfig{Backend: string(inference.BackendCPU)},
		Thresholds: postprocess.DefaultThresholds(),
		Log:        logger.LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads, defaults and validates the configuration file at path. Keys absent from
// the file keep their Default value.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - *Config: The configuration.
//   - error: An error if the file cannot be read or parsed, or a wrapped
//     common.ErrConfiguration if it is invalid.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without the validation, for callers that override values before
// validating themselves.
func Read(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := base()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(common.ErrConfiguration, "parse %s: %v", path, err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills values left empty. The input size is square unless both edges are
// given; a single edge sets the other.
func (c *Config) SetDefaults() {
	if c.Model.InputWidth == 0 && c.Model.InputHeight == 0 {
		c.Model.InputWidth, c.Model.InputHeight = DefaultInputSize, DefaultInputSize
	}
	if c.Model.InputHeight == 0 {
		c.Model.InputHeight = c.Model.InputWidth
	}
	if c.Model.InputWidth == 0 {
		c.Model.InputWidth = c.Model.InputHeight
	}
	if c.Model.Labels == "" && c.Model.Family == "" {
		c.Model.Family = models.ModelFamilyYOLO
	}
	if c.Provider.Backend == "" {
		c.Provider.Backend = string(inference.BackendCPU)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	c.Provider.SetDefaults()
}

// Encoder converts the model section into an encoder configuration.
func (m ModelConfig) Encoder() (preprocess.Config, error) {
	norm, err := preprocess.ParseNormalization(m.Normalization)
	if err != nil {
		return preprocess.Config{}, err
	}
	order, err := preprocess.ParseChannelOrder(m.ChannelOrder)
	if err != nil {
		return preprocess.Config{}, err
	}
	mode, err := preprocess.ParseColorMode(m.ColorMode)
	if err != nil {
		return preprocess.Config{}, err
	}

	cfg := preprocess.Config{
		Name:          m.Name,
		InputWidth:    m.InputWidth,
		InputHeight:   m.InputHeight,
		Normalization: norm,
		ChannelOrder:  order,
		ColorMode:     mode,
	}
	if norm == preprocess.NormalizeStandardize {
		if len(m.Mean) != preprocess.Channels || len(m.Std) != preprocess.Channels {
			return preprocess.Config{}, errors.Wrapf(common.ErrConfiguration,
				"standardize needs %d mean and std values, got %d and %d",
				preprocess.Channels, len(m.Mean), len(m.Std))
		}
		copy(cfg.Mean[:], m.Mean)
		copy(cfg.Std[:], m.Std)
	}
	return cfg, cfg.Validate()
}

// OutputLayout parses the layout name.
func (m ModelConfig) OutputLayout() (postprocess.Layout, error) {
	return postprocess.ParseLayout(m.Layout)
}

// Resampling parses the interpolation name.
func (m ModelConfig) Resampling() (images.Interpolation, error) {
	i, err := images.ParseInterpolation(m.Interpolation)
	if err != nil {
		return "", errors.Wrap(common.ErrConfiguration, err.Error())
	}
	return i, nil
}

// LoadLabels loads the label file, or the built-in table of the family.
func (m ModelConfig) LoadLabels() (models.Labels, error) {
	if m.Labels != "" {
		return models.LoadLabels(m.Labels)
	}
	return models.BuiltinLabels(m.Family)
}

// ParsedBackend resolves the backend name for the running platform.
func (p ProviderConfig) ParsedBackend() (inference.Backend, error) {
	return inference.ParseBackend(p.Backend, runtime.GOOS)
}
