package detector

import (
	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
	"go.uber.org/zap"
)

// Load builds an ONNX Runtime engine from cfg, falling back to the CPU when the
// configured accelerator is unavailable, and wraps it in a Detector.
//
// Labels and the model section are resolved before any native code runs, so a bad
// configuration never loads the runtime.
//
// Arguments:
//   - cfg: A validated configuration.
//   - log: The logger, or nil for no logging.
//
// Returns:
//   - *Detector: The detector. Close it, then call providers.Shutdown on exit.
//   - error: A wrapped common.ErrConfiguration or common.ErrEngineFailure.
func Load(cfg *config.Config, log *zap.Logger) (*Detector, error) {
	if log == nil {
		log = zap.NewNop()
	}

	backend, err := cfg.Provider.ParsedBackend()
	if err != nil {
		return nil, err
	}
	encoder, err := cfg.Model.Encoder()
	if err != nil {
		return nil, err
	}
	layout, err := cfg.Model.OutputLayout()
	if err != nil {
		return nil, err
	}
	labels, err := cfg.Model.LoadLabels()
	if err != nil {
		return nil, err
	}

	engine, err := inference.Load(func(b inference.Backend) (inference.Engine, error) {
		e, err := providers.NewEngine(cfg.Provider.Config, b, log)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, backend, log)
	if err != nil {
		return nil, err
	}

	det, err := New(engine, labels, Config{
		Encoder:         encoder,
		Layout:          layout,
		Objectness:      cfg.Model.Objectness,
		NormalizedBoxes: cfg.Model.NormalizedBoxes,
		Thresholds:      cfg.Thresholds,
	}, WithLogger(log), WithHistory(cfg.HistorySize))
	if err != nil {
		if closeErr := engine.Close(); closeErr != nil {
			log.Warn("close engine", zap.Error(closeErr))
		}
		return nil, err
	}
	return det, nil
}
