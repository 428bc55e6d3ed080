// Package detector runs the full detection pipeline on one frame at a time: encode,
// infer, decode and suppress.
package detector

import (
	"context"
	"image"
	"slices"
	"time"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/preprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config describes the model a Detector drives.
type Config struct {
	// Encoder is the model input contract.
	Encoder preprocess.Config
	// Layout is the axis assignment of the model output.
	Layout postprocess.Layout
	// Objectness marks outputs with an objectness column after the box.
	Objectness bool
	// NormalizedBoxes marks models that emit boxes in [0, 1] instead of input pixels.
	NormalizedBoxes bool
	// Thresholds are the initial suppression thresholds.
	Thresholds postprocess.Thresholds
}

// Detector owns the buffers of one pipeline and the engine it runs on.
//
// A Detector serves one call at a time. Separate Detectors share nothing and may run
// in parallel. Threshold setters are not synchronized with Detect: configure between
// calls, not during.
type Detector struct {
	engine     inference.Engine
	encoder    *preprocess.Encoder
	decoder    *postprocess.Decoder
	suppressor *postprocess.Suppressor
	labels     models.Labels
	thresholds postprocess.Thresholds
	normalized bool

	input       []float32
	output      []float32
	outputShape []int64
	candidates  []postprocess.Candidate

	state    State
	stats    Stats
	lastErr  error
	failures int
	history  *history
	log      *zap.Logger
}

// New validates the engine, labels and configuration against each other and allocates
// every buffer the pipeline needs.
//
// Order of checks:
//  1. The encoder configuration is valid and its tensor shape equals the engine input.
//  2. The engine output shape has 4 (+1 with objectness) + len(labels) attributes per
//     box along the configured layout.
//  3. The thresholds are in range.
//
// Arguments:
//   - engine: The inference engine. The Detector closes it in Close.
//   - labels: The label table, one entry per model class.
//   - cfg: The model description and initial thresholds.
//   - opts: Optional logger and stats history.
//
// Returns:
//   - *Detector: The detector, in StateIdle.
//   - error: A wrapped common.ErrConfiguration when anything disagrees.
//
// @example
//
//	det, err := detector.New(engine, labels, detector.Config{
//	    Encoder:    preprocess.YOLOConfig(640),
//	    Layout:     postprocess.LayoutAttributesFirst,
//	    Thresholds: postprocess.DefaultThresholds(),
//	}, detector.WithLogger(log))
func New(engine inference.Engine, labels models.Labels, cfg Config, opts ...Option) (*Detector, error) {
	if engine == nil {
		return nil, errors.Wrap(common.ErrConfiguration, "engine is required")
	}
	if labels.Len() == 0 {
		return nil, errors.Wrap(common.ErrConfiguration, "label table is empty")
	}

	encoder, err := preprocess.NewEncoder(cfg.Encoder)
	if err != nil {
		return nil, err
	}
	if want, got := cfg.Encoder.Shape(), engine.InputShape(); !slices.Equal(want, got) {
		return nil, errors.Wrapf(common.ErrConfiguration,
			"engine input shape %v does not match encoder tensor %v (%s)", got, want, cfg.Encoder.ChannelOrder)
	}

	outputShape := engine.OutputShape()
	decoderConfig, err := postprocess.NegotiateDecoderConfig(outputShape, cfg.Layout, labels.Len(), cfg.Objectness)
	if err != nil {
		return nil, err
	}
	decoder, err := postprocess.NewDecoder(decoderConfig)
	if err != nil {
		return nil, err
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		engine:      engine,
		encoder:     encoder,
		decoder:     decoder,
		suppressor:  postprocess.NewSuppressor(decoderConfig.NumBoxes),
		labels:      labels,
		thresholds:  cfg.Thresholds,
		normalized:  cfg.NormalizedBoxes,
		input:       make([]float32, encoder.TensorSize()),
		output:      make([]float32, decoder.OutputSize()),
		outputShape: outputShape,
		candidates:  make([]postprocess.Candidate, 0, decoderConfig.NumBoxes),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.log.Info("detector ready",
		zap.Stringer("backend", engine.Backend()),
		zap.Int64s("input_shape", cfg.Encoder.Shape()),
		zap.Int64s("output_shape", outputShape),
		zap.Stringer("layout", cfg.Layout),
		zap.Int("classes", labels.Len()),
		zap.Float32("confidence_threshold", cfg.Thresholds.ConfidenceThreshold),
		zap.Float32("iou_threshold", cfg.Thresholds.IoUThreshold),
		zap.Int("max_detections", cfg.Thresholds.MaxDetections))
	return d, nil
}

// Detect runs the pipeline on frame.
//
// The context is checked once, before encoding starts; an engine run is never
// interrupted. Any stage error aborts the call: the result is then empty, State is
// StateFailed and LastError holds the cause. Labels missing for a class index only
// drop that detection and are reported through LastError without failing the call.
//
// Arguments:
//   - ctx: Cancels the call if already done when Detect is entered.
//   - frame: A frame of exactly the model input size. It is not retained.
//
// Returns:
//   - []postprocess.Detection: The detections by descending confidence, never nil.
func (d *Detector) Detect(ctx context.Context, frame images.Frame) []postprocess.Detection {
	d.lastErr = nil
	d.stats = Stats{}
	if err := ctx.Err(); err != nil {
		return d.fail(err)
	}

	start := time.Now()
	d.state = StateEncoding
	if err := d.encoder.Encode(frame, d.input); err != nil {
		return d.fail(err)
	}
	encoded := time.Now()
	d.stats.Setup = encoded.Sub(start)

	d.state = StateInferring
	if err := d.infer(); err != nil {
		return d.fail(err)
	}
	inferred := time.Now()
	d.stats.Inference = inferred.Sub(encoded)

	d.state = StateDecoding
	var err error
	if d.candidates, err = d.decoder.Decode(d.output, d.outputShape, d.candidates); err != nil {
		return d.fail(err)
	}

	d.state = StateSuppressing
	detections, err := d.suppressor.Suppress(d.candidates, d.thresholds, d.labels.View())
	d.stats.PostProcess = time.Since(inferred)
	if err != nil {
		d.lastErr = err
		d.log.Debug("detections skipped", zap.Error(err))
	}

	d.state = StateDone
	if d.history != nil {
		d.history.add(d.stats)
	}
	return detections
}

// DetectImage resizes img to the model input, runs Detect and maps the boxes back onto
// img pixel coordinates.
//
// Arguments:
//   - ctx: See Detect.
//   - img: The source image, of any size.
//   - interp: The resampling filter used to reach the model input size.
//
// Returns:
//   - []postprocess.Detection: The detections in source image pixels, never nil.
func (d *Detector) DetectImage(ctx context.Context, img image.Image, interp images.Interpolation) []postprocess.Detection {
	cfg := d.encoder.Config()
	frame, err := images.Resize(img, cfg.InputWidth, cfg.InputHeight, interp)
	if err != nil {
		d.stats = Stats{}
		return d.fail(errors.Wrap(common.ErrDimensionMismatch, err.Error()))
	}

	detections := d.Detect(ctx, frame)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	sx, sy := d.Scale(w, h)
	for i := range detections {
		detections[i].Box = detections[i].Box.Scale(sx, sy).Clamp(float32(w), float32(h))
	}
	return detections
}

// Scale returns the factors that map model boxes onto a width x height image, for
// callers that resize frames themselves.
func (d *Detector) Scale(width, height int) (sx, sy float32) {
	if d.normalized {
		return float32(width), float32(height)
	}
	cfg := d.encoder.Config()
	return float32(width) / float32(cfg.InputWidth), float32(height) / float32(cfg.InputHeight)
}

// infer runs the engine, converting a panic into common.ErrEngineFailure.
func (d *Detector) infer() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(common.ErrEngineFailure, "engine panic: %v", r)
		}
	}()

	if err := d.engine.Run(d.input, d.output); err != nil {
		if errors.Is(err, common.ErrEngineFailure) || errors.Is(err, common.ErrShape) ||
			errors.Is(err, common.ErrDimensionMismatch) {
			return err
		}
		return errors.Wrap(common.ErrEngineFailure, err.Error())
	}
	return nil
}

func (d *Detector) fail(err error) []postprocess.Detection {
	d.log.Debug("detection failed", zap.Stringer("stage", d.state), zap.Error(err))
	d.state = StateFailed
	d.lastErr = err
	d.failures++
	return []postprocess.Detection{}
}

// State returns the stage the last call ended in.
func (d *Detector) State() State {
	return d.state
}

// LastError returns the error of the last call, or nil if it succeeded cleanly.
func (d *Detector) LastError() error {
	return d.lastErr
}

// Failures returns the number of failed calls since construction.
func (d *Detector) Failures() int {
	return d.failures
}

// Stats returns the stage timings of the last call. Stages a failed call did not reach
// are zero.
func (d *Detector) Stats() Stats {
	return d.stats
}

// History returns the stats of the most recent successful calls, oldest first, or nil
// when the detector was built without WithHistory.
func (d *Detector) History() []Stats {
	if d.history == nil {
		return nil
	}
	return d.history.all()
}

// MeanStats returns the per-stage mean over History.
func (d *Detector) MeanStats() Stats {
	if d.history == nil {
		return Stats{}
	}
	return d.history.mean()
}

// Labels returns the label table.
func (d *Detector) Labels() models.Labels {
	return d.labels
}

// Backend returns the backend of the engine.
func (d *Detector) Backend() inference.Backend {
	return d.engine.Backend()
}

// Thresholds returns the thresholds used by the next call.
func (d *Detector) Thresholds() postprocess.Thresholds {
	return d.thresholds
}

// SetConfidenceThreshold sets the minimum score, in [0, 1], for the next call.
func (d *Detector) SetConfidenceThreshold(v float32) error {
	th := d.thresholds
	th.ConfidenceThreshold = v
	return d.setThresholds(th)
}

// SetIoUThreshold sets the suppression overlap, in [0, 1], for the next call.
func (d *Detector) SetIoUThreshold(v float32) error {
	th := d.thresholds
	th.IoUThreshold = v
	return d.setThresholds(th)
}

// SetMaxDetections sets the result bound for the next call. 0 means unbounded.
func (d *Detector) SetMaxDetections(n int) error {
	th := d.thresholds
	th.MaxDetections = n
	return d.setThresholds(th)
}

func (d *Detector) setThresholds(th postprocess.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	d.thresholds = th
	return nil
}

// Close closes the engine.
func (d *Detector) Close() error {
	return d.engine.Close()
}
