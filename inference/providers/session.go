// Package providers - Inference sessions.
package providers

import (
	"io"
	"os"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Engine is an inference.Engine backed by an ONNX Runtime session with preallocated
// input and output tensors.
type Engine struct {
	backend     inference.Backend
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	inputShape  []int64
	outputShape []int64
	log         *zap.Logger
}

var _ inference.Engine = (*Engine)(nil)

// NewEngine creates a new ONNX Runtime engine for one backend.
//
// Order of operations:
//  1. Model and library path checks, so that a missing file never reaches native code.
//  2. Environment setup: loads the shared library once per process.
//  3. Shape negotiation: reads the model input and output shapes unless configured.
//  4. Tensor allocation: fixed-shape buffers bound to the session for its lifetime.
//  5. Session options: threads, graph optimization and the backend execution provider.
//  6. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - cfg: The engine configuration.
//   - backend: The backend to build. No fallback happens here; see inference.Load.
//   - log: The logger, or nil for no logging.
//
// Returns:
//   - *Engine: The engine.
//   - error: An error if any step fails. Native resources are released on failure.
func NewEngine(cfg Config, backend inference.Backend, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(common.ErrConfiguration, "model not found: %v", err)
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = GetSharedLibPath()
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	inName, inShape, outName, outShape, err := negotiate(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{backend: backend, inputShape: inShape, outputShape: outShape, log: log}
	if err := e.open(cfg, inName, outName); err != nil {
		closeLogged(e, log, "close partially opened session")
		return nil, err
	}

	log.Info("onnxruntime session created",
		zap.String("model", cfg.ModelPath),
		zap.Stringer("backend", backend),
		zap.Int64s("input_shape", inShape),
		zap.Int64s("output_shape", outShape))
	return e, nil
}

// closeLogged closes c on a path that already returns an error, keeping the close
// error in the log.
func closeLogged(c io.Closer, log *zap.Logger, msg string) {
	if err := c.Close(); err != nil {
		log.Warn(msg, zap.Error(err))
	}
}

func (e *Engine) open(cfg Config, inName, outName string) error {
	var err error
	if e.input, err = ort.NewEmptyTensor[float32](ort.NewShape(e.inputShape...)); err != nil {
		return errors.Wrap(err, "create input tensor")
	}
	if e.output, err = ort.NewEmptyTensor[float32](ort.NewShape(e.outputShape...)); err != nil {
		return errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	if err := cfg.CPU.apply(options); err != nil {
		return errors.Wrap(err, "set thread counts")
	}
	if err := cfg.Optimization.apply(options); err != nil {
		return errors.Wrap(err, "set optimization")
	}
	if err := appendExecutionProvider(options, e.backend, cfg); err != nil {
		return errors.Wrapf(err, "enable %s execution provider", e.backend)
	}

	e.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inName},
		[]string{outName},
		[]ort.Value{e.input},
		[]ort.Value{e.output},
		options,
	)
	if err != nil {
		return errors.Wrap(err, "create session")
	}
	return nil
}

// negotiate resolves the input and output names and shapes from the model, applying
// configured overrides. A dynamic batch dimension resolves to 1; any other dynamic
// dimension must be configured explicitly.
func negotiate(cfg Config) (inName string, inShape []int64, outName string, outShape []int64, err error) {
	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return "", nil, "", nil, errors.Wrap(err, "read model inputs and outputs")
	}

	in, err := selectInfo(inputs, cfg.InputName, "input")
	if err != nil {
		return "", nil, "", nil, err
	}
	out, err := selectInfo(outputs, cfg.OutputName, "output")
	if err != nil {
		return "", nil, "", nil, err
	}

	if inShape, err = resolveShape(in.Dimensions, cfg.InputShape); err != nil {
		return "", nil, "", nil, errors.Wrapf(err, "input %q", in.Name)
	}
	if outShape, err = resolveShape(out.Dimensions, cfg.OutputShape); err != nil {
		return "", nil, "", nil, errors.Wrapf(err, "output %q", out.Name)
	}
	return in.Name, inShape, out.Name, outShape, nil
}

func selectInfo(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, errors.Wrapf(common.ErrConfiguration, "model has no %s", kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, errors.Wrapf(common.ErrConfiguration, "model has no %s named %q", kind, name)
}

// resolveShape returns override when set, otherwise dims with a dynamic leading batch
// dimension pinned to 1.
func resolveShape(dims, override []int64) ([]int64, error) {
	if len(override) > 0 {
		return append([]int64(nil), override...), nil
	}
	shape := append([]int64(nil), dims...)
	for i, d := range shape {
		if d > 0 {
			continue
		}
		if i == 0 {
			shape[i] = 1
			continue
		}
		return nil, errors.Wrapf(common.ErrConfiguration, "dimension %d of %v is dynamic, configure the shape", i, dims)
	}
	if len(shape) == 0 {
		return nil, errors.Wrap(common.ErrConfiguration, "shape is empty")
	}
	return shape, nil
}

// Backend returns the backend the engine was built with.
func (e *Engine) Backend() inference.Backend {
	return e.backend
}

// InputShape returns the input tensor shape.
func (e *Engine) InputShape() []int64 {
	return append([]int64(nil), e.inputShape...)
}

// OutputShape returns the output tensor shape.
func (e *Engine) OutputShape() []int64 {
	return append([]int64(nil), e.outputShape...)
}

// Run copies input into the bound input tensor, runs the session and copies the bound
// output tensor into output.
//
// Arguments:
//   - input: The encoded frame, with exactly the input tensor element count.
//   - output: The destination, with exactly the output tensor element count.
//
// Returns:
//   - error: A wrapped common.ErrDimensionMismatch or common.ErrShape on a length
//     mismatch, or a wrapped common.ErrEngineFailure if the session fails.
func (e *Engine) Run(input, output []float32) error {
	if e.session == nil {
		return errors.Wrap(common.ErrEngineFailure, "engine is closed")
	}
	in, out := e.input.GetData(), e.output.GetData()
	if len(input) != len(in) {
		return errors.Wrapf(common.ErrDimensionMismatch, "input holds %d values, model expects %d", len(input), len(in))
	}
	if len(output) != len(out) {
		return errors.Wrapf(common.ErrShape, "output holds %d values, model produces %d", len(output), len(out))
	}

	copy(in, input)
	if err := e.session.Run(); err != nil {
		return errors.Wrapf(common.ErrEngineFailure, "run %s session: %v", e.backend, err)
	}
	copy(output, out)
	return nil
}

// Close releases the session and its tensors. It is safe to call more than once.
func (e *Engine) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	if e.output != nil {
		e.output.Destroy()
		e.output = nil
	}
	if err != nil {
		return errors.Wrap(err, "destroy session")
	}
	return nil
}
