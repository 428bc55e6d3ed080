package providers

// CoreML execution provider flags (coreml_provider_factory.h).
const (
	coreMLFlagUseCPUOnly                 uint32 = 0x001
	coreMLFlagEnableOnSubgraph           uint32 = 0x002
	coreMLFlagOnlyEnableDeviceWithANE    uint32 = 0x004
	coreMLFlagOnlyAllowStaticInputShapes uint32 = 0x008
	coreMLFlagCreateMLProgram            uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpu_only" yaml:"cpu_only"`
	// Enable CoreML EP to run on a subgraph in the body of a control flow operator (i.e. a
	// Loop, Scan or If operator).
	EnableOnSubgraphs bool `json:"enable_on_subgraphs" yaml:"enable_on_subgraphs"`
	// Only enable CoreML EP on Apple devices with a compatible Apple Neural Engine (ANE).
	RequireNeuralEngine bool `json:"require_neural_engine" yaml:"require_neural_engine"`
	// Only allow the CoreML EP to take nodes with inputs that have static shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes"`
	// Create an MLProgram format model. Requires Core ML 5 or later (iOS 15+ or macOS 12+).
	// The default is a NeuralNetwork format model.
	MLProgram bool `json:"ml_program" yaml:"ml_program"`
}

// Flags returns the native flag word for AppendExecutionProviderCoreML.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.RequireNeuralEngine {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLFlagOnlyAllowStaticInputShapes
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}
