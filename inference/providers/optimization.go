// Package providers - ONNX Runtime session optimization settings.
package providers

import (
	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	// GraphOptimizationDisabled disables all graph rewrites.
	GraphOptimizationDisabled GraphOptimization = "disabled"
	// GraphOptimizationBasic enables constant folding and redundant node elimination.
	GraphOptimizationBasic GraphOptimization = "basic"
	// GraphOptimizationExtended adds complex node fusions.
	GraphOptimizationExtended GraphOptimization = "extended"
	// GraphOptimizationAll adds layout optimizations.
	GraphOptimizationAll GraphOptimization = "all"
)

// OptimizationConfig contains ONNX Runtime session optimization settings.
type OptimizationConfig struct {
	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel GraphOptimization `json:"graph_optimization_level" yaml:"graph_optimization_level"`
	// ParallelExecution runs independent graph branches concurrently.
	ParallelExecution bool `json:"parallel_execution" yaml:"parallel_execution"`
}

func (c OptimizationConfig) level() (ort.GraphOptimizationLevel, error) {
	switch c.GraphOptimizationLevel {
	case GraphOptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case GraphOptimizationExtended, "":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, errors.Wrapf(common.ErrConfiguration, "unknown graph optimization level %q", c.GraphOptimizationLevel)
	}
}

// apply writes the optimization settings into options.
func (c OptimizationConfig) apply(options *ort.SessionOptions) error {
	level, err := c.level()
	if err != nil {
		return err
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return err
	}
	return options.SetExecutionMode(c.executionMode())
}

func (c OptimizationConfig) executionMode() ort.ExecutionMode {
	var mode ort.ExecutionMode = ort.ExecutionModeSequential
	if c.ParallelExecution {
		mode = ort.ExecutionModeParallel
	}
	return mode
}
