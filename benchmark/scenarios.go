package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nvr-ai/go-detect/images"
	"github.com/pkg/errors"
)

// Scenario is one benchmark run: the corpus scaled to a camera resolution and pushed
// through the detector a fixed number of times.
type Scenario struct {
	Name          string            `json:"name"`
	Resolution    images.Resolution `json:"resolution"`
	Interpolation string            `json:"interpolation"`
	Iterations    int               `json:"iterations"`
	WarmupRuns    int               `json:"warmup_runs"`
}

// Validate checks the scenario can run.
func (s Scenario) Validate() error {
	if s.Resolution.Width <= 0 || s.Resolution.Height <= 0 {
		return errors.Errorf("scenario %q: resolution %dx%d is not positive", s.Name, s.Resolution.Width, s.Resolution.Height)
	}
	if s.Iterations <= 0 {
		return errors.Errorf("scenario %q: iterations must be positive, got %d", s.Name, s.Iterations)
	}
	if s.WarmupRuns < 0 {
		return errors.Errorf("scenario %q: warmup runs must not be negative, got %d", s.Name, s.WarmupRuns)
	}
	if _, err := images.ParseInterpolation(s.Interpolation); err != nil {
		return errors.Wrapf(err, "scenario %q", s.Name)
	}
	return nil
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a builder for a 720p, bilinear scenario of 100 iterations
// after 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	res, _ := images.ResolutionByType(images.ResolutionTypeHD720p)
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:          name,
			Resolution:    res,
			Interpolation: string(images.InterpolationBilinear),
			Iterations:    100,
			WarmupRuns:    10,
		},
	}
}

// WithResolution sets the source image resolution.
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithInterpolation sets the filter used to reach the model input size.
func (sb *ScenarioBuilder) WithInterpolation(interp images.Interpolation) *ScenarioBuilder {
	sb.scenario.Interpolation = string(interp)
	return sb
}

// WithIterations sets the number of measured iterations.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured runs before the first iteration.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet is a named collection of scenarios.
type ScenarioSet struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scenarios   []Scenario `json:"scenarios"`
}

// ResolutionScenarios compares every known camera resolution.
func ResolutionScenarios(iterations, warmups int) *ScenarioSet {
	all := images.Resolutions()
	scenarios := make([]Scenario, 0, len(all))
	for _, res := range all {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("resolution_%dx%d", res.Width, res.Height)).
			WithResolution(res).
			WithIterations(iterations).
			WithWarmupRuns(warmups).
			Build())
	}
	return &ScenarioSet{
		Name:        "Resolution Comparison",
		Description: "Compares camera resolutions scaled down to the model input",
		Scenarios:   scenarios,
	}
}

// InterpolationScenarios compares the resampling filters at one resolution.
func InterpolationScenarios(res images.Resolution, iterations, warmups int) *ScenarioSet {
	filters := []images.Interpolation{
		images.InterpolationNearest,
		images.InterpolationBilinear,
		images.InterpolationLanczos3,
	}
	scenarios := make([]Scenario, 0, len(filters))
	for _, f := range filters {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("interpolation_%s_%dx%d", f, res.Width, res.Height)).
			WithResolution(res).
			WithInterpolation(f).
			WithIterations(iterations).
			WithWarmupRuns(warmups).
			Build())
	}
	return &ScenarioSet{
		Name:        fmt.Sprintf("Interpolation Comparison @ %dx%d", res.Width, res.Height),
		Description: "Compares the cost of the resize filters in front of the model",
		Scenarios:   scenarios,
	}
}

// SaveScenarioSet writes a scenario set to a JSON file.
func SaveScenarioSet(set *ScenarioSet, filename string) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal scenario set")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "write scenario file")
	}
	return nil
}

// LoadScenarioSet reads a scenario set from a JSON file and validates every scenario.
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}

	var set ScenarioSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.Wrapf(err, "parse scenario file %s", filename)
	}
	for _, s := range set.Scenarios {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &set, nil
}
