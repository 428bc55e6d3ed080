package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/util"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Runner is the part of *detector.Detector a benchmark drives.
type Runner interface {
	DetectImage(ctx context.Context, img image.Image, interp images.Interpolation) []postprocess.Detection
	Stats() detector.Stats
	State() detector.State
}

// Suite manages and executes benchmark scenarios against one Runner.
type Suite struct {
	runner    Runner
	outputDir string
	log       *zap.Logger

	mu        sync.RWMutex
	scenarios []Scenario
	corpus    []image.Image
	results   []PerformanceMetrics
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - runner: The detector under test.
//   - outputDir: Where SaveResults writes its files.
//   - log: The logger, nil for none.
//
// Returns:
//   - *Suite: The benchmark suite, without scenarios or images.
func NewSuite(runner Runner, outputDir string, log *zap.Logger) *Suite {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suite{
		runner:    runner,
		outputDir: outputDir,
		log:       log,
	}
}

// AddScenario adds a scenario to the suite.
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// Scenarios returns the scenarios in the order they run.
func (s *Suite) Scenarios() []Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Scenario(nil), s.scenarios...)
}

// AddImages appends decoded images to the corpus.
func (s *Suite) AddImages(imgs ...image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = append(s.corpus, imgs...)
}

// LoadImages decodes the image file at path, or every image of the directory at path,
// into the corpus.
//
// Returns:
//   - int: The number of images added.
//   - error: An error if path cannot be read or an image fails to decode.
func (s *Suite) LoadImages(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "benchmark images %s", path)
	}

	if !info.IsDir() {
		img, err := images.Open(path)
		if err != nil {
			return 0, err
		}
		s.AddImages(img)
		return 1, nil
	}

	files, err := util.LoadDirectoryImageFiles(path)
	if err != nil {
		return 0, err
	}
	imgs := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := images.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return 0, errors.Wrapf(err, "image %s", f.Path)
		}
		imgs = append(imgs, img)
	}
	s.AddImages(imgs...)
	return len(imgs), nil
}

// RunScenario executes a single scenario.
//
// The corpus is first scaled to the scenario resolution so that every measured call
// pays for the reduction from a camera frame to the model input. Warmup runs are not
// measured. The context is checked between iterations.
//
// Arguments:
//   - ctx: Stops the scenario between iterations.
//   - scenario: The scenario to run.
//
// Returns:
//   - *PerformanceMetrics: The measurements.
//   - error: An error if the scenario is invalid, the corpus is empty or ctx is done.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	interp, err := images.ParseInterpolation(scenario.Interpolation)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	corpus := make([]image.Image, len(s.corpus))
	for i, img := range s.corpus {
		corpus[i] = imaging.Resize(img, scenario.Resolution.Width, scenario.Resolution.Height, imaging.Lanczos)
	}
	s.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, errors.Errorf("scenario %q: no benchmark images loaded", scenario.Name)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		s.runner.DetectImage(ctx, corpus[i%len(corpus)], interp)
	}

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
	}

	startMem := readMemStats()
	start := time.Now()

	var sum detector.Stats
	succeeded, failed := 0, 0
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "scenario %q stopped after %d iterations", scenario.Name, i)
		}

		detections := s.runner.DetectImage(ctx, corpus[i%len(corpus)], interp)
		if s.runner.State() == detector.StateFailed {
			failed++
			continue
		}
		succeeded++
		metrics.DetectionCount += len(detections)

		stats := s.runner.Stats()
		sum.Setup += stats.Setup
		sum.Inference += stats.Inference
		sum.PostProcess += stats.PostProcess
	}

	metrics.TotalDuration = time.Since(start)
	metrics.MemoryStats = memoryDelta(startMem, readMemStats())
	metrics.NumCPU = numCPU()
	metrics.FramesPerSecond = float64(scenario.Iterations) / metrics.TotalDuration.Seconds()
	metrics.ErrorRate = float64(failed) / float64(scenario.Iterations)
	if succeeded > 0 {
		n := time.Duration(succeeded)
		metrics.SetupDuration = sum.Setup / n
		metrics.InferenceDuration = sum.Inference / n
		metrics.PostProcessDuration = sum.PostProcess / n
	}
	return metrics, nil
}

// RunAllScenarios runs every scenario in order and records the results. A failing
// scenario does not stop the others; all failures are returned together.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	var errs error
	for i, scenario := range s.Scenarios() {
		s.log.Info("running scenario",
			zap.Int("index", i+1),
			zap.String("name", scenario.Name),
			zap.Stringer("resolution", scenario.Resolution))

		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			s.log.Error("scenario failed", zap.String("name", scenario.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		s.log.Info("scenario complete",
			zap.String("name", scenario.Name),
			zap.Float64("fps", metrics.FramesPerSecond),
			zap.Duration("inference", metrics.InferenceDuration),
			zap.Float64("error_rate", metrics.ErrorRate))

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()
	}
	return errs
}

// GetResults returns the results recorded by RunAllScenarios.
func (s *Suite) GetResults() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}

// SaveResults writes the recorded results as a JSON file and a CSV summary into the
// output directory.
//
// Returns:
//   - []string: The paths of the written files.
//   - error: An error if the directory or a file cannot be written.
func (s *Suite) SaveResults() ([]string, error) {
	results := s.GetResults()
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}

	timestamp := time.Now().Format("20060102_150405")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "write results file")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return nil, err
	}
	return []string{resultsFile, summaryFile}, nil
}

var summaryHeader = []string{
	"scenario", "resolution", "megapixels", "interpolation", "iterations",
	"fps", "setup_ms", "inference_ms", "post_process_ms", "detections", "error_rate", "total_alloc_bytes",
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create summary file")
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return errors.Wrap(err, "write summary header")
	}
	for _, r := range results {
		record := []string{
			r.Scenario.Name,
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			strconv.FormatFloat(r.Scenario.Resolution.MegaPixels(), 'f', 2, 64),
			r.Scenario.Interpolation,
			strconv.Itoa(r.Scenario.Iterations),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(millis(r.SetupDuration), 'f', 3, 64),
			strconv.FormatFloat(millis(r.InferenceDuration), 'f', 3, 64),
			strconv.FormatFloat(millis(r.PostProcessDuration), 'f', 3, 64),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
			strconv.FormatUint(r.MemoryStats.TotalAllocBytes, 10),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write summary row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush summary")
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
