// Package main benchmarks the detector over an image corpus at camera resolutions.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nvr-ai/go-detect/benchmark"
	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/logger"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "benchmark",
		Usage: "measure detector throughput across camera resolutions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "detector YAML configuration", Required: true},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "override the ONNX model file"},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "override the backend"},
			&cli.StringFlag{Name: "images", Aliases: []string{"i"}, Usage: "image file or directory", Required: true},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "./benchmark_results", Usage: "result directory"},
			&cli.StringFlag{Name: "scenarios", Usage: "JSON scenario set, replaces the generated scenarios"},
			&cli.BoolFlag{Name: "resolutions", Value: true, Usage: "compare every known camera resolution"},
			&cli.StringFlag{Name: "interpolation", Usage: "compare resize filters at this resolution, e.g. \"HD 720p\" or 1920x1080"},
			&cli.IntFlag{Name: "iterations", Value: 50, Usage: "measured iterations per scenario"},
			&cli.IntFlag{Name: "warmup", Value: 5, Usage: "warmup runs per scenario"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Minute, Usage: "overall time limit"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("model") {
		cfg.Provider.ModelPath = c.String("model")
	}
	if c.IsSet("backend") {
		cfg.Provider.Backend = c.String("backend")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	det, err := detector.Load(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := det.Close(); err != nil {
			log.Warn("close engine", zap.Error(err))
		}
		if err := providers.Shutdown(); err != nil {
			log.Warn("shutdown onnxruntime", zap.Error(err))
		}
	}()

	suite := benchmark.NewSuite(det, c.String("output"), log)
	n, err := suite.LoadImages(c.String("images"))
	if err != nil {
		return err
	}
	log.Info("benchmark images loaded", zap.Int("count", n))

	if err := addScenarios(c, suite); err != nil {
		return err
	}
	if len(suite.Scenarios()) == 0 {
		return errors.New("no scenarios selected")
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	runErr := suite.RunAllScenarios(ctx)
	files, err := suite.SaveResults()
	if err != nil {
		return err
	}

	out := c.App.Writer
	for _, r := range suite.GetResults() {
		fmt.Fprintf(out, "%-36s %8.2f fps  inference %7.2fms  errors %.1f%%\n",
			r.Scenario.Name, r.FramesPerSecond,
			float64(r.InferenceDuration)/float64(time.Millisecond), r.ErrorRate*100)
	}
	for _, f := range files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return runErr
}

func addScenarios(c *cli.Context, suite *benchmark.Suite) error {
	if path := c.String("scenarios"); path != "" {
		set, err := benchmark.LoadScenarioSet(path)
		if err != nil {
			return err
		}
		for _, s := range set.Scenarios {
			suite.AddScenario(s)
		}
		return nil
	}

	iterations, warmup := c.Int("iterations"), c.Int("warmup")
	if c.Bool("resolutions") {
		for _, s := range benchmark.ResolutionScenarios(iterations, warmup).Scenarios {
			suite.AddScenario(s)
		}
	}
	if name := c.String("interpolation"); name != "" {
		res, err := images.ParseResolution(name)
		if err != nil {
			return err
		}
		for _, s := range benchmark.InterpolationScenarios(res, iterations, warmup).Scenarios {
			suite.AddScenario(s)
		}
	}
	return nil
}
