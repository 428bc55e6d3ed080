// Package main runs the detector on image files and prints what it finds.
package main

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/logger"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/reading"
	"github.com/nvr-ai/go-detect/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagConfig        = "config"
	flagModel         = "model"
	flagLibrary       = "library"
	flagBackend       = "backend"
	flagLabels        = "labels"
	flagFamily        = "family"
	flagInputSize     = "input-size"
	flagLayout        = "layout"
	flagObjectness    = "objectness"
	flagConfidence    = "confidence"
	flagIoU           = "iou"
	flagMaxDetections = "max-detections"
	flagInterpolation = "interpolation"
	flagReading       = "reading"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"
	flagHistory       = "history"
)

func main() {
	app := &cli.App{
		Name:      "detect",
		Usage:     "run a YOLO model on images",
		ArgsUsage: "<image or directory>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "ONNX model file"},
			&cli.StringFlag{Name: flagLibrary, Usage: "onnxruntime shared library", EnvVars: []string{providers.LibraryPathEnv}},
			&cli.StringFlag{Name: flagBackend, Aliases: []string{"b"}, Usage: "cpu, coreml, cuda, openvino or gpu"},
			&cli.StringFlag{Name: flagLabels, Usage: "label file, one name per line or YAML metadata"},
			&cli.StringFlag{Name: flagFamily, Usage: "built-in labels: yolo, coco, voc or scale"},
			&cli.IntFlag{Name: flagInputSize, Usage: "square model input edge in pixels"},
			&cli.StringFlag{Name: flagLayout, Usage: "attributes_first or boxes_first"},
			&cli.BoolFlag{Name: flagObjectness, Usage: "the model has an objectness column"},
			&cli.Float64Flag{Name: flagConfidence, Usage: "minimum confidence in [0, 1]"},
			&cli.Float64Flag{Name: flagIoU, Usage: "suppression IoU in [0, 1]"},
			&cli.IntFlag{Name: flagMaxDetections, Usage: "maximum detections per image, 0 for no limit"},
			&cli.StringFlag{Name: flagInterpolation, Usage: "nearest, bilinear or lanczos3"},
			&cli.BoolFlag{Name: flagReading, Usage: "assemble a scale reading from the detections"},
			&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: flagLogFormat, Usage: "console or json"},
			&cli.IntFlag{Name: flagHistory, Usage: "number of timings to average over"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no input given, pass image files or directories")
	}

	cfg, err := loadConfig(c)
	if err != nil {
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

	interp, err := cfg.Model.Resampling()
	if err != nil {
		return err
	}
	showReading := cfg.Model.Family == models.ModelFamilyScale
	if c.IsSet(flagReading) {
		showReading = c.Bool(flagReading)
	}

	out := c.App.Writer
	for _, arg := range c.Args().Slice() {
		err := forEachImage(arg, func(path string, img image.Image) {
			detections := det.DetectImage(c.Context, img, interp)
			if err := det.LastError(); err != nil {
				log.Warn("detection incomplete", zap.String("image", path), zap.Error(err))
			}

			stats := det.Stats()
			fmt.Fprintf(out, "%s: %d detections (setup %.1fms, inference %.1fms, post %.1fms)\n",
				path, len(detections), stats.SetupMs(), stats.InferenceMs(), stats.PostProcessMs())
			for _, d := range detections {
				fmt.Fprintf(out, "  %s\n", d)
			}
			if showReading {
				fmt.Fprintf(out, "  reading: %s\n", reading.Assemble(detections))
			}
		})
		if err != nil {
			return err
		}
	}

	if hist := det.History(); len(hist) > 1 {
		mean := det.MeanStats()
		fmt.Fprintf(out, "mean over %d images: setup %.1fms, inference %.1fms, post %.1fms\n",
			len(hist), mean.SetupMs(), mean.InferenceMs(), mean.PostProcessMs())
	}
	return nil
}

// loadConfig reads the configuration file, if any, and applies the flags on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if c.IsSet(flagModel) {
		cfg.Provider.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagLibrary) {
		cfg.Provider.LibraryPath = c.String(flagLibrary)
	}
	if c.IsSet(flagBackend) {
		cfg.Provider.Backend = c.String(flagBackend)
	}
	if c.IsSet(flagLabels) {
		cfg.Model.Labels = c.String(flagLabels)
	}
	if c.IsSet(flagFamily) {
		cfg.Model.Family = models.ModelFamily(c.String(flagFamily))
		if !c.IsSet(flagLabels) {
			cfg.Model.Labels = ""
		}
	}
	if c.IsSet(flagInputSize) {
		cfg.Model.InputWidth = c.Int(flagInputSize)
		cfg.Model.InputHeight = c.Int(flagInputSize)
	}
	if c.IsSet(flagLayout) {
		cfg.Model.Layout = c.String(flagLayout)
	}
	if c.IsSet(flagObjectness) {
		cfg.Model.Objectness = c.Bool(flagObjectness)
	}
	if c.IsSet(flagConfidence) {
		cfg.Thresholds.ConfidenceThreshold = float32(c.Float64(flagConfidence))
	}
	if c.IsSet(flagIoU) {
		cfg.Thresholds.IoUThreshold = float32(c.Float64(flagIoU))
	}
	if c.IsSet(flagMaxDetections) {
		cfg.Thresholds.MaxDetections = c.Int(flagMaxDetections)
	}
	if c.IsSet(flagInterpolation) {
		cfg.Model.Interpolation = c.String(flagInterpolation)
	}
	if c.IsSet(flagLogLevel) {
		cfg.Log.Level = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogFormat) {
		cfg.Log.Format = c.String(flagLogFormat)
	}
	if c.IsSet(flagHistory) {
		cfg.HistorySize = c.Int(flagHistory)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// forEachImage decodes path, or every image of the directory at path, and hands each
// one to fn in order.
func forEachImage(path string, fn func(path string, img image.Image)) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "input %s", path)
	}

	if !info.IsDir() {
		img, err := images.Open(path)
		if err != nil {
			return err
		}
		fn(path, img)
		return nil
	}

	files, err := util.LoadDirectoryImageFiles(path)
	if err != nil {
		return err
	}
	for _, f := range files {
		img, err := images.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return errors.Wrapf(err, "image %s", f.Path)
		}
		fn(f.Path, img)
	}
	return nil
}
