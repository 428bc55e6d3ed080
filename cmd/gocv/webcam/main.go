// Package main runs the detector on a webcam stream and draws the detections.
package main

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/logger"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/reading"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func main() {
	app := &cli.App{
		Name:  "webcam",
		Usage: "run a YOLO model on a video capture device",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", Required: true},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "ONNX model file, overrides the configuration"},
			&cli.IntFlag{Name: "device", Usage: "video capture device ID"},
			&cli.BoolFlag{Name: "window", Value: true, Usage: "show the annotated stream"},
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
	defer providers.Shutdown() //nolint:errcheck
	defer det.Close()

	deviceID := c.Int("device")
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return errors.Wrapf(err, "open video capture device %d", deviceID)
	}
	defer webcam.Close()

	var window *gocv.Window
	if c.Bool("window") {
		window = gocv.NewWindow("Detect")
		defer window.Close()
	}

	img := gocv.NewMat()
	defer img.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	encoder, err := cfg.Model.Encoder()
	if err != nil {
		return err
	}
	input := image.Pt(encoder.InputWidth, encoder.InputHeight)
	showReading := cfg.Model.Family == models.ModelFamilyScale

	green := color.RGBA{0, 255, 0, 0}
	white := color.RGBA{255, 255, 255, 0}

	fps := 0.0
	frameCount := 0
	lastTime := time.Now()

	log.Info("reading camera", zap.Int("device", deviceID))
	for {
		if ok := webcam.Read(&img); !ok {
			return errors.Errorf("cannot read device %d", deviceID)
		}
		if img.Empty() {
			continue
		}

		frameCount++
		if elapsed := time.Since(lastTime).Seconds(); elapsed >= 1.0 {
			fps = float64(frameCount) / elapsed
			frameCount = 0
			lastTime = time.Now()
		}

		gocv.Resize(img, &resized, input, 0, 0, gocv.InterpolationLinear)
		frame, err := frameFromMat(resized)
		if err != nil {
			return err
		}

		detections := det.Detect(c.Context, frame)
		if err := det.LastError(); err != nil {
			log.Debug("detection incomplete", zap.Error(err))
		}

		sx, sy := det.Scale(img.Cols(), img.Rows())
		for _, d := range detections {
			box := d.Box.Scale(sx, sy).Clamp(float32(img.Cols()), float32(img.Rows()))
			rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2))
			gocv.Rectangle(&img, rect, green, 2)
			gocv.PutText(&img, fmt.Sprintf("%s %.2f", d.Label, d.Confidence), rect.Min,
				gocv.FontHersheyPlain, 1.2, green, 2)
		}

		status := fmt.Sprintf("%d objects | %.1f FPS | %.1fms", len(detections), fps, det.Stats().TotalMs())
		if showReading {
			status = fmt.Sprintf("%s | %s", reading.Assemble(detections), status)
		}
		gocv.PutText(&img, status, image.Pt(10, 30), gocv.FontHersheyPlain, 1.2, white, 2)

		if window == nil {
			fmt.Println(status)
			continue
		}
		window.IMShow(img)
		if window.WaitKey(1) == 27 {
			return nil
		}
	}
}
