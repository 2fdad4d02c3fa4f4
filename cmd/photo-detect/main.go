package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/photo-detect/internal/config"
	"github.com/menta2k/photo-detect/internal/utils"
	"github.com/menta2k/photo-detect/pkg/client"
	"github.com/menta2k/photo-detect/pkg/detect"
	"github.com/menta2k/photo-detect/pkg/ollama"
	"github.com/menta2k/photo-detect/pkg/overlay"
	"github.com/menta2k/photo-detect/pkg/processing"
	"github.com/menta2k/photo-detect/pkg/session"
	"github.com/menta2k/photo-detect/pkg/source"
)

func main() {
	var in, capture, endpoint, backend, model, configPath string
	var outDir, ext string
	var width, quality int
	var verbose bool

	flag.StringVar(&in, "in", "", "input image path (jpg/png/webp)")
	flag.StringVar(&capture, "capture", "", "camera snapshot URL to capture a frame from")
	flag.StringVar(&endpoint, "endpoint", "", "detection backend URL (overrides config)")
	flag.StringVar(&backend, "backend", "", "backend to use: http or ollama (overrides config)")
	flag.StringVar(&model, "model", "", "vision model name for the ollama backend")
	flag.StringVar(&configPath, "config", "", "config file path (JSON)")

	flag.StringVar(&outDir, "out", "out", "output directory for the annotated image")
	flag.StringVar(&ext, "ext", "jpg", "output format: jpg|png|webp")
	flag.IntVar(&width, "width", 0, "normalization target width in px (overrides config)")
	flag.IntVar(&quality, "quality", 0, "JPEG quality 1-100 (overrides config)")
	flag.BoolVar(&verbose, "v", false, "verbose logging")

	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if in == "" && capture == "" {
		logger.Fatalf("usage: %s -in photo.jpg | -capture http://camera/snapshot [-endpoint url] [-backend http|ollama] [-out outdir]", filepath.Base(os.Args[0]))
	}
	if in != "" && capture != "" {
		logger.Fatal("use either -in or -capture, not both")
	}
	if in != "" && !utils.IsImageFile(in) {
		logger.Fatalf("not a recognized image file: %s", in)
	}

	// .env feeds the PHOTODETECT_* overrides; absence is fine
	_ = godotenv.Load()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			logger.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		logger.Fatal(err)
	}
	if endpoint != "" {
		cfg.Detection.Endpoint = endpoint
	}
	if backend != "" {
		cfg.Detection.Backend = backend
	}
	if model != "" {
		cfg.Detection.Model = model
	}
	if width > 0 {
		cfg.Normalize.TargetWidth = width
	}
	if quality > 0 {
		cfg.Normalize.JPEGQuality = quality
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		logger.Fatal(err)
	}

	// Create the detector for the configured backend
	var detector client.Detector
	switch cfg.Detection.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.Detection.OllamaURL, cfg.Detection.Model)
		if err != nil {
			logger.Fatalf("Failed to create Ollama client: %v", err)
		}
		detector = c
	default:
		detector = detect.NewClient(cfg.Detection.Endpoint, time.Duration(cfg.Detection.TimeoutSeconds)*time.Second, logger)
	}

	overlayConfig := overlay.DefaultConfig()
	overlayConfig.ReferenceWidth = cfg.Overlay.ReferenceWidth
	overlayConfig.BaseLine = cfg.Overlay.BaseLineWidth
	overlayConfig.MinLine = cfg.Overlay.MinLineWidth
	overlayConfig.BaseFont = cfg.Overlay.BaseFontSize
	overlayConfig.MinFont = cfg.Overlay.MinFontSize

	renderer, err := overlay.NewRendererWithConfig(overlayConfig)
	if err != nil {
		logger.Fatal(err)
	}
	surface := overlay.NewSurface()

	sess := session.New(detector, session.Config{
		TargetWidth: cfg.Normalize.TargetWidth,
		JPEGQuality: cfg.Normalize.JPEGQuality,
	}, logger)

	// Redraw on every state change: resize the surface to the displayed
	// image's natural size, then render the current list onto it.
	sess.OnChange(func(snap session.Snapshot) {
		if snap.Image == nil {
			return
		}
		surface.SetSize(snap.Size)
		renderer.Render(surface, snap.Detections)
	})
	sess.OnError(func(err error) {
		logger.Errorf("Detection failed: %v", err)
	})

	var src source.ImageSource
	name := "capture.jpg"
	if in != "" {
		src = source.FromFile(in)
		name = in
	} else {
		src = source.FromCapture(capture)
	}

	if err := sess.Submit(context.Background(), src); err != nil {
		os.Exit(1)
	}

	snap := sess.Snapshot()
	if len(snap.Detections) == 0 {
		fmt.Println("no objects detected")
	}
	for _, det := range snap.Detections {
		fmt.Printf("%-24s box=[%.0f %.0f %.0f %.0f]\n", det.Label(),
			det.Box.X1(), det.Box.Y1(), det.Box.X2(), det.Box.Y2())
	}

	annotated := overlay.Composite(snap.Image, surface)
	outPath := utils.GenerateOutputFilename(name, outDir, strings.ToLower(ext))
	processor := processing.NewProcessor()
	if err := processor.SaveImage(annotated, outPath, ext, cfg.Normalize.JPEGQuality, false); err != nil {
		logger.Fatalf("Failed to save annotated image: %v", err)
	}
	logger.Infof("wrote %s (%dx%d, %d detections)", outPath, snap.Size.Width, snap.Size.Height, len(snap.Detections))
}
