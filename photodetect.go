// Package photodetect submits photographs to a remote object-detection
// service and renders the returned bounding boxes as an overlay aligned
// to the displayed image.
//
// The pipeline has three stages:
//
//  1. Normalizer (pkg/processing): decode the source, scale it to a
//     bounded width by one uniform resample, re-encode as JPEG. The
//     displayed image and the uploaded image are always the same
//     raster, so returned box coordinates line up with what is shown.
//  2. Detection client (pkg/detect, pkg/ollama): one multipart POST per
//     submission, JSON detection list back. No retries.
//  3. Overlay renderer (pkg/overlay): scale-aware boxes and labels on a
//     transparent surface sized to the image's natural dimensions.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"time"
//
//		photodetect "github.com/menta2k/photo-detect"
//		"github.com/menta2k/photo-detect/pkg/detect"
//	)
//
//	func main() {
//		detector := detect.NewClient("http://localhost:8000/detect", 60*time.Second, nil)
//		pipeline, err := photodetect.New(detector)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := pipeline.ProcessFile(context.Background(), "photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		for _, det := range result.Detections {
//			log.Printf("%s at %v", det.Label(), det.Box)
//		}
//	}
//
// pkg/session provides the interactive coordinator: it owns the
// displayed image, the detection list and the loading flag, notifies
// redraw observers on every state change, and discards responses that
// arrive for a superseded submission.
package photodetect

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/photo-detect/pkg/client"
	"github.com/menta2k/photo-detect/pkg/overlay"
	"github.com/menta2k/photo-detect/pkg/processing"
	"github.com/menta2k/photo-detect/pkg/types"
)

// Version of the photo-detect library
const Version = "1.0.0"

// Options holds pipeline construction parameters.
type Options struct {
	TargetWidth int
	JPEGQuality int
	Overlay     overlay.Config
}

// DefaultOptions returns the pipeline defaults: 640px target width,
// JPEG quality 85 and the renderer's default drawing constants.
func DefaultOptions() Options {
	return Options{
		TargetWidth: 640,
		JPEGQuality: 85,
		Overlay:     overlay.DefaultConfig(),
	}
}

// Pipeline is the high-level normalize-detect-annotate flow.
type Pipeline struct {
	processor *processing.Processor
	detector  client.Detector
	renderer  *overlay.Renderer
	options   Options
}

// Result holds the outcome of one pipeline run.
type Result struct {
	// Image is the normalized raster that was displayed and uploaded.
	Image image.Image
	// Size is its natural pixel dimensions, the overlay's coordinate space.
	Size types.ImageSize
	// Detections is the backend's list, in its original order.
	Detections []types.Detection
	// Annotated is the normalized image with the overlay composited on.
	Annotated *image.RGBA
}

// New creates a pipeline with default options.
func New(detector client.Detector) (*Pipeline, error) {
	return NewWithOptions(detector, DefaultOptions())
}

// NewWithOptions creates a pipeline with custom options.
func NewWithOptions(detector client.Detector, options Options) (*Pipeline, error) {
	renderer, err := overlay.NewRendererWithConfig(options.Overlay)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		processor: processing.NewProcessor(),
		detector:  detector,
		renderer:  renderer,
		options:   options,
	}, nil
}

// Process normalizes a decoded image, runs detection on it and renders
// the annotated composite.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*Result, error) {
	normalized, encoded, err := p.processor.NormalizeAndEncode(img, p.options.TargetWidth, p.options.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize image: %w", err)
	}

	detections, err := p.detector.Detect(ctx, encoded)
	if err != nil {
		return nil, err
	}

	surface := overlay.NewSurface()
	surface.SetSize(encoded.Size)
	p.renderer.Render(surface, detections)

	return &Result{
		Image:      normalized,
		Size:       encoded.Size,
		Detections: detections,
		Annotated:  overlay.Composite(normalized, surface),
	}, nil
}

// ProcessFile loads an image from disk and runs Process on it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	img, err := p.processor.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, img)
}

// SaveAnnotated writes a result's annotated image to disk.
func (p *Pipeline) SaveAnnotated(result *Result, path, format string, quality int) error {
	return p.processor.SaveImage(result.Annotated, path, format, quality, false)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
