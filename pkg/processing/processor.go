package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/photo-detect/pkg/types"
)

// ErrDecode is wrapped by every error caused by an unreadable or
// unsupported source image.
var ErrDecode = errors.New("image decode failed")

// Processor handles image normalization: decode, bounded-width resize
// and JPEG re-encode before display and upload.
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return p.DecodeImage(data)
}

// DecodeImage decodes an image from byte data with WebP fallback.
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("%w: unknown or unsupported format", ErrDecode)
}

// Normalize scales an image to the target width by a single uniform
// Lanczos resample. Height scales identically to width, so the aspect
// ratio is preserved by construction. Sources narrower than the target
// are upscaled.
func (p *Processor) Normalize(img image.Image, targetWidth int) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", b.Dx(), b.Dy())
	}
	if targetWidth <= 0 {
		return nil, fmt.Errorf("invalid target width %d", targetWidth)
	}
	return imaging.Resize(img, targetWidth, 0, imaging.Lanczos), nil
}

// NormalizeAndEncode normalizes an image and re-encodes it as JPEG at
// the given quality. The returned buffer and the returned image are the
// same raster: whatever is displayed is byte-for-byte what gets
// uploaded, so box coordinates from the backend always align.
func (p *Processor) NormalizeAndEncode(img image.Image, targetWidth, quality int) (image.Image, *types.EncodedImage, error) {
	normalized, err := p.Normalize(img, targetWidth)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, normalized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := normalized.Bounds()
	return normalized, &types.EncodedImage{
		Name:        "photo.jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		Size:        types.ImageSize{Width: b.Dx(), Height: b.Dy()},
	}, nil
}

// NaturalSize returns an image's decoded pixel dimensions.
func (p *Processor) NaturalSize(img image.Image) types.ImageSize {
	b := img.Bounds()
	return types.ImageSize{Width: b.Dx(), Height: b.Dy()}
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(f, img)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
