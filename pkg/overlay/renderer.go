package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/menta2k/photo-detect/pkg/types"
)

// Config holds the renderer's drawing constants. Line width, font size
// and label padding all scale with the surface width so boxes stay
// visually proportionate on small and very large images alike.
type Config struct {
	Accent         color.RGBA
	LabelText      color.RGBA
	FillAlpha      float64
	ReferenceWidth float64
	BaseLine       float64
	MinLine        float64
	BaseFont       float64
	MinFont        float64
	BasePad        float64
	MinPad         float64
}

// DefaultConfig returns the renderer's default drawing constants.
func DefaultConfig() Config {
	return Config{
		Accent:         color.RGBA{R: 255, G: 64, B: 64, A: 255},
		LabelText:      color.RGBA{R: 255, G: 255, B: 255, A: 255},
		FillAlpha:      0.2,
		ReferenceWidth: 600,
		BaseLine:       2,
		MinLine:        2,
		BaseFont:       14,
		MinFont:        12,
		BasePad:        4,
		MinPad:         3,
	}
}

// Renderer draws detection boxes and labels onto a Surface.
type Renderer struct {
	config Config
	ttf    *truetype.Font
	faces  map[int]font.Face
}

// NewRenderer creates a renderer with default configuration.
func NewRenderer() (*Renderer, error) {
	return NewRendererWithConfig(DefaultConfig())
}

// NewRendererWithConfig creates a renderer with custom drawing constants.
func NewRendererWithConfig(config Config) (*Renderer, error) {
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	return &Renderer{
		config: config,
		ttf:    ttf,
		faces:  map[int]font.Face{},
	}, nil
}

// ScaleFactor returns the size multiplier for a surface of the given
// width: 1 at or below the reference width, proportional above it.
func (r *Renderer) ScaleFactor(surfaceWidth int) float64 {
	return math.Max(1, float64(surfaceWidth)/r.config.ReferenceWidth)
}

// LineWidth returns the scale-aware border stroke width.
func (r *Renderer) LineWidth(surfaceWidth int) float64 {
	return math.Max(r.config.MinLine, r.config.BaseLine*r.ScaleFactor(surfaceWidth))
}

// FontSize returns the scale-aware label font size.
func (r *Renderer) FontSize(surfaceWidth int) float64 {
	return math.Max(r.config.MinFont, r.config.BaseFont*r.ScaleFactor(surfaceWidth))
}

// LabelPadding returns the scale-aware horizontal label padding.
func (r *Renderer) LabelPadding(surfaceWidth int) float64 {
	return math.Max(r.config.MinPad, r.config.BasePad*r.ScaleFactor(surfaceWidth))
}

// Render clears the surface and draws every detection in list order;
// later entries draw over earlier ones. An empty list leaves the
// surface fully cleared. Rendering the same inputs twice produces the
// same pixels: the pass always starts from a cleared surface.
func (r *Renderer) Render(surface *Surface, detections []types.Detection) {
	surface.Clear()
	if len(detections) == 0 {
		return
	}

	size := surface.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	dc := gg.NewContextForRGBA(surface.RGBA())
	lineWidth := r.LineWidth(size.Width)
	fontSize := r.FontSize(size.Width)
	pad := r.LabelPadding(size.Width)
	dc.SetFontFace(r.face(fontSize))

	accent := r.config.Accent
	for _, det := range detections {
		x1, y1 := det.Box.X1(), det.Box.Y1()
		w, h := det.Box.Width(), det.Box.Height()

		// Translucent fill
		dc.SetRGBA(float64(accent.R)/255, float64(accent.G)/255, float64(accent.B)/255, r.config.FillAlpha)
		dc.DrawRectangle(x1, y1, w, h)
		dc.Fill()

		// Opaque border
		dc.SetColor(accent)
		dc.SetLineWidth(lineWidth)
		dc.DrawRectangle(x1, y1, w, h)
		dc.Stroke()

		r.drawLabel(dc, det, x1, y1, fontSize, pad)
	}
}

// drawLabel draws the label band immediately above the box top edge,
// or inside the box at the top edge when the box is too close to the
// surface's top for the band to fit above.
func (r *Renderer) drawLabel(dc *gg.Context, det types.Detection, x1, y1, fontSize, pad float64) {
	label := det.Label()
	textWidth, _ := dc.MeasureString(label)
	bandWidth := textWidth + 2*pad
	bandHeight := 1.2 * fontSize

	bandY := y1 - bandHeight
	if bandY < 0 {
		bandY = y1
	}

	dc.SetColor(r.config.Accent)
	dc.DrawRectangle(x1, bandY, bandWidth, bandHeight)
	dc.Fill()

	// Baseline one font size below the band top keeps the text aligned
	// to the top of the band.
	dc.SetColor(r.config.LabelText)
	dc.DrawString(label, x1+pad, bandY+fontSize)
}

// face returns a cached font face for the given size.
func (r *Renderer) face(size float64) font.Face {
	key := int(math.Round(size))
	if f, ok := r.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(r.ttf, &truetype.Options{Size: float64(key)})
	r.faces[key] = f
	return f
}
