package overlay

import (
	"image"
	"image/draw"

	"github.com/menta2k/photo-detect/pkg/types"
)

// Surface is the transparent drawing layer stacked over the displayed
// image. It does not track the image's size on its own: SetSize must be
// called with the image's natural dimensions before drawing and again
// every time the displayed image changes.
type Surface struct {
	rgba *image.RGBA
}

// NewSurface creates an empty surface. Call SetSize before drawing.
func NewSurface() *Surface {
	return &Surface{rgba: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

// SetSize resizes the surface to exactly the given natural size,
// clearing it in the process.
func (s *Surface) SetSize(size types.ImageSize) {
	b := s.rgba.Bounds()
	if b.Dx() == size.Width && b.Dy() == size.Height {
		s.Clear()
		return
	}
	s.rgba = image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
}

// Size returns the surface's current pixel dimensions.
func (s *Surface) Size() types.ImageSize {
	b := s.rgba.Bounds()
	return types.ImageSize{Width: b.Dx(), Height: b.Dy()}
}

// Clear resets every pixel to fully transparent.
func (s *Surface) Clear() {
	for i := range s.rgba.Pix {
		s.rgba.Pix[i] = 0
	}
}

// RGBA exposes the underlying raster for drawing and inspection.
func (s *Surface) RGBA() *image.RGBA {
	return s.rgba
}

// Composite alpha-blends the surface over a copy of the base image. The
// base is not modified.
func Composite(base image.Image, s *Surface) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)
	draw.Draw(out, out.Bounds(), s.rgba, image.Point{}, draw.Over)
	return out
}
