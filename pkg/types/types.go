package types

import (
	"fmt"
	"math"
	"strings"
)

// Box is a bounding box in absolute pixel coordinates of the displayed
// image: [x1, y1, x2, y2], top-left origin, x right, y down.
type Box [4]float64

// X1 returns the left edge of the box.
func (b Box) X1() float64 { return b[0] }

// Y1 returns the top edge of the box.
func (b Box) Y1() float64 { return b[1] }

// X2 returns the right edge of the box.
func (b Box) X2() float64 { return b[2] }

// Y2 returns the bottom edge of the box.
func (b Box) Y2() float64 { return b[3] }

// Width returns x2-x1. Negative for flipped input; callers draw what
// they are given.
func (b Box) Width() float64 { return b[2] - b[0] }

// Height returns y2-y1.
func (b Box) Height() float64 { return b[3] - b[1] }

// Detection is one server-reported recognized object instance.
type Detection struct {
	Box        Box     `json:"box"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// Label renders the detection's display label: uppercased class name,
// one space, confidence rounded to an integer percentage.
func (d Detection) Label() string {
	return fmt.Sprintf("%s %d%%", strings.ToUpper(d.ClassName), int(math.Round(d.Confidence*100)))
}

// DetectionResponse is the wire shape returned by the detection backend.
type DetectionResponse struct {
	Detections []Detection `json:"detections"`
}

// ImageSize holds an image's natural (decoded) pixel dimensions, as
// opposed to any scaled display size.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EncodedImage is a named, re-encoded image buffer ready for upload.
type EncodedImage struct {
	Name        string
	ContentType string
	Data        []byte
	Size        ImageSize
}
