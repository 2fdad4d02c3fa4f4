package client

import (
	"context"

	"github.com/menta2k/photo-detect/pkg/types"
)

// Detector submits an encoded image to a detection backend and returns
// the recognized objects. Implementations report any transport or
// protocol failure as a single error; an empty result is not an error.
type Detector interface {
	Detect(ctx context.Context, img *types.EncodedImage) ([]types.Detection, error)
}
