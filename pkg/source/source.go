package source

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/photo-detect/pkg/processing"
)

// ImageSource yields one raw decoded image per acquisition. The two
// variants, a picked file and a captured camera frame, keep the rest of
// the pipeline agnostic to where the photo came from.
type ImageSource interface {
	// Acquire produces the raw image and a display name for it.
	Acquire(ctx context.Context) (image.Image, string, error)
}

// FileSource reads a raster image from disk.
type FileSource struct {
	Path      string
	processor *processing.Processor
}

// FromFile creates a source backed by a local image file.
func FromFile(path string) *FileSource {
	return &FileSource{Path: path, processor: processing.NewProcessor()}
}

// Acquire loads and decodes the file.
func (s *FileSource) Acquire(_ context.Context) (image.Image, string, error) {
	img, err := s.processor.LoadImage(s.Path)
	if err != nil {
		return nil, "", err
	}
	return img, filepath.Base(s.Path), nil
}

// CaptureSource grabs a single still frame from a camera's HTTP
// snapshot URL.
type CaptureSource struct {
	URL       string
	processor *processing.Processor
	client    *http.Client
}

// FromCapture creates a source backed by a camera snapshot endpoint.
func FromCapture(snapshotURL string) *CaptureSource {
	return &CaptureSource{
		URL:       snapshotURL,
		processor: processing.NewProcessor(),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Acquire fetches and decodes one frame.
func (s *CaptureSource) Acquire(ctx context.Context) (image.Image, string, error) {
	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Photo-Detect/1.0 (+https://github.com/menta2k/photo-detect)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to capture frame: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to capture frame: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read frame data: %v", err)
	}

	img, err := s.processor.DecodeImage(data)
	if err != nil {
		return nil, "", err
	}
	return img, "capture.jpg", nil
}
