package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/photo-detect/pkg/types"
)

// ErrBackend is wrapped by every detection request failure: network
// errors, non-2xx statuses and malformed response bodies alike. Callers
// treat them as one terminal failure for the request cycle.
var ErrBackend = errors.New("detection request failed")

// FormField is the multipart field name the backend expects the image
// under.
const FormField = "file"

// Client talks to the detection backend over HTTP. One multipart POST
// per submission, no retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a detection client for the given endpoint URL.
func NewClient(endpoint string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Detect uploads the image as the sole field of a multipart form and
// parses the JSON response into a detection list. A valid response with
// zero detections returns an empty, non-nil slice.
func (c *Client) Detect(ctx context.Context, img *types.EncodedImage) ([]types.Detection, error) {
	body, contentType, err := encodeForm(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("endpoint", c.endpoint).Error("detection request failed")
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.WithError(err).Error("failed to read detection response")
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"endpoint": c.endpoint,
			"status":   resp.StatusCode,
		}).Error("detection backend returned error status")
		return nil, fmt.Errorf("%w: server returned status %d", ErrBackend, resp.StatusCode)
	}

	var parsed types.DetectionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.WithError(err).Error("malformed detection response body")
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if parsed.Detections == nil {
		return []types.Detection{}, nil
	}
	return parsed.Detections, nil
}

// encodeForm packages the image bytes as a single-file multipart body.
func encodeForm(img *types.EncodedImage) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, img.Name))
	h.Set("Content-Type", img.ContentType)

	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &body, w.FormDataContentType(), nil
}
