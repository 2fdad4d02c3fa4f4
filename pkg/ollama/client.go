package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/photo-detect/pkg/types"
)

// DetectionPrompt asks a vision model to behave like a detection
// backend: strict JSON, absolute pixel boxes in the uploaded image's
// coordinate space.
const DetectionPrompt = `You are an object detector. The attached image is %d pixels wide and %d pixels tall.

Return JSON only:
{
  "detections": [
    {"box": [x1, y1, x2, y2], "class_name": "string", "confidence": 0.0}
  ]
}

HARD RULES
- box values are absolute pixel coordinates in the attached image, top-left origin, with x2 >= x1 and y2 >= y1.
- confidence is in [0,1].
- class_name is a short lowercase category like "person" or "dog".
- List every clearly visible object, most prominent first.
- If nothing is recognizable, return {"detections": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Client is a detection backend backed by an Ollama vision model.
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates an Ollama-backed detector for the given server URL
// and model name.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Base URL only; any path like /api/chat is supplied by the SDK
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Detect sends the image to the vision model and parses its JSON reply
// into a detection list.
func (c *Client) Detect(ctx context.Context, img *types.EncodedImage) ([]types.Detection, error) {
	// Add timeout if context doesn't have one (vision models on CPU are slow)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(DetectionPrompt, img.Size.Width, img.Size.Height),
				Images:  []api.ImageData{api.ImageData(img.Data)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}

	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return parseDetections(responseContent)
}

// parseDetections parses the JSON response from the vision model
func parseDetections(raw string) ([]types.Detection, error) {
	raw = sanitizeModelJSON(raw)

	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var result types.DetectionResponse
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// Try conservative brace-slice approach
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse model response: %v", err)
		}
		if err2 := json.Unmarshal([]byte(raw[start:end+1]), &result); err2 != nil {
			return nil, fmt.Errorf("failed to parse model response: %v", err2)
		}
	}

	out := make([]types.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		d.Confidence = clamp(d.Confidence, 0, 1)
		d.ClassName = strings.TrimSpace(d.ClassName)
		out = append(out, d)
	}
	return out, nil
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line/inline comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
