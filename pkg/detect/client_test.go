package detect

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/photo-detect/pkg/types"
)

func testImage() *types.EncodedImage {
	return &types.EncodedImage{
		Name:        "photo.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xFF, 0xD8, 0xFF, 0xD9},
		Size:        types.ImageSize{Width: 640, Height: 427},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDetectSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"detections":[{"box":[100,100,300,400],"class_name":"box","confidence":0.87}]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, quietLogger())
	detections, err := c.Detect(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(detections))
	}
	d := detections[0]
	if d.Box != (types.Box{100, 100, 300, 400}) {
		t.Errorf("Unexpected box: %v", d.Box)
	}
	if d.ClassName != "box" || d.Confidence != 0.87 {
		t.Errorf("Unexpected detection: %+v", d)
	}
	if d.Label() != "BOX 87%" {
		t.Errorf("Expected label BOX 87%%, got %q", d.Label())
	}
}

func TestDetectMultipartShape(t *testing.T) {
	var gotFilename, gotContentType string
	var gotBytes []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Not a multipart form: %v", err)
		}
		file, header, err := r.FormFile(FormField)
		if err != nil {
			t.Fatalf("Missing form file %q: %v", FormField, err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		gotBytes, _ = io.ReadAll(file)
		io.WriteString(w, `{"detections":[]}`)
	}))
	defer server.Close()

	img := testImage()
	c := NewClient(server.URL, 5*time.Second, quietLogger())
	if _, err := c.Detect(context.Background(), img); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if gotFilename != "photo.jpg" {
		t.Errorf("Expected filename photo.jpg, got %s", gotFilename)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("Expected part content type image/jpeg, got %s", gotContentType)
	}
	if string(gotBytes) != string(img.Data) {
		t.Error("Uploaded bytes differ from the encoded image")
	}
}

func TestDetectEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"detections":[]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, quietLogger())
	detections, err := c.Detect(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Empty result should not be an error: %v", err)
	}
	if detections == nil || len(detections) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", detections)
	}
}

func TestDetectNilDetectionsNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, quietLogger())
	detections, err := c.Detect(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if detections == nil {
		t.Error("Expected non-nil slice for missing detections field")
	}
}

func TestDetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, quietLogger())
	_, err := c.Detect(context.Background(), testImage())
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !errors.Is(err, ErrBackend) {
		t.Errorf("Expected ErrBackend, got %v", err)
	}
}

func TestDetectMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json at all`)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, quietLogger())
	_, err := c.Detect(context.Background(), testImage())
	if err == nil {
		t.Fatal("Expected error for malformed body")
	}
	if !errors.Is(err, ErrBackend) {
		t.Errorf("Expected ErrBackend, got %v", err)
	}
}

func TestDetectConnectionRefused(t *testing.T) {
	// Closed server to force a transport error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewClient(server.URL, 2*time.Second, quietLogger())
	_, err := c.Detect(context.Background(), testImage())
	if err == nil {
		t.Fatal("Expected error for unreachable backend")
	}
	if !errors.Is(err, ErrBackend) {
		t.Errorf("Expected ErrBackend, got %v", err)
	}
}
