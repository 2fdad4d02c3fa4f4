package session

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/photo-detect/pkg/client"
	"github.com/menta2k/photo-detect/pkg/processing"
	"github.com/menta2k/photo-detect/pkg/source"
	"github.com/menta2k/photo-detect/pkg/types"
)

// Snapshot is a consistent view of the session state handed to change
// observers. The detection list is a copy; observers may keep it.
type Snapshot struct {
	Image      image.Image
	Size       types.ImageSize
	Detections []types.Detection
	Loading    bool
}

// Config holds the session's normalization parameters.
type Config struct {
	TargetWidth int
	JPEGQuality int
}

// Session coordinates the displayed image, the current detection list
// and the loading flag. All three are mutated only by Submit and the
// completion of the request it starts. Each submission carries a
// sequence number; a completion whose sequence is no longer current is
// discarded without touching state, so the detection list is never
// shown against an image it was not computed from.
type Session struct {
	processor *processing.Processor
	detector  client.Detector
	config    Config
	logger    *logrus.Logger

	mu         sync.Mutex
	seq        uint64
	img        image.Image
	size       types.ImageSize
	detections []types.Detection
	loading    bool

	onChange []func(Snapshot)
	onError  []func(error)
}

// New creates a session around a detector.
func New(detector client.Detector, config Config, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		processor: processing.NewProcessor(),
		detector:  detector,
		config:    config,
		logger:    logger,
	}
}

// OnChange registers an observer invoked whenever the displayed image
// or the detection list changes. The overlay must be redrawn on every
// call, and its surface resized whenever Size changed.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnError registers an observer for user-facing failures.
func (s *Session) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Submit runs one full request cycle: acquire, normalize, display,
// upload, and replace the detection list from the response. A decode
// failure is returned before any state changes. A backend failure
// clears the loading flag, leaves the list empty and is both returned
// and delivered to error observers. Starting a new submission while one
// is outstanding makes the older one's response stale.
func (s *Session) Submit(ctx context.Context, src source.ImageSource) error {
	raw, name, err := src.Acquire(ctx)
	if err != nil {
		s.notifyError(err)
		return fmt.Errorf("failed to acquire image: %w", err)
	}

	normalized, encoded, err := s.processor.NormalizeAndEncode(raw, s.config.TargetWidth, s.config.JPEGQuality)
	if err != nil {
		s.notifyError(err)
		return fmt.Errorf("failed to normalize image: %w", err)
	}
	encoded.Name = name

	// The previous detection list is discarded before the upload even
	// starts; stale boxes are never shown over the new image.
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.img = normalized
	s.size = encoded.Size
	s.detections = nil
	s.loading = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notifyChange(snap)

	detections, err := s.detector.Detect(ctx, encoded)

	s.mu.Lock()
	if s.seq != mySeq {
		s.mu.Unlock()
		s.logger.WithField("seq", mySeq).Debug("discarding stale detection response")
		return nil
	}
	s.loading = false
	if err == nil {
		s.detections = detections
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error("detection failed")
		s.notifyChange(snap)
		s.notifyError(err)
		return err
	}

	s.notifyChange(snap)
	return nil
}

// SubmitAsync runs Submit on its own goroutine; failures reach error
// observers only.
func (s *Session) SubmitAsync(ctx context.Context, src source.ImageSource) {
	go func() {
		_ = s.Submit(ctx, src)
	}()
}

func (s *Session) snapshotLocked() Snapshot {
	dets := make([]types.Detection, len(s.detections))
	copy(dets, s.detections)
	return Snapshot{
		Image:      s.img,
		Size:       s.size,
		Detections: dets,
		Loading:    s.loading,
	}
}

func (s *Session) notifyChange(snap Snapshot) {
	s.mu.Lock()
	observers := append([]func(Snapshot){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

func (s *Session) notifyError(err error) {
	s.mu.Lock()
	observers := append([]func(error){}, s.onError...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(err)
	}
}
