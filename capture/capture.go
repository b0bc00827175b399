// Package capture reads frames from a local camera, video file or stream URL
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/swdee/go-bciselect/config"
	"gocv.io/x/gocv"
)

// ErrNoSource is returned when no capture source is configured
var ErrNoSource = errors.New("no capture source configured")

// Handler receives each captured frame.  The Mat is reused for the next read
// so the handler must copy it if it is kept.
type Handler func(img gocv.Mat)

// Source wraps a gocv.VideoCapture
type Source struct {
	video    *gocv.VideoCapture
	name     string
	interval time.Duration
	loop     bool
	logger   *slog.Logger
	frames   atomic.Uint64
}

// Open opens the configured capture source.  A numeric source is treated as
// a device index.
func Open(cfg config.CaptureConfig, logger *slog.Logger) (*Source, error) {

	if cfg.Source == "" {
		return nil, ErrNoSource
	}

	if logger == nil {
		logger = slog.Default()
	}

	var device interface{} = cfg.Source

	if id, err := strconv.Atoi(cfg.Source); err == nil {
		device = id
	}

	video, err := gocv.OpenVideoCapture(device)

	if err != nil {
		return nil, fmt.Errorf("error opening capture source %s: %w", cfg.Source, err)
	}

	if cfg.Width > 0 {
		video.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}

	if cfg.Height > 0 {
		video.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	s := &Source{
		video:  video,
		name:   cfg.Source,
		loop:   cfg.Loop,
		logger: logger,
	}

	if cfg.FPS > 0 {
		s.interval = time.Duration(float64(time.Second) / float64(cfg.FPS))
	}

	logger.Info("capture source opened",
		"source", cfg.Source,
		"width", video.Get(gocv.VideoCaptureFrameWidth),
		"height", video.Get(gocv.VideoCaptureFrameHeight),
		"fps", cfg.FPS)

	return s, nil
}

// Run reads frames and passes them to handler until ctx is cancelled or the
// source ends.  A source that ends returns nil unless looping is enabled.
func (s *Source) Run(ctx context.Context, handler Handler) error {

	img := gocv.NewMat()
	defer img.Close()

	var tick <-chan time.Time

	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if ok := s.video.Read(&img); !ok {

			if !s.loop {
				s.logger.Info("capture source ended", "source", s.name,
					"frames", s.frames.Load())
				return nil
			}

			// reached last video frame so loop back to start
			s.video.Set(gocv.VideoCapturePosFrames, 0)

			if ok := s.video.Read(&img); !ok {
				return fmt.Errorf("capture source %s could not restart", s.name)
			}
		}

		if img.Empty() {
			continue
		}

		s.frames.Add(1)
		handler(img)
	}
}

// Frames returns the number of frames read
func (s *Source) Frames() uint64 {
	return s.frames.Load()
}

// Close releases the capture device
func (s *Source) Close() error {
	return s.video.Close()
}
