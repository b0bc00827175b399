// Package stream serves annotated frames to browsers as an MJPEG stream, along
// with a single frame snapshot and the selection status as JSON
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swdee/go-bciselect/config"
	"github.com/swdee/go-bciselect/frame"
	"gocv.io/x/gocv"
)

// StatusFunc returns the value served as JSON on /status
type StatusFunc func() interface{}

// Subscriber is a source of confirmed planning IDs for /events
type Subscriber interface {
	Subscribe() (string, <-chan int)
	Unsubscribe(id string)
}

// Server holds the most recent encoded frame and fans it out to every
// connected stream client
type Server struct {
	cfg    config.StreamConfig
	status StatusFunc
	events Subscriber
	logger *slog.Logger

	// publishMu guards scaler and scaled, the scaler is rebuilt when the
	// source frame size changes
	publishMu  sync.Mutex
	scaler     *frame.Scaler
	scaled     gocv.Mat
	srcW, srcH int

	mu     sync.RWMutex
	latest []byte
	// notify is closed and replaced when a new frame is published
	notify chan struct{}

	frames  atomic.Uint64
	clients atomic.Int64
}

// NewServer returns a stream Server.  A nil status func serves an empty
// object.
func NewServer(cfg config.StreamConfig, status StatusFunc, logger *slog.Logger) *Server {

	if logger == nil {
		logger = slog.Default()
	}

	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = config.DefaultJPEGQuality
	}

	return &Server{
		cfg:    cfg,
		status: status,
		logger: logger,
		scaled: gocv.NewMat(),
		notify: make(chan struct{}),
	}
}

// SetEvents enables the /events endpoint, it must be called before serving
func (s *Server) SetEvents(sub Subscriber) {
	s.events = sub
}

// Publish encodes img as JPEG and makes it the current frame.  Concurrent
// calls are serialized.
func (s *Server) Publish(img gocv.Mat) error {

	if img.Empty() {
		return frame.ErrEmptyFrame
	}

	data, err := s.encode(img)

	if err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = data
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()

	s.frames.Add(1)

	return nil
}

// encode scales img to the configured bounds and returns it as JPEG
func (s *Server) encode(img gocv.Mat) ([]byte, error) {

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	src := img

	if s.cfg.MaxWidth > 0 || s.cfg.MaxHeight > 0 {
		if s.scaler == nil || s.srcW != img.Cols() || s.srcH != img.Rows() {
			s.srcW, s.srcH = img.Cols(), img.Rows()
			s.scaler = frame.NewScaler(s.srcW, s.srcH, s.cfg.MaxWidth, s.cfg.MaxHeight)
		}

		if s.scaler.NeedsScaling() {
			s.scaler.Scale(img, &s.scaled)
			src = s.scaled
		}
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src,
		[]int{gocv.IMWriteJpegQuality, s.cfg.JPEGQuality})

	if err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}

	defer buf.Close()

	// copy out of the native buffer
	return append([]byte(nil), buf.GetBytes()...), nil
}

// current returns the latest frame and the channel closed on the next one
func (s *Server) current() ([]byte, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.notify
}

// Frames returns the number of frames published
func (s *Server) Frames() uint64 {
	return s.frames.Load()
}

// Clients returns the number of connected stream clients
func (s *Server) Clients() int64 {
	return s.clients.Load()
}

// Handler returns the HTTP handler serving /stream, /snapshot.jpg, /status
// and /events when enabled
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.Stream)
	mux.HandleFunc("/snapshot.jpg", s.Snapshot)
	mux.HandleFunc("/status", s.Status)

	if s.events != nil {
		mux.HandleFunc("/events", s.Events)
	}

	return mux
}

// Stream is the HTTP handler function used to stream video frames to browser
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {

	s.clients.Add(1)
	defer s.clients.Add(-1)

	s.logger.Info("stream client connected", "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	flusher, _ := w.(http.Flusher)

	data, next := s.current()

	for {
		if data != nil {
			if err := writePart(w, data); err != nil {
				s.logger.Debug("stream write failed", "error", err)
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			s.logger.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-next:
			data, next = s.current()
		}
	}
}

func writePart(w http.ResponseWriter, data []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// Snapshot serves the latest frame as a single JPEG
func (s *Server) Snapshot(w http.ResponseWriter, r *http.Request) {

	data, _ := s.current()

	if data == nil {
		http.Error(w, "no frame available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// Status serves the status func result as JSON
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {

	var v interface{} = struct{}{}

	if s.status != nil {
		v = s.status()
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode status", "error", err)
	}
}

// Events issues Server-Sent Events for every confirmed planning ID
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, ch := s.events.Subscribe()
	defer s.events.Unsubscribe(id)

	flusher, _ := w.(http.Flusher)

	// initial ping to establish the connection
	w.Write([]byte(": ping\n\n"))

	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case planningID, ok := <-ch:
			if !ok {
				return
			}

			_, err := fmt.Fprintf(w, "event: confirm\ndata: {\"planning_id\":%d}\n\n", planningID)

			if err != nil {
				return
			}

			if flusher != nil {
				flusher.Flush()
			}

		case <-r.Context().Done():
			return
		}
	}
}

// ListenAndServe serves on the configured address until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("stream server listening",
			"addr", s.cfg.Addr,
			"url", fmt.Sprintf("http://%s/stream", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("stream server failed: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		// stream handlers only return on client disconnect, so force close
		// anything still open after the grace period
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		srv.Close()
		return nil
	}
}

// Close releases the scaling buffer
func (s *Server) Close() error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	return s.scaled.Close()
}
