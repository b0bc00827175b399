package bciselect

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/swdee/go-bciselect/config"
	"github.com/swdee/go-bciselect/frame"
	"github.com/swdee/go-bciselect/message"
	"github.com/swdee/go-bciselect/render"
	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

// ErrClosed is returned when a frame is handled after the Node is closed
var ErrClosed = errors.New("node closed")

// Sink receives annotated frames.  The Mat is only valid for the duration of
// the call.  Frames from different sources are annotated in parallel, so
// Publish must be safe for concurrent use.
type Sink interface {
	Publish(img gocv.Mat) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(img gocv.Mat) error

// Publish calls f(img)
func (f SinkFunc) Publish(img gocv.Mat) error {
	return f(img)
}

// Options configures a Node
type Options struct {
	Tracker   selection.Options
	Annotator *render.Annotator
	// Aliases maps extra command tokens onto Left, Right or Confirm
	Aliases map[string]string
	// PoolSize is the number of frames that can be annotated at once
	PoolSize int
	// EventBuffer is the per subscriber buffer of the confirmation broadcaster
	EventBuffer int
	Logger      *slog.Logger
}

// Node wires detection sets, commands and frames into a selection tracker and
// forwards annotated frames to its sinks
type Node struct {
	tracker     *selection.Tracker
	annotator   *render.Annotator
	parser      *selection.CommandParser
	pool        *MatPool
	broadcaster *selection.Broadcaster
	sinks       []Sink
	logger      *slog.Logger

	frames       atomic.Uint64
	frameErrors  atomic.Uint64
	badObjects   atomic.Uint64
	sinkErrors   atomic.Uint64
	unknownToken atomic.Uint64
}

// NewNode returns a Node.  Confirmations go to opts.Tracker.Emitter and to
// every subscriber of the Node's broadcaster.
func NewNode(opts Options) *Node {

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	annotator := opts.Annotator

	if annotator == nil {
		annotator = render.NewAnnotator()
	}

	broadcaster := selection.NewBroadcaster(opts.EventBuffer)

	trackerOpts := opts.Tracker
	trackerOpts.Logger = logger

	if trackerOpts.Emitter != nil {
		trackerOpts.Emitter = selection.MultiEmitter{broadcaster, trackerOpts.Emitter}
	} else {
		trackerOpts.Emitter = broadcaster
	}

	// aliases are configured against wire tokens, the parser wants commands
	aliases := make(map[string]string, len(opts.Aliases))

	for alias, token := range opts.Aliases {
		aliases[alias] = selection.ParseCommand(token).String()
	}

	return &Node{
		tracker:     selection.NewTracker(trackerOpts),
		annotator:   annotator,
		parser:      selection.NewCommandParser(aliases),
		pool:        NewMatPool(opts.PoolSize),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// NewFromConfig returns a Node built from the selection and render sections of
// cfg, confirmations are also sent to emitter when not nil
func NewFromConfig(cfg *config.Config, emitter selection.Emitter, logger *slog.Logger) (*Node, error) {

	annotator, err := AnnotatorFromConfig(cfg.Render)

	if err != nil {
		return nil, err
	}

	trackerOpts := selection.DefaultOptions()
	trackerOpts.RefreshOnNavigate = cfg.Selection.RefreshOnNavigate
	trackerOpts.Emitter = emitter

	if cfg.Selection.HistorySize != nil {
		trackerOpts.HistorySize = *cfg.Selection.HistorySize
	}

	return NewNode(Options{
		Tracker:   trackerOpts,
		Annotator: annotator,
		Aliases:   cfg.Selection.Aliases,
		PoolSize:  cfg.Stream.PoolSize,
		Logger:    logger,
	}), nil
}

// AnnotatorFromConfig builds the annotator for the render configuration
func AnnotatorFromConfig(cfg config.RenderConfig) (*render.Annotator, error) {

	a := render.NewAnnotator()

	if cfg.MinFrameSize > 0 {
		a.Marker.MinFrameSize = cfg.MinFrameSize
	}
	if cfg.Marker.Radius > 0 {
		a.Marker.Radius = cfg.Marker.Radius
	}
	if cfg.Marker.Thickness > 0 {
		a.Marker.Thickness = cfg.Marker.Thickness
	}

	if cfg.Marker.Color != "" {
		clr, ok := render.ParseHexColor(cfg.Marker.Color)

		if !ok {
			return nil, fmt.Errorf("invalid marker color %q", cfg.Marker.Color)
		}

		a.Marker.Color = clr
	}

	if cfg.Candidates {
		style := render.DefaultCandidateStyle()
		style.Labels = cfg.Labels
		style.MinFrameSize = a.Marker.MinFrameSize
		a.Candidates = &style
	}

	if cfg.Trail {
		style := render.DefaultTrailStyle()
		style.MinFrameSize = a.Marker.MinFrameSize
		a.Trail = &style
	}

	a.Status = cfg.Status

	return a, nil
}

// AddSink registers a receiver of annotated frames, it must be called before
// frames are handled
func (n *Node) AddSink(s Sink) {
	n.sinks = append(n.sinks, s)
}

// Tracker returns the Node's selection tracker
func (n *Node) Tracker() *selection.Tracker {
	return n.tracker
}

// Broadcaster returns the broadcaster of confirmed planning IDs
func (n *Node) Broadcaster() *selection.Broadcaster {
	return n.broadcaster
}

// HandleFrame records the frame geometry, annotates a copy of img with the
// current selection and passes it to every sink.  img is not modified.
func (n *Node) HandleFrame(img gocv.Mat) error {

	if img.Empty() {
		n.frameErrors.Add(1)
		return frame.ErrEmptyFrame
	}

	n.tracker.OnFrameGeometry(img.Cols(), img.Rows())

	out := n.pool.Get()

	if out == nil {
		return ErrClosed
	}

	defer n.pool.Return(out)

	img.CopyTo(out)

	snap := n.tracker.Snapshot()
	n.annotator.Annotate(out, snap)

	n.frames.Add(1)

	for _, sink := range n.sinks {
		if err := sink.Publish(*out); err != nil {
			n.sinkErrors.Add(1)
			n.logger.Warn("failed to publish frame", "error", err)
		}
	}

	return nil
}

// HandleRawFrame decodes a transport frame and handles it.  Frames that can
// not be decoded are logged and skipped.
func (n *Node) HandleRawFrame(raw frame.Raw) {

	img, err := frame.Decode(raw)
	defer img.Close()

	if err != nil {
		n.frameErrors.Add(1)
		n.logger.Warn("could not convert frame", "encoding", raw.Encoding,
			"width", raw.Width, "height", raw.Height, "error", err)
		return
	}

	if err := n.HandleFrame(img); err != nil {
		n.logger.Warn("failed to handle frame", "error", err)
	}
}

// HandleImagePayload handles a frame envelope received from the image topic
func (n *Node) HandleImagePayload(payload []byte) {

	raw, err := message.DecodeFrame(payload)

	if err != nil {
		n.frameErrors.Add(1)
		n.logger.Warn("malformed frame message", "size", len(payload), "error", err)
		return
	}

	n.HandleRawFrame(raw)
}

// HandleCommand parses a command token and applies it to the tracker
func (n *Node) HandleCommand(token string) selection.Result {

	cmd := n.parser.Parse(token)

	if cmd == selection.CommandUnknown {
		n.unknownToken.Add(1)
		n.logger.Debug("unrecognised command token", "token", token)
	}

	return n.tracker.OnCommand(cmd)
}

// HandleDetections decodes a detection set payload and applies it to the
// tracker.  Malformed payloads are logged and dropped without touching the
// selection.
func (n *Node) HandleDetections(payload []byte) error {

	set, err := message.DecodeDetections(payload)

	if err != nil {
		n.badObjects.Add(1)
		n.logger.Warn("malformed detection set", "error", err)
		return err
	}

	n.tracker.OnDetections(set)

	return nil
}

// Close releases the frame pool and closes broadcaster subscriptions
func (n *Node) Close() {
	n.pool.Close()
	n.broadcaster.Close()
}
