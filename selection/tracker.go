package selection

import (
	"log/slog"
	"sync"
)

// DefaultHistorySize is the number of marker positions kept for the trail
const DefaultHistorySize = 30

// Options configures a Tracker
type Options struct {
	// RefreshOnNavigate recomputes the marker position and planning ID as soon
	// as a previous/next command changes the index.  When false they are only
	// recomputed on the next detection update, so a confirm straight after
	// navigating emits the planning ID of the previously selected object.
	RefreshOnNavigate bool
	// HistorySize is the number of marker positions kept for the trail, zero
	// disables the history
	HistorySize int
	// Emitter receives the planning ID on every confirm command
	Emitter Emitter
	// Logger defaults to slog.Default() when nil
	Logger *slog.Logger
}

// DefaultOptions returns the default tracker options
func DefaultOptions() Options {
	return Options{
		RefreshOnNavigate: false,
		HistorySize:       DefaultHistorySize,
	}
}

// Snapshot is a consistent copy of the selection state
type Snapshot struct {
	// Index is the position of the selection in the last detection set
	Index int
	// Count is the number of detections in the last detection set
	Count int
	// U, V are the pixel coordinates of the selection marker
	U, V float64
	// PlanningID of the selected object
	PlanningID int
	// Confirmed is true from a confirm command until the next detection update
	Confirmed bool
	// Geometry is the frame size, zero until the first frame
	Geometry Geometry
	// Detections is a copy of the last detection set
	Detections DetectionSet
	// Trail holds recent marker positions oldest first
	Trail []Point
}

// Result describes the outcome of a command
type Result struct {
	Command Command
	// Changed is true if the selection index moved
	Changed bool
	// Emitted is true if a planning ID was sent to the emitter
	Emitted    bool
	PlanningID int
	Index      int
}

// Stats are counters of the events processed by the Tracker
type Stats struct {
	Commands         uint64 `json:"commands"`
	IgnoredCommands  uint64 `json:"ignored_commands"`
	DetectionUpdates uint64 `json:"detection_updates"`
	EmptyUpdates     uint64 `json:"empty_updates"`
	Clamps           uint64 `json:"clamps"`
	Confirmations    uint64 `json:"confirmations"`
}

// Tracker owns the selection state.  OnFrameGeometry, OnCommand and
// OnDetections each run to completion under a single lock, readers take a
// Snapshot.
type Tracker struct {
	mu sync.Mutex
	// emitMu is taken before mu is released on a confirm so planning IDs
	// reach the emitter in the order they were read
	emitMu sync.Mutex

	index      int
	detections DetectionSet
	u, v       float64
	planningID int
	confirmed  bool
	geometry   Geometry
	projector  *Projector
	history    *History
	stats      Stats

	refreshOnNavigate bool
	emitter           Emitter
	logger            *slog.Logger
}

// NewTracker returns a Tracker in the unconfirmed state with index 0
func NewTracker(opts Options) *Tracker {

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		projector:         NewProjector(Geometry{}),
		history:           NewHistory(opts.HistorySize),
		refreshOnNavigate: opts.RefreshOnNavigate,
		emitter:           opts.Emitter,
		logger:            logger,
	}
}

// OnFrameGeometry records the frame size if none has been recorded yet.  Later
// calls never change it, even with different dimensions.
func (t *Tracker) OnFrameGeometry(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.geometry.IsZero() || width <= 0 || height <= 0 {
		return
	}

	t.geometry = Geometry{Width: width, Height: height}
	t.projector = NewProjector(t.geometry)

	t.logger.Info("frame geometry set", "width", width, "height", height)
}

// OnCommand applies an operator command.  A confirm emits the current planning
// ID to the emitter after the state lock is released, confirmations are
// emitted in the order they were applied.  Emitters must not call back into
// the Tracker.
func (t *Tracker) OnCommand(cmd Command) Result {
	t.mu.Lock()

	t.stats.Commands++
	res := Result{Command: cmd}

	switch cmd {
	case CommandPrevious:
		if t.index > 0 {
			t.index--
			res.Changed = true
		}

	case CommandNext:
		if t.index < len(t.detections)-1 {
			t.index++
			res.Changed = true
		}

	case CommandConfirm:
		t.confirmed = true
		t.stats.Confirmations++
		res.Emitted = true

	default:
		t.stats.IgnoredCommands++
	}

	if res.Changed && t.refreshOnNavigate {
		t.recompute()
	}

	res.Index = t.index
	res.PlanningID = t.planningID
	emitter := t.emitter

	if res.Emitted && emitter != nil {
		t.emitMu.Lock()
		t.mu.Unlock()
		emitter.Emit(res.PlanningID)
		t.emitMu.Unlock()
	} else {
		t.mu.Unlock()
	}

	switch {
	case res.Emitted:
		t.logger.Info("confirm selection of object", "planning_id", res.PlanningID,
			"index", res.Index)

	case cmd == CommandUnknown:
		t.logger.Info("command not valid, ignored")

	default:
		t.logger.Debug("selection command", "command", cmd.String(),
			"index", res.Index, "changed", res.Changed)
	}

	return res
}

// OnDetections replaces the detection set and clamps the selection into it.
// Every update clears the confirmation.
func (t *Tracker) OnDetections(set DetectionSet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.DetectionUpdates++
	t.confirmed = false
	t.detections = set.clone()

	count := len(t.detections)

	if count == 0 {
		// index and planning ID are kept so the selection resumes where it
		// was once objects return
		t.stats.EmptyUpdates++
		t.u, t.v = 0, 0
		t.history.Reset()
		return
	}

	if t.index > count-1 {
		t.stats.Clamps++
		t.logger.Debug("selection clamped to last object", "from", t.index, "to", count-1)
		t.index = count - 1
	}

	t.recompute()
	t.history.Add(Point{X: int(t.u), Y: int(t.v)})
}

// recompute derives the marker position and planning ID from the current index.
// Must be called with the lock held and a valid index.
func (t *Tracker) recompute() {
	if t.index < 0 || t.index >= len(t.detections) {
		return
	}

	det := t.detections[t.index]
	t.u, t.v = t.projector.Project(det.X, det.Y)
	t.planningID = det.PlanningID
}

// Snapshot returns a copy of the selection state taken atomically
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Snapshot{
		Index:      t.index,
		Count:      len(t.detections),
		U:          t.u,
		V:          t.v,
		PlanningID: t.planningID,
		Confirmed:  t.confirmed,
		Geometry:   t.geometry,
		Detections: t.detections.clone(),
		Trail:      t.history.Points(),
	}
}

// Stats returns a copy of the event counters
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// SetEmitter replaces the emitter receiving confirmations
func (t *Tracker) SetEmitter(e Emitter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitter = e
}
