package bciselect

import (
	"github.com/swdee/go-bciselect/selection"
)

// Selection states reported in Status
const (
	StateSelecting = "selecting"
	StateConfirmed = "confirmed"
	StateNoObjects = "no_objects"
)

// SelectionStatus is the JSON view of a selection.Snapshot
type SelectionStatus struct {
	State      string  `json:"state"`
	Index      int     `json:"index"`
	Count      int     `json:"count"`
	U          float64 `json:"u"`
	V          float64 `json:"v"`
	PlanningID int     `json:"planning_id"`
	Confirmed  bool    `json:"confirmed"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// NodeStats are counters kept by the Node
type NodeStats struct {
	Frames         uint64 `json:"frames"`
	FrameErrors    uint64 `json:"frame_errors"`
	BadObjects     uint64 `json:"bad_objects"`
	SinkErrors     uint64 `json:"sink_errors"`
	UnknownTokens  uint64 `json:"unknown_tokens"`
	DroppedConfirm uint64 `json:"dropped_confirmations"`
}

// Status is the node state served on /status
type Status struct {
	Selection SelectionStatus `json:"selection"`
	Tracker   selection.Stats `json:"tracker"`
	Node      NodeStats       `json:"node"`
}

// NewSelectionStatus converts a snapshot into its JSON view
func NewSelectionStatus(snap selection.Snapshot) SelectionStatus {

	state := StateSelecting

	switch {
	case snap.Confirmed:
		state = StateConfirmed
	case snap.Count == 0:
		state = StateNoObjects
	}

	return SelectionStatus{
		State:      state,
		Index:      snap.Index,
		Count:      snap.Count,
		U:          snap.U,
		V:          snap.V,
		PlanningID: snap.PlanningID,
		Confirmed:  snap.Confirmed,
		Width:      snap.Geometry.Width,
		Height:     snap.Geometry.Height,
	}
}

// Status returns the current selection with the tracker and node counters
func (n *Node) Status() Status {
	return Status{
		Selection: NewSelectionStatus(n.tracker.Snapshot()),
		Tracker:   n.tracker.Stats(),
		Node: NodeStats{
			Frames:         n.frames.Load(),
			FrameErrors:    n.frameErrors.Load(),
			BadObjects:     n.badObjects.Load(),
			SinkErrors:     n.sinkErrors.Load(),
			UnknownTokens:  n.unknownToken.Load(),
			DroppedConfirm: n.broadcaster.Dropped(),
		},
	}
}
