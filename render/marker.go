package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

// DefaultMinFrameSize is the frame width and height a frame must exceed
// before the marker is drawn
const DefaultMinFrameSize = 60

// MarkerStyle defines the parameters used for rendering the selection marker
type MarkerStyle struct {
	Color     color.RGBA
	Radius    int
	Thickness int
	// MinFrameSize suppresses drawing until both frame dimensions exceed it
	MinFrameSize int
}

// DefaultMarkerStyle returns default selection marker settings
func DefaultMarkerStyle() MarkerStyle {
	return MarkerStyle{
		Color:        Green,
		Radius:       10,
		Thickness:    10,
		MinFrameSize: DefaultMinFrameSize,
	}
}

// drawable returns true if the frame geometry is large enough to draw on
func drawable(g selection.Geometry, minSize int) bool {
	return g.Width > minSize && g.Height > minSize
}

// Selection draws a circle at the current selection.  Nothing is drawn once
// the selection is confirmed or while the frame geometry is too small.
// Returns true if the marker was drawn.
func Selection(img *gocv.Mat, snap selection.Snapshot, style MarkerStyle) bool {

	if snap.Confirmed || !drawable(snap.Geometry, style.MinFrameSize) {
		return false
	}

	gocv.Circle(img, image.Pt(int(snap.U), int(snap.V)), style.Radius,
		style.Color, style.Thickness)

	return true
}
