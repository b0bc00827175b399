package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

// TrailStyle defines the parameters used for rendering the selection trail
type TrailStyle struct {
	LineColor     color.RGBA
	LineThickness int
	CircleColor   color.RGBA
	CircleRadius  int
	MinFrameSize  int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineColor:     Yellow,
		LineThickness: 1,
		CircleColor:   Pink,
		CircleRadius:  3,
		MinFrameSize:  DefaultMinFrameSize,
	}
}

// Trail draws the recent positions of the selection marker.  Like the marker
// the trail is hidden once the selection is confirmed.
func Trail(img *gocv.Mat, snap selection.Snapshot, style TrailStyle) {

	points := snap.Trail

	if snap.Confirmed || len(points) < 2 ||
		!drawable(snap.Geometry, style.MinFrameSize) {
		return
	}

	for i := 1; i < len(points); i++ {
		// draw line segment of trail
		gocv.Line(img,
			image.Pt(points[i-1].X, points[i-1].Y),
			image.Pt(points[i].X, points[i].Y),
			style.LineColor, style.LineThickness,
		)
	}

	// draw circle on the oldest point to show where the trail started
	gocv.Circle(img, image.Pt(points[0].X, points[0].Y),
		style.CircleRadius, style.CircleColor, -1)
}
