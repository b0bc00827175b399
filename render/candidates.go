package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

// CandidateStyle defines the parameters used for rendering every detection
// that could be selected
type CandidateStyle struct {
	Radius int
	// Labels renders the planning ID next to each candidate
	Labels       bool
	MinFrameSize int
}

// DefaultCandidateStyle returns default candidate style settings
func DefaultCandidateStyle() CandidateStyle {
	return CandidateStyle{
		Radius:       4,
		Labels:       true,
		MinFrameSize: DefaultMinFrameSize,
	}
}

// candidateLabel defines where a candidate label should be rendered on the
// source image
type candidateLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Candidates renders a dot for each detection in the snapshot's detection set
// with its planning ID as label.  Candidates are drawn whether or not the
// selection is confirmed.
func Candidates(img *gocv.Mat, snap selection.Snapshot, font Font,
	style CandidateStyle) {

	if len(snap.Detections) == 0 || !drawable(snap.Geometry, style.MinFrameSize) {
		return
	}

	proj := selection.NewProjector(snap.Geometry)

	// keep a record of all labels for later rendering
	labels := make([]candidateLabel, 0, len(snap.Detections))

	for i, det := range snap.Detections {

		// Get the color for this object
		useClr := candidateColors[i%len(candidateColors)]

		u, v := proj.Project(det.X, det.Y)
		center := image.Pt(int(u), int(v))

		gocv.Circle(img, center, style.Radius, useClr, -1)

		if !style.Labels {
			continue
		}

		text := fmt.Sprintf("%d", det.PlanningID)
		textSize := font.TextSize(text)

		// place label to the right of the dot
		left := center.X + style.Radius + font.LeftPad
		bottom := center.Y + textSize.Y/2

		labels = append(labels, candidateLabel{
			rect: image.Rect(left-font.LeftPad, bottom-textSize.Y-font.TopPad,
				left+textSize.X+font.RightPad, bottom+font.TopPad),
			clr:     useClr,
			text:    text,
			textPos: image.Pt(left, bottom),
		})
	}

	// draw all labels last so they are the top most layer on the image
	for _, lbl := range labels {
		gocv.Rectangle(img, lbl.rect, lbl.clr, -1)

		font.Put(img, lbl.text, lbl.textPos, font.Color)
	}
}
