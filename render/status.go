package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

// StatusText returns the text shown in the status banner
func StatusText(snap selection.Snapshot) string {

	if snap.Count == 0 {
		return "No objects"
	}

	state := "SELECTING"

	if snap.Confirmed {
		state = "LOCKED"
	}

	return fmt.Sprintf("Object %d/%d, ID: %d, %s",
		snap.Index+1, snap.Count, snap.PlanningID, state)
}

// Status blanks out a banner across the top of the image and writes the
// selection status on it
func Status(img *gocv.Mat, snap selection.Snapshot, font Font) {

	text := StatusText(snap)
	textSize := font.TextSize(text)
	height := font.BannerHeight(text)

	// blank out background video
	gocv.Rectangle(img, image.Rect(0, 0, img.Cols(), height), Black, -1)

	clr := font.Color

	if snap.Confirmed {
		clr = Green
	}

	font.Put(img, text, image.Pt(font.LeftPad, textSize.Y+font.TopPad), clr)
}
