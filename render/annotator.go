package render

import (
	"github.com/swdee/go-bciselect/selection"
	"gocv.io/x/gocv"
)

// Annotator draws the selection overlays onto outgoing frames.  It holds no
// state besides its styles, everything else comes from the Snapshot.
type Annotator struct {
	Marker MarkerStyle
	// LabelFont is used for candidate labels, BannerFont for the status banner
	LabelFont  Font
	BannerFont Font
	// Candidates enables rendering of every detection when not nil
	Candidates *CandidateStyle
	// Trail enables rendering of the selection trail when not nil
	Trail *TrailStyle
	// Status enables the status banner
	Status bool
}

// NewAnnotator returns an Annotator drawing only the selection marker
func NewAnnotator() *Annotator {
	return &Annotator{
		Marker:     DefaultMarkerStyle(),
		LabelFont:  LabelFont(),
		BannerFont: BannerFont(),
	}
}

// Annotate draws the enabled overlays on img and returns true if the
// selection marker was drawn
func (a *Annotator) Annotate(img *gocv.Mat, snap selection.Snapshot) bool {

	if a.Candidates != nil {
		Candidates(img, snap, a.LabelFont, *a.Candidates)
	}

	if a.Trail != nil {
		Trail(img, snap, *a.Trail)
	}

	drawn := Selection(img, snap, a.Marker)

	if a.Status {
		Status(img, snap, a.BannerFont)
	}

	return drawn
}
