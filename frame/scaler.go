package frame

import (
	"image"

	"gocv.io/x/gocv"
)

// Scaler shrinks frames to fit within a maximum width and height whilst
// maintaining aspect, used to reduce the size of streamed frames
type Scaler struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// maxWidth is the largest width to scale to
	maxWidth int
	// maxHeight is the largest height to scale to
	maxHeight int
	scale     float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewScaler returns a scaler for source frames of the given size.  A zero max
// dimension leaves that dimension unconstrained.
func NewScaler(srcWidth, srcHeight, maxWidth, maxHeight int) *Scaler {
	s := &Scaler{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}

	// precalculate scaling dimensions
	s.preCalc()

	return s
}

// preCalc the scaling factor, frames are never enlarged
func (s *Scaler) preCalc() {

	s.scale = 1.0

	if s.srcWidth <= 0 || s.srcHeight <= 0 {
		return
	}

	if s.maxWidth > 0 && s.srcWidth > s.maxWidth {
		s.scale = float32(s.maxWidth) / float32(s.srcWidth)
	}

	if s.maxHeight > 0 && s.srcHeight > s.maxHeight {
		if scaleH := float32(s.maxHeight) / float32(s.srcHeight); scaleH < s.scale {
			s.scale = scaleH
		}
	}

	s.resizeW = int(float32(s.srcWidth) * s.scale)
	s.resizeH = int(float32(s.srcHeight) * s.scale)
}

// NeedsScaling returns true if frames are larger than the maximum size
func (s *Scaler) NeedsScaling() bool {
	return s.scale < 1.0
}

// Scale resizes src into dest.  When no scaling is needed src is copied.
func (s *Scaler) Scale(src gocv.Mat, dest *gocv.Mat) {

	if !s.NeedsScaling() {
		src.CopyTo(dest)
		return
	}

	gocv.Resize(src, dest, image.Pt(s.resizeW, s.resizeH), 0, 0,
		gocv.InterpolationArea)
}

// ScaleFactor returns the scale factor applied
func (s *Scaler) ScaleFactor() float32 {
	return s.scale
}

// Size returns the scaled width and height
func (s *Scaler) Size() (int, int) {
	if !s.NeedsScaling() {
		return s.srcWidth, s.srcHeight
	}
	return s.resizeW, s.resizeH
}
