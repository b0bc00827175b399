package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
}

// LabelFont is used for the planning ID labels next to candidate dots, kept
// small so neighbouring labels overlap as little as possible
func LabelFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.45,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   3,
		RightPad:  3,
		TopPad:    3,
		BottomPad: 3,
	}
}

// BannerFont is used for the status banner, which has to stay readable when
// the stream is scaled down for the operator
func BannerFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.7,
		Color:     White,
		Thickness: 2,
		LineType:  gocv.LineAA,
		LeftPad:   8,
		RightPad:  8,
		TopPad:    8,
		BottomPad: 10,
	}
}

// TextSize returns the width and height of text rendered in this font
func (f Font) TextSize(text string) image.Point {
	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// BannerHeight returns the height of a banner holding one line of text
func (f Font) BannerHeight(text string) int {
	return f.TextSize(text).Y + f.TopPad + f.BottomPad
}

// Put writes text with its baseline at pt
func (f Font) Put(img *gocv.Mat, text string, pt image.Point, clr color.RGBA) {
	gocv.PutTextWithParams(img, text, pt, f.Face, f.Scale, clr, f.Thickness,
		f.LineType, false)
}
