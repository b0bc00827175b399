package main

import (
	"context"

	"gocv.io/x/gocv"
)

// previewSink shows annotated frames in a local window
type previewSink struct {
	frames chan gocv.Mat
}

func newPreviewSink() *previewSink {
	return &previewSink{
		frames: make(chan gocv.Mat, 1),
	}
}

// Publish queues a copy of img for display, frames are dropped while the
// window is still drawing the previous one
func (p *previewSink) Publish(img gocv.Mat) error {

	clone := img.Clone()

	select {
	case p.frames <- clone:
	default:
		clone.Close()
	}

	return nil
}

// Run displays queued frames until ctx is cancelled or ESC is pressed
func (p *previewSink) Run(ctx context.Context) {

	window := gocv.NewWindow("bciselect")
	defer window.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case img := <-p.frames:
			window.IMShow(img)
			img.Close()

		default:
		}

		if key := window.WaitKey(3); key == 27 {
			return
		}
	}
}

// Close releases any queued frame
func (p *previewSink) Close() {
	for {
		select {
		case img := <-p.frames:
			img.Close()
		default:
			return
		}
	}
}
