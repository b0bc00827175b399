package selection

// Point is the pixel position of the selection marker
type Point struct {
	X, Y int
}

// History keeps the most recent selection marker positions used for drawing
// a trail.  It is owned by the Tracker and accessed under its lock.
type History struct {
	// size is the maximum number of most recent points to keep
	size   int
	points []Point
}

// NewHistory returns a history keeping up to size points.  A size of zero or
// less disables the history.
func NewHistory(size int) *History {
	if size < 0 {
		size = 0
	}

	return &History{
		size:   size,
		points: make([]Point, 0, size),
	}
}

// Reset clears all history
func (h *History) Reset() {
	h.points = h.points[:0]
}

// Add a point to the history, dropping the oldest point once full
func (h *History) Add(p Point) {
	if h.size == 0 {
		return
	}

	if len(h.points) == h.size {
		copy(h.points, h.points[1:])
		h.points = h.points[:len(h.points)-1]
	}

	h.points = append(h.points, p)
}

// Points returns a copy of the points oldest first
func (h *History) Points() []Point {
	if len(h.points) == 0 {
		return nil
	}

	out := make([]Point, len(h.points))
	copy(out, h.points)

	return out
}

// Len returns the number of points held
func (h *History) Len() int {
	return len(h.points)
}
