package selection

import (
	"gonum.org/v1/gonum/mat"
)

// Geometry is the pixel size of the video frames
type Geometry struct {
	Width  int
	Height int
}

// IsZero returns true if no geometry has been recorded yet
func (g Geometry) IsZero() bool {
	return g.Width == 0 && g.Height == 0
}

// Projector maps normalized detection coordinates into pixel coordinates of a
// frame.  It holds the affine transform
//
//	| w/2  0   cx |   | x |
//	|  0  h/2  cy | * | y |
//	|  0   0   1  |   | 1 |
//
// where the centre (cx,cy) uses integer halves of the frame size.
type Projector struct {
	transform *mat.Dense
	point     *mat.VecDense
	result    *mat.VecDense
}

// NewProjector returns a Projector for the given frame geometry.  A zero
// geometry projects every point to (0,0).
func NewProjector(g Geometry) *Projector {

	transform := mat.NewDense(3, 3, []float64{
		float64(g.Width) / 2, 0, float64(g.Width / 2),
		0, float64(g.Height) / 2, float64(g.Height / 2),
		0, 0, 1,
	})

	return &Projector{
		transform: transform,
		point:     mat.NewVecDense(3, []float64{0, 0, 1}),
		result:    mat.NewVecDense(3, nil),
	}
}

// Project returns the pixel coordinates (u,v) for the normalized point (x,y).
// Projector is not safe for concurrent use.
func (p *Projector) Project(x, y float64) (u, v float64) {
	p.point.SetVec(0, x)
	p.point.SetVec(1, y)

	p.result.MulVec(p.transform, p.point)

	return p.result.AtVec(0), p.result.AtVec(1)
}
