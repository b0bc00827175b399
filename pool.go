package bciselect

import (
	"sync"

	"gocv.io/x/gocv"
)

// MatPool is a simple pool of Mats used as annotation buffers, it bounds the
// number of frames being annotated at once
type MatPool struct {
	// pool of mats
	mats chan *gocv.Mat
	// size of pool
	size   int
	mu     sync.Mutex
	closed bool
}

// NewMatPool creates a new pool of empty Mats
func NewMatPool(size int) *MatPool {

	if size < 1 {
		size = 1
	}

	p := &MatPool{
		mats: make(chan *gocv.Mat, size),
		size: size,
	}

	for i := 0; i < size; i++ {
		mat := gocv.NewMat()
		p.mats <- &mat
	}

	return p
}

// Get a Mat from the pool, blocking until one is free.  Returns nil once the
// pool is closed.
func (p *MatPool) Get() *gocv.Mat {
	return <-p.mats
}

// Return a Mat to the pool
func (p *MatPool) Return(mat *gocv.Mat) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		mat.Close()
		return
	}

	select {
	case p.mats <- mat:
	default:
		// pool is full
		mat.Close()
	}
}

// Size returns the number of Mats the pool was created with
func (p *MatPool) Size() int {
	return p.size
}

// Close the pool and all idle Mats in it, Mats still checked out are closed
// when returned
func (p *MatPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true

	// close channel
	close(p.mats)

	for next := range p.mats {
		next.Close()
	}
}
