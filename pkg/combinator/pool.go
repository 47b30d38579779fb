package combinator

import "sync"

const maxPooledPartials = 1 << 20 // Frames grown beyond this are left to the garbage collector

// partial is a node of the combination tree: a combination is read by walking parent links back to the root
type partial struct {
	parent int    // Index of the previous partial, -1 for the root
	id     uint64 // Section added by this partial
	depth  int    // Amount of sections in the combination ending here
	used   Mask   // Slots used by the combination ending here
}

// frame holds every buffer a single query needs
type frame struct {
	partials []partial
	frontier []int
	next     []int
}

func newFrame() *frame {
	return &frame{
		partials: make([]partial, 0, 64),
		frontier: make([]int, 0, 64),
		next:     make([]int, 0, 64),
	}
}

// Clears the frame while keeping its capacity
func (frame *frame) reset() {
	frame.partials = frame.partials[:0]
	frame.frontier = frame.frontier[:0]
	frame.next = frame.next[:0]
}

// framePool recycles frames between queries, a checked out frame belongs to its query until returned
type framePool struct {
	pool sync.Pool
}

func newFramePool() *framePool {
	return &framePool{
		pool: sync.Pool{
			New: func() any {
				return newFrame()
			},
		},
	}
}

func (pool *framePool) Get() *frame {
	frame := pool.pool.Get().(*frame)
	frame.reset()
	return frame
}

func (pool *framePool) Put(frame *frame) {
	if cap(frame.partials) > maxPooledPartials {
		return
	}
	frame.reset()
	pool.pool.Put(frame)
}
