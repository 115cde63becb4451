package bridge

// Chunk is one raw stereo quantum pushed by the render side. The receiver
// owns it until it calls [Bridge.Release].
type Chunk struct {
	Epoch uint64
	L, R  []float64
}

// Frames returns the number of frames in the chunk.
func (c *Chunk) Frames() int {
	return len(c.L)
}

// fragment is a run of separated stereo samples for one stem.
type fragment struct {
	epoch uint64
	l, r  []float64
	off   int
}

func (f *fragment) remaining() int {
	return len(f.l) - f.off
}
