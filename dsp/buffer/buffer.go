package buffer

// Block is a channel-major multi-channel sample buffer.
// All channels have the same length, the block's frame count.
type Block struct {
	channels [][]float64
}

// New returns a zero-filled Block with the given channel and frame counts.
func New(channels, frames int) *Block {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}
	b := &Block{channels: make([][]float64, channels)}
	for i := range b.channels {
		b.channels[i] = make([]float64, frames)
	}
	return b
}

// FromChannels wraps existing slices without copying. The frame count is the
// length of the shortest slice; longer slices are truncated in the view.
func FromChannels(channels ...[]float64) *Block {
	if len(channels) == 0 {
		return &Block{}
	}
	frames := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) < frames {
			frames = len(ch)
		}
	}
	b := &Block{channels: make([][]float64, len(channels))}
	for i, ch := range channels {
		b.channels[i] = ch[:frames]
	}
	return b
}

// Channels returns the number of channels.
func (b *Block) Channels() int {
	return len(b.channels)
}

// Frames returns the number of samples per channel.
func (b *Block) Frames() int {
	if len(b.channels) == 0 {
		return 0
	}
	return len(b.channels[0])
}

// Channel returns the samples of channel i. Mutations are visible through
// the Block.
func (b *Block) Channel(i int) []float64 {
	return b.channels[i]
}

// Stereo returns the left and right channels. A mono block returns its only
// channel twice; an empty block returns nil slices.
func (b *Block) Stereo() (l, r []float64) {
	switch len(b.channels) {
	case 0:
		return nil, nil
	case 1:
		return b.channels[0], b.channels[0]
	default:
		return b.channels[0], b.channels[1]
	}
}

// Resize sets the frame count to n, reusing existing capacity when possible.
// Newly exposed samples are zeroed.
func (b *Block) Resize(n int) {
	if n < 0 {
		n = 0
	}
	for i, ch := range b.channels {
		oldLen := len(ch)
		if n <= cap(ch) {
			ch = ch[:n]
		} else {
			grown := make([]float64, n)
			copy(grown, ch)
			ch = grown
		}
		for j := oldLen; j < n; j++ {
			ch[j] = 0
		}
		b.channels[i] = ch
	}
}

// SetChannels changes the channel count, keeping the frame count. Added
// channels are zero-filled.
func (b *Block) SetChannels(n int) {
	if n < 0 {
		n = 0
	}
	frames := b.Frames()
	if n <= cap(b.channels) {
		old := len(b.channels)
		b.channels = b.channels[:n]
		for i := old; i < n; i++ {
			if cap(b.channels[i]) >= frames {
				b.channels[i] = b.channels[i][:frames]
				for j := range b.channels[i] {
					b.channels[i][j] = 0
				}
			} else {
				b.channels[i] = make([]float64, frames)
			}
		}
		return
	}
	grown := make([][]float64, n)
	copy(grown, b.channels)
	for i := len(b.channels); i < n; i++ {
		grown[i] = make([]float64, frames)
	}
	b.channels = grown
}

// Zero sets all samples to 0.
func (b *Block) Zero() {
	for _, ch := range b.channels {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// CopyFrom copies min(frames) samples of every shared channel from src and
// returns the number of frames copied.
func (b *Block) CopyFrom(src *Block) int {
	n := b.Frames()
	if src.Frames() < n {
		n = src.Frames()
	}
	for i := 0; i < len(b.channels) && i < len(src.channels); i++ {
		copy(b.channels[i][:n], src.channels[i][:n])
	}
	return n
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	c := &Block{channels: make([][]float64, len(b.channels))}
	for i, ch := range b.channels {
		c.channels[i] = append([]float64(nil), ch...)
	}
	return c
}
