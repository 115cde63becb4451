package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-stems/dsp/buffer"
)

const bytesPerSample = 4

// pcmReader reads interleaved little-endian float32 frames into planar
// blocks.
type pcmReader struct {
	r        io.Reader
	channels int
	raw      []byte
}

func newPCMReader(r io.Reader, channels int) *pcmReader {
	return &pcmReader{r: r, channels: channels}
}

// ReadBlock fills b with up to b.Frames() frames and returns the number of
// whole frames read. Frames past n are zeroed. It returns io.EOF once the
// stream holds no more whole frames.
func (p *pcmReader) ReadBlock(b *buffer.Block) (int, error) {
	frameBytes := p.channels * bytesPerSample
	need := b.Frames() * frameBytes
	if cap(p.raw) < need {
		p.raw = make([]byte, need)
	}
	raw := p.raw[:need]

	got, err := io.ReadFull(p.r, raw)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		err = nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case err != nil:
		return 0, fmt.Errorf("reading pcm: %w", err)
	}

	n := got / frameBytes
	if n == 0 {
		return 0, io.EOF
	}
	for ch := 0; ch < p.channels; ch++ {
		c := b.Channel(ch)
		for i := 0; i < n; i++ {
			off := (i*p.channels + ch) * bytesPerSample
			c[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[off:])))
		}
		clear(c[n:])
	}
	return n, err
}

// pcmWriter writes the first frames of planar blocks as interleaved
// little-endian float32.
type pcmWriter struct {
	w        io.Writer
	channels int
	raw      []byte
}

func newPCMWriter(w io.Writer, channels int) *pcmWriter {
	return &pcmWriter{w: w, channels: channels}
}

// WriteBlock writes frames [0, n) of b.
func (p *pcmWriter) WriteBlock(b *buffer.Block, n int) error {
	need := n * p.channels * bytesPerSample
	if cap(p.raw) < need {
		p.raw = make([]byte, need)
	}
	raw := p.raw[:need]

	for ch := 0; ch < p.channels; ch++ {
		c := b.Channel(ch)
		for i := 0; i < n; i++ {
			off := (i*p.channels + ch) * bytesPerSample
			binary.LittleEndian.PutUint32(raw[off:], math.Float32bits(float32(c[i])))
		}
	}
	if _, err := p.w.Write(raw); err != nil {
		return fmt.Errorf("writing pcm: %w", err)
	}
	return nil
}
