package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-stems/dsp/core"
)

// ErrClosed is returned by Emit after the bridge has been closed.
var ErrClosed = errors.New("bridge: closed")

// Defaults.
const (
	DefaultChunkPool     = 64
	DefaultFragmentQueue = 16
)

// Config sizes the bridge.
type Config struct {
	// Quantum is the frame count of one pushed chunk.
	Quantum int
	// ChunkPool is the number of chunks that can be in flight at once.
	ChunkPool int
	// FragmentQueue is the per-stem fragment channel capacity.
	FragmentQueue int
}

// Bridge connects one render goroutine to one inference goroutine.
//
// Push, Reset, Close and both queues' Consume belong to the render side and
// must be called from a single goroutine. Chunks, Release and Emit belong
// to the inference side.
type Bridge struct {
	chunks chan *Chunk
	free   chan *Chunk

	voice *Queue
	bg    *Queue

	fragments sync.Pool
	epoch     atomic.Uint64

	pushed  atomic.Uint64
	dropped atomic.Uint64
	stale   atomic.Uint64

	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// New returns a Bridge with all chunks preallocated.
func New(cfg Config) (*Bridge, error) {
	if cfg.Quantum <= 0 {
		return nil, fmt.Errorf("bridge quantum must be > 0: %d", cfg.Quantum)
	}
	if cfg.ChunkPool == 0 {
		cfg.ChunkPool = DefaultChunkPool
	}
	if cfg.FragmentQueue == 0 {
		cfg.FragmentQueue = DefaultFragmentQueue
	}
	if cfg.ChunkPool < 0 {
		return nil, fmt.Errorf("bridge chunk pool must be > 0: %d", cfg.ChunkPool)
	}
	if cfg.FragmentQueue < 0 {
		return nil, fmt.Errorf("bridge fragment queue must be > 0: %d", cfg.FragmentQueue)
	}

	b := &Bridge{
		chunks: make(chan *Chunk, cfg.ChunkPool),
		free:   make(chan *Chunk, cfg.ChunkPool),
		done:   make(chan struct{}),
	}
	b.fragments.New = func() any { return &fragment{} }
	b.voice = newQueue(cfg.FragmentQueue, &b.epoch, &b.fragments)
	b.bg = newQueue(cfg.FragmentQueue, &b.epoch, &b.fragments)

	for i := 0; i < cfg.ChunkPool; i++ {
		b.free <- &Chunk{
			L: make([]float64, cfg.Quantum),
			R: make([]float64, cfg.Quantum),
		}
	}

	return b, nil
}

// Voice returns the voice stem queue.
func (b *Bridge) Voice() *Queue { return b.voice }

// Background returns the background stem queue.
func (b *Bridge) Background() *Queue { return b.bg }

// Epoch returns the current epoch.
func (b *Bridge) Epoch() uint64 { return b.epoch.Load() }

// Push copies one stereo quantum into a pooled chunk and hands it to the
// inference side. It never blocks: when no chunk is free or the channel is
// full the quantum is dropped and Push returns false.
func (b *Bridge) Push(l, r []float64) bool {
	if b.closed {
		return false
	}

	var c *Chunk
	select {
	case c = <-b.free:
	default:
		b.dropped.Add(1)
		return false
	}

	c.Epoch = b.epoch.Load()
	c.L = core.EnsureLen(c.L, len(l))
	c.R = core.EnsureLen(c.R, len(l))
	copy(c.L, l)
	copy(c.R, r)

	select {
	case b.chunks <- c:
		b.pushed.Add(1)
		return true
	default:
		b.free <- c
		b.dropped.Add(1)
		return false
	}
}

// Reset starts a new epoch and discards every buffered fragment. Chunks and
// fragments still in flight from the old epoch are discarded when they
// surface.
func (b *Bridge) Reset() {
	b.epoch.Add(1)
	b.voice.drain()
	b.bg.drain()
}

// Close ends the session: the chunk channel is closed, pending Emit calls
// return ErrClosed, and both queues are drained. Close is idempotent.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.closed = true
		close(b.done)
		close(b.chunks)
		b.Reset()
	})
}

// Done is closed when the bridge is closed.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Chunks returns the channel the inference side reads raw quanta from. It is
// closed by Close.
func (b *Bridge) Chunks() <-chan *Chunk {
	return b.chunks
}

// Release returns a chunk to the pool once its samples have been copied.
func (b *Bridge) Release(c *Chunk) {
	if c == nil {
		return
	}
	select {
	case b.free <- c:
	default:
	}
}

// Emit publishes a completed hop for both stems. It copies the samples, so
// the caller keeps ownership of its slices. Emit blocks only while a
// fragment channel is full, and gives up when ctx ends or the bridge
// closes. Work from a stale epoch is dropped without error.
func (b *Bridge) Emit(ctx context.Context, epoch uint64, voiceL, voiceR, bgL, bgR []float64) error {
	if epoch != b.epoch.Load() {
		b.stale.Add(1)
		return nil
	}

	if err := b.send(ctx, b.voice, epoch, voiceL, voiceR); err != nil {
		return err
	}
	return b.send(ctx, b.bg, epoch, bgL, bgR)
}

func (b *Bridge) send(ctx context.Context, q *Queue, epoch uint64, l, r []float64) error {
	f := b.fragments.Get().(*fragment)
	f.epoch = epoch
	f.off = 0
	f.l = append(f.l[:0], l...)
	f.r = append(f.r[:0], r...)

	select {
	case q.ch <- f:
		q.avail.Add(int64(len(f.l)))
		return nil
	case <-b.done:
		b.fragments.Put(f)
		return ErrClosed
	case <-ctx.Done():
		b.fragments.Put(f)
		return ctx.Err()
	}
}

// Stats is a snapshot of the bridge counters.
type Stats struct {
	Pushed  uint64
	Dropped uint64
	Stale   uint64
	Epoch   uint64
}

// Stats returns the current counters. Safe from any goroutine.
func (b *Bridge) Stats() Stats {
	return Stats{
		Pushed:  b.pushed.Load(),
		Dropped: b.dropped.Load(),
		Stale:   b.stale.Load(),
		Epoch:   b.epoch.Load(),
	}
}
