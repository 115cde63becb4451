package bridge

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func newTestBridge(t *testing.T, cfg Config) *Bridge {
	t.Helper()
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func ramp(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Quantum: 0}); err == nil {
		t.Fatal("expected quantum error")
	}
	if _, err := New(Config{Quantum: 128, ChunkPool: -1}); err == nil {
		t.Fatal("expected chunk pool error")
	}
	if _, err := New(Config{Quantum: 128, FragmentQueue: -1}); err == nil {
		t.Fatal("expected fragment queue error")
	}
}

func TestPushDeliversCopies(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 4, ChunkPool: 2})
	l, r := []float64{1, 2, 3, 4}, []float64{5, 6, 7, 8}
	if !b.Push(l, r) {
		t.Fatal("Push failed with free chunks")
	}
	l[0] = 99

	c := <-b.Chunks()
	if c.L[0] != 1 || c.R[3] != 8 || c.Frames() != 4 {
		t.Fatalf("chunk = %v %v", c.L, c.R)
	}
	if c.Epoch != b.Epoch() {
		t.Fatalf("chunk epoch %d, bridge %d", c.Epoch, b.Epoch())
	}
	b.Release(c)
}

func TestPushNeverBlocks(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8, ChunkPool: 3})
	q := make([]float64, 8)

	done := make(chan int)
	go func() {
		ok := 0
		for i := 0; i < 100; i++ {
			if b.Push(q, q) {
				ok++
			}
		}
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok != 3 {
			t.Fatalf("accepted %d pushes, want pool size 3", ok)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Push blocked with nobody reading")
	}

	if s := b.Stats(); s.Pushed != 3 || s.Dropped != 97 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestConsumeNeverBlocksOnEmpty(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8})
	dst := make([]float64, 8)
	if n := b.Voice().Consume(dst, dst); n != 0 {
		t.Fatalf("Consume on empty queue = %d", n)
	}
	if b.Voice().Available() != 0 {
		t.Fatal("empty queue should report nothing available")
	}
}

func TestConsumeCrossesFragments(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8})
	ctx := context.Background()
	ep := b.Epoch()
	if err := b.Emit(ctx, ep, ramp(0, 5), ramp(100, 5), ramp(0, 5), ramp(0, 5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Emit(ctx, ep, ramp(5, 5), ramp(105, 5), ramp(5, 5), ramp(5, 5)); err != nil {
		t.Fatal(err)
	}

	l, r := make([]float64, 7), make([]float64, 7)
	if n := b.Voice().Consume(l, r); n != 7 {
		t.Fatalf("Consume = %d, want 7", n)
	}
	for i := 0; i < 7; i++ {
		if l[i] != float64(i) || r[i] != float64(100+i) {
			t.Fatalf("frame %d = %v/%v", i, l[i], r[i])
		}
	}

	if got := b.Voice().Available(); got != 3 {
		t.Fatalf("Available = %d, want 3", got)
	}
	if n := b.Voice().Consume(l, r); n != 3 || l[0] != 7 || l[2] != 9 {
		t.Fatalf("tail Consume = %d %v", n, l[:3])
	}
}

// Delivered plus still-available frames always equals frames emitted, and
// no Consume returns more than requested.
func TestQueueConservation(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 16, FragmentQueue: 64})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	ep := b.Epoch()

	emitted, delivered := 0, 0
	dst := make([]float64, 64)
	bg := make([]float64, 64)
	next := 0

	for round := 0; round < 200; round++ {
		if rng.Intn(2) == 0 && len(b.voice.ch) < cap(b.voice.ch) {
			n := 1 + rng.Intn(40)
			frag := ramp(next, n)
			if err := b.Emit(ctx, ep, frag, frag, frag, frag); err != nil {
				t.Fatal(err)
			}
			next += n
			emitted += n
		}

		want := rng.Intn(len(dst) + 1)
		if n := b.Background().Consume(bg[:want], bg[:want]); n > want {
			t.Fatalf("background Consume returned %d > requested %d", n, want)
		}
		got := b.Voice().Consume(dst[:want], dst[:want])
		if got > want {
			t.Fatalf("Consume returned %d > requested %d", got, want)
		}
		for i := 0; i < got; i++ {
			if dst[i] != float64(delivered+i) {
				t.Fatalf("out of order: got %v want %v", dst[i], delivered+i)
			}
		}
		delivered += got

		if delivered+b.Voice().Available() != emitted {
			t.Fatalf("round %d: delivered %d + available %d != emitted %d",
				round, delivered, b.Voice().Available(), emitted)
		}
	}
}

func TestResetDiscardsOldEpoch(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8})
	ctx := context.Background()
	old := b.Epoch()
	if err := b.Emit(ctx, old, ramp(0, 8), ramp(0, 8), ramp(0, 8), ramp(0, 8)); err != nil {
		t.Fatal(err)
	}

	b.Reset()
	if b.Epoch() == old {
		t.Fatal("Reset did not advance epoch")
	}
	if b.Voice().Available() != 0 || b.Background().Available() != 0 {
		t.Fatal("Reset left buffered frames")
	}

	// Late work from the old epoch is dropped.
	if err := b.Emit(ctx, old, ramp(0, 8), ramp(0, 8), ramp(0, 8), ramp(0, 8)); err != nil {
		t.Fatal(err)
	}
	dst := make([]float64, 8)
	if n := b.Voice().Consume(dst, dst); n != 0 {
		t.Fatalf("stale fragment consumed: %d", n)
	}
	if b.Stats().Stale != 1 {
		t.Fatalf("stale = %d, want 1", b.Stats().Stale)
	}
}

func TestStaleFragmentInChannelIsSkipped(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8})
	old := b.Epoch()

	// Simulate a fragment that raced past the epoch check.
	f := &fragment{epoch: old, l: ramp(0, 4), r: ramp(0, 4)}
	b.epoch.Add(1)
	b.voice.ch <- f
	b.voice.avail.Add(4)

	if err := b.Emit(context.Background(), b.Epoch(), ramp(50, 4), ramp(50, 4), ramp(50, 4), ramp(50, 4)); err != nil {
		t.Fatal(err)
	}

	dst := make([]float64, 8)
	if n := b.Voice().Consume(dst, dst); n != 4 || dst[0] != 50 {
		t.Fatalf("Consume = %d first=%v, want the fresh fragment only", n, dst[0])
	}
	if b.Voice().Available() != 0 {
		t.Fatalf("Available = %d after draining", b.Voice().Available())
	}
}

func TestEmitRespectsContextWhenFull(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8, FragmentQueue: 1})
	ep := b.Epoch()
	frag := ramp(0, 8)
	if err := b.Emit(context.Background(), ep, frag, frag, frag, frag); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Emit(ctx, ep, frag, frag, frag, frag); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	t.Parallel()

	b := newTestBridge(t, Config{Quantum: 8, FragmentQueue: 1})
	ep := b.Epoch()
	frag := ramp(0, 8)
	if err := b.Emit(context.Background(), ep, frag, frag, frag, frag); err != nil {
		t.Fatal(err)
	}

	b.Close()
	b.Close()

	if b.Push(frag, frag) {
		t.Fatal("Push succeeded after Close")
	}
	if _, ok := <-b.Chunks(); ok {
		t.Fatal("chunk channel should be closed and empty")
	}
	if b.Voice().Available() != 0 {
		t.Fatal("Close should drain the queues")
	}
	select {
	case <-b.Done():
	default:
		t.Fatal("Done not closed")
	}

	// Fill the channel again, then the next Emit must see the close.
	b.voice.ch <- &fragment{epoch: b.Epoch()}
	if err := b.Emit(context.Background(), b.Epoch(), frag, frag, frag, frag); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
