package buffer

import "testing"

func TestNewZeroFilled(t *testing.T) {
	b := New(2, 8)
	if b.Channels() != 2 || b.Frames() != 8 {
		t.Fatalf("shape = %dx%d, want 2x8", b.Channels(), b.Frames())
	}
	for c := 0; c < b.Channels(); c++ {
		for i, v := range b.Channel(c) {
			if v != 0 {
				t.Fatalf("Channel(%d)[%d] = %v, want 0", c, i, v)
			}
		}
	}
}

func TestNewNegativeShape(t *testing.T) {
	b := New(-1, -1)
	if b.Channels() != 0 || b.Frames() != 0 {
		t.Fatalf("shape = %dx%d, want 0x0", b.Channels(), b.Frames())
	}
}

func TestFromChannelsSharesMemory(t *testing.T) {
	l := []float64{1, 2, 3}
	r := []float64{4, 5}
	b := FromChannels(l, r)
	if b.Frames() != 2 {
		t.Fatalf("Frames() = %d, want shortest length 2", b.Frames())
	}
	b.Channel(0)[0] = 99
	if l[0] != 99 {
		t.Fatal("FromChannels should share underlying memory")
	}
}

func TestStereoMono(t *testing.T) {
	b := New(1, 4)
	l, r := b.Stereo()
	l[0] = 7
	if r[0] != 7 {
		t.Fatal("mono block should return the same channel for left and right")
	}

	empty := &Block{}
	if l, r := empty.Stereo(); l != nil || r != nil {
		t.Fatal("empty block should return nil channels")
	}
}

func TestResizeZeroesNewSamples(t *testing.T) {
	b := New(2, 4)
	b.Channel(0)[3] = 1
	b.Resize(2)
	b.Resize(4)
	if b.Channel(0)[3] != 0 {
		t.Fatalf("stale sample exposed after shrink/grow: %v", b.Channel(0)[3])
	}

	b.Channel(1)[0] = 5
	b.Resize(16)
	if b.Frames() != 16 {
		t.Fatalf("Frames() = %d, want 16", b.Frames())
	}
	if b.Channel(1)[0] != 5 {
		t.Fatal("Resize did not preserve data")
	}
}

func TestSetChannels(t *testing.T) {
	b := New(1, 4)
	b.SetChannels(2)
	if b.Channels() != 2 || len(b.Channel(1)) != 4 {
		t.Fatalf("shape = %dx%d, want 2x4", b.Channels(), len(b.Channel(1)))
	}
	b.Channel(1)[2] = 3
	b.SetChannels(1)
	b.SetChannels(2)
	if b.Channel(1)[2] != 0 {
		t.Fatal("re-added channel should be zeroed")
	}
}

func TestCopyFromAndCopy(t *testing.T) {
	src := FromChannels([]float64{1, 2, 3}, []float64{4, 5, 6})
	dst := New(2, 2)
	if n := dst.CopyFrom(src); n != 2 {
		t.Fatalf("CopyFrom = %d, want 2", n)
	}
	if dst.Channel(1)[1] != 5 {
		t.Fatalf("dst R[1] = %v, want 5", dst.Channel(1)[1])
	}

	c := src.Copy()
	c.Channel(0)[0] = -1
	if src.Channel(0)[0] != 1 {
		t.Fatal("Copy should not share memory")
	}
}

func TestZero(t *testing.T) {
	b := FromChannels([]float64{1, 2}, []float64{3, 4})
	b.Zero()
	for c := 0; c < 2; c++ {
		for _, v := range b.Channel(c) {
			if v != 0 {
				t.Fatal("Zero left non-zero samples")
			}
		}
	}
}
