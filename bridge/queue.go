package bridge

import (
	"sync"
	"sync/atomic"
)

// Queue is an ordered stem fragment queue with one producer (the inference
// side) and one consumer (the render side).
type Queue struct {
	ch    chan *fragment
	avail atomic.Int64
	epoch *atomic.Uint64
	pool  *sync.Pool

	// consumer-owned
	cur *fragment
}

func newQueue(capacity int, epoch *atomic.Uint64, pool *sync.Pool) *Queue {
	return &Queue{
		ch:    make(chan *fragment, capacity),
		epoch: epoch,
		pool:  pool,
	}
}

// Available returns the number of frames the consumer can count on. The
// producer publishes a fragment's size only after sending it, so the value
// never exceeds what a following Consume can deliver, except for
// fragments that turn out to be stale.
func (q *Queue) Available() int {
	n := q.avail.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Consume fills dstL and dstR with up to len(dstL) frames, crossing fragment
// boundaries as needed, and returns the number of frames written. It never
// blocks. Stale fragments from an earlier epoch are discarded on the way.
// Must only be called by the consumer.
func (q *Queue) Consume(dstL, dstR []float64) int {
	want := len(dstL)
	if len(dstR) < want {
		want = len(dstR)
	}

	filled := 0
	for filled < want {
		if q.cur == nil && !q.next() {
			break
		}

		f := q.cur
		n := f.remaining()
		if n > want-filled {
			n = want - filled
		}
		copy(dstL[filled:filled+n], f.l[f.off:f.off+n])
		copy(dstR[filled:filled+n], f.r[f.off:f.off+n])
		f.off += n
		filled += n

		if f.remaining() == 0 {
			q.release(f)
			q.cur = nil
		}
	}

	if filled > 0 {
		q.avail.Add(int64(-filled))
	}
	return filled
}

// next makes the oldest current-epoch fragment the consumer's cursor.
func (q *Queue) next() bool {
	epoch := q.epoch.Load()
	for {
		select {
		case f := <-q.ch:
			if f.epoch != epoch {
				q.avail.Add(int64(-f.remaining()))
				q.release(f)
				continue
			}
			q.cur = f
			return true
		default:
			return false
		}
	}
}

// drain discards everything buffered. Consumer side.
func (q *Queue) drain() {
	if q.cur != nil {
		q.avail.Add(int64(-q.cur.remaining()))
		q.release(q.cur)
		q.cur = nil
	}
	for {
		select {
		case f := <-q.ch:
			q.avail.Add(int64(-f.remaining()))
			q.release(f)
		default:
			return
		}
	}
}

func (q *Queue) release(f *fragment) {
	f.l = f.l[:0]
	f.r = f.r[:0]
	f.off = 0
	q.pool.Put(f)
}
