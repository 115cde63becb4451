// Package bridge hands audio between the real-time render goroutine and the
// inference goroutine without locks.
//
// Raw quanta travel render → inference as pooled [Chunk] values over a
// bounded channel; a push never blocks and drops the chunk when the pool or
// the channel is exhausted. Separated stems travel back as fragments in two
// single-producer single-consumer [Queue] values, one per stem. The render
// side drains them with [Queue.Consume], which never blocks and may return
// fewer frames than requested.
//
// Every chunk and fragment carries the epoch it belongs to. [Bridge.Reset]
// advances the epoch, so work still in flight from before the reset is
// recognised and discarded instead of leaking into the new session.
package bridge
