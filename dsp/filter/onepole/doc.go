// Package onepole provides leaky-integrator filters and an asymmetric
// envelope follower.
//
// Each filter is a plain state struct: the coefficient is a pole position
// in (0,1] expressed as the fraction of the error absorbed per sample, and
// all state lives in exported fields so callers can snapshot or reset it.
// None of the types allocate or lock.
package onepole
