// Package control holds the engine's control state and applies merge-patch
// updates to it.
//
// A [State] is an immutable value. A [Plane] publishes the current State
// through an atomic pointer so the render path can read one consistent
// snapshot per quantum without locking, while control messages arriving from
// other goroutines are merged in whole, one [Patch] at a time.
//
// Values are normalized on the way in: gain-like fields given as
// percentages (>4) are divided by 100, every numeric field is clamped to its
// range, and non-finite numbers or values of the wrong type are ignored.
package control
