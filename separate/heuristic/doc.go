// Package heuristic implements the model-free voice/background separator
// used as the engine's PROXY path and as the per-quantum fallback for the
// neural path.
//
// The voice estimate is a band-limited mid channel: a leaky high-pass
// removes DC and rumble, a leaky low-pass smooths what is left. The
// background is each input channel minus that estimate, optionally trimmed
// by music/sfx cut blends. A block-rate voice-activity weight derived from
// RMS and zero-crossing rate drives ducking of the background and scales
// the voice term in the final mix.
//
// This is a coarse proxy, not spectral separation.
package heuristic
