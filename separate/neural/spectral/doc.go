// Package spectral provides a model-free separation backend for the neural
// pipeline.
//
// The model estimates the voice as the centre-panned, speech-band part of
// each window: per FFT bin it measures how similar the two channels are,
// weights that by a band-pass over the speech range, and applies the result
// as a mask to the mid signal. It stands in for a trained separator and
// needs no runtime beyond the FFT.
package spectral
