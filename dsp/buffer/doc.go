// Package buffer provides the multi-channel audio block exchanged once per
// render quantum.
//
// A Block stores channels as separate []float64 slices of equal length so
// DSP code can keep working on raw slices; Block only manages allocation and
// reuse around them.
package buffer
