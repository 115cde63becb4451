// Package neural runs a windowed separation model on a stereo stream.
//
// Input arrives as raw quanta through a [bridge.Bridge]. The [Worker]
// accumulates them, cuts overlapping windows, runs the model on each window
// through a [Session], and reconstructs the voice and background stems by
// overlap-add ([OLA]). Completed hops are emitted back to the render side.
//
// Models are reached through the small [Model] and [Backend] interfaces so
// that real inference runtimes stay outside this package. Two backends ship
// with it: the identity backend, which returns its input, and the spectral
// backend in the spectral subpackage.
package neural
