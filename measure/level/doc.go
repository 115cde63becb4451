// Package level provides a periodic RMS and peak meter for rendered audio.
package level
