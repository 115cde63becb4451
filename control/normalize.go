package control

import "github.com/cwbudde/algo-stems/dsp/core"

// Ranges.
const (
	MaxGain       = 2.0
	MinDuckPower  = 0.25
	MaxDuckPower  = 4.0
	MaxPresenceDB = 12.0

	// percentThreshold separates plain factors from percentages.
	percentThreshold = 4.0
)

// NormalizeGain maps a gain-like value into [0, MaxGain]. Values above 4 are
// read as percentages. The second result is false for NaN and Inf, which
// callers ignore.
func NormalizeGain(v float64) (float64, bool) {
	if !core.IsFinite(v) {
		return 0, false
	}
	if v > percentThreshold {
		v /= 100
	}
	return core.Clamp(v, 0, MaxGain), true
}

// NormalizeUnit clamps cut, depth, and leak amounts to [0,1].
func NormalizeUnit(v float64) (float64, bool) {
	if !core.IsFinite(v) {
		return 0, false
	}
	return core.Clamp(v, 0, 1), true
}

// NormalizeDuckPower clamps the ducking curve exponent.
func NormalizeDuckPower(v float64) (float64, bool) {
	if !core.IsFinite(v) {
		return 0, false
	}
	return core.Clamp(v, MinDuckPower, MaxDuckPower), true
}

// NormalizePresenceDB clamps the presence boost to ±12 dB.
func NormalizePresenceDB(v float64) (float64, bool) {
	if !core.IsFinite(v) {
		return 0, false
	}
	return core.Clamp(v, -MaxPresenceDB, MaxPresenceDB), true
}
