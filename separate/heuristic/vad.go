package heuristic

import (
	"math"

	"github.com/cwbudde/algo-stems/dsp/filter/onepole"
)

const (
	vadRMSKeep      = 0.9
	vadRMSFloor     = 0.015
	vadRMSRatio     = 0.45
	vadZCTarget     = 0.08
	vadZCWidth      = 0.1
	vadBlend        = 0.85
	vadEnvAttack    = 0.25
	vadEnvRelease   = 0.03
	vadWeightDamper = 0.85
)

// VAD turns per-block RMS and zero-crossing rate into a smoothed
// voice-activity weight in [0,1].
type VAD struct {
	smoothedRMS float64
	env         onepole.Envelope
	last        float64
}

// NewVAD returns a VAD with zero state.
func NewVAD() VAD {
	return VAD{env: onepole.NewEnvelope(vadEnvAttack, vadEnvRelease)}
}

// Update folds one block's statistics into the estimate and returns the new
// weight. zcRate is crossings per sample.
func (v *VAD) Update(rms, zcRate float64) float64 {
	v.smoothedRMS = vadRMSKeep*v.smoothedRMS + (1-vadRMSKeep)*rms
	thr := math.Max(vadRMSFloor, vadRMSRatio*v.smoothedRMS)

	w := 0.0
	if rms > thr {
		w = ZCWeight(zcRate)
	}

	v.last = v.env.Step(vadWeightDamper * (vadBlend*v.last + (1-vadBlend)*w))
	return v.last
}

// Activity returns the latest weight.
func (v *VAD) Activity() float64 {
	return v.last
}

// Threshold returns the current adaptive RMS threshold.
func (v *VAD) Threshold() float64 {
	return math.Max(vadRMSFloor, vadRMSRatio*v.smoothedRMS)
}

// Reset clears all state.
func (v *VAD) Reset() {
	v.smoothedRMS = 0
	v.last = 0
	v.env.Reset()
}

// ZCWeight scores a zero-crossing rate by its distance from the rate
// typical of voiced speech. The result is in [0,1].
func ZCWeight(zcRate float64) float64 {
	w := 1 - math.Min(1, math.Abs(zcRate-vadZCTarget)/vadZCWidth)
	if w < 0 {
		return 0
	}
	return w
}
