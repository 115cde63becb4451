package window

import "math"

// COLA describes how a window (or an analysis/synthesis product) sums under
// overlap-add at a given hop.
type COLA struct {
	// Hop is the frame advance in samples.
	Hop int
	// Gain is the mean of the overlapped sum over one hop period.
	Gain float64
	// Min and Max bound the overlapped sum.
	Min, Max float64
	// Ripple is (Max-Min)/Gain. Zero for an exact COLA pair.
	Ripple float64
}

// IsCOLA reports whether the ripple is below tol.
func (c COLA) IsCOLA(tol float64) bool {
	return c.Gain > 0 && c.Ripple <= tol
}

// CheckCOLA folds coeffs onto one hop period and reports the overlapped
// sum's gain and ripple.
func CheckCOLA(coeffs []float64, hop int) (COLA, error) {
	if len(coeffs) == 0 {
		return COLA{}, errEmptyCoeffs
	}
	if hop <= 0 || hop > len(coeffs) {
		return COLA{}, ErrInvalidHop
	}

	res := COLA{Hop: hop, Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for n := 0; n < hop; n++ {
		s := 0.0
		for k := n; k < len(coeffs); k += hop {
			s += coeffs[k]
		}
		sum += s
		res.Min = math.Min(res.Min, s)
		res.Max = math.Max(res.Max, s)
	}

	res.Gain = sum / float64(hop)
	if res.Gain != 0 {
		res.Ripple = (res.Max - res.Min) / math.Abs(res.Gain)
	}

	return res, nil
}

// CheckCOLAPair checks the pointwise product of an analysis and a synthesis
// window, which is what an overlap-add resynthesis actually sums.
func CheckCOLAPair(analysis, synthesis []float64, hop int) (COLA, error) {
	product := make([]float64, len(analysis))
	if err := ApplyCoefficients(product, analysis, synthesis); err != nil {
		return COLA{}, err
	}

	return CheckCOLA(product, hop)
}
