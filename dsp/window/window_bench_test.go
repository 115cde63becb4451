package window

import (
	"strconv"
	"testing"
)

func BenchmarkGenerate(b *testing.B) {
	sizes := []int{256, 1024, 4096}
	for _, n := range sizes {
		b.Run("sqrthann/"+strconv.Itoa(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Generate(TypeSqrtHann, n, WithPeriodic())
			}
		})
	}
}

func BenchmarkApplyCoefficients(b *testing.B) {
	sizes := []int{1024, 4096}
	for _, n := range sizes {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			coeffs := Generate(TypeSqrtHann, n, WithPeriodic())
			buf := make([]float64, n)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ApplyCoefficients(buf, buf, coeffs)
			}
		})
	}
}

func BenchmarkCheckCOLA(b *testing.B) {
	w := Generate(TypeHann, 4096, WithPeriodic())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = CheckCOLA(w, 2048)
	}
}
