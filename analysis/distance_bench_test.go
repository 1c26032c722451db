package analysis

import "testing"

const benchSampleRate = 48000

// grainRenders returns two echo trains of 50 ms grains at a quarter-second
// spacing, the second one delayed by a few milliseconds and fed back harder.
func grainRenders(seconds float64) ([]float64, []float64) {
	ref := makeEchoTrain(benchSampleRate, 440, seconds, 0.25, 0.6)
	cand := make([]float64, len(ref))
	shifted := makeEchoTrain(benchSampleRate, 440, seconds, 0.25, 0.7)
	copy(cand[240:], shifted)
	return ref, cand
}

func BenchmarkEstimateLagFFT(b *testing.B) {
	ref, cand := grainRenders(2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = estimateLag(ref, cand, benchSampleRate/10)
	}
}

func BenchmarkEstimateLagDirect(b *testing.B) {
	ref, cand := grainRenders(2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = estimateLagDirect(ref, cand, benchSampleRate/10)
	}
}

func BenchmarkCompareBands(b *testing.B) {
	ref, cand := grainRenders(3)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := CompareBands(ref, cand, benchSampleRate, 4096, DefaultBands); err != nil {
			b.Fatalf("CompareBands: %v", err)
		}
	}
}

func BenchmarkSpectralCentroidGrain(b *testing.B) {
	grain, _ := grainRenders(0.05)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SpectralCentroid(grain, benchSampleRate)
	}
}

func BenchmarkCompareGrainTail(b *testing.B) {
	ref, cand := grainRenders(3)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand, benchSampleRate)
	}
}
