package grain

import (
	"math"
	"math/rand"
	"testing"
)

func newTestEngine(t testing.TB, sampleRate float64, blockSize int, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(sampleRate, blockSize, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func noiseBlock(rng *rand.Rand, n int, amp float32) ([]float32, []float32) {
	l := make([]float32, n)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		l[i] = (rng.Float32()*2 - 1) * amp
		r[i] = (rng.Float32()*2 - 1) * amp
	}
	return l, r
}

func sineBlock(start, n int, freq, sampleRate float64) ([]float32, []float32) {
	l := make([]float32, n)
	r := make([]float32, n)
	for i := 0; i < n; i++ {
		ph := 2 * math.Pi * freq * float64(start+i) / sampleRate
		l[i] = float32(0.5 * math.Sin(ph))
		r[i] = float32(0.5 * math.Cos(ph))
	}
	return l, r
}

// render runs numBlocks blocks through e, feeding input from gen.
func render(e *Engine, p Params, numBlocks, blockSize int, gen func(block int) ([]float32, []float32)) ([]float32, []float32) {
	outL := make([]float32, 0, numBlocks*blockSize)
	outR := make([]float32, 0, numBlocks*blockSize)
	bl := make([]float32, blockSize)
	br := make([]float32, blockSize)
	for b := 0; b < numBlocks; b++ {
		inL, inR := gen(b)
		e.ProcessBlock(inL, inR, bl, br, p)
		outL = append(outL, bl...)
		outR = append(outR, br...)
	}
	return outL, outR
}

func silence(n int) func(int) ([]float32, []float32) {
	return func(int) ([]float32, []float32) {
		return make([]float32, n), make([]float32, n)
	}
}

func peakAbs(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if a := absf(s); a > peak {
			peak = a
		}
	}
	return peak
}

func assertFinite(t *testing.T, label string, samples []float32) {
	t.Helper()
	for i, s := range samples {
		if !isFinite(s) {
			t.Fatalf("%s: non-finite sample at %d: %v", label, i, s)
		}
	}
}
