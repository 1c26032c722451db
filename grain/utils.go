package grain

import (
	"math"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-dsp/dsp/core"
)

// semitonesToRatio converts a pitch shift to a playback rate.
func semitonesToRatio(semitones float32) float32 {
	if semitones == 0 {
		return 1
	}
	return pow2Approx(semitones / 12.0)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

// finiteOr0 returns x, or 0 when x is NaN or Inf.
func finiteOr0(x float32) float32 {
	if !isFinite(x) {
		return 0
	}
	return x
}

func clampf(x, lo, hi float32) float32 {
	return float32(core.Clamp(float64(x), float64(lo), float64(hi)))
}

func lerpf(a, b, t float32) float32 {
	return a + (b-a)*t
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
