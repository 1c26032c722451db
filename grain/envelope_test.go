package grain

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

func TestCombinedGainIsZeroAtGrainBoundaries(t *testing.T) {
	for _, shape := range []float32{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1} {
		for _, character := range []float32{0, 0.3, 0.5, 1} {
			if g := CombinedGain(0, shape, character); g != 0 {
				t.Fatalf("gain at 0 must be 0: shape=%f character=%f got=%f", shape, character, g)
			}
			if g := CombinedGain(1, shape, character); g != 0 {
				t.Fatalf("gain at 1 must be 0: shape=%f character=%f got=%f", shape, character, g)
			}
			if g := CombinedGain(1-1e-4, shape, character); g > 1e-3 {
				t.Fatalf("gain must vanish approaching 1: shape=%f character=%f got=%f", shape, character, g)
			}
			if g := CombinedGain(1e-4, shape, character); g > 1e-2 {
				t.Fatalf("gain must vanish approaching 0: shape=%f character=%f got=%f", shape, character, g)
			}
		}
	}
}

func TestCombinedGainStaysInUnitRange(t *testing.T) {
	for _, shape := range []float32{0, 0.33, 0.5, 0.66, 1} {
		for _, character := range []float32{0, 0.5, 1} {
			for i := -10; i <= 1010; i++ {
				pos := float32(i) / 1000
				g := CombinedGain(pos, shape, character)
				if g < 0 || g > 1+1e-6 || !isFinite(g) {
					t.Fatalf("gain out of range at pos=%f shape=%f character=%f: %f", pos, shape, character, g)
				}
			}
		}
	}
	if g := CombinedGain(float32(math.NaN()), 0.5, 0.5); g != 0 {
		t.Fatalf("NaN position should map to 0, got=%f", g)
	}
}

func TestShapeEnvelopeProfiles(t *testing.T) {
	if g := ShapeEnvelope(percussiveAttack, 0); math.Abs(float64(g-1)) > 1e-5 {
		t.Fatalf("percussive peak at attack end: got=%f want=1", g)
	}
	if g := ShapeEnvelope(0.55, 0.5); math.Abs(float64(g-balancedSustain)) > 1e-5 {
		t.Fatalf("balanced sustain level: got=%f want=%f", g, balancedSustain)
	}
	if g := ShapeEnvelope(0.5, 1); math.Abs(float64(g-1)) > 1e-5 {
		t.Fatalf("smooth plateau: got=%f want=1", g)
	}
	// Percussive front-loads energy relative to smooth.
	if ShapeEnvelope(0.1, 0) <= ShapeEnvelope(0.1, 1) {
		t.Fatalf("expected percussive to be louder early than smooth")
	}
	// Midway blends are between neighbors.
	lo := ShapeEnvelope(0.3, 0)
	hi := ShapeEnvelope(0.3, 0.5)
	mid := ShapeEnvelope(0.3, 0.25)
	if mid < minf32(lo, hi)-1e-6 || mid > maxf32(lo, hi)+1e-6 {
		t.Fatalf("blend not between profiles: lo=%f mid=%f hi=%f", lo, mid, hi)
	}
}

func TestTukeyWindowMatchesReferenceWindow(t *testing.T) {
	const size = 201
	for _, alpha := range []float64{0.1, 0.5, 1.0} {
		ref, err := window.Tukey(size, alpha)
		if err != nil {
			t.Fatalf("window.Tukey: %v", err)
		}
		for i := 1; i < size-1; i++ {
			x := float32(float64(i) / float64(size-1))
			got := TukeyWindow(x, float32(alpha))
			if math.Abs(float64(got)-ref[i]) > 1e-4 {
				t.Fatalf("alpha=%f i=%d: got=%f want=%f", alpha, i, got, ref[i])
			}
		}
	}
}

func TestCharacterWidensTaper(t *testing.T) {
	if g := TukeyWindow(0.2, TukeyAlpha(0)); g != 1 {
		t.Fatalf("narrow taper should be flat at 0.2, got=%f", g)
	}
	if g := TukeyWindow(0.2, TukeyAlpha(1)); g >= 1 {
		t.Fatalf("wide taper should attenuate at 0.2, got=%f", g)
	}
	if a := TukeyAlpha(0.5); math.Abs(float64(a-0.55)) > 1e-6 {
		t.Fatalf("alpha mapping: got=%f want=0.55", a)
	}
}

func minf32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
