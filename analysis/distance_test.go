package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeEchoTrain(sr, 440.0, 1.5, 0.25, 0.6)
	m := Compare(x, x, sr)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical signals, got %f", m.Score)
	}
	if m.Similarity < 0.85 {
		t.Fatalf("expected high similarity for identical signals, got %f", m.Similarity)
	}
	if m.LagSamples != 0 {
		t.Fatalf("expected zero lag, got %d", m.LagSamples)
	}
}

func TestCompareDifferentSignalsHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeEchoTrain(sr, 261.63, 1.8, 0.25, 0.8)
	b := makeEchoTrain(sr, 330.0, 1.8, 0.4, 0.2)
	m := Compare(a, b, sr)
	if m.Score < 0.25 {
		t.Fatalf("expected higher score for different signals, got %f", m.Score)
	}
}

func TestCompareEmptyInputIsMaximalDistance(t *testing.T) {
	m := Compare(nil, []float64{1, 2, 3}, 48000)
	if m.Score != 1 || m.Similarity != 0 {
		t.Fatalf("empty reference: score=%f similarity=%f", m.Score, m.Similarity)
	}
	m = Compare(make([]float64, 1000), make([]float64, 1000), 48000)
	if m.Score != 1 {
		t.Fatalf("silent inputs: score=%f", m.Score)
	}
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFFTMatchesExhaustive(t *testing.T) {
	const (
		n      = 16000
		shift  = 443
		maxLag = 1000
	)
	ref := randomSignal(n, 23)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	want := estimateLagExhaustive(ref, cand, maxLag)
	if got != want {
		t.Fatalf("estimateLag() = %d, exhaustive = %d", got, want)
	}
	if direct := estimateLagDirect(ref, cand, maxLag); direct != want {
		t.Fatalf("estimateLagDirect() = %d, exhaustive = %d", direct, want)
	}
}

func TestSpectralRMSEDBMatchesNaiveDFT(t *testing.T) {
	a := randomSignal(4096, 3)
	c := randomSignal(4096, 5)
	aw, cw, bins := spectralWindowedInputs(a, c)
	want := spectralRMSEDBNaiveWindowed(aw, cw, bins)
	got := spectralRMSEDB(a, c)
	if math.Abs(got-want) > 1e-6*math.Max(1, want) {
		t.Fatalf("spectralRMSEDB() = %f, naive = %f", got, want)
	}
	if same := spectralRMSEDB(a, a); same > 1e-9 {
		t.Fatalf("identical spectra should have zero distance, got %f", same)
	}
}

func TestSpectralCentroidTracksPitch(t *testing.T) {
	const sr = 48000
	low := makeEchoTrain(sr, 220, 0.2, 1, 0)
	high := makeEchoTrain(sr, 1760, 0.2, 1, 0)
	cl := SpectralCentroid(low, sr)
	ch := SpectralCentroid(high, sr)
	if math.Abs(cl-220) > 60 {
		t.Fatalf("low centroid: got=%f want~220", cl)
	}
	if ch < 4*cl {
		t.Fatalf("higher tone should raise the centroid: low=%f high=%f", cl, ch)
	}
	if SpectralCentroid(make([]float64, 4096), sr) != 0 {
		t.Fatalf("silence should have zero centroid")
	}
}

func TestSpectrumSizeIsPowerOfTwo(t *testing.T) {
	cases := map[int]int{512: 512, 1000: 512, 4096: 4096, 100000: 4096, 1: 1}
	for in, want := range cases {
		if got := spectrumSize(in); got != want {
			t.Fatalf("spectrumSize(%d) = %d, want %d", in, got, want)
		}
	}
}

// makeEchoTrain renders a tone burst followed by decaying repeats every
// period seconds, the shape of a feedback delay tail.
func makeEchoTrain(sr int, freq float64, durationSec float64, periodSec float64, feedback float64) []float64 {
	n := int(float64(sr) * durationSec)
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	burst := int(0.05 * float64(sr))
	period := int(periodSec * float64(sr))
	gain := 1.0
	for start := 0; start < n && gain > 1e-4; start += period {
		for i := 0; i < burst && start+i < n; i++ {
			t := float64(i) / float64(sr)
			w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(burst-1))
			out[start+i] += gain * w * math.Sin(2*math.Pi*freq*t)
		}
		if period <= 0 {
			break
		}
		gain *= feedback
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func estimateLagExhaustive(ref []float64, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		s := dotAtLag(ref, cand, lag, 1)
		if s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func spectralWindowedInputs(a []float64, b []float64) ([]float64, []float64, int) {
	n := spectrumSize(min(len(a), len(b)))
	w := hannWindow(n)
	aw := make([]float64, n)
	bw := make([]float64, n)
	for i := 0; i < n; i++ {
		aw[i] = a[i] * w[i]
		bw[i] = b[i] * w[i]
	}
	return aw, bw, n / 2
}

func spectralRMSEDBNaiveWindowed(aw []float64, bw []float64, bins int) float64 {
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(dftBinMag(aw, k)) - linToDB(dftBinMag(bw, k))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func dftBinMag(x []float64, bin int) float64 {
	n := len(x)
	var re, im float64
	for i := 0; i < n; i++ {
		phi := -2.0 * math.Pi * float64(bin*i) / float64(n)
		re += x[i] * math.Cos(phi)
		im += x[i] * math.Sin(phi)
	}
	return math.Hypot(re, im)
}
