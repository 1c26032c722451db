package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Band is a frequency range used for per-band comparison.
type Band struct {
	Name string
	LoHz float64
	HiHz float64
}

// DefaultBands splits the audible range into seven octave-ish groups.
var DefaultBands = []Band{
	{"sub-bass (20-100Hz)", 20, 100},
	{"bass (100-300Hz)", 100, 300},
	{"low-mid (300-1kHz)", 300, 1000},
	{"mid (1-3kHz)", 1000, 3000},
	{"hi-mid (3-6kHz)", 3000, 6000},
	{"high (6-12kHz)", 6000, 12000},
	{"air (12-20kHz)", 12000, 20000},
}

// BandDiff is the comparison result for one band.
type BandDiff struct {
	Band   string  `json:"band"`
	RMSEDB float64 `json:"rmse_db"` // per-bin level difference
	RefDB  float64 `json:"ref_db"`
	CandDB float64 `json:"cand_db"`
}

// CompareBands averages STFT magnitudes (Hann, 50% overlap) of both signals
// over their common length and reports level differences per band. Bands
// above Nyquist are skipped. Signals shorter than fftSize are zero-padded
// into a single frame.
func CompareBands(ref, cand []float64, sampleRate int, fftSize int, bands []Band) ([]BandDiff, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if fftSize < 64 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size must be a power of two >= 64, got %d", fftSize)
	}
	n := min(len(ref), len(cand))
	if n == 0 {
		return nil, fmt.Errorf("empty input")
	}

	avgRef, err := averageSpectrum(ref[:n], fftSize)
	if err != nil {
		return nil, err
	}
	avgCand, err := averageSpectrum(cand[:n], fftSize)
	if err != nil {
		return nil, err
	}

	binHz := float64(sampleRate) / float64(fftSize)
	nBins := fftSize / 2
	out := make([]BandDiff, 0, len(bands))
	for _, b := range bands {
		loK := max(int(b.LoHz/binHz), 1)
		hiK := min(int(b.HiHz/binHz), nBins-1)
		if loK > hiK {
			continue
		}

		var sumSq, refPow, candPow float64
		cnt := 0
		for k := loK; k <= hiK; k++ {
			d := linToDB(avgRef[k]) - linToDB(avgCand[k])
			sumSq += d * d
			refPow += avgRef[k] * avgRef[k]
			candPow += avgCand[k] * avgCand[k]
			cnt++
		}
		out = append(out, BandDiff{
			Band:   b.Name,
			RMSEDB: math.Sqrt(sumSq / float64(cnt)),
			RefDB:  10 * math.Log10(math.Max(refPow/float64(cnt), 1e-24)),
			CandDB: 10 * math.Log10(math.Max(candPow/float64(cnt), 1e-24)),
		})
	}
	return out, nil
}

func averageSpectrum(x []float64, fftSize int) ([]float64, error) {
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, err
	}
	hop := fftSize / 2
	w := hannWindow(fftSize)
	buf := make([]float64, fftSize)
	spec := make([]complex128, fftSize/2+1)
	avg := make([]float64, fftSize/2+1)

	frames := 0
	for pos := 0; pos == 0 || pos+fftSize <= len(x); pos += hop {
		clear(buf)
		for i := 0; i < fftSize && pos+i < len(x); i++ {
			buf[i] = x[pos+i] * w[i]
		}
		if err := plan.Forward(spec, buf); err != nil {
			return nil, err
		}
		for k, c := range spec {
			avg[k] += cmplx.Abs(c)
		}
		frames++
	}
	scale := 1 / float64(frames)
	for k := range avg {
		avg[k] *= scale
	}
	return avg, nil
}
