package main

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-grain/grain"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
)

func loadInput(path string, sampleRate int) ([]float32, []float32, error) {
	l, r, sr, err := fitcommon.ReadWAVStereo(path)
	if err != nil {
		return nil, nil, err
	}
	l, r, err = fitcommon.ResampleStereoIfNeeded(l, r, sr, sampleRate)
	if err != nil {
		return nil, nil, err
	}
	return fitcommon.ToFloat32(l), fitcommon.ToFloat32(r), nil
}

// synthInput generates a test excitation:
//
//	pulse: a short decaying click every 0.5s
//	sine:  440 Hz left, 660 Hz right
//	noise: white noise at -12 dBFS
//	chirp: exponential sweep 100 Hz to 8 kHz
func synthInput(kind string, seconds float64, sampleRate int, seed int64) ([]float32, []float32, error) {
	if seconds <= 0 || sampleRate <= 0 {
		return nil, nil, fmt.Errorf("invalid synthetic input length %.3fs @ %d Hz", seconds, sampleRate)
	}
	n := int(seconds * float64(sampleRate))
	l := make([]float32, n)
	r := make([]float32, n)
	sr := float64(sampleRate)

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pulse":
		period := int(0.5 * sr)
		clickLen := int(0.005 * sr)
		for start := 0; start < n; start += period {
			for i := 0; i < clickLen && start+i < n; i++ {
				v := float32(0.8 * math.Exp(-float64(i)/(0.001*sr)) * math.Sin(2*math.Pi*1000*float64(i)/sr))
				l[start+i] = v
				r[start+i] = v
			}
		}
	case "sine":
		for i := 0; i < n; i++ {
			t := float64(i) / sr
			l[i] = float32(0.5 * math.Sin(2*math.Pi*440*t))
			r[i] = float32(0.5 * math.Sin(2*math.Pi*660*t))
		}
	case "noise":
		rng := rand.New(rand.NewSource(seed))
		amp := float32(math.Pow(10, -12.0/20))
		for i := 0; i < n; i++ {
			l[i] = (rng.Float32()*2 - 1) * amp
			r[i] = (rng.Float32()*2 - 1) * amp
		}
	case "chirp":
		const f0, f1 = 100.0, 8000.0
		k := math.Log(f1/f0) / seconds
		for i := 0; i < n; i++ {
			t := float64(i) / sr
			ph := 2 * math.Pi * f0 * (math.Exp(k*t) - 1) / k
			v := float32(0.5 * math.Sin(ph))
			l[i] = v
			r[i] = v
		}
	default:
		return nil, nil, fmt.Errorf("unknown signal %q (use pulse|sine|noise|chirp)", kind)
	}
	return l, r, nil
}

// applyOverrides parses "id=value,id=value" and writes each pair to store.
func applyOverrides(store *grain.ParamStore, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, part := range strings.Split(raw, ",") {
		id, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return fmt.Errorf("%q is not id=value", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 32)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if err := store.Set(strings.TrimSpace(id), float32(v)); err != nil {
			return err
		}
	}
	return nil
}
