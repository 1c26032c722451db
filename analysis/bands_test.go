package analysis

import (
	"math"
	"testing"
)

func sineAt(freq, amp float64, n, sr int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return x
}

func TestCompareBandsIdentical(t *testing.T) {
	x := sineAt(1500, 0.5, 48000, 48000)
	diffs, err := CompareBands(x, x, 48000, 2048, DefaultBands)
	if err != nil {
		t.Fatalf("CompareBands: %v", err)
	}
	if len(diffs) != len(DefaultBands) {
		t.Fatalf("band count: got=%d want=%d", len(diffs), len(DefaultBands))
	}
	for _, d := range diffs {
		if d.RMSEDB > 1e-9 {
			t.Fatalf("%s: identical signals differ by %f dB", d.Band, d.RMSEDB)
		}
	}
}

func TestCompareBandsLevelDifference(t *testing.T) {
	ref := sineAt(1500, 0.5, 48000, 48000)
	cand := sineAt(1500, 0.25, 48000, 48000)
	diffs, err := CompareBands(ref, cand, 48000, 2048, DefaultBands)
	if err != nil {
		t.Fatalf("CompareBands: %v", err)
	}
	var mid BandDiff
	for _, d := range diffs {
		if d.Band == "mid (1-3kHz)" {
			mid = d
		}
	}
	got := mid.CandDB - mid.RefDB
	want := 20 * math.Log10(0.5)
	if math.Abs(got-want) > 0.01 {
		t.Fatalf("mid band level diff got=%f want=%f", got, want)
	}
}

func TestCompareBandsSkipsAboveNyquist(t *testing.T) {
	x := sineAt(440, 0.5, 4000, 16000)
	diffs, err := CompareBands(x, x, 16000, 1024, DefaultBands)
	if err != nil {
		t.Fatalf("CompareBands: %v", err)
	}
	if len(diffs) != len(DefaultBands)-1 {
		t.Fatalf("band count: got=%d want=%d", len(diffs), len(DefaultBands)-1)
	}
	for _, d := range diffs {
		if d.Band == "air (12-20kHz)" {
			t.Fatalf("band %q is above Nyquist at 16 kHz", d.Band)
		}
	}
}

func TestCompareBandsShortInput(t *testing.T) {
	x := sineAt(1000, 0.5, 300, 48000)
	if _, err := CompareBands(x, x, 48000, 1024, DefaultBands); err != nil {
		t.Fatalf("short input should be zero-padded: %v", err)
	}
}

func TestCompareBandsRejectsBadArgs(t *testing.T) {
	x := sineAt(1000, 0.5, 4096, 48000)
	if _, err := CompareBands(x, x, 48000, 1000, DefaultBands); err == nil {
		t.Fatalf("expected error for non power-of-two fft size")
	}
	if _, err := CompareBands(x, x, 0, 1024, DefaultBands); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
	if _, err := CompareBands(nil, x, 48000, 1024, DefaultBands); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
