package grain

import (
	"math"
	"math/rand"
	"testing"
)

func TestSchedulerIntervalFromDelay(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(1)))
	s.Update(0.5, 48000, 0, 0)
	if got := s.NextInterval(); got != 24000 {
		t.Fatalf("interval: got=%d want=24000", got)
	}
	s.Update(0.5, 48000, 1, 0)
	if got := s.NextInterval(); got != 6000 {
		t.Fatalf("interval at full character: got=%d want=6000", got)
	}
	s.Update(0, 48000, 0, 0)
	if got := s.NextInterval(); got != 1 {
		t.Fatalf("interval floor: got=%d want=1", got)
	}
}

func TestSchedulerTicksEveryInterval(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(1)))
	s.Update(0.015625, 48000, 0, 0) // 750 samples
	var triggers []int
	for i := 1; i <= 2000; i++ {
		if s.Tick() {
			triggers = append(triggers, i)
		}
	}
	want := []int{750, 1500}
	if len(triggers) != len(want) {
		t.Fatalf("trigger count: got=%v want=%v", triggers, want)
	}
	for i := range want {
		if triggers[i] != want[i] {
			t.Fatalf("trigger %d at sample %d, want %d", i, triggers[i], want[i])
		}
	}
	if got := s.SamplesSinceLastGrain(); got != 500 {
		t.Fatalf("counter after run: got=%d want=500", got)
	}
}

func TestSchedulerChaosJitterIsBounded(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(42)))
	s.Update(0.1, 48000, 0, 1) // 4800 base
	last := 0
	minGap, maxGap := math.MaxInt, 0
	for i := 1; i <= 4800*200; i++ {
		if s.Tick() {
			gap := i - last
			last = i
			minGap = min(minGap, gap)
			maxGap = max(maxGap, gap)
		}
	}
	// Jitter is re-drawn each sample within +-50%, so triggers land in
	// [base/2, base*1.5].
	if minGap < 2400 || maxGap > 7200 {
		t.Fatalf("gap out of jitter bounds: min=%d max=%d", minGap, maxGap)
	}
	if minGap == maxGap {
		t.Fatalf("expected irregular spacing with chaos, got constant %d", minGap)
	}
}

func TestSchedulerResetClearsCounter(t *testing.T) {
	s := NewScheduler(rand.New(rand.NewSource(1)))
	s.Update(0.5, 48000, 0, 0)
	for i := 0; i < 100; i++ {
		s.Tick()
	}
	s.Reset()
	if s.SamplesSinceLastGrain() != 0 {
		t.Fatalf("reset did not clear the counter")
	}
}

func TestTempoQuantizeDisabledIsIdentity(t *testing.T) {
	for _, sec := range []float32{0.1, 0.37, 0.49, 1.234, 2} {
		if got := TempoQuantize(sec, false, 120); got != sec {
			t.Fatalf("disabled quantize changed %f to %f", sec, got)
		}
	}
}

func TestTempoQuantizeSnapsToNoteDivision(t *testing.T) {
	cases := []struct {
		sec, bpm, want float32
	}{
		{0.49, 120, 0.5},      // quarter
		{0.26, 120, 0.25},     // eighth
		{0.9, 120, 1},         // half
		{0.3, 120, 1.0 / 3.0}, // quarter triplet
		{1.8, 120, 2},         // whole
		{0.05, 120, 0.125},    // sixteenth floor
		{0.6, 100, 0.6},       // quarter at 100 bpm
		{0.49, 1000, 0.4},     // bpm clamped to 300, half note
		{0.49, float32(math.NaN()), 0.5},
	}
	for _, tc := range cases {
		got := TempoQuantize(tc.sec, true, tc.bpm)
		if math.Abs(float64(got-tc.want)) > 1e-5 {
			t.Fatalf("quantize(%f @ %f): got=%f want=%f", tc.sec, tc.bpm, got, tc.want)
		}
	}
}

func TestTempoQuantizeIsIdempotent(t *testing.T) {
	for _, bpm := range []float32{60, 97, 120, 174} {
		for sec := float32(0.1); sec <= 2; sec += 0.037 {
			q := TempoQuantize(sec, true, bpm)
			if qq := TempoQuantize(q, true, bpm); math.Abs(float64(qq-q)) > 1e-6 {
				t.Fatalf("not idempotent at %f bpm=%f: %f -> %f", sec, bpm, q, qq)
			}
		}
	}
}
