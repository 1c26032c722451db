package grain

import (
	"math"
	"math/rand"
)

// noteDivisions lists note lengths in quarter-note beats: sixteenth, eighth
// triplet, eighth, quarter triplet, quarter, half triplet, half, whole.
var noteDivisions = [...]float64{0.25, 1.0 / 3.0, 0.5, 2.0 / 3.0, 1, 4.0 / 3.0, 2, 4}

// TempoQuantize snaps seconds to the nearest note division at bpm when
// enabled and returns it unchanged otherwise. bpm is clamped to [20, 300].
func TempoQuantize(seconds float32, enabled bool, bpm float32) float32 {
	if !enabled {
		return seconds
	}
	if !isFinite(bpm) {
		bpm = DefaultBPM
	}
	bpm = clampf(bpm, MinBPM, MaxBPM)
	beat := 60.0 / float64(bpm)

	x := float64(seconds)
	best := noteDivisions[0] * beat
	bestDiff := math.Abs(x - best)
	for _, div := range noteDivisions[1:] {
		d := div * beat
		if diff := math.Abs(x - d); diff < bestDiff {
			best = d
			bestDiff = diff
		}
	}
	return float32(best)
}

// DensityMultiplier maps character (0..1) to the grain density factor.
func DensityMultiplier(character float32) float32 {
	return 1 + 3*clampf(character, 0, 1)
}

// Scheduler decides when grains spawn.
type Scheduler struct {
	rng                 *rand.Rand
	sinceLastGrain      int
	nextInterval        int
	baseIntervalSamples float32
	chaos               float32
}

// NewScheduler creates a scheduler drawing timing jitter from rng.
func NewScheduler(rng *rand.Rand) *Scheduler {
	return &Scheduler{rng: rng, nextInterval: 1}
}

// Update recomputes the block interval from the quantized delay time (in
// seconds), the character and chaos amounts (0..1).
func (s *Scheduler) Update(delaySeconds float32, sampleRate float64, character, chaos float32) {
	s.baseIntervalSamples = delaySeconds * float32(sampleRate)
	interval := int(s.baseIntervalSamples / DensityMultiplier(character))
	if interval < 1 {
		interval = 1
	}
	s.nextInterval = interval
	s.chaos = clampf(finiteOr0(chaos), 0, 1)
}

// NextInterval returns the un-jittered spawn interval in samples.
func (s *Scheduler) NextInterval() int {
	return s.nextInterval
}

// SamplesSinceLastGrain returns the spawn counter.
func (s *Scheduler) SamplesSinceLastGrain() int {
	return s.sinceLastGrain
}

// Tick advances the counter by one sample and reports whether a grain is
// due. The counter resets on every trigger, whether or not the caller finds a
// free voice.
func (s *Scheduler) Tick() bool {
	current := s.nextInterval
	if s.chaos > 0.001 {
		jitter := (s.rng.Float32() - 0.5) * s.chaos
		current = maxInt(1, int(float32(s.nextInterval)*(1+jitter)))
	}
	s.sinceLastGrain++
	if s.sinceLastGrain >= current {
		s.sinceLastGrain = 0
		return true
	}
	return false
}

// Reset clears the spawn counter.
func (s *Scheduler) Reset() {
	s.sinceLastGrain = 0
}
