package grain

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-grain/dsp"
)

const invSqrt2 = 0.70710678118654752440

// pitchIntervals is the set chaos picks grain transpositions from.
var pitchIntervals = [...]float32{-12, -7, 0, 7, 12}

// maxPitchJitter is the per-sample pitch deviation at full pitch range.
const maxPitchJitter = 24 // semitones

// Voice is one grain slot. A voice is active iff it contributes to the output.
type Voice struct {
	active       bool
	readOffset   float32 // samples behind the write cursor
	age          int
	length       int
	playbackRate float32
	pan          float32
	gainL, gainR float32
}

// Active reports whether the voice is playing a grain.
func (v *Voice) Active() bool { return v.active }

// ReadOffset returns the current distance behind the write cursor.
func (v *Voice) ReadOffset() float32 { return v.readOffset }

// Lifetime returns the consumed fraction of the grain in [0, 1).
func (v *Voice) Lifetime() float32 {
	if v.length <= 0 {
		return 0
	}
	return float32(v.age) / float32(v.length)
}

// LengthSamples returns the grain length.
func (v *Voice) LengthSamples() int { return v.length }

// PlaybackRate returns the pitch ratio (negative for reverse grains).
func (v *Voice) PlaybackRate() float32 { return v.playbackRate }

// Pan returns the pan position in [0, 1].
func (v *Voice) Pan() float32 { return v.pan }

// SpawnParams carries the per-block values a new grain is initialized from.
type SpawnParams struct {
	DelaySamples       float32 // tempo-quantized delay time in samples
	BufferOffset       float32 // manual read position in samples
	GrainLengthSamples int
	Chaos              float32 // 0..1
	Spread             float32 // pan deviation scale, 1 = neutral
	ReverseProbability float32 // 0..1
}

// VoicePool is a fixed array of grain voices reading a shared DelayStore.
// Slots are reused by index; nothing is allocated after construction.
type VoicePool struct {
	voices     [MaxVoices]Voice
	rng        *rand.Rand
	maxOffset  float32
	pitchRange float32
}

// NewVoicePool creates a pool drawing randomness from rng.
func NewVoicePool(rng *rand.Rand) *VoicePool {
	return &VoicePool{rng: rng, maxOffset: 1}
}

// SetMaxOffset sets the largest valid read offset (from the store geometry).
func (p *VoicePool) SetMaxOffset(maxOffset float32) {
	if maxOffset < 1 {
		maxOffset = 1
	}
	p.maxOffset = maxOffset
}

// SetPitchRange sets the per-sample pitch jitter of playing grains, 0..1.
// 1 draws a fresh offset of up to ±24 semitones for every sample.
func (p *VoicePool) SetPitchRange(r float32) {
	p.pitchRange = clampf(finiteOr0(r), 0, 1)
}

// PitchRange returns the current jitter amount.
func (p *VoicePool) PitchRange() float32 { return p.pitchRange }

// Voice returns slot i for inspection.
func (p *VoicePool) Voice(i int) *Voice {
	if i < 0 || i >= len(p.voices) {
		return nil
	}
	return &p.voices[i]
}

// FindFreeVoice scans slots [0, limit) and returns the first inactive one.
// When all are busy the spawn is skipped; voices are never stolen.
func (p *VoicePool) FindFreeVoice(limit int) (int, bool) {
	if limit > len(p.voices) {
		limit = len(p.voices)
	}
	for i := 0; i < limit; i++ {
		if !p.voices[i].active {
			return i, true
		}
	}
	return -1, false
}

// Spawn initializes slot i with a new grain.
func (p *VoicePool) Spawn(i int, sp SpawnParams) {
	if i < 0 || i >= len(p.voices) {
		return
	}
	chaos := clampf(finiteOr0(sp.Chaos), 0, 1)

	offset := finiteOr0(sp.DelaySamples) + finiteOr0(sp.BufferOffset)
	if chaos > 0 {
		offset += (p.rng.Float32() - 0.5) * chaos * finiteOr0(sp.DelaySamples) * 0.5
	}
	offset = clampf(offset, 1, p.maxOffset)

	length := sp.GrainLengthSamples
	if length < 1 {
		length = 1
	}

	var semitones float32
	if chaos > 0 && p.rng.Float32() < chaos {
		semitones = pitchIntervals[p.rng.Intn(len(pitchIntervals))]
	}
	rate := semitonesToRatio(semitones)
	if sp.ReverseProbability > 0 && p.rng.Float32() < sp.ReverseProbability {
		rate = -rate
	}

	pan := float32(0.5)
	if chaos > 0 {
		pan = lerpf(0.5, p.rng.Float32(), chaos)
	}
	spread := sp.Spread
	if !isFinite(spread) || spread < 0 {
		spread = 1
	}
	pan = clampf(0.5+(pan-0.5)*spread, 0, 1)

	v := &p.voices[i]
	*v = Voice{
		active:       true,
		readOffset:   offset,
		length:       length,
		playbackRate: rate,
		pan:          pan,
		gainL:        float32(math.Cos(float64(pan) * math.Pi / 2)),
		gainR:        float32(math.Sin(float64(pan) * math.Pi / 2)),
	}
}

// TrackWrite keeps active voices addressing the same absolute samples after
// the store cursor advanced by one frame.
func (p *VoicePool) TrackWrite() {
	for i := range p.voices {
		if p.voices[i].active {
			p.voices[i].readOffset++
		}
	}
}

// Advance moves voice i forward by one output sample and retires it when the
// grain is consumed or its read position leaves the valid window. With a
// pitch range set, the step is detuned by a random amount each sample.
func (p *VoicePool) Advance(i int) {
	v := &p.voices[i]
	if !v.active {
		return
	}
	step := v.playbackRate
	if p.pitchRange > 0.001 {
		step *= semitonesToRatio((p.rng.Float32() - 0.5) * 2 * p.pitchRange * maxPitchJitter)
	}
	v.readOffset -= step
	v.age++
	if v.age >= v.length || v.readOffset < 0 || v.readOffset > p.maxOffset || !isFinite(v.readOffset) {
		v.active = false
	}
}

// Process renders and advances every active voice for one sample and
// returns the summed stereo contribution.
func (p *VoicePool) Process(store *dsp.DelayStore, shape, character float32) (float32, float32) {
	var outL, outR float32
	for i := range p.voices {
		v := &p.voices[i]
		if !v.active {
			continue
		}
		env := CombinedGain(v.Lifetime(), shape, character)
		l := store.Read(0, v.readOffset) * env
		r := store.Read(1, v.readOffset) * env

		cl := (l*v.gainL + r*(1-v.gainR)) * invSqrt2
		cr := (r*v.gainR + l*(1-v.gainL)) * invSqrt2
		if isFinite(cl) && isFinite(cr) {
			outL += cl
			outR += cr
		}
		p.Advance(i)
	}
	return outL, outR
}

// ActiveCount returns the number of playing voices.
func (p *VoicePool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// Reset retires every voice.
func (p *VoicePool) Reset() {
	for i := range p.voices {
		p.voices[i] = Voice{}
	}
}
