package grain

// Params is the per-block parameter snapshot consumed by Engine.ProcessBlock.
// Percent-valued fields use the host range 0..100.
type Params struct {
	DelayTime          float32 // seconds
	GrainSizeMs        float32
	EnvelopeShape      float32 // 0 = percussive, 0.5 = balanced, 1 = smooth
	Distortion         float32 // wet waveshaper amount, %
	Feedback           float32 // %
	FeedbackSaturation float32 // %
	Chaos              float32 // %
	Character          float32 // %
	GrainVoices        int
	Mix                float32 // %
	Freeze             bool
	TempoSync          bool
	HostBPM            float32

	BufferPosition     float32 // read offset as % of the usable store span
	StereoSpread       float32 // %, 50 = neutral
	ReverseProbability float32 // %
	PitchRange         float32 // per-sample pitch jitter, %, 100 = ±24 semitones
	Lofi               float32 // %

	// Downstream output stage.
	OutputGain     float32
	LimiterEnabled bool
}

// Parameter ranges.
const (
	MinDelayTime   = 0.1
	MaxDelayTime   = 2.0
	MinGrainSizeMs = 10.0
	MaxGrainSizeMs = 200.0
	MinBPM         = 20.0
	MaxBPM         = 300.0
	DefaultBPM     = 120.0
	MaxVoices      = 32
)

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		DelayTime:          0.5,
		GrainSizeMs:        50,
		EnvelopeShape:      0.5,
		Distortion:         0,
		Feedback:           50,
		FeedbackSaturation: 0,
		Chaos:              0,
		Character:          0,
		GrainVoices:        8,
		Mix:                50,
		Freeze:             false,
		TempoSync:          false,
		HostBPM:            DefaultBPM,
		BufferPosition:     0,
		StereoSpread:       50,
		ReverseProbability: 0,
		PitchRange:         25,
		Lofi:               0,
		OutputGain:         1.0,
		LimiterEnabled:     false,
	}
}

// Clamped returns a copy with every field limited to its valid range.
// Non-finite values fall back to the defaults.
func (p Params) Clamped() Params {
	d := NewDefaultParams()
	p.DelayTime = clampOr(p.DelayTime, MinDelayTime, MaxDelayTime, d.DelayTime)
	p.GrainSizeMs = clampOr(p.GrainSizeMs, MinGrainSizeMs, MaxGrainSizeMs, d.GrainSizeMs)
	p.EnvelopeShape = clampOr(p.EnvelopeShape, 0, 1, d.EnvelopeShape)
	p.Distortion = clampOr(p.Distortion, 0, 100, 0)
	p.Feedback = clampOr(p.Feedback, 0, 100, 0)
	p.FeedbackSaturation = clampOr(p.FeedbackSaturation, 0, 100, 0)
	p.Chaos = clampOr(p.Chaos, 0, 100, 0)
	p.Character = clampOr(p.Character, 0, 100, 0)
	p.Mix = clampOr(p.Mix, 0, 100, d.Mix)
	p.HostBPM = clampOr(p.HostBPM, MinBPM, MaxBPM, DefaultBPM)
	p.BufferPosition = clampOr(p.BufferPosition, 0, 100, 0)
	p.StereoSpread = clampOr(p.StereoSpread, 0, 100, d.StereoSpread)
	p.ReverseProbability = clampOr(p.ReverseProbability, 0, 100, 0)
	p.PitchRange = clampOr(p.PitchRange, 0, 100, d.PitchRange)
	p.Lofi = clampOr(p.Lofi, 0, 100, 0)
	p.OutputGain = clampOr(p.OutputGain, 0, 4, 1)
	if p.GrainVoices < 1 {
		p.GrainVoices = 1
	}
	if p.GrainVoices > MaxVoices {
		p.GrainVoices = MaxVoices
	}
	return p
}

func clampOr(v, lo, hi, fallback float32) float32 {
	if !isFinite(v) {
		return fallback
	}
	return clampf(v, lo, hi)
}
