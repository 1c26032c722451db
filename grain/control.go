package grain

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Parameter ids used for host automation.
const (
	ParamDelayTime          = "delay_time"
	ParamGrainSize          = "grain_size"
	ParamEnvelopeShape      = "envelope_shape"
	ParamDistortion         = "distortion_amount"
	ParamFeedback           = "feedback"
	ParamFeedbackSaturation = "feedback_saturation"
	ParamChaos              = "chaos"
	ParamCharacter          = "character"
	ParamGrainVoices        = "grain_voices"
	ParamMix                = "mix"
	ParamFreeze             = "freeze"
	ParamTempoSync          = "tempo_sync"
	ParamHostBPM            = "host_bpm"
	ParamBufferPosition     = "buffer_position"
	ParamStereoSpread       = "stereo_spread"
	ParamReverse            = "reverse_probability"
	ParamPitchRange         = "pitch_range"
	ParamLofi               = "lofi"
	ParamOutputGain         = "output_gain"
	ParamLimiter            = "limiter"
)

type floatCell struct {
	bits atomic.Uint32
}

func (c *floatCell) load() float32 {
	return math.Float32frombits(c.bits.Load())
}

func (c *floatCell) store(v float32) {
	c.bits.Store(math.Float32bits(v))
}

// ParamStore holds one atomic cell per parameter. Any goroutine may write;
// the audio thread reads a Snapshot once per block. Individual values never
// tear, but two parameters written together may be observed across a block
// boundary independently.
type ParamStore struct {
	floats map[string]*floatCell
	voices atomic.Int32
	freeze atomic.Bool
	sync   atomic.Bool
	limit  atomic.Bool
}

// NewParamStore creates a store initialized from p (defaults when nil).
func NewParamStore(p *Params) *ParamStore {
	if p == nil {
		p = NewDefaultParams()
	}
	s := &ParamStore{floats: make(map[string]*floatCell, 16)}
	for _, id := range floatParamIDs {
		s.floats[id] = &floatCell{}
	}
	s.Store(*p)
	return s
}

var floatParamIDs = []string{
	ParamDelayTime, ParamGrainSize, ParamEnvelopeShape, ParamDistortion,
	ParamFeedback, ParamFeedbackSaturation, ParamChaos, ParamCharacter,
	ParamMix, ParamHostBPM, ParamBufferPosition, ParamStereoSpread,
	ParamReverse, ParamPitchRange, ParamLofi, ParamOutputGain,
}

// Store writes every field of p.
func (s *ParamStore) Store(p Params) {
	s.floats[ParamDelayTime].store(p.DelayTime)
	s.floats[ParamGrainSize].store(p.GrainSizeMs)
	s.floats[ParamEnvelopeShape].store(p.EnvelopeShape)
	s.floats[ParamDistortion].store(p.Distortion)
	s.floats[ParamFeedback].store(p.Feedback)
	s.floats[ParamFeedbackSaturation].store(p.FeedbackSaturation)
	s.floats[ParamChaos].store(p.Chaos)
	s.floats[ParamCharacter].store(p.Character)
	s.floats[ParamMix].store(p.Mix)
	s.floats[ParamHostBPM].store(p.HostBPM)
	s.floats[ParamBufferPosition].store(p.BufferPosition)
	s.floats[ParamStereoSpread].store(p.StereoSpread)
	s.floats[ParamReverse].store(p.ReverseProbability)
	s.floats[ParamPitchRange].store(p.PitchRange)
	s.floats[ParamLofi].store(p.Lofi)
	s.floats[ParamOutputGain].store(p.OutputGain)
	s.voices.Store(int32(p.GrainVoices))
	s.freeze.Store(p.Freeze)
	s.sync.Store(p.TempoSync)
	s.limit.Store(p.LimiterEnabled)
}

// Set writes a single parameter by id. Boolean parameters are true when
// value > 0.5, matching host toggle conventions.
func (s *ParamStore) Set(id string, value float32) error {
	switch id {
	case ParamGrainVoices:
		s.voices.Store(int32(math.Round(float64(value))))
	case ParamFreeze:
		s.freeze.Store(value > 0.5)
	case ParamTempoSync:
		s.sync.Store(value > 0.5)
	case ParamLimiter:
		s.limit.Store(value > 0.5)
	default:
		c, ok := s.floats[id]
		if !ok {
			return fmt.Errorf("unknown parameter %q", id)
		}
		c.store(value)
	}
	return nil
}

// SetFreeze toggles the freeze control.
func (s *ParamStore) SetFreeze(on bool) {
	s.freeze.Store(on)
}

// Snapshot reads every cell once.
func (s *ParamStore) Snapshot() Params {
	return Params{
		DelayTime:          s.floats[ParamDelayTime].load(),
		GrainSizeMs:        s.floats[ParamGrainSize].load(),
		EnvelopeShape:      s.floats[ParamEnvelopeShape].load(),
		Distortion:         s.floats[ParamDistortion].load(),
		Feedback:           s.floats[ParamFeedback].load(),
		FeedbackSaturation: s.floats[ParamFeedbackSaturation].load(),
		Chaos:              s.floats[ParamChaos].load(),
		Character:          s.floats[ParamCharacter].load(),
		GrainVoices:        int(s.voices.Load()),
		Mix:                s.floats[ParamMix].load(),
		Freeze:             s.freeze.Load(),
		TempoSync:          s.sync.Load(),
		HostBPM:            s.floats[ParamHostBPM].load(),
		BufferPosition:     s.floats[ParamBufferPosition].load(),
		StereoSpread:       s.floats[ParamStereoSpread].load(),
		ReverseProbability: s.floats[ParamReverse].load(),
		PitchRange:         s.floats[ParamPitchRange].load(),
		Lofi:               s.floats[ParamLofi].load(),
		OutputGain:         s.floats[ParamOutputGain].load(),
		LimiterEnabled:     s.limit.Load(),
	}
}
