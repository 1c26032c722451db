package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/algo-grain/grain"
)

// File is the JSON schema for granular delay presets. Every field is optional
// and overrides the engine default when present.
type File struct {
	DelayTime          *float32 `json:"delay_time"`
	GrainSize          *float32 `json:"grain_size"`
	EnvelopeShape      *float32 `json:"envelope_shape"`
	Distortion         *float32 `json:"distortion_amount"`
	Feedback           *float32 `json:"feedback"`
	FeedbackSaturation *float32 `json:"feedback_saturation"`
	Chaos              *float32 `json:"chaos"`
	Character          *float32 `json:"character"`
	GrainVoices        *int     `json:"grain_voices"`
	Mix                *float32 `json:"mix"`
	Freeze             *bool    `json:"freeze"`
	TempoSync          *bool    `json:"tempo_sync"`
	HostBPM            *float32 `json:"host_bpm"`
	BufferPosition     *float32 `json:"buffer_position"`
	StereoSpread       *float32 `json:"stereo_spread"`
	ReverseProbability *float32 `json:"reverse_probability"`
	PitchRange         *float32 `json:"pitch_range"`
	Lofi               *float32 `json:"lofi"`
	OutputGain         *float32 `json:"output_gain"`
	Limiter            *bool    `json:"limiter"`

	InputWAVPath string       `json:"input_wav_path,omitempty"`
	Automation   []Automation `json:"automation,omitempty"`
}

// Automation is a timed parameter change, addressed by engine parameter id.
type Automation struct {
	Time  float64 `json:"time"` // seconds from render start
	Param string  `json:"param"`
	Value float32 `json:"value"`
}

// Preset is a loaded preset file.
type Preset struct {
	Params       *grain.Params
	InputWAVPath string
	Automation   []Automation // sorted by time
}

// Load reads a preset file and applies it on top of default params. A
// relative input_wav_path is resolved against the preset's directory.
func Load(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := grain.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}
	events, err := normalizeAutomation(f.Automation)
	if err != nil {
		return nil, err
	}

	out := &Preset{Params: p, Automation: events}
	if in := strings.TrimSpace(f.InputWAVPath); in != "" {
		if !filepath.IsAbs(in) {
			in = filepath.Clean(filepath.Join(filepath.Dir(path), in))
		}
		out.InputWAVPath = in
	}
	return out, nil
}

// LoadJSON loads only the parameter part of a preset file.
func LoadJSON(path string) (*grain.Params, error) {
	pr, err := Load(path)
	if err != nil {
		return nil, err
	}
	return pr.Params, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *grain.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	ranged := []struct {
		name     string
		src      *float32
		dst      *float32
		min, max float32
	}{
		{grain.ParamDelayTime, f.DelayTime, &dst.DelayTime, grain.MinDelayTime, grain.MaxDelayTime},
		{grain.ParamGrainSize, f.GrainSize, &dst.GrainSizeMs, grain.MinGrainSizeMs, grain.MaxGrainSizeMs},
		{grain.ParamEnvelopeShape, f.EnvelopeShape, &dst.EnvelopeShape, 0, 1},
		{grain.ParamDistortion, f.Distortion, &dst.Distortion, 0, 100},
		{grain.ParamFeedback, f.Feedback, &dst.Feedback, 0, 100},
		{grain.ParamFeedbackSaturation, f.FeedbackSaturation, &dst.FeedbackSaturation, 0, 100},
		{grain.ParamChaos, f.Chaos, &dst.Chaos, 0, 100},
		{grain.ParamCharacter, f.Character, &dst.Character, 0, 100},
		{grain.ParamMix, f.Mix, &dst.Mix, 0, 100},
		{grain.ParamHostBPM, f.HostBPM, &dst.HostBPM, grain.MinBPM, grain.MaxBPM},
		{grain.ParamBufferPosition, f.BufferPosition, &dst.BufferPosition, 0, 100},
		{grain.ParamStereoSpread, f.StereoSpread, &dst.StereoSpread, 0, 100},
		{grain.ParamReverse, f.ReverseProbability, &dst.ReverseProbability, 0, 100},
		{grain.ParamPitchRange, f.PitchRange, &dst.PitchRange, 0, 100},
		{grain.ParamLofi, f.Lofi, &dst.Lofi, 0, 100},
	}
	for _, r := range ranged {
		if r.src == nil {
			continue
		}
		if *r.src < r.min || *r.src > r.max {
			return fmt.Errorf("%s must be in [%g,%g]", r.name, r.min, r.max)
		}
		*r.dst = *r.src
	}

	if f.GrainVoices != nil {
		if *f.GrainVoices < 1 || *f.GrainVoices > grain.MaxVoices {
			return fmt.Errorf("grain_voices must be in [1,%d]", grain.MaxVoices)
		}
		dst.GrainVoices = *f.GrainVoices
	}
	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.Freeze != nil {
		dst.Freeze = *f.Freeze
	}
	if f.TempoSync != nil {
		dst.TempoSync = *f.TempoSync
	}
	if f.Limiter != nil {
		dst.LimiterEnabled = *f.Limiter
	}
	return nil
}

func normalizeAutomation(in []Automation) ([]Automation, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := grain.NewParamStore(nil)
	out := make([]Automation, len(in))
	copy(out, in)
	for i, ev := range out {
		if ev.Time < 0 {
			return nil, fmt.Errorf("automation[%d].time must be >= 0", i)
		}
		if err := ids.Set(ev.Param, ev.Value); err != nil {
			return nil, fmt.Errorf("automation[%d]: %w", i, err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// FromParams builds a File carrying every engine parameter of p.
func FromParams(p grain.Params) *File {
	voices := p.GrainVoices
	return &File{
		DelayTime:          &p.DelayTime,
		GrainSize:          &p.GrainSizeMs,
		EnvelopeShape:      &p.EnvelopeShape,
		Distortion:         &p.Distortion,
		Feedback:           &p.Feedback,
		FeedbackSaturation: &p.FeedbackSaturation,
		Chaos:              &p.Chaos,
		Character:          &p.Character,
		GrainVoices:        &voices,
		Mix:                &p.Mix,
		Freeze:             &p.Freeze,
		TempoSync:          &p.TempoSync,
		HostBPM:            &p.HostBPM,
		BufferPosition:     &p.BufferPosition,
		StereoSpread:       &p.StereoSpread,
		ReverseProbability: &p.ReverseProbability,
		PitchRange:         &p.PitchRange,
		Lofi:               &p.Lofi,
		OutputGain:         &p.OutputGain,
		Limiter:            &p.LimiterEnabled,
	}
}
