package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-grain/grain"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

var validGroups = []string{"time", "texture", "feedback", "mix"}

// parseOptimizeGroups parses a comma-separated string of group names.
// Valid groups: time, texture, feedback, mix.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		known := false
		for _, g := range validGroups {
			if s == g {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown optimize group %q (valid: %s)", s, strings.Join(validGroups, ", "))
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

// initCandidate builds the knob table for the active groups. Knob names are
// engine parameter ids so a candidate applies through ParamStore.Set.
func initCandidate(base *grain.Params, groups map[string]bool) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 16)
	vals := make([]float64, 0, 16)
	addKnob := func(def knobDef, val float32) {
		defs = append(defs, def)
		vals = append(vals, float64(val))
	}

	if groups["time"] {
		addKnob(knobDef{Name: grain.ParamDelayTime, Min: grain.MinDelayTime, Max: grain.MaxDelayTime}, base.DelayTime)
		addKnob(knobDef{Name: grain.ParamGrainSize, Min: grain.MinGrainSizeMs, Max: grain.MaxGrainSizeMs}, base.GrainSizeMs)
		addKnob(knobDef{Name: grain.ParamEnvelopeShape, Min: 0, Max: 1}, base.EnvelopeShape)
		addKnob(knobDef{Name: grain.ParamBufferPosition, Min: 0, Max: 100}, base.BufferPosition)
	}
	if groups["texture"] {
		addKnob(knobDef{Name: grain.ParamChaos, Min: 0, Max: 100}, base.Chaos)
		addKnob(knobDef{Name: grain.ParamCharacter, Min: 0, Max: 100}, base.Character)
		addKnob(knobDef{Name: grain.ParamDistortion, Min: 0, Max: 100}, base.Distortion)
		addKnob(knobDef{Name: grain.ParamLofi, Min: 0, Max: 100}, base.Lofi)
		addKnob(knobDef{Name: grain.ParamReverse, Min: 0, Max: 100}, base.ReverseProbability)
		addKnob(knobDef{Name: grain.ParamPitchRange, Min: 0, Max: 100}, base.PitchRange)
		addKnob(knobDef{Name: grain.ParamGrainVoices, Min: 1, Max: grain.MaxVoices, IsInt: true}, float32(base.GrainVoices))
	}
	if groups["feedback"] {
		addKnob(knobDef{Name: grain.ParamFeedback, Min: 0, Max: 100}, base.Feedback)
		addKnob(knobDef{Name: grain.ParamFeedbackSaturation, Min: 0, Max: 100}, base.FeedbackSaturation)
	}
	if groups["mix"] {
		addKnob(knobDef{Name: grain.ParamMix, Min: 0, Max: 100}, base.Mix)
		addKnob(knobDef{Name: grain.ParamStereoSpread, Min: 0, Max: 100}, base.StereoSpread)
		addKnob(knobDef{Name: grain.ParamOutputGain, Min: 0.25, Max: 2.0}, base.OutputGain)
	}

	for i := range vals {
		vals[i] = fitcommon.Clamp(vals[i], defs[i].Min, defs[i].Max)
		if defs[i].IsInt {
			vals[i] = math.Round(vals[i])
		}
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns base with every knob of c written through a
// ParamStore, so clamping and toggle rules match host automation.
func applyCandidate(base *grain.Params, defs []knobDef, c candidate) (grain.Params, error) {
	store := grain.NewParamStore(base)
	for i, def := range defs {
		if err := store.Set(def.Name, float32(c.Vals[i])); err != nil {
			return grain.Params{}, fmt.Errorf("knob %s: %w", def.Name, err)
		}
	}
	return store.Snapshot(), nil
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = fitcommon.Clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}
