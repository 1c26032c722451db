package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-grain/analysis"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
	"github.com/cwbudde/algo-grain/preset"
)

type outputPaths struct {
	preset        string
	report        string // defaults to <preset>.report.json
	render        string // optional WAV of the best candidate
	referencePath string
	inputPath     string
	basePreset    string
}

type reportSnapshot struct {
	elapsed     float64
	evals       int
	variant     string
	best        candidate
	eval        optimizationEval
	checkpoints int
	top         []topCandidate
}

type runReport struct {
	ReferencePath   string             `json:"reference_path"`
	InputPath       string             `json:"input_path"`
	PresetPath      string             `json:"preset_path,omitempty"`
	OutputPreset    string             `json:"output_preset"`
	OutputRender    string             `json:"output_render,omitempty"`
	SampleRate      int                `json:"sample_rate"`
	RenderSeed      int64              `json:"render_seed"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	CheckpointCount int                `json:"checkpoint_count"`
	TopCandidates   []topCandidate     `json:"top_candidates,omitempty"`
}

func writeOutputs(cfg *optimizationConfig, s reportSnapshot) error {
	if err := writeJSON(cfg.out.preset, preset.FromParams(s.eval.params)); err != nil {
		return err
	}

	if cfg.out.render != "" {
		l, r, err := renderStereo(s.eval.params, cfg.inputL, cfg.inputR, len(cfg.reference), cfg.sampleRate, cfg.blockSize, cfg.renderSeed)
		if err != nil {
			return err
		}
		if err := fitcommon.WriteStereoWAV(cfg.out.render, l, r, cfg.sampleRate); err != nil {
			return err
		}
	}

	knobs := make(map[string]float64, len(cfg.defs))
	for i, d := range cfg.defs {
		knobs[d.Name] = s.best.Vals[i]
	}
	rep := runReport{
		ReferencePath:   cfg.out.referencePath,
		InputPath:       cfg.out.inputPath,
		PresetPath:      cfg.out.basePreset,
		OutputPreset:    cfg.out.preset,
		OutputRender:    cfg.out.render,
		SampleRate:      cfg.sampleRate,
		RenderSeed:      cfg.renderSeed,
		DurationSec:     s.elapsed,
		Evaluations:     s.evals,
		MayflyVariant:   s.variant,
		BestScore:       s.eval.metrics.Score,
		BestSimilarity:  s.eval.metrics.Similarity,
		BestMetrics:     s.eval.metrics,
		BestKnobs:       knobs,
		CheckpointCount: s.checkpoints,
		TopCandidates:   s.top,
	}
	reportPath := cfg.out.report
	if reportPath == "" {
		reportPath = cfg.out.preset + ".report.json"
	}
	return writeJSON(reportPath, rep)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
