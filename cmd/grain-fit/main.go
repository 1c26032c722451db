package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-grain/grain"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
	"github.com/cwbudde/algo-grain/preset"
)

func main() {
	inputPath := flag.String("input", "", "Dry input WAV fed to the engine (required)")
	referencePath := flag.String("reference", "", "Wet reference WAV to match (required)")
	presetPath := flag.String("preset", "", "Base preset JSON path (optional)")
	outputPreset := flag.String("output-preset", "out/fit/fitted.json", "Path to write best fitted preset JSON")
	outputRender := flag.String("output-render", "", "Optional WAV path for the best candidate's render")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	optimize := flag.String("optimize", "time,feedback,mix", "Comma-separated knob groups to optimize: time, texture, feedback, mix")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	blockSize := flag.Int("block-size", 256, "Audio render block size for candidate evaluation")
	renderSeed := flag.Int64("render-seed", grain.DefaultSeed, "Engine seed used for every candidate render")
	seed := flag.Int64("seed", 1, "Optimizer random seed")
	timeBudget := flag.Float64("time-budget", 120.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 5000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	checkpointEvery := flag.Int("checkpoint-every", 1, "Write checkpoint every N best-score improvements")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")
	workers := flag.String("workers", "1", "Parallel optimization workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *inputPath == "" || *referencePath == "" {
		die("-input and -reference are required")
	}
	groups, err := parseOptimizeGroups(*optimize)
	if err != nil {
		die("invalid -optimize: %v", err)
	}
	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	*reportEvery = max(*reportEvery, 1)
	*checkpointEvery = max(*checkpointEvery, 1)
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, *mayflyPop*2)
	*topK = max(*topK, 1)
	parsedWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	baseParams := grain.NewDefaultParams()
	if *presetPath != "" {
		if baseParams, err = preset.LoadJSON(*presetPath); err != nil {
			die("failed to load preset: %v", err)
		}
	}

	inL, inR, err := loadStereo(*inputPath, *sampleRate)
	if err != nil {
		die("failed to read input: %v", err)
	}
	refRaw, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err := fitcommon.ResampleIfNeeded(refRaw, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	defs, initCand := initCandidate(baseParams, groups)
	if *resume {
		resumePath := *reportPath
		if resumePath == "" {
			resumePath = *outputPreset + ".report.json"
		}
		if resumed, ok, err := loadCandidateFromReport(resumePath, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", resumePath, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", resumePath)
		}
	}
	fmt.Printf("Fitting %d knobs against %s (%.2fs at %d Hz)\n", len(defs), *referencePath, float64(len(ref))/float64(*sampleRate), *sampleRate)

	cfg := &optimizationConfig{
		inputL:           inL,
		inputR:           inR,
		reference:        ref,
		baseParams:       baseParams,
		defs:             defs,
		initCandidate:    initCand,
		sampleRate:       *sampleRate,
		blockSize:        *blockSize,
		renderSeed:       *renderSeed,
		seed:             *seed,
		timeBudget:       *timeBudget,
		maxEvals:         *maxEvals,
		reportEvery:      *reportEvery,
		checkpointEvery:  *checkpointEvery,
		mayflyVariant:    *mayflyVariant,
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
		out: outputPaths{
			preset:        *outputPreset,
			report:        *reportPath,
			render:        *outputRender,
			referencePath: *referencePath,
			inputPath:     *inputPath,
			basePreset:    *presetPath,
		},
	}

	result, err := runOptimization(cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}
	snap := reportSnapshot{
		elapsed:     result.elapsed,
		evals:       result.evals,
		variant:     strings.ToLower(*mayflyVariant),
		best:        result.best,
		eval:        result.bestEval,
		checkpoints: result.checkpoints,
		top:         result.top,
	}
	if err := writeOutputs(cfg, snap); err != nil {
		die("failed to write outputs: %v", err)
	}

	m := result.bestEval.metrics
	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n", result.evals, result.elapsed, m.Score, m.Similarity*100.0, snap.variant)
}

func loadStereo(path string, sampleRate int) ([]float32, []float32, error) {
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

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}

	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = fitcommon.Clamp(v, d.Min, d.Max)
			if d.IsInt {
				vals[i] = math.Round(vals[i])
			}
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
