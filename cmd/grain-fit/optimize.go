package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-grain/analysis"
	"github.com/cwbudde/algo-grain/grain"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
	"github.com/cwbudde/mayfly"
)

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

type optimizationConfig struct {
	inputL, inputR   []float32
	reference        []float64
	baseParams       *grain.Params
	defs             []knobDef
	initCandidate    candidate
	sampleRate       int
	blockSize        int
	renderSeed       int64
	seed             int64
	timeBudget       float64
	maxEvals         int
	reportEvery      int
	checkpointEvery  int
	mayflyVariant    string
	mayflyPop        int
	mayflyRoundEvals int
	workers          int
	topK             int
	out              outputPaths
}

type optimizationEval struct {
	metrics analysis.Metrics
	params  grain.Params
}

type optimizationResult struct {
	best        candidate
	bestEval    optimizationEval
	top         []topCandidate
	evals       int
	elapsed     float64
	checkpoints int
}

type optimizationState struct {
	mu          sync.Mutex
	best        candidate
	bestEval    optimizationEval
	top         []topCandidate
	checkpoints int
}

func runOptimization(cfg *optimizationConfig) (*optimizationResult, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))
	variant := strings.ToLower(cfg.mayflyVariant)

	best := cloneCandidate(cfg.initCandidate)
	initialEval, err := evaluateCandidate(cfg, best)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", initialEval.metrics.Score, initialEval.metrics.Similarity*100.0)

	state := &optimizationState{
		best:     best,
		bestEval: initialEval,
		top:      updateTopCandidates(nil, cfg.topK, 1, initialEval.metrics, cfg.defs, best),
	}

	if _, err := os.Stat(cfg.out.preset); err != nil && errors.Is(err, os.ErrNotExist) {
		snap := reportSnapshot{elapsed: time.Since(start).Seconds(), evals: 1, variant: variant, best: best, eval: initialEval, top: state.top}
		if err := writeOutputs(cfg, snap); err != nil {
			fmt.Fprintf(os.Stderr, "initial write failed: %v\n", err)
		}
	}

	var evals int64 = 1
	var rounds int64
	var improves int64
	var outputMu sync.Mutex
	var latestPersistedImprove int64

	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if time.Now().After(deadline) {
					return
				}
				round := int(atomic.AddInt64(&rounds, 1))
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				budget := fitcommon.MinInt(cfg.mayflyRoundEvals, remaining)
				iters := max(1, budget/(2*cfg.mayflyPop))

				mayflyConfig, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), iters)
				if err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d setup failed: %v\n", round, err)
					return
				}
				mayflyConfig.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
				mayflyConfig.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fromNormalized(pos, cfg.defs)
					evalRes, err := evaluateCandidate(cfg, cand)
					if err != nil {
						return currentBestScore(state) + 0.8
					}

					var snap reportSnapshot
					improved := false
					checkpointDue := false
					var improveNum int64

					state.mu.Lock()
					state.top = updateTopCandidates(state.top, cfg.topK, int(evalNum), evalRes.metrics, cfg.defs, cand)
					if evalRes.metrics.Score < state.bestEval.metrics.Score {
						state.best = cloneCandidate(cand)
						state.bestEval = evalRes
						improved = true
						improveNum = atomic.AddInt64(&improves, 1)
						checkpointDue = improveNum%int64(cfg.checkpointEvery) == 0
						snap = reportSnapshot{
							variant: variant,
							best:    cloneCandidate(state.best),
							eval:    state.bestEval,
							top:     cloneTopCandidates(state.top),
						}
					}
					bestScore := state.bestEval.metrics.Score
					state.mu.Unlock()

					if improved {
						fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", improveNum, evalNum, snap.eval.metrics.Score, snap.eval.metrics.Similarity*100.0)
						outputMu.Lock()
						if checkpointDue && improveNum > latestPersistedImprove {
							latestPersistedImprove = improveNum
							state.mu.Lock()
							snap.checkpoints = state.checkpoints + 1
							state.mu.Unlock()
							snap.elapsed = time.Since(start).Seconds()
							snap.evals = int(atomic.LoadInt64(&evals))
							if err := writeOutputs(cfg, snap); err != nil {
								fmt.Fprintf(os.Stderr, "checkpoint write failed: %v\n", err)
							} else {
								state.mu.Lock()
								state.checkpoints = max(state.checkpoints, snap.checkpoints)
								state.mu.Unlock()
							}
						}
						outputMu.Unlock()
					}

					if cfg.reportEvery > 0 && evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Printf("Progress eval=%d/%d elapsed=%.1fs best=%.4f\n", evalNum, cfg.maxEvals, time.Since(start).Seconds(), bestScore)
					}
					return evalRes.metrics.Score
				}

				if _, err := runMayfly(mayflyConfig); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	defer state.mu.Unlock()
	return &optimizationResult{
		best:        cloneCandidate(state.best),
		bestEval:    state.bestEval,
		top:         cloneTopCandidates(state.top),
		evals:       int(atomic.LoadInt64(&evals)),
		elapsed:     time.Since(start).Seconds(),
		checkpoints: state.checkpoints,
	}, nil
}

func evaluateCandidate(cfg *optimizationConfig, cand candidate) (optimizationEval, error) {
	params, err := applyCandidate(cfg.baseParams, cfg.defs, cand)
	if err != nil {
		return optimizationEval{}, err
	}
	mono, err := renderCandidate(params, cfg.inputL, cfg.inputR, len(cfg.reference), cfg.sampleRate, cfg.blockSize, cfg.renderSeed)
	if err != nil {
		return optimizationEval{}, err
	}
	return optimizationEval{
		metrics: analysis.Compare(cfg.reference, mono, cfg.sampleRate),
		params:  params,
	}, nil
}

// renderCandidate runs a fresh engine over the dry input, padded with
// silence to frames, and returns the mono mix of the output.
func renderCandidate(params grain.Params, inL, inR []float32, frames, sampleRate, blockSize int, seed int64) ([]float64, error) {
	outL, outR, err := renderStereo(params, inL, inR, frames, sampleRate, blockSize, seed)
	if err != nil {
		return nil, err
	}
	return fitcommon.MixToMono(outL, outR), nil
}

func renderStereo(params grain.Params, inL, inR []float32, frames, sampleRate, blockSize int, seed int64) ([]float32, []float32, error) {
	if frames < 1 {
		return nil, nil, errors.New("render length must be >= 1 frame")
	}
	if len(inL) != len(inR) {
		return nil, nil, fmt.Errorf("input channel length mismatch: %d vs %d", len(inL), len(inR))
	}
	if blockSize < 16 {
		blockSize = 16
	}
	e, err := grain.NewEngine(float64(sampleRate), blockSize, grain.WithSeed(seed))
	if err != nil {
		return nil, nil, err
	}

	srcL := make([]float32, frames)
	srcR := make([]float32, frames)
	copy(srcL, inL)
	copy(srcR, inR)
	outL := make([]float32, frames)
	outR := make([]float32, frames)
	for pos := 0; pos < frames; pos += blockSize {
		end := fitcommon.MinInt(pos+blockSize, frames)
		e.ProcessBlock(srcL[pos:end], srcR[pos:end], outL[pos:end], outR[pos:end], params)
	}
	return outL, outR, nil
}

func cloneCandidate(c candidate) candidate {
	vals := make([]float64, len(c.Vals))
	copy(vals, c.Vals)
	return candidate{Vals: vals}
}

func cloneTopCandidates(in []topCandidate) []topCandidate {
	out := make([]topCandidate, len(in))
	for i := range in {
		entry := in[i]
		entry.Knobs = make(map[string]float64, len(in[i].Knobs))
		for k, v := range in[i].Knobs {
			entry.Knobs[k] = v
		}
		out[i] = entry
	}
	return out
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *optimizationState) float64 {
	state.mu.Lock()
	score := state.bestEval.metrics.Score
	state.mu.Unlock()
	return score
}

func updateTopCandidates(top []topCandidate, topK int, eval int, metrics analysis.Metrics, defs []knobDef, cand candidate) []topCandidate {
	entry := topCandidate{
		Eval:       eval,
		Score:      metrics.Score,
		Similarity: metrics.Similarity,
		Knobs:      make(map[string]float64, len(defs)),
	}
	for i, d := range defs {
		entry.Knobs[d.Name] = cand.Vals[i]
	}
	top = append(top, entry)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}
