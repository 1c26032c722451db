package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/cwbudde/algo-grain/grain"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
	"github.com/cwbudde/algo-grain/preset"
)

type renderConfig struct {
	sampleRate  int
	blockSize   int
	seed        int64
	duration    float64 // fixed length; ignored when tailDBFS is finite
	tailDBFS    float64
	holdBlocks  int
	maxDuration float64
	automation  []preset.Automation
}

type renderStats struct {
	frames        int
	grainsSpawned uint64
	grainsSkipped uint64
}

func main() {
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	inputPath := flag.String("input", "", "Input WAV path (overrides the preset's input_wav_path)")
	signal := flag.String("signal", "pulse", "Synthetic input when no WAV is given: pulse|sine|noise|chirp")
	signalSeconds := flag.Float64("signal-seconds", 1.0, "Length of the synthetic input in seconds")
	duration := flag.Float64("duration", 6.0, "Render duration in seconds")
	tailDBFS := flag.Float64("tail-dbfs", math.Inf(-1), "Auto-stop once the input and one maximum delay time have passed and stereo block RMS falls below this dBFS (e.g. -90). Disabled by default")
	holdBlocks := flag.Int("tail-hold-blocks", 8, "Consecutive below-threshold blocks required to stop in auto-stop mode")
	maxDuration := flag.Float64("max-duration", 60.0, "Maximum render duration in seconds when using -tail-dbfs")
	freezeAt := flag.String("freeze-at", "off", "Engage freeze at this time in seconds")
	unfreezeAt := flag.String("unfreeze-at", "off", "Release freeze at this time in seconds")
	set := flag.String("set", "", "Parameter overrides, e.g. chaos=40,mix=100")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	blockSize := flag.Int("block-size", 256, "Processing block size in frames")
	seed := flag.Int64("seed", grain.DefaultSeed, "Random seed for chaos decisions")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	params := grain.NewDefaultParams()
	var automation []preset.Automation
	wavIn := *inputPath
	if *presetPath != "" {
		pr, err := preset.Load(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		params = pr.Params
		automation = pr.Automation
		if wavIn == "" {
			wavIn = pr.InputWAVPath
		}
	}

	store := grain.NewParamStore(params)
	if err := applyOverrides(store, *set); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -set: %v\n", err)
		os.Exit(1)
	}

	for _, f := range []struct {
		raw   string
		name  string
		value float32
	}{{*freezeAt, "-freeze-at", 1}, {*unfreezeAt, "-unfreeze-at", 0}} {
		sec, err := fitcommon.ParseSeconds(f.raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid %s: %v\n", f.name, err)
			os.Exit(1)
		}
		if sec >= 0 {
			automation = append(automation, preset.Automation{Time: sec, Param: grain.ParamFreeze, Value: f.value})
		}
	}
	sort.SliceStable(automation, func(i, j int) bool { return automation[i].Time < automation[j].Time })

	var inL, inR []float32
	var err error
	if wavIn != "" {
		inL, inR, err = loadInput(wavIn, *sampleRate)
		fmt.Printf("Input: %s (%d frames)\n", wavIn, len(inL))
	} else {
		inL, inR, err = synthInput(*signal, *signalSeconds, *sampleRate, *seed)
		fmt.Printf("Input: synthetic %s (%.2fs)\n", *signal, *signalSeconds)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing input: %v\n", err)
		os.Exit(1)
	}

	cfg := renderConfig{
		sampleRate:  *sampleRate,
		blockSize:   *blockSize,
		seed:        *seed,
		duration:    *duration,
		tailDBFS:    *tailDBFS,
		holdBlocks:  *holdBlocks,
		maxDuration: *maxDuration,
		automation:  automation,
	}
	p := store.Snapshot()
	fmt.Printf("Rendering at %d Hz: delay %.3fs, grain %.0fms, feedback %.0f%%, chaos %.0f%%, character %.0f%%, voices %d, mix %.0f%%\n",
		*sampleRate, p.DelayTime, p.GrainSizeMs, p.Feedback, p.Chaos, p.Character, p.GrainVoices, p.Mix)

	outL, outR, stats, err := renderEngine(store, inL, inR, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		os.Exit(1)
	}

	if err := fitcommon.WriteStereoWAV(*output, outL, outR, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	peak := fitcommon.StereoPeak(outL, outR)
	fmt.Printf("Grains: %d spawned, %d skipped (voice limit)\n", stats.grainsSpawned, stats.grainsSkipped)
	fmt.Printf("Successfully wrote %s (%d frames, %.3fs, peak %.1f dBFS)\n",
		*output, stats.frames, float64(stats.frames)/float64(*sampleRate), 20*math.Log10(math.Max(peak, 1e-12)))
}

// renderEngine feeds the input through a fresh engine block by block,
// applying automation events at block boundaries. Input shorter than the
// render is padded with silence so delay tails are captured.
func renderEngine(store *grain.ParamStore, inL, inR []float32, cfg renderConfig) ([]float32, []float32, renderStats, error) {
	var stats renderStats
	if cfg.blockSize < 1 {
		return nil, nil, stats, fmt.Errorf("block size must be >= 1")
	}
	if len(inL) != len(inR) {
		return nil, nil, stats, fmt.Errorf("input channel length mismatch: %d vs %d", len(inL), len(inR))
	}
	e, err := grain.NewEngine(float64(cfg.sampleRate), cfg.blockSize, grain.WithSeed(cfg.seed))
	if err != nil {
		return nil, nil, stats, err
	}

	autoStop := !math.IsInf(cfg.tailDBFS, -1)
	totalFrames := int(float64(cfg.sampleRate) * cfg.duration)
	if autoStop {
		totalFrames = int(float64(cfg.sampleRate) * cfg.maxDuration)
	}
	if totalFrames < 1 {
		totalFrames = 1
	}
	thresholdLin := math.Pow(10.0, cfg.tailDBFS/20.0)
	tailStart := tailStartFrame(len(inL), store.Snapshot(), cfg.sampleRate)
	hold := cfg.holdBlocks
	if hold < 1 {
		hold = 1
	}

	outL := make([]float32, 0, totalFrames)
	outR := make([]float32, 0, totalFrames)
	blockL := make([]float32, cfg.blockSize)
	blockR := make([]float32, cfg.blockSize)
	silence := make([]float32, cfg.blockSize)

	next := 0
	belowCount := 0
	rendered := 0
	for rendered < totalFrames {
		n := fitcommon.MinInt(cfg.blockSize, totalFrames-rendered)
		for next < len(cfg.automation) && int(cfg.automation[next].Time*float64(cfg.sampleRate)) <= rendered {
			ev := cfg.automation[next]
			if err := store.Set(ev.Param, ev.Value); err != nil {
				return nil, nil, stats, fmt.Errorf("automation at %.3fs: %w", ev.Time, err)
			}
			next++
		}

		srcL, srcR := silence[:n], silence[:n]
		if rendered < len(inL) {
			end := fitcommon.MinInt(rendered+n, len(inL))
			copy(blockL, inL[rendered:end])
			copy(blockR, inR[rendered:end])
			clear(blockL[end-rendered : n])
			clear(blockR[end-rendered : n])
			srcL, srcR = blockL[:n], blockR[:n]
		}

		e.ProcessBlock(srcL, srcR, blockL[:n], blockR[:n], store.Snapshot())
		outL = append(outL, blockL[:n]...)
		outR = append(outR, blockR[:n]...)
		rendered += n

		if autoStop && rendered >= tailStart {
			if fitcommon.StereoRMS(blockL[:n], blockR[:n]) < thresholdLin {
				belowCount++
				if belowCount >= hold {
					break
				}
			} else {
				belowCount = 0
			}
		}
	}

	stats.frames = rendered
	stats.grainsSpawned = e.GrainsSpawned()
	stats.grainsSkipped = e.GrainsSkipped()
	return outL, outR, stats, nil
}

// tailStartFrame is the first frame auto-stop may fire at: the input length
// plus the longest delay the params can produce. Tempo sync can snap the
// delay past MaxDelayTime (2 s at 27 BPM becomes one 2.22 s beat).
func tailStartFrame(inputFrames int, p grain.Params, sampleRate int) int {
	p = p.Clamped()
	delay := max(float64(grain.TempoQuantize(p.DelayTime, p.TempoSync, p.HostBPM)), grain.MaxDelayTime)
	return inputFrames + int(math.Ceil(delay*float64(sampleRate)))
}
