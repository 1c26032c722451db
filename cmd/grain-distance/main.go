package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-grain/analysis"
	"github.com/cwbudde/algo-grain/grain"
	fitcommon "github.com/cwbudde/algo-grain/internal/fitcommon"
	"github.com/cwbudde/algo-grain/preset"
)

type report struct {
	Metrics analysis.Metrics    `json:"metrics"`
	Bands   []analysis.BandDiff `json:"bands,omitempty"`
}

func main() {
	referencePath := flag.String("reference", "", "Reference WAV path (required)")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render the candidate through the engine")
	presetPath := flag.String("preset", "", "Preset JSON path for the rendered candidate")
	inputPath := flag.String("input", "", "Dry input WAV for the rendered candidate (overrides the preset's input_wav_path)")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	blockSize := flag.Int("block-size", 256, "Render block size")
	seed := flag.Int64("seed", grain.DefaultSeed, "Engine seed for the rendered candidate")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	bands := flag.Bool("bands", true, "Include per-band spectral differences")
	fftSize := flag.Int("fft-size", 4096, "STFT size for band analysis")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	if *referencePath == "" {
		die("-reference is required")
	}
	refRaw, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err := fitcommon.ResampleIfNeeded(refRaw, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	var cand []float64
	if *candidatePath != "" {
		candRaw, candSR, err := fitcommon.ReadWAVMono(*candidatePath)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
		if cand, err = fitcommon.ResampleIfNeeded(candRaw, candSR, *sampleRate); err != nil {
			die("failed to resample candidate: %v", err)
		}
	} else {
		l, r, err := renderFromPreset(*presetPath, *inputPath, len(ref), *sampleRate, *blockSize, *seed)
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		cand = fitcommon.MixToMono(l, r)
		if *writeCandidate != "" {
			if err := fitcommon.WriteStereoWAV(*writeCandidate, l, r, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	rep := report{Metrics: analysis.Compare(ref, cand, *sampleRate)}
	if *bands {
		if rep.Bands, err = analysis.CompareBands(ref, cand, *sampleRate, *fftSize, analysis.DefaultBands); err != nil {
			die("band analysis failed: %v", err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printReport(rep)
}

// renderFromPreset renders frames of engine output for the preset's (or the
// given) dry input, padding the input with silence.
func renderFromPreset(presetPath, inputPath string, frames, sampleRate, blockSize int, seed int64) ([]float32, []float32, error) {
	params := grain.NewDefaultParams()
	if presetPath != "" {
		pr, err := preset.Load(presetPath)
		if err != nil {
			return nil, nil, err
		}
		params = pr.Params
		if inputPath == "" {
			inputPath = pr.InputWAVPath
		}
	}
	if inputPath == "" {
		return nil, nil, errors.New("no dry input: pass -input or set input_wav_path in the preset")
	}
	if frames < 1 {
		return nil, nil, errors.New("reference is empty")
	}
	blockSize = max(blockSize, 16)

	l, r, sr, err := fitcommon.ReadWAVStereo(inputPath)
	if err != nil {
		return nil, nil, err
	}
	if l, r, err = fitcommon.ResampleStereoIfNeeded(l, r, sr, sampleRate); err != nil {
		return nil, nil, err
	}

	e, err := grain.NewEngine(float64(sampleRate), blockSize, grain.WithSeed(seed))
	if err != nil {
		return nil, nil, err
	}
	inL := make([]float32, frames)
	inR := make([]float32, frames)
	copy(inL, fitcommon.ToFloat32(l))
	copy(inR, fitcommon.ToFloat32(r))
	outL := make([]float32, frames)
	outR := make([]float32, frames)
	for pos := 0; pos < frames; pos += blockSize {
		end := fitcommon.MinInt(pos+blockSize, frames)
		e.ProcessBlock(inL[pos:end], inR[pos:end], outL[pos:end], outR[pos:end], *params)
	}
	return outL, outR, nil
}

func printReport(rep report) {
	m := rep.Metrics
	fmt.Printf("Reference frames: %d\n", m.ReferenceFrames)
	fmt.Printf("Candidate frames: %d\n", m.CandidateFrames)
	fmt.Printf("Aligned frames:   %d\n", m.AlignedFrames)
	fmt.Printf("Lag:              %d samples (%.3f ms)\n", m.LagSamples, 1000.0*float64(m.LagSamples)/float64(max(m.SampleRate, 1)))
	fmt.Println()
	fmt.Printf("Time RMSE:        %.6f\n", m.TimeRMSE)
	fmt.Printf("Envelope RMSE:    %.1f dB\n", m.EnvelopeRMSEDB)
	fmt.Printf("Spectral RMSE:    %.1f dB\n", m.SpectralRMSEDB)
	fmt.Printf("Decay slopes:     ref=%.1f dB/s  cand=%.1f dB/s  diff=%.1f dB/s\n", m.RefDecayDBPerS, m.CandDecayDBPerS, m.DecayDiffDBPerS)
	fmt.Printf("Centroid:         ref=%.0f Hz  cand=%.0f Hz\n", m.RefCentroidHz, m.CandCentroidHz)
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Printf("Similarity:       %.2f%%\n", m.Similarity*100.0)

	if len(rep.Bands) == 0 {
		return
	}
	fmt.Println()
	for _, b := range rep.Bands {
		marker := ""
		if b.RMSEDB > 15 {
			marker = " <<<"
		}
		if b.RMSEDB > 25 {
			marker = " <<< !!!"
		}
		fmt.Printf("  %-22s RMSE=%5.1fdB  ref=%6.1fdB  cand=%6.1fdB  diff=%+5.1fdB%s\n",
			b.Band, b.RMSEDB, b.RefDB, b.CandDB, b.CandDB-b.RefDB, marker)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
