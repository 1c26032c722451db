package fitcommon

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadWAVStereo decodes a WAV file into left/right channels. Mono files are
// duplicated to both sides; channels beyond the second are ignored.
func ReadWAVStereo(path string) ([]float64, []float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i] = float64(buf.Data[i*ch])
		if ch > 1 {
			right[i] = float64(buf.Data[i*ch+1])
		} else {
			right[i] = left[i]
		}
	}
	return left, right, buf.Format.SampleRate, nil
}

// ReadWAVMono decodes a WAV file and averages its first two channels.
func ReadWAVMono(path string) ([]float64, int, error) {
	l, r, sr, err := ReadWAVStereo(path)
	if err != nil {
		return nil, 0, err
	}
	out := make([]float64, len(l))
	for i := range l {
		out[i] = 0.5 * (l[i] + r[i])
	}
	return out, sr, nil
}

func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, fmt.Errorf("resample %d->%d: %w", fromRate, toRate, err)
	}
	return r.Process(in), nil
}

// ResampleStereoIfNeeded converts both channels with independent resamplers.
func ResampleStereoIfNeeded(left, right []float64, fromRate, toRate int) ([]float64, []float64, error) {
	l, err := ResampleIfNeeded(left, fromRate, toRate)
	if err != nil {
		return nil, nil, err
	}
	r, err := ResampleIfNeeded(right, fromRate, toRate)
	if err != nil {
		return nil, nil, err
	}
	n := MinInt(len(l), len(r))
	return l[:n], r[:n], nil
}

func WriteStereoWAV(path string, left []float32, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("left/right length mismatch")
	}
	data := make([]float32, len(left)*2)
	for i := 0; i < len(left); i++ {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	return writeWAV(path, data, sampleRate, 2)
}

func WriteMonoWAV(path string, data []float32, sampleRate int) error {
	return writeWAV(path, data, sampleRate, 1)
}

func writeWAV(path string, samples []float32, sampleRate int, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

// MixToMono averages two channels.
func MixToMono(left, right []float32) []float64 {
	n := MinInt(len(left), len(right))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.5 * (float64(left[i]) + float64(right[i]))
	}
	return out
}

// StereoRMS returns the RMS over both channels.
func StereoRMS(left, right []float32) float64 {
	n := len(left) + len(right)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, s := range left {
		sum += float64(s) * float64(s)
	}
	for _, s := range right {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}

// StereoPeak returns the largest absolute sample over both channels.
func StereoPeak(left, right []float32) float64 {
	var peak float64
	for _, ch := range [][]float32{left, right} {
		for _, s := range ch {
			if a := math.Abs(float64(s)); a > peak {
				peak = a
			}
		}
	}
	return peak
}

func ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
