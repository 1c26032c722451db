package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/interp"
)

// Interpolation selects the fractional read kernel of a DelayStore.
type Interpolation int

const (
	// InterpHermite uses 4-point cubic Hermite interpolation.
	InterpHermite Interpolation = iota
	// InterpLinear uses 2-point linear interpolation.
	InterpLinear
)

// guardSamples covers the neighbor reads of the widest kernel (Hermite reads
// one sample newer and two samples older than the integer position).
const guardSamples = 3

// DelayStore is a fixed-capacity multi-channel circular buffer with a single
// write cursor shared by all channels (no heap allocations in Push/Read).
//
// Channels advance in lockstep: the cursor moves only after the last channel
// of a frame has been pushed.
type DelayStore struct {
	channels [][]float32
	size     int
	writePos int
	pending  int
	mode     Interpolation
}

// NewDelayStore creates a store with the given channel count and capacity in
// samples. Non-positive arguments are clamped to 1 channel / guard size.
func NewDelayStore(numChannels, capacity int, mode Interpolation) *DelayStore {
	d := &DelayStore{mode: mode}
	d.Resize(numChannels, capacity)
	return d
}

// Resize reallocates the buffer. Content is cleared.
func (d *DelayStore) Resize(numChannels, capacity int) {
	if numChannels < 1 {
		numChannels = 1
	}
	if capacity < guardSamples+1 {
		capacity = guardSamples + 1
	}
	d.channels = make([][]float32, numChannels)
	for ch := range d.channels {
		d.channels[ch] = make([]float32, capacity)
	}
	d.size = capacity
	d.writePos = 0
	d.pending = 0
}

// Capacity returns the per-channel buffer length in samples.
func (d *DelayStore) Capacity() int {
	return d.size
}

// NumChannels returns the channel count.
func (d *DelayStore) NumChannels() int {
	return len(d.channels)
}

// Guard returns the number of samples at the old end of the buffer that
// cannot be addressed by Read.
func (d *DelayStore) Guard() int {
	return guardSamples
}

// MaxOffset returns the largest offset accepted by Read.
func (d *DelayStore) MaxOffset() float32 {
	return float32(d.size - guardSamples - 1)
}

// WritePos returns the shared write cursor.
func (d *DelayStore) WritePos() int {
	return d.writePos
}

// Push writes one sample for a channel. The cursor advances after the last
// channel of the frame is written. Non-finite samples are stored as silence.
func (d *DelayStore) Push(channel int, sample float32) {
	if channel < 0 || channel >= len(d.channels) {
		return
	}
	if math.IsNaN(float64(sample)) || math.IsInf(float64(sample), 0) {
		sample = 0
	}
	d.channels[channel][d.writePos] = sample
	d.pending++
	if d.pending >= len(d.channels) {
		d.pending = 0
		d.writePos++
		if d.writePos >= d.size {
			d.writePos = 0
		}
	}
}

// PushFrame writes one stereo frame. Extra channels beyond two receive the
// left sample.
func (d *DelayStore) PushFrame(left, right float32) {
	for ch := range d.channels {
		switch ch {
		case 0:
			d.Push(ch, left)
		case 1:
			d.Push(ch, right)
		default:
			d.Push(ch, left)
		}
	}
}

// at returns the sample written delay frames ago (delay 1 = newest).
func (d *DelayStore) at(buf []float32, delay int) float32 {
	idx := d.writePos - delay
	idx %= d.size
	if idx < 0 {
		idx += d.size
	}
	return buf[idx]
}

// Read returns the sample offset frames behind the write position, where an
// offset of 0 addresses the most recently completed frame. The offset is
// clamped to [0, MaxOffset]; invalid channels read silence.
func (d *DelayStore) Read(channel int, offset float32) float32 {
	if channel < 0 || channel >= len(d.channels) {
		return 0
	}
	if offset != offset || offset < 0 {
		offset = 0
	}
	if maxOff := d.MaxOffset(); offset > maxOff {
		offset = maxOff
	}
	buf := d.channels[channel]

	p := int(offset)
	t := offset - float32(p)
	// delay index p+1 is the sample at integer offset p.
	x0 := d.at(buf, p+1)
	x1 := d.at(buf, p+2)
	if d.mode == InterpLinear || t == 0 {
		return x0 + t*(x1-x0)
	}
	xm1 := x0
	if p > 0 {
		xm1 = d.at(buf, p)
	}
	x2 := d.at(buf, p+3)
	return float32(interp.Hermite4(float64(t), float64(xm1), float64(x0), float64(x1), float64(x2)))
}

// Clear zeroes content and rewinds the cursor without reallocating.
func (d *DelayStore) Clear() {
	for _, buf := range d.channels {
		for i := range buf {
			buf[i] = 0
		}
	}
	d.writePos = 0
	d.pending = 0
}

// Snapshot copies the raw content of a channel (allocates; not for the audio
// thread).
func (d *DelayStore) Snapshot(channel int) []float32 {
	if channel < 0 || channel >= len(d.channels) {
		return nil
	}
	out := make([]float32, d.size)
	copy(out, d.channels[channel])
	return out
}

// DCBlocker removes DC with a second-order Butterworth highpass.
type DCBlocker struct {
	section *biquad.Section
}

// NewDCBlocker creates a DC blocker with its corner at cutoffHz.
func NewDCBlocker(cutoffHz, sampleRate float32) *DCBlocker {
	b := &DCBlocker{section: biquad.NewSection(biquad.Coefficients{B0: 1})}
	b.SetCutoff(cutoffHz, sampleRate)
	return b
}

// SetCutoff redesigns the filter and keeps its state. Invalid values fall
// back to 10 Hz at 48 kHz.
func (b *DCBlocker) SetCutoff(cutoffHz, sampleRate float32) {
	if !(sampleRate > 0) || !(cutoffHz > 0) || cutoffHz >= sampleRate/2 {
		cutoffHz, sampleRate = 10, 48000
	}
	b.section.Coefficients = design.Highpass(float64(cutoffHz), 1/math.Sqrt2, float64(sampleRate))
}

// Process filters one sample.
func (b *DCBlocker) Process(x float32) float32 {
	y := b.section.ProcessSample(float64(x))
	if st := b.section.State(); math.Abs(st[0]) < denormalFloor && math.Abs(st[1]) < denormalFloor {
		b.section.Reset()
	}
	return FlushDenormals(float32(y))
}

// Reset clears the filter state.
func (b *DCBlocker) Reset() {
	b.section.Reset()
}

const denormalFloor = 1e-30

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	if x > -denormalFloor && x < denormalFloor {
		return 0.0
	}
	return x
}
