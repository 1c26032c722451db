package grain

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-grain/dsp"
)

const (
	DefaultSampleRate      = 48000.0
	DefaultMaxBlockSize    = 512
	DefaultMaxDelaySeconds = 4.0
	DefaultSeed            = 1

	maxSampleRate = 768000.0
	grainTravel   = 4
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSeed sets the random seed used for chaos decisions.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithMaxDelaySeconds sets the delay store length.
func WithMaxDelaySeconds(seconds float64) Option {
	return func(e *Engine) {
		if seconds > 0 && !math.IsInf(seconds, 0) {
			e.maxDelaySeconds = seconds
		}
	}
}

// WithInterpolation selects the fractional read kernel.
func WithInterpolation(mode dsp.Interpolation) Option {
	return func(e *Engine) { e.interpolation = mode }
}

// Engine is the granular delay. It is owned by a single audio goroutine:
// ProcessBlock, Configure and Reset must not run concurrently. Parameters
// arrive as a Params snapshot per block (see ParamStore).
type Engine struct {
	sampleRate      float64
	maxBlockSize    int
	maxDelaySeconds float64
	seed            int64
	interpolation   dsp.Interpolation

	rng       *rand.Rand
	store     *dsp.DelayStore
	pool      *VoicePool
	scheduler *Scheduler
	feedback  *FeedbackController
	output    *outputStage

	wetL, wetR []float32

	grainsSpawned uint64
	grainsSkipped uint64
}

// NewEngine creates and configures an engine.
func NewEngine(sampleRate float64, maxBlockSize int, opts ...Option) (*Engine, error) {
	e := &Engine{
		maxDelaySeconds: DefaultMaxDelaySeconds,
		seed:            DefaultSeed,
		interpolation:   dsp.InterpHermite,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.rng = rand.New(rand.NewSource(e.seed))
	e.pool = NewVoicePool(e.rng)
	e.scheduler = NewScheduler(e.rng)
	if err := e.Configure(sampleRate, maxBlockSize); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure (re)allocates the delay store and scratch buffers for a sample
// rate and maximum block size, and resets all state. Invalid values fall back
// to 48 kHz / 512 frames.
func (e *Engine) Configure(sampleRate float64, maxBlockSize int) error {
	if !(sampleRate > 0) || sampleRate > maxSampleRate || math.IsInf(sampleRate, 0) {
		sampleRate = DefaultSampleRate
	}
	if maxBlockSize < 1 {
		maxBlockSize = DefaultMaxBlockSize
	}
	e.sampleRate = sampleRate
	e.maxBlockSize = maxBlockSize

	capacity := int(math.Ceil(sampleRate * e.maxDelaySeconds))
	if e.store == nil {
		e.store = dsp.NewDelayStore(2, capacity, e.interpolation)
	} else {
		e.store.Resize(2, capacity)
	}
	e.pool.SetMaxOffset(e.store.MaxOffset())

	if e.feedback == nil {
		e.feedback = NewFeedbackController(sampleRate)
	} else {
		e.feedback.SetSampleRate(sampleRate)
	}

	out, err := newOutputStage(sampleRate)
	if err != nil {
		return fmt.Errorf("configure output stage: %w", err)
	}
	e.output = out

	e.wetL = make([]float32, maxBlockSize)
	e.wetR = make([]float32, maxBlockSize)

	e.Reset()
	return nil
}

// Reset clears the store and all voice, scheduler, freeze and effect state
// without reallocating. The random sequence restarts from the seed.
func (e *Engine) Reset() {
	e.store.Clear()
	e.pool.Reset()
	e.scheduler.Reset()
	e.feedback.Reset()
	e.output.reset()
	e.rng.Seed(e.seed)
	e.grainsSpawned = 0
	e.grainsSkipped = 0
}

// ProcessBlock renders min(len(inL), len(inR), len(outL), len(outR)) frames.
// Outputs may alias inputs. Blocks larger than the configured maximum are
// processed in chunks.
func (e *Engine) ProcessBlock(inL, inR, outL, outR []float32, p Params) {
	n := min(len(inL), len(inR), len(outL), len(outR))
	p = p.Clamped()
	for start := 0; start < n; start += e.maxBlockSize {
		end := start + e.maxBlockSize
		if end > n {
			end = n
		}
		e.processChunk(inL[start:end], inR[start:end], outL[start:end], outR[start:end], &p)
	}
}

func (e *Engine) processChunk(inL, inR, outL, outR []float32, p *Params) {
	numFrames := len(inL)
	chaos := p.Chaos / 100
	character := p.Character / 100

	delaySeconds := TempoQuantize(p.DelayTime, p.TempoSync, p.HostBPM)
	delaySamples := delaySeconds * float32(e.sampleRate)
	e.scheduler.Update(delaySeconds, e.sampleRate, character, chaos)
	e.feedback.SetFreeze(p.Freeze)
	e.output.update(p.Distortion, p.Lofi)
	e.pool.SetPitchRange(p.PitchRange / 100)

	grainLength := maxInt(1, int(p.GrainSizeMs/1000*float32(e.sampleRate)))
	spawn := SpawnParams{
		DelaySamples:       delaySamples,
		BufferOffset:       p.BufferPosition / 100 * bufferReach(e.store.MaxOffset(), delaySamples, grainLength),
		GrainLengthSamples: grainLength,
		Chaos:              chaos,
		Spread:             p.StereoSpread / 50,
		ReverseProbability: p.ReverseProbability / 100,
	}

	for i := 0; i < numFrames; i++ {
		if l, r, push := e.feedback.Next(inL[i], inR[i]); push {
			e.store.PushFrame(l, r)
			e.pool.TrackWrite()
		}

		if e.scheduler.Tick() {
			if idx, ok := e.pool.FindFreeVoice(p.GrainVoices); ok {
				e.pool.Spawn(idx, spawn)
				e.grainsSpawned++
			} else {
				e.grainsSkipped++
			}
		}

		wetL, wetR := e.pool.Process(e.store, p.EnvelopeShape, character)
		e.feedback.Update(wetL, wetR, p.Feedback, p.FeedbackSaturation)
		// Saturation colors the heard grains as well as the loop.
		e.wetL[i] = Saturate(wetL, p.FeedbackSaturation)
		e.wetR[i] = Saturate(wetR, p.FeedbackSaturation)
	}

	mix := p.Mix / 100
	for i := 0; i < numFrames; i++ {
		dryL := finiteOr0(inL[i])
		dryR := finiteOr0(inR[i])
		wetL := e.output.colorWet(0, e.wetL[i])
		wetR := e.output.colorWet(1, e.wetR[i])
		outL[i] = e.output.mix(0, dryL, wetL, mix, p.OutputGain, p.LimiterEnabled)
		outR[i] = e.output.mix(1, dryR, wetR, mix, p.OutputGain, p.LimiterEnabled)
	}
}

// bufferReach is the span buffer_position maps onto: the store minus the
// delay, its chaos jitter and the distance a grain can travel away from the
// write head (reverse at an octave up drifts 3 samples per sample).
func bufferReach(maxOffset, delaySamples float32, grainLength int) float32 {
	reach := maxOffset - delaySamples*1.25 - float32(grainLength)*grainTravel
	return max(reach, 0)
}

// SampleRate returns the configured sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// MaxBlockSize returns the configured chunk size.
func (e *Engine) MaxBlockSize() int { return e.maxBlockSize }

// Store exposes the delay store for inspection.
func (e *Engine) Store() *dsp.DelayStore { return e.store }

// Pool exposes the voice pool for inspection.
func (e *Engine) Pool() *VoicePool { return e.pool }

// ActiveVoices returns the number of playing grains.
func (e *Engine) ActiveVoices() int { return e.pool.ActiveCount() }

// Frozen reports whether input capture is halted.
func (e *Engine) Frozen() bool { return e.feedback.Frozen() }

// InputGainRamp returns the current fresh-input gain.
func (e *Engine) InputGainRamp() float32 { return e.feedback.InputGainRamp() }

// FeedbackSample returns the pending recirculation frame.
func (e *Engine) FeedbackSample() (float32, float32) { return e.feedback.FeedbackSample() }

// GrainsSpawned counts grains started since the last reset.
func (e *Engine) GrainsSpawned() uint64 { return e.grainsSpawned }

// GrainsSkipped counts scheduler triggers that found no free voice.
func (e *Engine) GrainsSkipped() uint64 { return e.grainsSkipped }
