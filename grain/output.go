package grain

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/effects"
)

const (
	limiterThresholdDB = -0.3
	limiterReleaseMs   = 50
	minLofiBitDepth    = 4
	maxLofiBitDepth    = 16
	maxLofiDownsample  = 8
)

// outputStage colors the wet signal, mixes it with the dry input and applies
// the downstream output gain and limiter.
type outputStage struct {
	distortion [2]*effects.Distortion
	crusher    [2]*effects.BitCrusher
	limiter    [2]*effects.Limiter

	distortionAmount float32
	lofiAmount       float32
}

func newOutputStage(sampleRate float64) (*outputStage, error) {
	o := &outputStage{distortionAmount: -1, lofiAmount: -1}
	for ch := 0; ch < 2; ch++ {
		d, err := effects.NewDistortion(sampleRate,
			effects.WithDistortionMode(effects.DistortionModeTanh),
			effects.WithDistortionDrive(1),
		)
		if err != nil {
			return nil, fmt.Errorf("wet distortion: %w", err)
		}
		bc, err := effects.NewBitCrusher(sampleRate,
			effects.WithBitCrusherBitDepth(maxLofiBitDepth),
			effects.WithBitCrusherDownsample(1),
			effects.WithBitCrusherMix(1),
		)
		if err != nil {
			return nil, fmt.Errorf("lofi crusher: %w", err)
		}
		lim, err := effects.NewLimiter(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("output limiter: %w", err)
		}
		if err := lim.SetThreshold(limiterThresholdDB); err != nil {
			return nil, fmt.Errorf("output limiter: %w", err)
		}
		if err := lim.SetRelease(limiterReleaseMs); err != nil {
			return nil, fmt.Errorf("output limiter: %w", err)
		}
		o.distortion[ch] = d
		o.crusher[ch] = bc
		o.limiter[ch] = lim
	}
	return o, nil
}

// update retunes the wet effects when their amounts changed (percentages).
func (o *outputStage) update(distortion, lofi float32) {
	if distortion != o.distortionAmount {
		o.distortionAmount = distortion
		drive := 1 + float64(distortion)*0.19
		for _, d := range o.distortion {
			_ = d.SetDrive(drive)
		}
	}
	if lofi != o.lofiAmount {
		o.lofiAmount = lofi
		amt := float64(lofi) / 100
		bits := maxLofiBitDepth - amt*(maxLofiBitDepth-minLofiBitDepth)
		down := 1 + int(amt*(maxLofiDownsample-1)+0.5)
		for _, bc := range o.crusher {
			_ = bc.SetBitDepth(bits)
			_ = bc.SetDownsample(down)
		}
	}
}

// colorWet applies distortion and lo-fi to one wet sample of channel ch.
func (o *outputStage) colorWet(ch int, x float32) float32 {
	y := float64(x)
	if o.distortionAmount > 0 {
		y = o.distortion[ch].ProcessSample(y)
	}
	if o.lofiAmount > 0 {
		y = o.crusher[ch].ProcessSample(y)
	}
	return finiteOr0(float32(y))
}

// mix blends dry and wet, then applies output gain and the limiter.
func (o *outputStage) mix(ch int, dry, wet, mix, gain float32, limit bool) float32 {
	y := (dry*(1-mix) + wet*mix) * gain
	if limit {
		y = float32(o.limiter[ch].ProcessSample(float64(y)))
	}
	return finiteOr0(y)
}

func (o *outputStage) reset() {
	for ch := 0; ch < 2; ch++ {
		o.distortion[ch].Reset()
		o.crusher[ch].Reset()
		o.limiter[ch].Reset()
	}
}
