package grain

import (
	"math"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-grain/dsp"
)

const (
	// FeedbackCeiling caps the loop gain below unity.
	FeedbackCeiling = 0.95
	// UnfreezeRampSeconds is the fade-in time of fresh input after unfreeze.
	UnfreezeRampSeconds = 0.05

	saturationThreshold = 0.1 // percent
	safetyClampGain     = 0.5
	feedbackDCCutoffHz  = 8
	kneeExpLimit        = 20 // exp(-20) is below float32 resolution of 1
)

// Saturate is the loop waveshaper: linear below unity drive level, an
// exponential soft knee above, renormalized by the drive. amount is 0..100.
// The output magnitude never exceeds |x|.
func Saturate(x, amount float32) float32 {
	if amount < saturationThreshold || !isFinite(x) {
		return finiteOr0(x)
	}
	drive := 1 + clampf(amount, 0, 100)/100*20
	driven := x * drive
	a := absf(driven)
	if a < 1 {
		return driven / drive
	}
	// 1 + (1 - e^-(a-1)): continuous with unit slope at the knee, limit 2.
	soft := float32(2)
	if k := a - 1; k < kneeExpLimit {
		soft = clampf(2-approx.FastExp(-k), 1, 2)
	}
	if driven < 0 {
		soft = -soft
	}
	return soft / drive
}

// FeedbackController owns the freeze state machine, the input gain ramp and
// the recirculating feedback sample.
type FeedbackController struct {
	frozen               bool
	inputGainRamp        float32
	samplesSinceUnfreeze int
	rampSamples          int

	feedbackL, feedbackR float32
	dcL, dcR             *dsp.DCBlocker
}

// NewFeedbackController creates a controller for sampleRate.
func NewFeedbackController(sampleRate float64) *FeedbackController {
	f := &FeedbackController{
		dcL: dsp.NewDCBlocker(feedbackDCCutoffHz, float32(sampleRate)),
		dcR: dsp.NewDCBlocker(feedbackDCCutoffHz, float32(sampleRate)),
	}
	f.SetSampleRate(sampleRate)
	f.Reset()
	return f
}

// SetSampleRate updates the ramp length.
func (f *FeedbackController) SetSampleRate(sampleRate float64) {
	f.rampSamples = maxInt(1, int(math.Round(UnfreezeRampSeconds*sampleRate)))
	f.dcL.SetCutoff(feedbackDCCutoffHz, float32(sampleRate))
	f.dcR.SetCutoff(feedbackDCCutoffHz, float32(sampleRate))
}

// RampSamples returns the unfreeze ramp length.
func (f *FeedbackController) RampSamples() int { return f.rampSamples }

// Frozen reports the current state.
func (f *FeedbackController) Frozen() bool { return f.frozen }

// InputGainRamp returns the current fresh-input gain.
func (f *FeedbackController) InputGainRamp() float32 { return f.inputGainRamp }

// FeedbackSample returns the pending recirculation sample.
func (f *FeedbackController) FeedbackSample() (float32, float32) {
	return f.feedbackL, f.feedbackR
}

// SetFreeze applies the freeze control. Entering freeze cuts input at once;
// leaving it restarts the linear ramp from 0.
func (f *FeedbackController) SetFreeze(on bool) {
	if on == f.frozen {
		return
	}
	f.frozen = on
	f.inputGainRamp = 0
	f.samplesSinceUnfreeze = 0
}

// Next returns the frame to push into the store for one input frame and
// whether it should be pushed at all. Frozen: nothing is written.
func (f *FeedbackController) Next(inL, inR float32) (float32, float32, bool) {
	if f.frozen {
		f.inputGainRamp = 0
		return 0, 0, false
	}
	if f.inputGainRamp < 1 {
		f.samplesSinceUnfreeze++
		f.inputGainRamp = float32(f.samplesSinceUnfreeze) / float32(f.rampSamples)
		if f.inputGainRamp > 1 {
			f.inputGainRamp = 1
		}
	}
	l := finiteOr0(inL)*f.inputGainRamp + f.feedbackL
	r := finiteOr0(inR)*f.inputGainRamp + f.feedbackR
	return finiteOr0(l), finiteOr0(r), true
}

// Update computes the next feedback sample from the summed grain output.
// feedback and saturation are percentages. The result is always in [-1, 1].
func (f *FeedbackController) Update(wetL, wetR, feedback, saturation float32) {
	gain := clampf(finiteOr0(feedback)/100, 0, 1) * FeedbackCeiling
	f.feedbackL = f.shape(wetL, gain, saturation, f.dcL)
	f.feedbackR = f.shape(wetR, gain, saturation, f.dcR)
}

func (f *FeedbackController) shape(x, gain, saturation float32, dc *dsp.DCBlocker) float32 {
	x = Saturate(finiteOr0(x)*gain, saturation)
	if gain > safetyClampGain {
		x = float32(math.Tanh(float64(x)))
	}
	x = dc.Process(x)
	return clampf(finiteOr0(x), -1, 1)
}

// Reset returns to the flowing state at full input gain with no feedback.
func (f *FeedbackController) Reset() {
	f.frozen = false
	f.inputGainRamp = 1
	f.samplesSinceUnfreeze = 0
	f.feedbackL, f.feedbackR = 0, 0
	f.dcL.Reset()
	f.dcR.Reset()
}
