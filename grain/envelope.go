package grain

import "math"

// Envelope profile breakpoints, as fractions of the grain lifetime.
const (
	percussiveAttack = 0.05

	balancedAttack  = 0.15
	balancedDecay   = 0.40
	balancedRelease = 0.70
	balancedSustain = 0.7

	smoothAttack  = 0.40
	smoothRelease = 0.60
)

// TukeyAlpha maps the character amount (0..1) to the taper width.
func TukeyAlpha(character float32) float32 {
	return 0.1 + 0.9*clampf(character, 0, 1)
}

// CombinedGain returns the grain gain at a normalized lifetime position: the
// shape envelope multiplied by a Tukey window whose taper width follows
// character (0..1). It is 0 at and outside the grain boundaries.
func CombinedGain(pos, shape, character float32) float32 {
	if !(pos > 0 && pos < 1) {
		return 0
	}
	return ShapeEnvelope(pos, shape) * TukeyWindow(pos, TukeyAlpha(character))
}

// ShapeEnvelope crossfades the percussive (shape 0), balanced (0.5) and
// smooth (1) profiles.
func ShapeEnvelope(pos, shape float32) float32 {
	if !(pos > 0 && pos < 1) {
		return 0
	}
	if !isFinite(shape) {
		shape = 0.5
	}
	shape = clampf(shape, 0, 1)
	if shape < 0.5 {
		return lerpf(percussiveEnvelope(pos), balancedEnvelope(pos), shape*2)
	}
	return lerpf(balancedEnvelope(pos), smoothEnvelope(pos), (shape-0.5)*2)
}

func percussiveEnvelope(pos float32) float32 {
	if pos < percussiveAttack {
		return pos / percussiveAttack
	}
	return (1 - pos) / (1 - percussiveAttack)
}

func balancedEnvelope(pos float32) float32 {
	switch {
	case pos < balancedAttack:
		return pos / balancedAttack
	case pos < balancedDecay:
		t := (pos - balancedAttack) / (balancedDecay - balancedAttack)
		return lerpf(1, balancedSustain, t)
	case pos < balancedRelease:
		return balancedSustain
	default:
		return balancedSustain * (1 - pos) / (1 - balancedRelease)
	}
}

func smoothEnvelope(pos float32) float32 {
	switch {
	case pos < smoothAttack:
		return pos / smoothAttack
	case pos <= smoothRelease:
		return 1
	default:
		return (1 - pos) / (1 - smoothRelease)
	}
}

// TukeyWindow evaluates a Tukey window with taper fraction alpha at pos.
func TukeyWindow(pos, alpha float32) float32 {
	if !(pos > 0 && pos < 1) {
		return 0
	}
	if !(alpha > 0) {
		return 1
	}
	if alpha > 1 {
		alpha = 1
	}
	half := alpha / 2
	x := float64(pos)
	a := float64(alpha)
	switch {
	case pos < half:
		return float32(0.5 * (1 + math.Cos(math.Pi*(2*x/a-1))))
	case pos <= 1-half:
		return 1
	default:
		return float32(0.5 * (1 + math.Cos(math.Pi*(2*x/a-2/a+1))))
	}
}
