package emotion

import "math/rand/v2"

// Rand is the randomness source used for synthetic samples and genre picks.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand draws from the math/rand/v2 global source.
var DefaultRand Rand = globalRand{}

// degradedLabels are the emotions a degraded sample may report.
var degradedLabels = []Label{Happy, Neutral, Surprised, Sad}

// noiseCeil bounds the score of each non-selected label in a degraded sample.
var noiseCeil = map[Label]float64{
	Happy:     20,
	Sad:       10,
	Angry:     5,
	Surprised: 15,
	Fearful:   8,
	Disgusted: 5,
}

// Degraded builds a synthetic sample for a frame of the given pixel size.
// The result is flagged Degraded and always has confidence in [70, 99].
func Degraded(r Rand, frameWidth, frameHeight int) Sample {
	if r == nil {
		r = DefaultRand
	}

	label := degradedLabels[r.IntN(len(degradedLabels))]
	confidence := r.IntN(30) + 70

	expressions := make(map[Label]int, len(Labels))
	for _, l := range Labels {
		switch {
		case l == label:
			expressions[l] = confidence
		case l == Neutral:
			expressions[l] = max(0, 100-confidence-10)
		default:
			expressions[l] = int(r.Float64() * noiseCeil[l])
		}
	}

	w, h := float64(frameWidth), float64(frameHeight)
	return Sample{
		Emotion:     label,
		Confidence:  confidence,
		Expressions: expressions,
		BoundingBox: &Box{X: w * 0.3, Y: h * 0.2, Width: w * 0.4, Height: h * 0.5},
		Degraded:    true,
	}
}
