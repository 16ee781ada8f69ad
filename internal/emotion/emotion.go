// Package emotion defines emotion labels, detected samples, and expression scoring.
package emotion

import (
	"math"
	"strings"
)

// Label is an emotion name.
type Label string

// The emotion labels produced by the expression model.
const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Surprised Label = "surprised"
	Neutral   Label = "neutral"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"
)

// Labels lists every known label.
var Labels = []Label{Happy, Sad, Angry, Surprised, Neutral, Fearful, Disgusted}

// MinConfidence is the lowest rounded confidence reported as a detection.
const MinConfidence = 30

// ParseLabel normalizes s and reports whether it names a known label.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Labels {
		if l == known {
			return l, true
		}
	}
	return l, false
}

// Score is one model output: a label and its probability in [0, 1].
type Score struct {
	Label Label
	Value float64
}

// Box is a rectangle in source-frame pixel coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Relative converts the box to percentages of a frame of the given raw pixel size,
// so it can be drawn over a scaled video element.
// A zero dimension yields a zero box.
func (b Box) Relative(frameWidth, frameHeight int) Box {
	if frameWidth <= 0 || frameHeight <= 0 {
		return Box{}
	}
	w, h := float64(frameWidth), float64(frameHeight)
	return Box{
		X:      b.X / w * 100,
		Y:      b.Y / h * 100,
		Width:  b.Width / w * 100,
		Height: b.Height / h * 100,
	}
}

// Sample is one detected emotion. Samples are never modified after creation.
type Sample struct {
	Emotion     Label         `json:"emotion"`
	Confidence  int           `json:"confidence"`
	Expressions map[Label]int `json:"expressions"`
	BoundingBox *Box          `json:"boundingBox,omitempty"`

	// Degraded marks synthetic output substituted for a failed inference.
	Degraded bool `json:"degraded,omitempty"`
}

// Top returns the highest scoring entry. Ties keep the first one encountered.
// ok is false when scores is empty.
func Top(scores []Score) (top Score, ok bool) {
	for i, s := range scores {
		if i == 0 || s.Value > top.Value {
			top = s
		}
	}
	return top, len(scores) > 0
}

// Percent converts a probability to a rounded integer percentage.
func Percent(p float64) int {
	return int(math.Round(p * 100))
}

// FromScores builds a Sample from raw model scores. It returns ErrNoFace when there
// are no scores or the top confidence rounds below MinConfidence.
func FromScores(scores []Score, box *Box) (Sample, error) {
	top, ok := Top(scores)
	if !ok {
		return Sample{}, ErrNoFace
	}

	confidence := Percent(top.Value)
	if confidence < MinConfidence {
		return Sample{}, ErrNoFace
	}

	expressions := make(map[Label]int, len(scores))
	for _, s := range scores {
		expressions[s.Label] = Percent(s.Value)
	}

	return Sample{
		Emotion:     top.Label,
		Confidence:  confidence,
		Expressions: expressions,
		BoundingBox: box,
	}, nil
}
