package emotion

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestTop(t *testing.T) {
	tests := []struct {
		name   string
		scores []Score
		want   Label
	}{
		{
			name:   "single max",
			scores: []Score{{Neutral, 0.1}, {Happy, 0.8}, {Sad, 0.1}},
			want:   Happy,
		},
		{
			name:   "tie keeps first encountered",
			scores: []Score{{Angry, 0.4}, {Sad, 0.4}, {Happy, 0.2}},
			want:   Angry,
		},
		{
			name:   "tie at end keeps earlier",
			scores: []Score{{Neutral, 0.1}, {Fearful, 0.45}, {Disgusted, 0.45}},
			want:   Fearful,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Top(tt.scores)
			if !ok {
				t.Fatal("Top() ok = false")
			}
			if got.Label != tt.want {
				t.Errorf("Top() = %s, want %s", got.Label, tt.want)
			}
		})
	}

	if _, ok := Top(nil); ok {
		t.Error("Top(nil) ok = true, want false")
	}
}

func TestFromScores(t *testing.T) {
	box := &Box{X: 10, Y: 20, Width: 100, Height: 120}

	t.Run("confident", func(t *testing.T) {
		s, err := FromScores([]Score{{Neutral, 0.204}, {Happy, 0.756}, {Sad, 0.04}}, box)
		if err != nil {
			t.Fatalf("FromScores() error = %v", err)
		}
		if s.Emotion != Happy || s.Confidence != 76 {
			t.Errorf("got %s/%d, want happy/76", s.Emotion, s.Confidence)
		}
		if s.Expressions[Neutral] != 20 || s.Expressions[Sad] != 4 {
			t.Errorf("Expressions = %v", s.Expressions)
		}
		if s.BoundingBox != box {
			t.Error("BoundingBox not carried through")
		}
		if s.Degraded {
			t.Error("Degraded = true for real scores")
		}
	})

	t.Run("below floor is no face", func(t *testing.T) {
		_, err := FromScores([]Score{{Happy, 0.29}, {Sad, 0.28}, {Neutral, 0.2}}, box)
		if !errors.Is(err, ErrNoFace) {
			t.Errorf("error = %v, want ErrNoFace", err)
		}
	})

	t.Run("floor applies after rounding", func(t *testing.T) {
		s, err := FromScores([]Score{{Sad, 0.296}}, nil)
		if err != nil {
			t.Fatalf("FromScores() error = %v", err)
		}
		if s.Confidence != 30 {
			t.Errorf("Confidence = %d, want 30", s.Confidence)
		}
	})

	t.Run("empty is no face", func(t *testing.T) {
		if _, err := FromScores(nil, nil); !errors.Is(err, ErrNoFace) {
			t.Errorf("error = %v, want ErrNoFace", err)
		}
	})
}

func TestParseLabel(t *testing.T) {
	if l, ok := ParseLabel("  HAPPY "); !ok || l != Happy {
		t.Errorf("ParseLabel(HAPPY) = %q, %v", l, ok)
	}
	if l, ok := ParseLabel("bored"); ok || l != "bored" {
		t.Errorf("ParseLabel(bored) = %q, %v", l, ok)
	}
}

func TestBoxRelative(t *testing.T) {
	b := Box{X: 64, Y: 48, Width: 320, Height: 240}
	got := b.Relative(640, 480)
	want := Box{X: 10, Y: 10, Width: 50, Height: 50}
	if got != want {
		t.Errorf("Relative() = %+v, want %+v", got, want)
	}
	if got := b.Relative(0, 480); got != (Box{}) {
		t.Errorf("Relative(0, h) = %+v, want zero box", got)
	}
}

func TestDegraded(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	allowed := map[Label]bool{Happy: true, Neutral: true, Surprised: true, Sad: true}

	for i := 0; i < 200; i++ {
		s := Degraded(r, 640, 480)

		if !s.Degraded {
			t.Fatal("Degraded flag not set")
		}
		if !allowed[s.Emotion] {
			t.Fatalf("Emotion = %s, not a degraded label", s.Emotion)
		}
		if s.Confidence < 70 || s.Confidence > 99 {
			t.Fatalf("Confidence = %d, want [70, 99]", s.Confidence)
		}
		if s.Expressions[s.Emotion] != s.Confidence {
			t.Fatalf("Expressions[%s] = %d, want %d", s.Emotion, s.Expressions[s.Emotion], s.Confidence)
		}
		for l, v := range s.Expressions {
			if l != s.Emotion && v >= s.Confidence {
				t.Fatalf("Expressions[%s] = %d outscores reported %s", l, v, s.Emotion)
			}
		}
		if len(s.Expressions) != len(Labels) {
			t.Fatalf("len(Expressions) = %d, want %d", len(s.Expressions), len(Labels))
		}
		if s.BoundingBox == nil || *s.BoundingBox != (Box{X: 192, Y: 96, Width: 256, Height: 240}) {
			t.Fatalf("BoundingBox = %+v", s.BoundingBox)
		}
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsCapability(&CapabilityError{}) {
		t.Error("IsCapability(*CapabilityError) = false")
	}
	wrapped := &ConnectivityError{Err: errors.New("dial tcp: refused")}
	if !IsConnectivity(wrapped) || IsCapability(wrapped) {
		t.Error("connectivity error misclassified")
	}
}
