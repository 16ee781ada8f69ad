package inference

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/go-mood-recommender/internal/emotion"
	"github.com/justestif/go-mood-recommender/internal/frame"
)

// fakeModel implements Model and CapabilityChecker.
type fakeModel struct {
	capErr    error
	loadErr   error
	dets      []Detection
	detectErr error
	delay     time.Duration

	capCalls    atomic.Int32
	loadCalls   atomic.Int32
	detectCalls atomic.Int32
}

func (m *fakeModel) CheckCapability(ctx context.Context) error {
	m.capCalls.Add(1)
	return m.capErr
}

func (m *fakeModel) Load(ctx context.Context) error {
	m.loadCalls.Add(1)
	return m.loadErr
}

func (m *fakeModel) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	m.detectCalls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.dets, m.detectErr
}

func readySource() *frame.Still {
	return frame.NewStill(image.NewGray(image.Rect(0, 0, 640, 480)), frame.HaveEnoughData)
}

func happyFace() []Detection {
	return []Detection{{
		Box: emotion.Box{X: 100, Y: 80, Width: 200, Height: 220},
		Scores: []emotion.Score{
			{Label: emotion.Neutral, Value: 0.1},
			{Label: emotion.Happy, Value: 0.85},
			{Label: emotion.Sad, Value: 0.05},
		},
	}}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name        string
		model       *fakeModel
		opts        Options
		wantEmotion emotion.Label
		wantDegr    bool
		wantErr     func(error) bool
	}{
		{
			name:        "confident face",
			model:       &fakeModel{dets: happyFace()},
			wantEmotion: emotion.Happy,
		},
		{
			name:    "no faces",
			model:   &fakeModel{},
			wantErr: func(err error) bool { return errors.Is(err, emotion.ErrNoFace) },
		},
		{
			name: "low confidence",
			model: &fakeModel{dets: []Detection{{Scores: []emotion.Score{
				{Label: emotion.Happy, Value: 0.25},
				{Label: emotion.Sad, Value: 0.24},
			}}}},
			wantErr: func(err error) bool { return errors.Is(err, emotion.ErrNoFace) },
		},
		{
			name:    "capability error never masked",
			model:   &fakeModel{capErr: &emotion.CapabilityError{Reason: "no gpu"}},
			opts:    Options{Degraded: true},
			wantErr: emotion.IsCapability,
		},
		{
			name:    "load failure is connectivity and never masked",
			model:   &fakeModel{loadErr: errors.New("404 manifest")},
			opts:    Options{Degraded: true},
			wantErr: emotion.IsConnectivity,
		},
		{
			name:     "runtime error masked in degraded mode",
			model:    &fakeModel{detectErr: errors.New("tensor shape mismatch")},
			opts:     Options{Degraded: true},
			wantDegr: true,
		},
		{
			name:    "runtime error surfaces without degraded mode",
			model:   &fakeModel{detectErr: errors.New("tensor shape mismatch")},
			wantErr: func(err error) bool { return err != nil && err.Error() == "tensor shape mismatch" },
		},
		{
			name:  "timeout without degraded mode",
			model: &fakeModel{dets: happyFace(), delay: 200 * time.Millisecond},
			opts:  Options{Timeout: 20 * time.Millisecond},
			wantErr: func(err error) bool {
				var te *emotion.TimeoutError
				return errors.As(err, &te)
			},
		},
		{
			name:     "timeout masked in degraded mode",
			model:    &fakeModel{dets: happyFace(), delay: 200 * time.Millisecond},
			opts:     Options{Timeout: 20 * time.Millisecond, Degraded: true},
			wantDegr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Rand = rand.New(rand.NewPCG(7, 7))
			a := NewAdapter(tt.model, tt.opts)

			got, err := a.Infer(context.Background(), readySource())

			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("Infer() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Infer() error = %v", err)
			}
			if got.Degraded != tt.wantDegr {
				t.Errorf("Degraded = %v, want %v", got.Degraded, tt.wantDegr)
			}
			if tt.wantEmotion != "" && got.Emotion != tt.wantEmotion {
				t.Errorf("Emotion = %s, want %s", got.Emotion, tt.wantEmotion)
			}
		})
	}
}

func TestInfer_FirstFaceWins(t *testing.T) {
	m := &fakeModel{dets: append(happyFace(), Detection{
		Scores: []emotion.Score{{Label: emotion.Angry, Value: 0.99}},
	})}
	a := NewAdapter(m, Options{})

	got, err := a.Infer(context.Background(), readySource())
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if got.Emotion != emotion.Happy || got.Confidence != 85 {
		t.Errorf("got %s/%d, want happy/85", got.Emotion, got.Confidence)
	}
	if got.BoundingBox == nil || got.BoundingBox.X != 100 {
		t.Errorf("BoundingBox = %+v", got.BoundingBox)
	}
}

func TestInfer_NotReady(t *testing.T) {
	m := &fakeModel{dets: happyFace()}
	a := NewAdapter(m, Options{})
	src := frame.NewStill(image.NewGray(image.Rect(0, 0, 4, 4)), frame.HaveMetadata)

	if _, err := a.Infer(context.Background(), src); !errors.Is(err, emotion.ErrNoFace) {
		t.Fatalf("Infer() error = %v, want ErrNoFace", err)
	}
	if m.detectCalls.Load() != 0 || m.loadCalls.Load() != 0 {
		t.Error("model touched before the frame was ready")
	}
}

func TestLoad_Memoized(t *testing.T) {
	m := &fakeModel{dets: happyFace()}
	a := NewAdapter(m, Options{})

	for i := 0; i < 3; i++ {
		if _, err := a.Infer(context.Background(), readySource()); err != nil {
			t.Fatalf("Infer() #%d error = %v", i, err)
		}
	}
	if got := m.loadCalls.Load(); got != 1 {
		t.Errorf("Load calls = %d, want 1", got)
	}
	if got := m.capCalls.Load(); got != 1 {
		t.Errorf("CheckCapability calls = %d, want 1", got)
	}
	if !a.Loaded() {
		t.Error("Loaded() = false")
	}
}

func TestLoad_FailureRetried(t *testing.T) {
	m := &fakeModel{loadErr: errors.New("offline")}
	a := NewAdapter(m, Options{})

	if err := a.Load(context.Background()); !emotion.IsConnectivity(err) {
		t.Fatalf("Load() error = %v, want connectivity", err)
	}
	m.loadErr = nil
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if got := m.loadCalls.Load(); got != 2 {
		t.Errorf("Load calls = %d, want 2", got)
	}
	if got := m.capCalls.Load(); got != 1 {
		t.Errorf("CheckCapability calls = %d, want 1", got)
	}
}

func TestLoad_CapabilityGatesLoading(t *testing.T) {
	m := &fakeModel{capErr: &emotion.CapabilityError{}}
	a := NewAdapter(m, Options{})

	for i := 0; i < 2; i++ {
		if err := a.Load(context.Background()); !emotion.IsCapability(err) {
			t.Fatalf("Load() error = %v, want capability", err)
		}
	}
	if m.loadCalls.Load() != 0 {
		t.Error("model loaded despite failed capability check")
	}
	if got := m.capCalls.Load(); got != 1 {
		t.Errorf("CheckCapability calls = %d, want 1", got)
	}
}

func TestLoad_CapabilityTransportFailure(t *testing.T) {
	m := &fakeModel{capErr: errors.New("connection refused")}
	a := NewAdapter(m, Options{})

	if err := a.Load(context.Background()); !emotion.IsConnectivity(err) {
		t.Fatalf("Load() error = %v, want connectivity", err)
	}
	m.capErr = nil
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if got := m.capCalls.Load(); got != 2 {
		t.Errorf("CheckCapability calls = %d, want 2", got)
	}
}
