package inference

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/justestif/go-mood-recommender/internal/emotion"
)

func TestRemoteModel_CheckCapability(t *testing.T) {
	tests := []struct {
		name     string
		response capabilitiesResponse
		status   int
		wantCap  bool
		wantErr  bool
	}{
		{"accelerated", capabilitiesResponse{Accelerated: true, Backend: "webgl"}, http.StatusOK, false, false},
		{"unsupported", capabilitiesResponse{Reason: "no webgl"}, http.StatusOK, true, true},
		{"server error", capabilitiesResponse{}, http.StatusInternalServerError, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/capabilities" {
					t.Errorf("path = %s, want /capabilities", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.response)
			}))
			defer srv.Close()

			err := NewRemoteModel(srv.URL+"/", nil).CheckCapability(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCapability() error = %v, wantErr %v", err, tt.wantErr)
			}
			if emotion.IsCapability(err) != tt.wantCap {
				t.Errorf("IsCapability = %v, want %v", !tt.wantCap, tt.wantCap)
			}
		})
	}
}

func TestRemoteModel_Load(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	missing := ""

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/models/"), "/manifest.json")
		mu.Lock()
		seen[name] = true
		fail := name == missing
		mu.Unlock()
		if fail {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	m := NewRemoteModel(srv.URL, srv.Client())
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	mu.Lock()
	for _, n := range Networks {
		if !seen[n] {
			t.Errorf("network %s not fetched", n)
		}
	}
	missing = "face_expression_net"
	mu.Unlock()
	if err := m.Load(context.Background()); !emotion.IsConnectivity(err) {
		t.Errorf("Load() error = %v, want connectivity", err)
	}
}

func TestRemoteModel_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("input_size"); got != "320" {
			t.Errorf("input_size = %s", got)
		}
		if got := r.URL.Query().Get("score_threshold"); got != "0.5" {
			t.Errorf("score_threshold = %s", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Content-Type = %s", ct)
		}
		w.Write([]byte(`{"faces":[{"box":{"x":10,"y":12,"width":50,"height":60},
			"expressions":[{"label":"sad","score":0.7},{"label":"neutral","score":0.3}]}]}`))
	}))
	defer srv.Close()

	dets, err := NewRemoteModel(srv.URL, nil).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 16, 16)))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("len(dets) = %d, want 1", len(dets))
	}
	if dets[0].Box != (emotion.Box{X: 10, Y: 12, Width: 50, Height: 60}) {
		t.Errorf("Box = %+v", dets[0].Box)
	}
	if len(dets[0].Scores) != 2 || dets[0].Scores[0].Label != emotion.Sad {
		t.Errorf("Scores = %+v", dets[0].Scores)
	}
}

func TestRemoteModel_DetectLabels(t *testing.T) {
	tests := []struct {
		name        string
		expressions string
		want        []emotion.Score
	}{
		{
			name:        "mixed case is normalized",
			expressions: `[{"label":"Happy","score":0.6},{"label":" SAD ","score":0.2}]`,
			want:        []emotion.Score{{Label: emotion.Happy, Value: 0.6}, {Label: emotion.Sad, Value: 0.2}},
		},
		{
			name:        "unknown labels are dropped",
			expressions: `[{"label":"contempt","score":0.9},{"label":"neutral","score":0.1}]`,
			want:        []emotion.Score{{Label: emotion.Neutral, Value: 0.1}},
		},
		{
			name:        "only unknown labels",
			expressions: `[{"label":"contempt","score":0.9}]`,
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"faces":[{"box":{"x":0,"y":0,"width":4,"height":4},"expressions":` + tt.expressions + `}]}`))
			}))
			defer srv.Close()

			dets, err := NewRemoteModel(srv.URL, nil).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(dets) != 1 {
				t.Fatalf("len(dets) = %d, want 1", len(dets))
			}
			if !slices.Equal(dets[0].Scores, tt.want) {
				t.Errorf("Scores = %+v, want %+v", dets[0].Scores, tt.want)
			}

			// The reported emotion can only be a known label.
			if s, err := emotion.FromScores(dets[0].Scores, nil); err == nil {
				if _, ok := emotion.ParseLabel(string(s.Emotion)); !ok {
					t.Errorf("Emotion = %q, not a known label", s.Emotion)
				}
			}
		})
	}
}
