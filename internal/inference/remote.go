package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-mood-recommender/internal/emotion"
)

// Face detector options.
const (
	InputSize      = 320
	ScoreThreshold = 0.5
)

// Networks are the model weights loaded before detection can run.
var Networks = []string{
	"tiny_face_detector",
	"face_expression_net",
	"face_landmark_68_net",
	"face_recognition_net",
}

// RemoteModel talks to an expression inference service over HTTP.
//
// Endpoints, relative to the base URL:
//
//	GET  /capabilities                 {"accelerated": bool, "backend": string, "reason": string}
//	GET  /models/{name}/manifest.json  200 when the weights are available
//	POST /detect?input_size=&score_threshold=   JPEG body, returns detectResponse
type RemoteModel struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteModel creates a client for the service at baseURL.
// A nil httpClient gets a client with a 10 second timeout.
func NewRemoteModel(baseURL string, httpClient *http.Client) *RemoteModel {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteModel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type capabilitiesResponse struct {
	Accelerated bool   `json:"accelerated"`
	Backend     string `json:"backend"`
	Reason      string `json:"reason"`
}

type detectResponse struct {
	Faces []struct {
		Box         emotion.Box `json:"box"`
		Expressions []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		} `json:"expressions"`
	} `json:"faces"`
}

// CheckCapability asks the service whether it has hardware acceleration.
func (m *RemoteModel) CheckCapability(ctx context.Context) error {
	body, err := m.do(ctx, http.MethodGet, m.baseURL+"/capabilities", "", nil)
	if err != nil {
		return fmt.Errorf("checking capabilities: %w", err)
	}

	var caps capabilitiesResponse
	if err := json.Unmarshal(body, &caps); err != nil {
		return fmt.Errorf("parsing capabilities response: %w", err)
	}
	if !caps.Accelerated {
		reason := caps.Reason
		if reason == "" {
			reason = "WebGL is not supported on this device. Emotion detection requires WebGL."
		}
		return &emotion.CapabilityError{Reason: reason}
	}
	return nil
}

// Load fetches every network manifest in parallel.
func (m *RemoteModel) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range Networks {
		g.Go(func() error {
			u := m.baseURL + "/models/" + url.PathEscape(name) + "/manifest.json"
			if _, err := m.do(ctx, http.MethodGet, u, "", nil); err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &emotion.ConnectivityError{Err: err}
	}
	return nil
}

// Detect sends img as a JPEG and returns the faces the service found.
func (m *RemoteModel) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}

	params := url.Values{
		"input_size":      {fmt.Sprint(InputSize)},
		"score_threshold": {fmt.Sprint(ScoreThreshold)},
	}
	body, err := m.do(ctx, http.MethodPost, m.baseURL+"/detect?"+params.Encode(), "image/jpeg", &buf)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing detect response: %w", err)
	}

	dets := make([]Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		d := Detection{Box: f.Box}
		for _, e := range f.Expressions {
			label, ok := emotion.ParseLabel(e.Label)
			if !ok {
				continue
			}
			d.Scores = append(d.Scores, emotion.Score{Label: label, Value: e.Score})
		}
		dets = append(dets, d)
	}
	return dets, nil
}

func (m *RemoteModel) do(ctx context.Context, method, reqURL, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
