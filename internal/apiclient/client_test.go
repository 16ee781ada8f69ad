package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecommend(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantStatus int
		wantRecs   int
	}{
		{
			name:   "ok",
			status: http.StatusOK,
			body: `{"session":{"id":4,"userId":null,"emotion":"happy","confidence":90,"timestamp":"2025-01-01T00:00:00Z"},
				"recommendations":[{"id":1,"sessionId":4,"trackId":"t1","trackName":"One","artistName":"A","albumCover":null,"previewUrl":null,"matchScore":88}]}`,
			wantRecs: 1,
		},
		{
			name:       "provider failure",
			status:     http.StatusBadRequest,
			body:       `{"message":"Spotify API error","error":"API rate limit exceeded","status":429}`,
			wantErr:    true,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "plain text error",
			status:     http.StatusBadGateway,
			body:       "bad gateway",
			wantErr:    true,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/recommendations" {
					t.Errorf("got %s %s", r.Method, r.URL.Path)
				}
				var req recommendRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Emotion != "happy" || req.Confidence != 90 {
					t.Errorf("request = %+v, %v", req, err)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := New(srv.URL+"/", nil).Recommend(context.Background(), "happy", 90)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Recommend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.wantStatus {
					t.Errorf("error = %v, want APIError %d", err, tt.wantStatus)
				}
				return
			}
			if res.Session.Emotion != "happy" || res.Session.ID != 4 {
				t.Errorf("session = %+v", res.Session)
			}
			if len(res.Recommendations) != tt.wantRecs || res.Recommendations[0].SessionID != 4 {
				t.Errorf("recommendations = %+v", res.Recommendations)
			}
		})
	}
}
