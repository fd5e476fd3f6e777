package kling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioflow/canvasflow/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		AccessKey: "ak",
		SecretKey: "sk",
		BaseURL:   srv.URL,
	})
}

func TestSubmitSendsSignedJWT(t *testing.T) {
	var authHeader string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/videos/image2video", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a fox running", body["prompt"])
		assert.Equal(t, "https://cdn/frame.png", body["image"])

		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"task_id": "task-9"},
		})
	})

	taskID, err := p.Submit(context.Background(), &providers.SubmitRequest{
		Prompt:          "a fox running",
		ReferenceImages: []string{"https://cdn/frame.png"},
		Duration:        5,
	})
	require.NoError(t, err)
	assert.Equal(t, "task-9", taskID)

	require.True(t, strings.HasPrefix(authHeader, "Bearer "))
	token, err := jwt.Parse(strings.TrimPrefix(authHeader, "Bearer "), func(*jwt.Token) (any, error) {
		return []byte("sk"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "ak", claims["iss"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp.Time, time.Minute)
}

func TestPollMapsStates(t *testing.T) {
	cases := []struct {
		apiStatus string
		want      providers.TaskState
	}{
		{"submitted", providers.TaskPending},
		{"processing", providers.TaskRunning},
		{"succeed", providers.TaskSucceeded},
		{"failed", providers.TaskFailed},
	}
	for _, tc := range cases {
		t.Run(tc.apiStatus, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/videos/image2video/task-1", r.URL.Path)
				json.NewEncoder(w).Encode(map[string]any{
					"code": 0,
					"data": map[string]any{
						"task_id":     "task-1",
						"task_status": tc.apiStatus,
						"task_result": map[string]any{
							"videos": []map[string]any{{"url": "https://cdn/out.mp4"}},
						},
					},
				})
			})

			status, err := p.Poll(context.Background(), "task-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status.State)
			if tc.want == providers.TaskSucceeded {
				assert.Equal(t, "https://cdn/out.mp4", status.URL)
			}
		})
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 1102, "message": "balance not enough"})
	})

	_, err := p.Submit(context.Background(), &providers.SubmitRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1102")
	assert.Contains(t, err.Error(), "balance not enough")
}
