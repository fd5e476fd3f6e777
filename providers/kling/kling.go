// Package kling drives the Kling video generation API. Requests are
// authenticated with a short-lived HS256 JWT minted from an access key and
// secret per call.
package kling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studioflow/canvasflow/providers"
)

// Config configures the Kling provider.
type Config struct {
	AccessKey string        `yaml:"access_key" json:"access_key"`
	SecretKey string        `yaml:"secret_key" json:"secret_key"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Model     string        `yaml:"model" json:"model"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// Provider submits image-to-video tasks and polls them.
type Provider struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// New creates a Kling provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.klingai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "kling-v1-6"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

func (p *Provider) Name() string { return "kling" }

// token mints the per-request JWT: issued 5s in the past to absorb clock
// skew, valid for 30 minutes.
func (p *Provider) token() (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"iss": p.cfg.AccessKey,
		"nbf": now.Add(-5 * time.Second).Unix(),
		"exp": now.Add(30 * time.Minute).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(p.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("kling token sign: %w", err)
	}
	return signed, nil
}

type submitBody struct {
	Model    string `json:"model_name"`
	Prompt   string `json:"prompt"`
	Image    string `json:"image,omitempty"`
	Duration string `json:"duration,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type taskData struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	TaskResult struct {
		Videos []struct {
			URL string `json:"url"`
		} `json:"videos"`
	} `json:"task_result"`
	TaskStatusMsg string `json:"task_status_msg"`
}

// Submit starts an image-to-video task. The first reference image is the
// source frame; Kling takes exactly one.
func (p *Provider) Submit(ctx context.Context, req *providers.SubmitRequest) (string, error) {
	body := submitBody{
		Model:  p.cfg.Model,
		Prompt: req.Prompt,
		Mode:   "std",
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if len(req.ReferenceImages) > 0 {
		body.Image = req.ReferenceImages[0]
	}
	if req.Duration > 0 {
		body.Duration = fmt.Sprintf("%d", req.Duration)
	}

	var data taskData
	if err := p.call(ctx, http.MethodPost, "/v1/videos/image2video", body, &data); err != nil {
		return "", err
	}
	if data.TaskID == "" {
		return "", fmt.Errorf("kling submit returned no task id")
	}
	return data.TaskID, nil
}

// Poll reads one task observation.
func (p *Provider) Poll(ctx context.Context, taskID string) (*providers.TaskStatus, error) {
	var data taskData
	path := fmt.Sprintf("/v1/videos/image2video/%s", taskID)
	if err := p.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	status := &providers.TaskStatus{TaskID: taskID}
	switch data.TaskStatus {
	case "submitted":
		status.State = providers.TaskPending
	case "processing":
		status.State = providers.TaskRunning
	case "succeed":
		status.State = providers.TaskSucceeded
		if len(data.TaskResult.Videos) > 0 {
			status.URL = data.TaskResult.Videos[0].URL
		}
	case "failed":
		status.State = providers.TaskFailed
		status.Reason = data.TaskStatusMsg
	default:
		status.State = providers.TaskPending
	}
	return status, nil
}

func (p *Provider) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("kling request encode: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("kling request build: %w", err)
	}
	token, err := p.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("kling request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kling response read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kling returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("kling response decode: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("kling error %d: %s", env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("kling data decode: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
