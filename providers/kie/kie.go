// Package kie drives the KIE aggregation API, which fronts several video
// models behind one bearer-token submit/poll surface.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studioflow/canvasflow/providers"
)

// Config configures the KIE provider.
type Config struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Provider submits generation tasks and polls them.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New creates a KIE provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.kie.ai"
	}
	if cfg.Model == "" {
		cfg.Model = "runway-gen3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string { return "kie" }

type submitBody struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type submitData struct {
	TaskID string `json:"taskId"`
}

type pollData struct {
	TaskID   string `json:"taskId"`
	State    string `json:"state"` // waiting, queuing, generating, success, fail
	VideoURL string `json:"videoUrl"`
	FailMsg  string `json:"failMsg"`
}

// Submit starts a generation task.
func (p *Provider) Submit(ctx context.Context, req *providers.SubmitRequest) (string, error) {
	body := submitBody{
		Model:       p.cfg.Model,
		Prompt:      req.Prompt,
		ImageURLs:   req.ReferenceImages,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
	}
	if req.Model != "" {
		body.Model = req.Model
	}

	var data submitData
	if err := p.call(ctx, http.MethodPost, "/api/v1/generate", body, &data); err != nil {
		return "", err
	}
	if data.TaskID == "" {
		return "", fmt.Errorf("kie submit returned no task id")
	}
	return data.TaskID, nil
}

// Poll reads one task observation.
func (p *Provider) Poll(ctx context.Context, taskID string) (*providers.TaskStatus, error) {
	var data pollData
	path := fmt.Sprintf("/api/v1/record-info?taskId=%s", taskID)
	if err := p.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	status := &providers.TaskStatus{TaskID: taskID}
	switch data.State {
	case "waiting", "queuing":
		status.State = providers.TaskPending
	case "generating":
		status.State = providers.TaskRunning
	case "success":
		status.State = providers.TaskSucceeded
		status.URL = data.VideoURL
	case "fail":
		status.State = providers.TaskFailed
		status.Reason = data.FailMsg
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
			return fmt.Errorf("kie request encode: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("kie request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("kie request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kie response read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(raw) > 200 {
			raw = raw[:200]
		}
		return fmt.Errorf("kie returned %d: %s", resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("kie response decode: %w", err)
	}
	if env.Code != 200 && env.Code != 0 {
		return fmt.Errorf("kie error %d: %s", env.Code, env.Msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("kie data decode: %w", err)
		}
	}
	return nil
}
