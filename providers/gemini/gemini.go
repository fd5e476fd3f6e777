// Package gemini adapts Google Gemini's synchronous image generation to
// the submit/poll provider surface.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studioflow/canvasflow/providers"
)

// Config configures the Gemini image provider.
type Config struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Provider generates images through the generativelanguage API. Gemini
// answers synchronously, so Submit runs the generation and parks the result
// under a local task id for Poll to collect.
type Provider struct {
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	results map[string]*providers.TaskStatus
}

// New creates a Gemini image provider.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-exp"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		results: make(map[string]*providers.TaskStatus),
	}
}

func (p *Provider) Name() string { return "gemini" }

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inlineData,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type generateRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig *genConfig      `json:"generationConfig,omitempty"`
}

type genConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *geminiInline `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Submit runs the generation call and returns a local task id.
func (p *Provider) Submit(ctx context.Context, req *providers.SubmitRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := generateRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: req.Prompt}},
			Role:  "user",
		}},
		GenerationConfig: &genConfig{ResponseModalities: []string{"IMAGE"}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini request encode: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.cfg.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gemini request build: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini response read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini response decode: %w", err)
	}

	taskID := uuid.NewString()
	status := &providers.TaskStatus{TaskID: taskID, State: providers.TaskFailed, Reason: "no image in response"}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				status = &providers.TaskStatus{
					TaskID: taskID,
					State:  providers.TaskSucceeded,
					Base64: part.InlineData.Data,
				}
			}
		}
	}

	p.mu.Lock()
	p.results[taskID] = status
	p.mu.Unlock()
	return taskID, nil
}

// Poll returns the parked result. Unknown task ids report failure rather
// than blocking a caller forever.
func (p *Provider) Poll(_ context.Context, taskID string) (*providers.TaskStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if status, ok := p.results[taskID]; ok {
		return status, nil
	}
	return &providers.TaskStatus{
		TaskID: taskID,
		State:  providers.TaskFailed,
		Reason: "unknown task id",
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
