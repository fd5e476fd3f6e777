// Package providers defines the narrow surface generation providers expose
// to the dispatch layer: submit a prompt, get an opaque task id, poll until
// a media URL or an error comes back. Auth mechanics and request shaping
// live in the per-provider subpackages.
package providers

import (
	"context"
	"time"
)

// TaskState is the provider-side lifecycle of a submitted generation.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether polling can stop.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// SubmitRequest carries everything a provider needs to start a generation.
type SubmitRequest struct {
	Prompt string `json:"prompt"`
	// ReferenceImages are upstream image URLs, used by video providers as
	// source frames. Image providers ignore them.
	ReferenceImages []string `json:"reference_images,omitempty"`
	// Duration is in seconds; video only.
	Duration int    `json:"duration,omitempty"`
	Model    string `json:"model,omitempty"`
	// AspectRatio like "16:9"; provider defaults apply when empty.
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// TaskStatus is one poll observation.
type TaskStatus struct {
	TaskID string    `json:"task_id"`
	State  TaskState `json:"state"`
	// URL is the generated media location, set once succeeded.
	URL string `json:"url,omitempty"`
	// Base64 carries inline media for providers that return blobs.
	Base64 string `json:"base64,omitempty"`
	// Reason describes a failure.
	Reason string `json:"reason,omitempty"`
}

// Generator is an asynchronous generation provider.
type Generator interface {
	Name() string
	Submit(ctx context.Context, req *SubmitRequest) (taskID string, err error)
	Poll(ctx context.Context, taskID string) (*TaskStatus, error)
}

// PollUntilDone polls a generator on a fixed interval until the task is
// terminal, ctx is cancelled, or the deadline passes. It returns the final
// observation; a deadline hit returns the last non-terminal status with a
// nil error so callers can surface a retryable timeout themselves.
func PollUntilDone(ctx context.Context, g Generator, taskID string, interval, timeout time.Duration) (*TaskStatus, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	last := &TaskStatus{TaskID: taskID, State: TaskPending}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := g.Poll(ctx, taskID)
		if err == nil {
			last = status
			if status.State.Terminal() {
				return status, nil
			}
		} else if ctx.Err() == nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return last, nil
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
