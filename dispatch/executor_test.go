package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/providers"
	"github.com/studioflow/canvasflow/types"
)

// stubGenerator replays a scripted poll sequence after recording the
// submit request.
type stubGenerator struct {
	mu        sync.Mutex
	submitErr error
	submitted *providers.SubmitRequest
	statuses  []*providers.TaskStatus
	polls     int
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Submit(_ context.Context, req *providers.SubmitRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return "", g.submitErr
	}
	g.submitted = req
	return "task-1", nil
}

func (g *stubGenerator) Poll(context.Context, string) (*providers.TaskStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.polls < len(g.statuses)-1 {
		g.polls++
		return g.statuses[g.polls-1], nil
	}
	return g.statuses[len(g.statuses)-1], nil
}

func generatingImage(id, prompt string) *types.Node {
	return &types.Node{
		ID:        id,
		ProjectID: "proj-1",
		Type:      types.NodeTypeImage,
		Data: types.NodeData{
			Prompt: prompt,
			Status: types.StatusGenerating,
		},
	}
}

func newExecutorFixture(t *testing.T, image, video providers.Generator) (*Executor, *memBackend) {
	t.Helper()
	backend := newMemBackend()
	store, _ := newTestStore(t, backend, false)
	exec := NewExecutor(store, image, video, time.Millisecond, 50*time.Millisecond, nil, zap.NewNop())
	return exec, backend
}

func TestExecuteCompletesAsset(t *testing.T) {
	gen := &stubGenerator{statuses: []*providers.TaskStatus{
		{TaskID: "task-1", State: providers.TaskRunning},
		{TaskID: "task-1", State: providers.TaskSucceeded, URL: "https://cdn/out.png"},
	}}
	exec, backend := newExecutorFixture(t, gen, nil)
	backend.put(generatingImage("img-1", "a fox"))

	require.NoError(t, exec.Execute(context.Background(), "proj-1", "img-1"))

	node := backend.node("img-1")
	assert.Equal(t, types.StatusCompleted, node.Data.Status)
	assert.Equal(t, "https://cdn/out.png", node.Data.URL)
	assert.Equal(t, "a fox", gen.submitted.Prompt)
}

func TestExecuteMarksProviderFailure(t *testing.T) {
	gen := &stubGenerator{statuses: []*providers.TaskStatus{
		{TaskID: "task-1", State: providers.TaskFailed, Reason: "content policy"},
	}}
	exec, backend := newExecutorFixture(t, gen, nil)
	backend.put(generatingImage("img-1", "a fox"))

	require.NoError(t, exec.Execute(context.Background(), "proj-1", "img-1"))

	node := backend.node("img-1")
	assert.Equal(t, types.StatusFailed, node.Data.Status)
	assert.Equal(t, "content policy", node.Data.Label)
}

func TestExecuteSubmitFailureFailsAsset(t *testing.T) {
	gen := &stubGenerator{submitErr: errors.New("401 unauthorized")}
	exec, backend := newExecutorFixture(t, gen, nil)
	backend.put(generatingImage("img-1", "a fox"))

	require.NoError(t, exec.Execute(context.Background(), "proj-1", "img-1"))
	assert.Equal(t, types.StatusFailed, backend.node("img-1").Data.Status)
}

func TestExecutePollBudgetLeavesAssetGenerating(t *testing.T) {
	gen := &stubGenerator{statuses: []*providers.TaskStatus{
		{TaskID: "task-1", State: providers.TaskRunning},
	}}
	exec, backend := newExecutorFixture(t, gen, nil)
	backend.put(generatingImage("img-1", "a fox"))

	err := exec.Execute(context.Background(), "proj-1", "img-1")
	require.Error(t, err)
	assert.Equal(t, types.ErrGenerationTimeout, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Equal(t, types.StatusGenerating, backend.node("img-1").Data.Status)
}

func TestExecuteWithoutGeneratorFailsAsset(t *testing.T) {
	exec, backend := newExecutorFixture(t, nil, nil)
	backend.put(&types.Node{
		ID: "vid-1", ProjectID: "proj-1", Type: types.NodeTypeVideo,
		Data: types.NodeData{Status: types.StatusGenerating},
	})

	require.NoError(t, exec.Execute(context.Background(), "proj-1", "vid-1"))
	node := backend.node("vid-1")
	assert.Equal(t, types.StatusFailed, node.Data.Status)
	assert.Contains(t, node.Data.Label, "no generation provider")
}

func TestExecuteSkipsTerminalAsset(t *testing.T) {
	gen := &stubGenerator{statuses: []*providers.TaskStatus{
		{TaskID: "task-1", State: providers.TaskSucceeded, URL: "https://cdn/new.png"},
	}}
	exec, backend := newExecutorFixture(t, gen, nil)
	backend.put(&types.Node{
		ID: "img-1", ProjectID: "proj-1", Type: types.NodeTypeImage,
		Data: types.NodeData{Status: types.StatusCompleted, URL: "https://cdn/old.png"},
	})

	require.NoError(t, exec.Execute(context.Background(), "proj-1", "img-1"))
	assert.Equal(t, "https://cdn/old.png", backend.node("img-1").Data.URL)
	assert.Nil(t, gen.submitted)
}
