package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/types"
)

// memChecker records every id it has confirmed free, like a store with a
// uniqueness constraint would.
type memChecker struct {
	mu    sync.Mutex
	seen  map[string]bool
	fails int // fail the first N calls
	calls int
}

func newMemChecker() *memChecker {
	return &memChecker{seen: make(map[string]bool)}
}

func (c *memChecker) Exists(ctx context.Context, id, projectID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.fails {
		return false, errors.New("checker unavailable")
	}
	key := projectID + "/" + id
	if c.seen[key] {
		return true, nil
	}
	c.seen[key] = true
	return false, nil
}

func TestAllocate_Format(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator(newMemChecker(), zap.NewNop(), WithSeed(1))
	id, err := alloc.Allocate(context.Background(), "proj")
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.NotEmpty(t, p)
	}
}

func TestAllocate_UniqueAcrossSequence(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator(newMemChecker(), zap.NewNop(), WithSeed(42))
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := alloc.Allocate(context.Background(), "proj")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s at allocation %d", id, i)
		seen[id] = true
	}
}

func TestAllocate_ProjectScoped(t *testing.T) {
	t.Parallel()

	checker := newMemChecker()
	alloc := NewAllocator(checker, zap.NewNop(), WithSeed(7))

	a, err := alloc.Allocate(context.Background(), "proj-a")
	require.NoError(t, err)

	// Same id stays available in a different project scope.
	taken, err := checker.Exists(context.Background(), a, "proj-b")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestAllocate_CheckerErrorRetries(t *testing.T) {
	t.Parallel()

	checker := newMemChecker()
	checker.fails = 3
	alloc := NewAllocator(checker, zap.NewNop(), WithSeed(3))

	id, err := alloc.Allocate(context.Background(), "proj")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.GreaterOrEqual(t, checker.calls, 4)
}

func TestAllocate_CollisionExhausted(t *testing.T) {
	t.Parallel()

	everythingTaken := CheckerFunc(func(ctx context.Context, id, projectID string) (bool, error) {
		return true, nil
	})
	alloc := NewAllocator(everythingTaken, zap.NewNop(), WithMaxAttempts(5))

	_, err := alloc.Allocate(context.Background(), "proj")
	require.Error(t, err)
	assert.Equal(t, types.ErrCollisionExhausted, types.GetErrorCode(err))
}

func TestAllocate_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alloc := NewAllocator(newMemChecker(), zap.NewNop())
	_, err := alloc.Allocate(ctx, "proj")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAllocate_RecordsCollisions(t *testing.T) {
	t.Parallel()

	calls := 0
	takenTwice := CheckerFunc(func(ctx context.Context, id, projectID string) (bool, error) {
		calls++
		return calls <= 2, nil
	})
	collector := metrics.NewCollector("identitytest", zap.NewNop())
	alloc := NewAllocator(takenTwice, zap.NewNop(), WithSeed(9), WithCollector(collector))

	_, err := alloc.Allocate(context.Background(), "proj")
	require.NoError(t, err)

	expected := strings.NewReader(`
# HELP identitytest_id_collisions_total Total number of semantic id allocation collisions
# TYPE identitytest_id_collisions_total counter
identitytest_id_collisions_total 2
`)
	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, expected,
		"identitytest_id_collisions_total"))
}

func TestSpace(t *testing.T) {
	t.Parallel()

	// Three lists of roughly four hundred words each give a space in the
	// tens of millions, keeping collision retries rare in practice.
	assert.Greater(t, Space(), 10_000_000)
}

func TestWordLists(t *testing.T) {
	t.Parallel()

	lists := map[string][]string{
		"adjective": adjectiveWords,
		"color":     colorWords,
		"animal":    animalWords,
	}

	// Disjoint lists keep every id reading adjective-color-animal; the map
	// also catches duplicates within a single list.
	seen := make(map[string]string)
	for name, list := range lists {
		assert.GreaterOrEqual(t, len(list), 400, "%s list is undersized", name)
		for _, w := range list {
			if prev, ok := seen[w]; ok {
				t.Errorf("word %q appears in both %s and %s lists", w, prev, name)
			}
			seen[w] = name
		}
	}
}
