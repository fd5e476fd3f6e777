// Package identity allocates human-readable, project-scoped node
// identifiers of the form adjective-color-animal.
//
// The allocator reduces collision probability; true uniqueness depends on
// the Checker reading a store with a uniqueness constraint. It is not a
// distributed lock.
package identity

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/types"
)

// DefaultMaxAttempts bounds collision retries before allocation fails.
const DefaultMaxAttempts = 100

// Checker reports whether an id is already taken within a project.
//
// A Checker error is treated as "possibly taken": the allocator fails safe
// toward a phantom collision and retries with a fresh candidate rather than
// risking a real collision.
type Checker interface {
	Exists(ctx context.Context, id, projectID string) (bool, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, id, projectID string) (bool, error)

// Exists implements Checker.
func (f CheckerFunc) Exists(ctx context.Context, id, projectID string) (bool, error) {
	return f(ctx, id, projectID)
}

// Allocator generates collision-checked semantic ids.
type Allocator struct {
	checker     Checker
	maxAttempts int
	collector   *metrics.Collector
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides the collision retry bound.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithSeed fixes the random source, for deterministic tests.
func WithSeed(seed int64) Option {
	return func(a *Allocator) {
		a.rng = rand.New(rand.NewSource(seed))
	}
}

// WithCollector wires collision metrics. A nil collector records nothing.
func WithCollector(c *metrics.Collector) Option {
	return func(a *Allocator) {
		a.collector = c
	}
}

// NewAllocator creates an allocator backed by the given uniqueness checker.
func NewAllocator(checker Checker, logger *zap.Logger, opts ...Option) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Allocator{
		checker:     checker,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.With(zap.String("component", "identity_allocator")),
		rng:         rand.New(rand.NewSource(rand.Int63())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate draws one word from each list, joins with "-", and checks
// uniqueness against persisted state for the project. On collision (or
// checker failure, treated as possible collision) it retries up to the
// attempt bound, then fails with COLLISION_EXHAUSTED.
func (a *Allocator) Allocate(ctx context.Context, projectID string) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := a.draw()
		taken, err := a.checker.Exists(ctx, candidate, projectID)
		if err != nil {
			a.logger.Warn("uniqueness check failed, treating id as taken",
				zap.String("candidate", candidate),
				zap.String("project_id", projectID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if taken {
			a.collector.RecordIDCollision()
			a.logger.Debug("id collision",
				zap.String("candidate", candidate),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return candidate, nil
	}

	return "", types.Errorf(types.ErrCollisionExhausted,
		"could not allocate unique id for project %s after %d attempts",
		projectID, a.maxAttempts)
}

func (a *Allocator) draw() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("%s-%s-%s",
		adjectiveWords[a.rng.Intn(len(adjectiveWords))],
		colorWords[a.rng.Intn(len(colorWords))],
		animalWords[a.rng.Intn(len(animalWords))],
	)
}

// Space returns the size of the id space, useful for sizing collision
// expectations in capacity planning.
func Space() int {
	return len(adjectiveWords) * len(colorWords) * len(animalWords)
}
