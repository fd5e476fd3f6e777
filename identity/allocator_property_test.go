package identity

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Property: for any sequence of N allocations within one project against a
// consistent checker, all N returned ids are pairwise distinct.
func TestProperty_AllocationUniqueness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("N allocations yield N distinct ids", prop.ForAll(
		func(n int, seed int64) bool {
			alloc := NewAllocator(newMemChecker(), zap.NewNop(), WithSeed(seed))
			seen := make(map[string]bool, n)
			for i := 0; i < n; i++ {
				id, err := alloc.Allocate(context.Background(), "proj")
				if err != nil {
					return false
				}
				if seen[id] {
					return false
				}
				seen[id] = true
			}
			return true
		},
		gen.IntRange(1, 64),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
