package topk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutBelowCapacityRetainsEverything(t *testing.T) {
	tree := New[string](5)

	tree.Put(300, "c")
	tree.Put(100, "a")
	tree.Put(200, "b")

	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, []string{"a", "b", "c"}, tree.Values())
}

func TestPutAboveCapacityKeepsHighestScores(t *testing.T) {
	tree := New[int](3)

	for i := 1; i <= 10; i++ {
		tree.Put(int64(i*100), i)
	}

	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, []int{8, 9, 10}, tree.Values())
}

func TestPutLowScoreDoesNotEvict(t *testing.T) {
	tree := New[string](2)

	tree.Put(900, "slowest")
	tree.Put(500, "slower")
	tree.Put(100, "fast")

	assert.Equal(t, []string{"slower", "slowest"}, tree.Values())
}

func TestEqualScoreDoesNotEvictAtCapacity(t *testing.T) {
	tree := New[string](2)

	tree.Put(500, "first")
	tree.Put(500, "second")
	tree.Put(500, "third")

	// Eviction requires a strictly greater score.
	assert.Equal(t, []string{"first", "second"}, tree.Values())
}

func TestDuplicateScoresRetainedUpToCapacity(t *testing.T) {
	tree := New[string](4)

	tree.Put(100, "a")
	tree.Put(100, "b")
	tree.Put(100, "c")

	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, []string{"a", "b", "c"}, tree.Values())
}

func TestValuesOrderedAscendingWithInsertionTieBreak(t *testing.T) {
	tree := New[string](5)

	tree.Put(200, "b1")
	tree.Put(100, "a")
	tree.Put(200, "b2")
	tree.Put(300, "c")

	assert.Equal(t, []string{"a", "b1", "b2", "c"}, tree.Values())
}

func TestValuesIsRestartable(t *testing.T) {
	tree := New[int](3)
	tree.Put(1, 1)
	tree.Put(2, 2)

	first := tree.Values()
	second := tree.Values()

	require.Equal(t, first, second)

	tree.Put(3, 3)
	assert.Equal(t, []int{1, 2, 3}, tree.Values())
}

func TestNonPositiveCapacityFallsBackToDefault(t *testing.T) {
	tree := New[int](0)

	for i := 0; i < DefaultCapacity+10; i++ {
		tree.Put(int64(i), i)
	}

	assert.Equal(t, DefaultCapacity, tree.Len())
}
