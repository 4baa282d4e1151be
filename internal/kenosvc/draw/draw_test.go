package draw

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraw_DistinctInRange(t *testing.T) {
	t.Parallel()

	g := NewGenerator()
	for i := 0; i < 200; i++ {
		nums, err := g.Draw(20, 80)
		require.NoError(t, err)
		require.Len(t, nums, 20)

		seen := make(map[int]bool, len(nums))
		for _, n := range nums {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, 80)
			assert.False(t, seen[n], "duplicate %d in %v", n, nums)
			seen[n] = true
		}
	}
}

func TestDraw_WholeUniverse(t *testing.T) {
	t.Parallel()

	nums, err := NewGenerator().Draw(80, 80)
	require.NoError(t, err)
	assert.ElementsMatch(t, seq(80), nums)

	empty, err := NewGenerator().Draw(0, 80)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDraw_ExceedsUniverse(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator().Draw(81, 80)
	assert.ErrorIs(t, err, ErrDrawExceedsUniverse)
	assert.ErrorIs(t, Validate(30, 20), ErrDrawExceedsUniverse)
	assert.NoError(t, Validate(20, 80))
	assert.Error(t, Validate(-1, 80))
}

func TestDraw_SeededSourceIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewGeneratorWithSource(rand.New(rand.NewPCG(1, 2)))
	b := NewGeneratorWithSource(rand.New(rand.NewPCG(1, 2)))

	first, err := a.Draw(20, 80)
	require.NoError(t, err)
	second, err := b.Draw(20, 80)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDraw_Uniform(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	t.Parallel()

	const trials = 10000
	g := NewGeneratorWithSource(rand.New(rand.NewPCG(42, 7)))
	counts := make([]int, 81)
	for i := 0; i < trials; i++ {
		nums, err := g.Draw(20, 80)
		require.NoError(t, err)
		for _, n := range nums {
			counts[n]++
		}
	}

	// each number is expected trials*20/80 = 2500 times, sd ~ 43
	for n := 1; n <= 80; n++ {
		assert.InDelta(t, 2500, counts[n], 300, "number %d", n)
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
