package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbability_SumsToOne(t *testing.T) {
	t.Parallel()

	for spots := 1; spots <= 10; spots++ {
		sum := 0.0
		for matches := 0; matches <= spots; matches++ {
			sum += Probability(20, 80, spots, matches)
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "spots=%d", spots)
	}
}

func TestProbability_KnownValues(t *testing.T) {
	t.Parallel()

	// one spot: 20 of 80 numbers are drawn
	assert.InDelta(t, 0.25, Probability(20, 80, 1, 1), 1e-12)
	assert.InDelta(t, 0.75, Probability(20, 80, 1, 0), 1e-12)

	// 3 of 3: C(20,3)/C(80,3) = 1140/82160
	assert.InDelta(t, 1140.0/82160.0, Probability(20, 80, 3, 3), 1e-12)

	// 10 of 10 is roughly 1 in 8.9 million
	p := Probability(20, 80, 10, 10)
	assert.InDelta(t, 1.0/8911711.0, p, 1e-12)
}

func TestProbability_ImpossibleOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                             string
		draw, universe, spots, matches int
	}{
		{"more matches than spots", 20, 80, 3, 4},
		{"more matches than drawn", 5, 80, 10, 6},
		{"misses exceed undrawn numbers", 20, 25, 10, 2},
		{"negative matches", 20, 80, 3, -1},
		{"spots beyond universe", 20, 80, 81, 1},
		{"draw beyond universe", 90, 80, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, Probability(tt.draw, tt.universe, tt.spots, tt.matches))
		})
	}
}

func TestCombinations(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", Combinations(80, 0).String())
	assert.Equal(t, "82160", Combinations(80, 3).String())
	assert.Equal(t, "1646492110120", Combinations(80, 10).String())
	assert.Equal(t, "0", Combinations(3, 4).String())
}

func TestDetails(t *testing.T) {
	t.Parallel()

	c := Calculator{DrawSize: 20, UniverseSize: 80}

	d := c.Details(1, 1)
	assert.Equal(t, "1 in 4", d.Odds)
	assert.Equal(t, "25.0000%", d.Frequency)

	none := Details(0)
	assert.Equal(t, "never", none.Odds)
	assert.Equal(t, "0.0000%", none.Frequency)
}
