package config

import (
	"testing"
	"time"

	"github.com/avvvet/keno-services/internal/kenosvc/draw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	c, err := load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Empty(t, c.PostgresURL)
	assert.Equal(t, 50*time.Second, c.Cycle.CountdownDuration)
	assert.Equal(t, 1500*time.Millisecond, c.Cycle.DrawInterval)
	assert.Equal(t, 15*time.Second, c.Cycle.BreakDuration)
	assert.Equal(t, 20, c.Cycle.DrawSize)
	assert.Equal(t, 80, c.Cycle.UniverseSize)
	assert.Equal(t, 10, c.Bets.MaxSpots)
	assert.Equal(t, int64(20), c.Bets.MinBet)
	assert.Equal(t, int64(5000), c.Bets.MaxBet)
	assert.Equal(t, 0.25, c.TargetHouseEdge)
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()

	c, err := load(env(map[string]string{
		"KENO_SERVICE_PORT":  "9090",
		"POSTGRES_URL":       "postgres://keno@localhost/keno",
		"COUNTDOWN_DURATION": "5s",
		"DRAW_INTERVAL":      "100ms",
		"UNIVERSE_SIZE":      "60",
		"MAX_SPOTS":          "8",
		"MIN_BET":            "10",
		"TARGET_HOUSE_EDGE":  "0.1",
		"RATE_LIMIT":         "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "postgres://keno@localhost/keno", c.PostgresURL)
	assert.Equal(t, 5*time.Second, c.Cycle.CountdownDuration)
	assert.Equal(t, 100*time.Millisecond, c.Cycle.DrawInterval)
	assert.Equal(t, 60, c.Cycle.UniverseSize)
	assert.Equal(t, 60, c.Bets.UniverseSize)
	assert.Equal(t, 8, c.Bets.MaxSpots)
	assert.Equal(t, int64(10), c.Bets.MinBet)
	assert.Equal(t, 0.1, c.TargetHouseEdge)
	assert.Equal(t, 300, c.RateLimit, "empty value keeps the default")
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"malformed duration", map[string]string{"DRAW_INTERVAL": "fast"}, "DRAW_INTERVAL"},
		{"malformed number", map[string]string{"MAX_BET": "lots"}, "MAX_BET"},
		{"draw exceeds universe", map[string]string{"DRAW_SIZE": "90"}, draw.ErrDrawExceedsUniverse.Error()},
		{"too many spots", map[string]string{"MAX_SPOTS": "11"}, "MAX_SPOTS"},
		{"min above max", map[string]string{"MIN_BET": "6000"}, "MIN_BET cannot exceed MAX_BET"},
		{"zero duration", map[string]string{"BREAK_DURATION": "0s"}, "durations must be positive"},
		{"house edge", map[string]string{"TARGET_HOUSE_EDGE": "1"}, "TARGET_HOUSE_EDGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := load(env(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
