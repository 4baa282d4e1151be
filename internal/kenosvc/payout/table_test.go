package payout

import (
	"sync"
	"testing"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_MissingEntryIsZero(t *testing.T) {
	t.Parallel()

	table, err := NewTable()
	require.NoError(t, err)

	for spots := 1; spots <= MaxSpots; spots++ {
		for matches := 0; matches <= spots; matches++ {
			assert.True(t, table.Multiplier(spots, matches).IsZero())
		}
	}
	assert.True(t, table.Multiplier(42, 7).IsZero())
}

func TestTable_SetThenGet(t *testing.T) {
	t.Parallel()

	table, err := NewTable()
	require.NoError(t, err)

	require.NoError(t, table.SetMultiplier(3, 3, decimal.NewFromInt(50)))
	assert.True(t, decimal.NewFromInt(50).Equal(table.Multiplier(3, 3)))

	require.NoError(t, table.SetMultiplier(3, 3, decimal.RequireFromString("42.5")))
	assert.Equal(t, "42.5", table.Multiplier(3, 3).String())
	assert.Len(t, table.Entries(), 1)
}

func TestTable_SetRejectsInvalid(t *testing.T) {
	t.Parallel()

	table, err := NewTable()
	require.NoError(t, err)

	assert.ErrorIs(t, table.SetMultiplier(3, 2, decimal.NewFromInt(-1)), ErrNegativeMultiplier)
	assert.ErrorIs(t, table.SetMultiplier(0, 0, decimal.NewFromInt(1)), ErrInvalidSpots)
	assert.ErrorIs(t, table.SetMultiplier(11, 1, decimal.NewFromInt(1)), ErrInvalidSpots)
	assert.ErrorIs(t, table.SetMultiplier(3, 4, decimal.NewFromInt(1)), ErrInvalidMatches)
	assert.Empty(t, table.Entries())

	_, err = NewTable(models.PayoutEntry{Spots: 2, Matches: 2, Multiplier: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, ErrNegativeMultiplier)
}

func TestTable_EntriesOrderedCopy(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	entries := table.Entries()
	require.NotEmpty(t, entries)

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.Spots == cur.Spots {
			assert.Greater(t, prev.Matches, cur.Matches)
		} else {
			assert.Less(t, prev.Spots, cur.Spots)
		}
	}

	entries[0].Multiplier = decimal.NewFromInt(999999)
	assert.True(t, table.Multiplier(1, 1).Equal(decimal.NewFromInt(3)))
}

func TestTable_WinAmount(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	assert.Equal(t, int64(1500), table.WinAmount(30, 3, 3))
	assert.Equal(t, int64(0), table.WinAmount(30, 3, 1))

	require.NoError(t, table.SetMultiplier(2, 1, decimal.RequireFromString("0.5")))
	assert.Equal(t, int64(12), table.WinAmount(25, 2, 1))
}

func TestTable_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	table := DefaultTable()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = table.SetMultiplier(5, 5, decimal.NewFromInt(int64(300+j)))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = table.Multiplier(5, 5)
				_ = table.Entries()
			}
		}()
	}
	wg.Wait()

	assert.True(t, table.Multiplier(5, 5).GreaterThanOrEqual(decimal.NewFromInt(300)))
}
