package payout

import (
	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/shopspring/decimal"
)

// house default table, multiplier per (spots, matches)
var defaultMultipliers = map[int]map[int]int64{
	1:  {1: 3},
	2:  {2: 12, 1: 0},
	3:  {3: 50, 2: 2, 1: 0},
	4:  {4: 100, 3: 5, 2: 1, 1: 0},
	5:  {5: 300, 4: 15, 3: 2, 2: 0, 1: 0},
	6:  {6: 1000, 5: 50, 4: 5, 3: 1, 2: 0, 1: 0},
	7:  {7: 5000, 6: 150, 5: 15, 4: 2, 3: 0, 2: 0, 1: 0},
	8:  {8: 10000, 7: 500, 6: 50, 5: 8, 4: 2, 3: 0, 2: 0, 1: 0},
	9:  {9: 25000, 8: 2500, 7: 200, 6: 25, 5: 5, 4: 1, 3: 0, 2: 0, 1: 0},
	10: {10: 100000, 9: 10000, 8: 1000, 7: 100, 6: 20, 5: 3, 4: 1, 3: 0, 2: 0, 1: 0},
}

func DefaultEntries() []models.PayoutEntry {
	var entries []models.PayoutEntry
	for spots, row := range defaultMultipliers {
		for matches, m := range row {
			entries = append(entries, models.PayoutEntry{
				Spots:      spots,
				Matches:    matches,
				Multiplier: decimal.NewFromInt(m),
			})
		}
	}
	return entries
}

func DefaultTable() *Table {
	t, err := NewTable(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return t
}
