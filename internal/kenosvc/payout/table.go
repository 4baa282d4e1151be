// Package payout holds the keno payout table and its return-to-player analysis.
package payout

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/shopspring/decimal"
)

// MaxSpots is the largest pick size the table accepts.
const MaxSpots = 10

var (
	ErrNegativeMultiplier = errors.New("multiplier must not be negative")
	ErrInvalidSpots       = errors.New("spots out of range")
	ErrInvalidMatches     = errors.New("matches out of range")
)

type key struct {
	spots, matches int
}

// Table is the live payout configuration. Reads and writes may happen
// concurrently; a write is visible to the next lookup.
type Table struct {
	mu      sync.RWMutex
	entries map[key]decimal.Decimal
}

func NewTable(entries ...models.PayoutEntry) (*Table, error) {
	t := &Table{entries: make(map[key]decimal.Decimal, len(entries))}
	for _, e := range entries {
		if err := t.SetMultiplier(e.Spots, e.Matches, e.Multiplier); err != nil {
			return nil, fmt.Errorf("payout entry %d/%d: %w", e.Matches, e.Spots, err)
		}
	}
	return t, nil
}

// Multiplier returns the multiplier for the outcome, zero when the table
// has no entry for it.
func (t *Table) Multiplier(spots, matches int) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if m, ok := t.entries[key{spots, matches}]; ok {
		return m
	}
	return decimal.Zero
}

// ValidateEntry checks an entry without applying it.
func ValidateEntry(spots, matches int, multiplier decimal.Decimal) error {
	if spots < 1 || spots > MaxSpots {
		return fmt.Errorf("%w: %d", ErrInvalidSpots, spots)
	}
	if matches < 0 || matches > spots {
		return fmt.Errorf("%w: %d for %d spots", ErrInvalidMatches, matches, spots)
	}
	if multiplier.IsNegative() {
		return ErrNegativeMultiplier
	}
	return nil
}

func (t *Table) SetMultiplier(spots, matches int, multiplier decimal.Decimal) error {
	if err := ValidateEntry(spots, matches, multiplier); err != nil {
		return err
	}

	t.mu.Lock()
	t.entries[key{spots, matches}] = multiplier
	t.mu.Unlock()
	return nil
}

// Entries returns a copy of the table ordered by spots, then by matches
// from best to worst.
func (t *Table) Entries() []models.PayoutEntry {
	t.mu.RLock()
	out := make([]models.PayoutEntry, 0, len(t.entries))
	for k, m := range t.entries {
		out = append(out, models.PayoutEntry{Spots: k.spots, Matches: k.matches, Multiplier: m})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Spots != out[j].Spots {
			return out[i].Spots < out[j].Spots
		}
		return out[i].Matches > out[j].Matches
	})
	return out
}

// EntriesFor returns the entries of a single pick size.
func (t *Table) EntriesFor(spots int) []models.PayoutEntry {
	var out []models.PayoutEntry
	for _, e := range t.Entries() {
		if e.Spots == spots {
			out = append(out, e)
		}
	}
	return out
}

// WinAmount is the credited amount for a wager, rounded down to the
// smallest currency unit.
func (t *Table) WinAmount(wager int64, spots, matches int) int64 {
	m := t.Multiplier(spots, matches)
	if m.IsZero() {
		return 0
	}
	return decimal.NewFromInt(wager).Mul(m).Floor().IntPart()
}
