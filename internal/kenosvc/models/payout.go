package models

import "github.com/shopspring/decimal"

// PayoutEntry maps a (spots, matches) outcome to the multiplier applied to
// the wager. A zero multiplier is a losing outcome.
type PayoutEntry struct {
	Spots      int             `json:"spots"`
	Matches    int             `json:"matches"`
	Multiplier decimal.Decimal `json:"multiplier"`
}
