package models

import "time"

type BetStatus string

const (
	BetActive BetStatus = "active"
	BetWon    BetStatus = "won"
	BetLost   BetStatus = "lost"
)

// Bet is a wager on a single game. SelectedNumbers never change after
// creation; WinAmount, MatchedCount and Status are set once by settlement.
type Bet struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	GameID          int64     `json:"game_id"`
	SelectedNumbers []int     `json:"selected_numbers"`
	WagerAmount     int64     `json:"wager_amount"`
	WinAmount       *int64    `json:"win_amount"`
	MatchedCount    *int      `json:"matched_count"`
	Status          BetStatus `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func (b *Bet) Settled() bool {
	return b.Status == BetWon || b.Status == BetLost
}

func (b *Bet) Clone() *Bet {
	if b == nil {
		return nil
	}
	c := *b
	c.SelectedNumbers = append([]int(nil), b.SelectedNumbers...)
	if b.WinAmount != nil {
		v := *b.WinAmount
		c.WinAmount = &v
	}
	if b.MatchedCount != nil {
		v := *b.MatchedCount
		c.MatchedCount = &v
	}
	return &c
}
