package models

import "time"

type GameStatus string

const (
	GameWaiting   GameStatus = "waiting"
	GameDrawing   GameStatus = "drawing"
	GameCompleted GameStatus = "completed"
)

type Game struct {
	ID           int64      `json:"id"`            // Primary key
	GameNumber   int64      `json:"game_number"`   // Monotonic display number
	DrawnNumbers []int      `json:"drawn_numbers"` // Empty until the draw completes
	Status       GameStatus `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	// DrawSequence is generated when the game is created and revealed one
	// number at a time. It is never sent to clients.
	DrawSequence []int `json:"-"`
}

// Open reports whether the game still accepts bets.
func (g *Game) Open() bool {
	return g.Status == GameWaiting
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.DrawnNumbers = append([]int(nil), g.DrawnNumbers...)
	c.DrawSequence = append([]int(nil), g.DrawSequence...)
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
