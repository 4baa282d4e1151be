// Package store persists users, games, bets and payout entries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// GameUpdate is a partial game update. Nil fields are left unchanged.
type GameUpdate struct {
	Status       *models.GameStatus
	DrawnNumbers []int
	CompletedAt  *time.Time
}

// BetUpdate is a partial bet update. Nil fields are left unchanged.
type BetUpdate struct {
	Status       *models.BetStatus
	WinAmount    *int64
	MatchedCount *int
}

// BetSettlement is the outcome applied to one active bet.
type BetSettlement struct {
	BetID        int64
	UserID       int64
	Status       models.BetStatus
	MatchedCount int
	WinAmount    int64
}

// Repository is the persistence contract of the keno service. Get methods
// return (nil, nil) when the record does not exist.
type Repository interface {
	CreateUser(ctx context.Context, username string, balance int64) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUserBalance(ctx context.Context, id int64, balance int64) error
	// AdjustBalance adds delta to the balance and returns the updated user.
	// It fails with ErrInsufficientFunds instead of going below zero.
	AdjustBalance(ctx context.Context, id int64, delta int64) (*models.User, error)

	CreateGame(ctx context.Context, game *models.Game) (*models.Game, error)
	GetGame(ctx context.Context, id int64) (*models.Game, error)
	// GetCurrentGame returns the newest game that is waiting or drawing.
	GetCurrentGame(ctx context.Context) (*models.Game, error)
	GetUnfinishedGames(ctx context.Context) ([]*models.Game, error)
	// GetUnsettledGames returns completed games that still hold active bets.
	GetUnsettledGames(ctx context.Context) ([]*models.Game, error)
	UpdateGame(ctx context.Context, id int64, update GameUpdate) error
	GetGameHistory(ctx context.Context, limit int) ([]*models.Game, error)

	CreateBet(ctx context.Context, bet *models.Bet) (*models.Bet, error)
	GetBetsForGame(ctx context.Context, gameID int64) ([]*models.Bet, error)
	// GetUserBets filters by game when gameID is non-zero.
	GetUserBets(ctx context.Context, userID int64, gameID int64) ([]*models.Bet, error)
	UpdateBet(ctx context.Context, id int64, update BetUpdate) error
	// SettleBet moves an active bet to its final status and credits the win
	// to its owner in one unit of work. It reports false, without crediting,
	// when the bet was already settled.
	SettleBet(ctx context.Context, s BetSettlement) (bool, error)

	ListPayoutEntries(ctx context.Context) ([]models.PayoutEntry, error)
	UpsertPayoutEntry(ctx context.Context, entry models.PayoutEntry) error
}
