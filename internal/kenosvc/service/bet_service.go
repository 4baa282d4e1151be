package service

import (
	"context"
	"errors"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	log "github.com/sirupsen/logrus"
)

// BettingWindow runs fn while the current game is guaranteed to stay in its
// betting phase. It returns ErrBettingClosed when no game accepts bets.
type BettingWindow interface {
	WithBettingWindow(fn func(game *models.Game) error) error
}

// BetRules bounds what a single bet may look like.
type BetRules struct {
	MaxSpots     int   `json:"maxSpots"`
	UniverseSize int   `json:"universeSize"`
	MinBet       int64 `json:"minBet"`
	MaxBet       int64 `json:"maxBet"`
}

type BetRequest struct {
	UserID          int64 `json:"userId"`
	SelectedNumbers []int `json:"selectedNumbers"`
	WagerAmount     int64 `json:"wagerAmount"`
}

type BetService struct {
	repo   store.Repository
	window BettingWindow
	rules  BetRules
}

func NewBetService(repo store.Repository, window BettingWindow, rules BetRules) *BetService {
	return &BetService{repo: repo, window: window, rules: rules}
}

func (s *BetService) Rules() BetRules {
	return s.rules
}

func (s *BetService) Validate(req BetRequest) error {
	n := len(req.SelectedNumbers)
	if n < 1 || n > s.rules.MaxSpots {
		return reject(ErrInvalidSelectionCount, "Must select between 1 and %d numbers", s.rules.MaxSpots)
	}

	seen := make(map[int]bool, n)
	for _, num := range req.SelectedNumbers {
		if num < 1 || num > s.rules.UniverseSize {
			return reject(ErrInvalidNumber, "Number %d is outside 1-%d", num, s.rules.UniverseSize)
		}
		if seen[num] {
			return reject(ErrDuplicateNumber, "Number %d selected more than once", num)
		}
		seen[num] = true
	}

	if req.WagerAmount <= 0 {
		return reject(ErrInvalidWager, "Wager amount must be positive")
	}
	if s.rules.MinBet > 0 && req.WagerAmount < s.rules.MinBet {
		return reject(ErrInvalidWager, "Minimum bet is %d", s.rules.MinBet)
	}
	if s.rules.MaxBet > 0 && req.WagerAmount > s.rules.MaxBet {
		return reject(ErrInvalidWager, "Maximum bet is %d", s.rules.MaxBet)
	}
	return nil
}

// PlaceBet debits the wager and records the bet against the game currently
// taking bets. A rejected bet changes nothing.
func (s *BetService) PlaceBet(ctx context.Context, req BetRequest) (*models.Bet, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, reject(ErrUserNotFound, "User not found")
	}
	if user.Balance < req.WagerAmount {
		return nil, reject(ErrInsufficientBalance, "Insufficient balance")
	}

	var bet *models.Bet
	err = s.window.WithBettingWindow(func(game *models.Game) error {
		_, err := s.repo.AdjustBalance(ctx, req.UserID, -req.WagerAmount)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			return reject(ErrInsufficientBalance, "Insufficient balance")
		case errors.Is(err, store.ErrNotFound):
			return reject(ErrUserNotFound, "User not found")
		case err != nil:
			return err
		}

		bet, err = s.repo.CreateBet(ctx, &models.Bet{
			UserID:          req.UserID,
			GameID:          game.ID,
			SelectedNumbers: append([]int(nil), req.SelectedNumbers...),
			WagerAmount:     req.WagerAmount,
		})
		if err != nil {
			if _, refundErr := s.repo.AdjustBalance(ctx, req.UserID, req.WagerAmount); refundErr != nil {
				log.WithFields(log.Fields{
					"user_id": req.UserID,
					"game_id": game.ID,
					"amount":  req.WagerAmount,
				}).Errorf("refund after failed bet creation: %v", refundErr)
			}
			return err
		}
		return nil
	})
	if errors.Is(err, ErrBettingClosed) {
		var rej *RejectionError
		if !errors.As(err, &rej) {
			err = reject(ErrBettingClosed, "Betting closed - drawing in progress")
		}
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"bet_id":  bet.ID,
		"user_id": bet.UserID,
		"game_id": bet.GameID,
		"spots":   len(bet.SelectedNumbers),
		"wager":   bet.WagerAmount,
	}).Info("bet placed")
	return bet, nil
}

func (s *BetService) UserBets(ctx context.Context, userID, gameID int64) ([]*models.Bet, error) {
	return s.repo.GetUserBets(ctx, userID, gameID)
}

func (s *BetService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
