package service

import (
	"context"
	"fmt"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	log "github.com/sirupsen/logrus"
)

type SettlementSummary struct {
	GameID  int64 `json:"gameId"`
	Bets    int   `json:"bets"`
	Won     int   `json:"won"`
	Lost    int   `json:"lost"`
	Skipped int   `json:"skipped"` // already settled
	Failed  int   `json:"failed"`
	Wagered int64 `json:"wagered"`
	PaidOut int64 `json:"paidOut"`
}

type SettlementService struct {
	repo  store.Repository
	table *payout.Table
}

func NewSettlementService(repo store.Repository, table *payout.Table) *SettlementService {
	return &SettlementService{repo: repo, table: table}
}

// Settle scores every bet of game against drawn and credits winners. Bets
// that are no longer active are skipped, so settling twice pays once. A
// failing bet is logged and does not stop the rest.
func (s *SettlementService) Settle(ctx context.Context, game *models.Game, drawn []int) (SettlementSummary, error) {
	summary := SettlementSummary{GameID: game.ID}

	bets, err := s.repo.GetBetsForGame(ctx, game.ID)
	if err != nil {
		return summary, fmt.Errorf("load bets of game %d: %w", game.ID, err)
	}

	drawnSet := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		drawnSet[n] = true
	}

	for _, bet := range bets {
		summary.Bets++
		if bet.Status != models.BetActive {
			summary.Skipped++
			continue
		}

		st := Score(s.table, bet, drawnSet)
		ok, err := s.repo.SettleBet(ctx, st)
		if err != nil {
			summary.Failed++
			log.WithFields(log.Fields{
				"game_id": game.ID,
				"bet_id":  bet.ID,
				"user_id": bet.UserID,
			}).Errorf("settle bet: %v", err)
			continue
		}
		if !ok {
			summary.Skipped++
			continue
		}

		summary.Wagered += bet.WagerAmount
		if st.Status == models.BetWon {
			summary.Won++
			summary.PaidOut += st.WinAmount
		} else {
			summary.Lost++
		}
	}

	log.WithFields(log.Fields{
		"game_id": game.ID,
		"bets":    summary.Bets,
		"won":     summary.Won,
		"lost":    summary.Lost,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
		"paid":    summary.PaidOut,
	}).Info("game settled")
	return summary, nil
}

// Score computes the outcome of one bet without touching storage.
func Score(table *payout.Table, bet *models.Bet, drawn map[int]bool) store.BetSettlement {
	matches := 0
	for _, n := range bet.SelectedNumbers {
		if drawn[n] {
			matches++
		}
	}

	win := table.WinAmount(bet.WagerAmount, len(bet.SelectedNumbers), matches)
	status := models.BetLost
	if win > 0 {
		status = models.BetWon
	}
	return store.BetSettlement{
		BetID:        bet.ID,
		UserID:       bet.UserID,
		Status:       status,
		MatchedCount: matches,
		WinAmount:    win,
	}
}
