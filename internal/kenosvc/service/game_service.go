package service

import (
	"context"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

type GameService struct {
	repo store.Repository
}

func NewGameService(repo store.Repository) *GameService {
	return &GameService{repo: repo}
}

func (s *GameService) CurrentGame(ctx context.Context) (*models.Game, error) {
	return s.repo.GetCurrentGame(ctx)
}

// History returns completed games, newest first.
func (s *GameService) History(ctx context.Context, limit int) ([]*models.Game, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	games, err := s.repo.GetGameHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = []*models.Game{}
	}
	return games, nil
}
