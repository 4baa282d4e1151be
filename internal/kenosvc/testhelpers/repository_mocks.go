package testhelpers

import (
	"context"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of store.Repository
type MockRepository struct {
	mock.Mock
}

var _ store.Repository = (*MockRepository)(nil)

func (m *MockRepository) CreateUser(ctx context.Context, username string, balance int64) (*models.User, error) {
	args := m.Called(ctx, username, balance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) UpdateUserBalance(ctx context.Context, id int64, balance int64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (*models.User, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) CreateGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	args := m.Called(ctx, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockRepository) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockRepository) GetCurrentGame(ctx context.Context) (*models.Game, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockRepository) GetUnfinishedGames(ctx context.Context) ([]*models.Game, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Game), args.Error(1)
}

func (m *MockRepository) GetUnsettledGames(ctx context.Context) ([]*models.Game, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Game), args.Error(1)
}

func (m *MockRepository) UpdateGame(ctx context.Context, id int64, update store.GameUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockRepository) GetGameHistory(ctx context.Context, limit int) ([]*models.Game, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Game), args.Error(1)
}

func (m *MockRepository) CreateBet(ctx context.Context, bet *models.Bet) (*models.Bet, error) {
	args := m.Called(ctx, bet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockRepository) GetBetsForGame(ctx context.Context, gameID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockRepository) GetUserBets(ctx context.Context, userID int64, gameID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, userID, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockRepository) UpdateBet(ctx context.Context, id int64, update store.BetUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockRepository) SettleBet(ctx context.Context, s store.BetSettlement) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListPayoutEntries(ctx context.Context) ([]models.PayoutEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PayoutEntry), args.Error(1)
}

func (m *MockRepository) UpsertPayoutEntry(ctx context.Context, entry models.PayoutEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// OpenWindow is a BettingWindow that always accepts bets for Game.
type OpenWindow struct {
	Game *models.Game
}

func (w OpenWindow) WithBettingWindow(fn func(game *models.Game) error) error {
	return fn(w.Game)
}

// ClosedWindow is a BettingWindow that never accepts bets.
type ClosedWindow struct {
	Err error
}

func (w ClosedWindow) WithBettingWindow(func(game *models.Game) error) error {
	return w.Err
}
