package service

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	"github.com/avvvet/keno-services/internal/kenosvc/testhelpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPayoutService(repo store.Repository) *PayoutService {
	analyzer := payout.NewAnalyzer(payout.DefaultTable(), 20, 80, payout.MaxSpots)
	return NewPayoutService(repo, analyzer, 0.25)
}

func TestPayoutService_UpdatePersistsAndApplies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := store.NewMemStore()
	svc := newPayoutService(repo)

	overview, err := svc.Update(ctx, models.PayoutEntry{Spots: 3, Matches: 3, Multiplier: decimal.NewFromInt(60)})
	require.NoError(t, err)
	assert.Len(t, overview.HouseEdgeReport, payout.MaxSpots)
	assert.Len(t, overview.SpotAnalysis, payout.MaxSpots)
	assert.True(t, svc.table.Multiplier(3, 3).Equal(decimal.NewFromInt(60)))

	stored, err := repo.ListPayoutEntries(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Multiplier.Equal(decimal.NewFromInt(60)))

	// a fresh process picks up the stored edit
	restarted := newPayoutService(repo)
	n, err := restarted.LoadStored(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, restarted.table.Multiplier(3, 3).Equal(decimal.NewFromInt(60)))
}

func TestPayoutService_UpdateRejectsInvalid(t *testing.T) {
	t.Parallel()

	repo := new(testhelpers.MockRepository)
	svc := newPayoutService(repo)

	_, err := svc.Update(context.Background(), models.PayoutEntry{Spots: 3, Matches: 3, Multiplier: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, payout.ErrNegativeMultiplier)

	_, err = svc.Update(context.Background(), models.PayoutEntry{Spots: 12, Matches: 3, Multiplier: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, payout.ErrInvalidSpots)

	assert.True(t, svc.table.Multiplier(3, 3).Equal(decimal.NewFromInt(50)))
	repo.AssertExpectations(t)
}

func TestPayoutService_UpdateKeepsTableWhenPersistFails(t *testing.T) {
	t.Parallel()

	repo := new(testhelpers.MockRepository)
	repo.On("UpsertPayoutEntry", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc := newPayoutService(repo)

	_, err := svc.Update(context.Background(), models.PayoutEntry{Spots: 3, Matches: 3, Multiplier: decimal.NewFromInt(70)})
	assert.Error(t, err)
	assert.True(t, svc.table.Multiplier(3, 3).Equal(decimal.NewFromInt(50)))
	repo.AssertExpectations(t)
}

func TestPayoutService_SpotReportAndQuote(t *testing.T) {
	t.Parallel()

	svc := newPayoutService(store.NewMemStore())

	report, err := svc.SpotReport(3)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Spots)
	assert.InDelta(t, 0.75, report.TargetRTP, 1e-12)
	assert.Len(t, report.Breakdown, 4)
	assert.Len(t, report.RecommendedPayouts, 4)
	assert.Equal(t, payout.Recommendation(report.Classification), report.Recommendation)

	_, err = svc.SpotReport(0)
	assert.ErrorIs(t, err, payout.ErrInvalidSpots)

	q, err := svc.Quote(3, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), q.Payouts[3].WinAmount)

	_, err = svc.Quote(3, 0)
	assert.ErrorIs(t, err, ErrInvalidWager)
	_, err = svc.Quote(11, 10)
	assert.ErrorIs(t, err, payout.ErrInvalidSpots)
}

func TestGameService_History(t *testing.T) {
	t.Parallel()

	repo := new(testhelpers.MockRepository)
	repo.On("GetGameHistory", mock.Anything, DefaultHistoryLimit).Return(nil, nil)
	repo.On("GetGameHistory", mock.Anything, MaxHistoryLimit).Return([]*models.Game{{ID: 1}}, nil)

	svc := NewGameService(repo)

	games, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, games)
	assert.Empty(t, games)

	games, err = svc.History(context.Background(), 5000)
	require.NoError(t, err)
	assert.Len(t, games, 1)

	repo.AssertExpectations(t)
}
