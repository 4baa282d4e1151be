package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/avvvet/keno-services/internal/kenosvc/archive"
	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/service"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	"github.com/avvvet/keno-services/internal/kenosvc/testhelpers"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubState struct{}

func (stubState) Snapshot() comm.GameState {
	return comm.GameState{Phase: "countdown", TotalDraws: 20}
}

type fakeArchive struct {
	records []archive.DrawRecord
	err     error
	limit   int64
}

func (a *fakeArchive) Recent(_ context.Context, limit int64) ([]archive.DrawRecord, error) {
	a.limit = limit
	if a.err != nil {
		return nil, a.err
	}
	return a.records, nil
}

type fixture struct {
	h      *Handler
	router *chi.Mux
	auth   *jwtauth.JWTAuth
	repo   *store.MemStore
	user   *models.User
	game   *models.Game
}

func newFixture(t *testing.T, window service.BettingWindow) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := store.NewMemStore()
	user, err := repo.CreateUser(ctx, "player1", 1000)
	require.NoError(t, err)
	game, err := repo.CreateGame(ctx, &models.Game{Status: models.GameWaiting})
	require.NoError(t, err)
	if window == nil {
		window = testhelpers.OpenWindow{Game: game}
	}

	rules := service.BetRules{MaxSpots: 10, UniverseSize: 80, MinBet: 20, MaxBet: 5000}
	analyzer := payout.NewAnalyzer(payout.DefaultTable(), 20, 80, 10)
	h := NewHandler(
		service.NewBetService(repo, window, rules),
		service.NewGameService(repo),
		service.NewPayoutService(repo, analyzer, 0.25),
		stubState{},
		nil,
	)
	auth := h.InitAuth(testSecret)

	r := chi.NewRouter()
	h.SetRoutes(r)
	return &fixture{h: h, router: r, auth: auth, repo: repo, user: user, game: game}
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var rsp Response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	}
	return rec, rsp
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	_, token, err := f.auth.Encode(map[string]interface{}{"operator": "ops"})
	require.NoError(t, err)
	return token
}

// decode re-marshals the generic Data field into dst.
func decode(t *testing.T, data interface{}, dst any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodGet, "/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, rsp.Code)
}

func TestPlaceBet(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodPost, "/v1/bet", map[string]any{
		"userId": f.user.ID, "selectedNumbers": []int{1, 2, 3}, "wagerAmount": 100,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var bet models.Bet
	decode(t, rsp.Data, &bet)
	assert.Equal(t, f.game.ID, bet.GameID)
	assert.Equal(t, models.BetActive, bet.Status)

	user, err := f.repo.GetUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), user.Balance)
}

func TestPlaceBet_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   any
		status int
		reason string
	}{
		{"malformed", "not a bet", http.StatusBadRequest, "Invalid bet data"},
		{"no numbers", map[string]any{"userId": 1, "selectedNumbers": []int{}, "wagerAmount": 100}, http.StatusBadRequest, "Must select between 1 and 10 numbers"},
		{"out of range", map[string]any{"userId": 1, "selectedNumbers": []int{81}, "wagerAmount": 100}, http.StatusBadRequest, "Number 81 is outside 1-80"},
		{"below minimum", map[string]any{"userId": 1, "selectedNumbers": []int{5}, "wagerAmount": 10}, http.StatusBadRequest, "Minimum bet is 20"},
		{"insufficient", map[string]any{"userId": 1, "selectedNumbers": []int{5}, "wagerAmount": 2000}, http.StatusBadRequest, "Insufficient balance"},
		{"unknown user", map[string]any{"userId": 99, "selectedNumbers": []int{5}, "wagerAmount": 100}, http.StatusNotFound, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)

			rec, rsp := f.do(t, http.MethodPost, "/v1/bet", tt.body, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.reason, rsp.Error)

			user, err := f.repo.GetUser(context.Background(), f.user.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1000), user.Balance)
		})
	}
}

func TestPlaceBet_Closed(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testhelpers.ClosedWindow{Err: service.ErrBettingClosed})

	rec, rsp := f.do(t, http.MethodPost, "/v1/bet", map[string]any{
		"userId": f.user.ID, "selectedNumbers": []int{7}, "wagerAmount": 100,
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Betting closed - drawing in progress", rsp.Error)
}

func TestUserEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodGet, "/v1/user/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	decode(t, rsp.Data, &user)
	assert.Equal(t, "player1", user.Username)

	rec, _ = f.do(t, http.MethodGet, "/v1/user/42", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/v1/user/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, rsp = f.do(t, http.MethodGet, "/v1/user/1/bets", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, rsp.Data)

	f.do(t, http.MethodPost, "/v1/bet", map[string]any{
		"userId": f.user.ID, "selectedNumbers": []int{4, 5}, "wagerAmount": 50,
	}, "")

	_, rsp = f.do(t, http.MethodGet, "/v1/user/1/bets?gameId=1", nil, "")
	var bets []models.Bet
	decode(t, rsp.Data, &bets)
	require.Len(t, bets, 1)
	assert.Equal(t, []int{4, 5}, bets[0].SelectedNumbers)

	_, rsp = f.do(t, http.MethodGet, "/v1/user/1/bets?gameId=2", nil, "")
	assert.Equal(t, []interface{}{}, rsp.Data)
}

func TestGameEndpoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodGet, "/v1/game/current", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var current struct {
		Game  *models.Game   `json:"game"`
		State comm.GameState `json:"state"`
	}
	decode(t, rsp.Data, &current)
	require.NotNil(t, current.Game)
	assert.Equal(t, f.game.GameNumber, current.Game.GameNumber)
	assert.Equal(t, "countdown", current.State.Phase)

	rec, rsp = f.do(t, http.MethodGet, "/v1/game/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, rsp.Data)

	rec, _ = f.do(t, http.MethodGet, "/v1/game/history?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayoutCalculator(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodGet, "/v1/payout-calculator?spots=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quote payout.Quote
	decode(t, rsp.Data, &quote)
	assert.Equal(t, int64(100), quote.BetAmount)
	require.Len(t, quote.Payouts, 2)
	assert.Equal(t, int64(300), quote.Payouts[1].WinAmount)
	assert.Equal(t, "1 in 4", quote.Payouts[1].Odds)

	rec, _ = f.do(t, http.MethodGet, "/v1/payout-calculator?spots=11", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/v1/payout-calculator?spots=2&betAmount=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, _ := f.do(t, http.MethodGet, "/v1/admin/payout-table", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/v1/admin/payout-table", nil, "forged.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.token(t)
	rec, rsp := f.do(t, http.MethodGet, "/v1/admin/payout-table", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview service.PayoutOverview
	decode(t, rsp.Data, &overview)
	assert.Len(t, overview.SpotAnalysis, 10)
	assert.Len(t, overview.HouseEdgeReport, 10)

	rec, _ = f.do(t, http.MethodPost, "/v1/admin/payout-table", map[string]any{
		"spots": 1, "matches": 1, "multiplier": "2.5",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := f.repo.ListPayoutEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2.5", entries[0].Multiplier.String())

	_, rsp = f.do(t, http.MethodGet, "/v1/payout-calculator?spots=1&betAmount=10", nil, "")
	var quote payout.Quote
	decode(t, rsp.Data, &quote)
	assert.Equal(t, int64(25), quote.Payouts[1].WinAmount)

	rec, rsp = f.do(t, http.MethodPost, "/v1/admin/payout-table", map[string]any{
		"spots": 3, "matches": 4, "multiplier": 1,
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rsp.Error, "matches out of range")

	rec, rsp = f.do(t, http.MethodGet, "/v1/admin/payout-analysis/1", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var report service.SpotReport
	decode(t, rsp.Data, &report)
	assert.Equal(t, 1, report.Spots)
	assert.InDelta(t, 0.625, report.CurrentRTP, 1e-9)
	assert.Len(t, report.Breakdown, 2)

	rec, _ = f.do(t, http.MethodGet, "/v1/admin/payout-analysis/0", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBetRules(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodGet, "/v1/bet/rules", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rules service.BetRules
	decode(t, rsp.Data, &rules)
	assert.Equal(t, service.BetRules{MaxSpots: 10, UniverseSize: 80, MinBet: 20, MaxBet: 5000}, rules)
}

func TestArchivedDraws(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	rec, rsp := f.do(t, http.MethodGet, "/v1/game/archive", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Draw archive not configured", rsp.Error)

	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	draws := &fakeArchive{records: []archive.DrawRecord{
		{GameID: 7, GameNumber: 1253, DrawnNumbers: []int{4, 8, 15}, CompletedAt: completed},
	}}
	f.h.UseArchive(draws)

	rec, rsp = f.do(t, http.MethodGet, "/v1/game/archive", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(50), draws.limit)
	var got []archive.DrawRecord
	decode(t, rsp.Data, &got)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1253), got[0].GameNumber)
	assert.Equal(t, []int{4, 8, 15}, got[0].DrawnNumbers)

	rec, _ = f.do(t, http.MethodGet, "/v1/game/archive?limit=5", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), draws.limit)

	for _, bad := range []string{"0", "501", "abc"} {
		rec, _ = f.do(t, http.MethodGet, "/v1/game/archive?limit="+bad, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	draws.err = errors.New("mongo down")
	rec, rsp = f.do(t, http.MethodGet, "/v1/game/archive", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", rsp.Error)
}
