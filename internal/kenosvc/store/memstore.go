package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/shopspring/decimal"
)

// FirstGameNumber is the display number given to the first game.
const FirstGameNumber = 1247

// MemStore keeps everything in process memory. It is used when no database
// is configured and in tests.
type MemStore struct {
	mu sync.Mutex

	users   map[int64]*models.User
	games   map[int64]*models.Game
	bets    map[int64]*models.Bet
	payouts map[[2]int]decimal.Decimal

	nextUserID     int64
	nextGameID     int64
	nextBetID      int64
	nextGameNumber int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:          make(map[int64]*models.User),
		games:          make(map[int64]*models.Game),
		bets:           make(map[int64]*models.Bet),
		payouts:        make(map[[2]int]decimal.Decimal),
		nextUserID:     1,
		nextGameID:     1,
		nextBetID:      1,
		nextGameNumber: FirstGameNumber,
	}
}

func (s *MemStore) CreateUser(_ context.Context, username string, balance int64) (*models.User, error) {
	if balance < 0 {
		return nil, ErrInsufficientFunds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, fmt.Errorf("username %q already taken", username)
		}
	}

	u := &models.User{ID: s.nextUserID, Username: username, Balance: balance, CreatedAt: time.Now()}
	s.nextUserID++
	s.users[u.ID] = u
	c := *u
	return &c, nil
}

func (s *MemStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (s *MemStore) UpdateUserBalance(_ context.Context, id int64, balance int64) error {
	if balance < 0 {
		return ErrInsufficientFunds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Balance = balance
	return nil
}

func (s *MemStore) AdjustBalance(_ context.Context, id int64, delta int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.adjust(id, delta)
	if err != nil {
		return nil, err
	}
	c := *u
	return &c, nil
}

// adjust must be called with s.mu held.
func (s *MemStore) adjust(id int64, delta int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Balance+delta < 0 {
		return nil, ErrInsufficientFunds
	}
	u.Balance += delta
	return u, nil
}

func (s *MemStore) CreateGame(_ context.Context, game *models.Game) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := game.Clone()
	g.ID = s.nextGameID
	g.GameNumber = s.nextGameNumber
	s.nextGameID++
	s.nextGameNumber++
	if g.Status == "" {
		g.Status = models.GameWaiting
	}
	if g.StartedAt.IsZero() {
		g.StartedAt = time.Now()
	}
	if g.DrawnNumbers == nil {
		g.DrawnNumbers = []int{}
	}
	s.games[g.ID] = g
	return g.Clone(), nil
}

func (s *MemStore) GetGame(_ context.Context, id int64) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.games[id].Clone(), nil
}

func (s *MemStore) GetCurrentGame(_ context.Context) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *models.Game
	for _, g := range s.games {
		if g.Status == models.GameCompleted {
			continue
		}
		if current == nil || g.ID > current.ID {
			current = g
		}
	}
	return current.Clone(), nil
}

func (s *MemStore) GetUnfinishedGames(_ context.Context) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Game
	for _, g := range s.games {
		if g.Status != models.GameCompleted {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) GetUnsettledGames(_ context.Context) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[int64]bool)
	for _, b := range s.bets {
		if b.Status == models.BetActive {
			pending[b.GameID] = true
		}
	}

	var out []*models.Game
	for id := range pending {
		if g, ok := s.games[id]; ok && g.Status == models.GameCompleted {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) UpdateGame(_ context.Context, id int64, update GameUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	if update.Status != nil {
		g.Status = *update.Status
	}
	if update.DrawnNumbers != nil {
		g.DrawnNumbers = append([]int(nil), update.DrawnNumbers...)
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		g.CompletedAt = &t
	}
	return nil
}

func (s *MemStore) GetGameHistory(_ context.Context, limit int) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Game
	for _, g := range s.games {
		if g.Status == models.GameCompleted {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) CreateBet(_ context.Context, bet *models.Bet) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[bet.UserID]; !ok {
		return nil, fmt.Errorf("user %d: %w", bet.UserID, ErrNotFound)
	}
	if _, ok := s.games[bet.GameID]; !ok {
		return nil, fmt.Errorf("game %d: %w", bet.GameID, ErrNotFound)
	}

	b := bet.Clone()
	b.ID = s.nextBetID
	s.nextBetID++
	b.Status = models.BetActive
	b.WinAmount = nil
	b.MatchedCount = nil
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	s.bets[b.ID] = b
	return b.Clone(), nil
}

func (s *MemStore) GetBetsForGame(_ context.Context, gameID int64) ([]*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filterBets(func(b *models.Bet) bool { return b.GameID == gameID }), nil
}

func (s *MemStore) GetUserBets(_ context.Context, userID int64, gameID int64) ([]*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filterBets(func(b *models.Bet) bool {
		return b.UserID == userID && (gameID == 0 || b.GameID == gameID)
	}), nil
}

func (s *MemStore) filterBets(keep func(*models.Bet) bool) []*models.Bet {
	var out []*models.Bet
	for _, b := range s.bets {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) UpdateBet(_ context.Context, id int64, update BetUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[id]
	if !ok {
		return ErrNotFound
	}
	if update.Status != nil {
		b.Status = *update.Status
	}
	if update.WinAmount != nil {
		v := *update.WinAmount
		b.WinAmount = &v
	}
	if update.MatchedCount != nil {
		v := *update.MatchedCount
		b.MatchedCount = &v
	}
	return nil
}

func (s *MemStore) SettleBet(_ context.Context, st BetSettlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[st.BetID]
	if !ok {
		return false, ErrNotFound
	}
	if b.Status != models.BetActive {
		return false, nil
	}
	if st.WinAmount > 0 {
		if _, err := s.adjust(b.UserID, st.WinAmount); err != nil {
			return false, err
		}
	}

	win, matched := st.WinAmount, st.MatchedCount
	b.Status = st.Status
	b.WinAmount = &win
	b.MatchedCount = &matched
	return true, nil
}

func (s *MemStore) ListPayoutEntries(_ context.Context) ([]models.PayoutEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PayoutEntry, 0, len(s.payouts))
	for k, m := range s.payouts {
		out = append(out, models.PayoutEntry{Spots: k[0], Matches: k[1], Multiplier: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spots != out[j].Spots {
			return out[i].Spots < out[j].Spots
		}
		return out[i].Matches > out[j].Matches
	})
	return out, nil
}

func (s *MemStore) UpsertPayoutEntry(_ context.Context, entry models.PayoutEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payouts[[2]int{entry.Spots, entry.Matches}] = entry.Multiplier
	return nil
}
