package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgStore is the Postgres implementation of Repository.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const (
	gameColumns = `id, game_number, drawn_numbers, draw_sequence, status, started_at, completed_at`
	betColumns  = `id, user_id, game_id, selected_numbers, wager_amount, win_amount, matched_count, status, created_at`
)

func (s *PgStore) CreateUser(ctx context.Context, username string, balance int64) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (username, balance)
		VALUES ($1, $2)
		RETURNING id, username, balance, created_at
	`, username, balance).Scan(&u.ID, &u.Username, &u.Balance, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("could not create user: %w", pgError(err))
	}
	return u, nil
}

func (s *PgStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRow(ctx, `
		SELECT id, username, balance, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Balance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

func (s *PgStore) UpdateUserBalance(ctx context.Context, id int64, balance int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET balance = $2 WHERE id = $1`, id, balance)
	if err != nil {
		return fmt.Errorf("failed to update balance of user %d: %w", id, pgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) AdjustBalance(ctx context.Context, id int64, delta int64) (*models.User, error) {
	return adjustBalance(ctx, s.db, id, delta)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func adjustBalance(ctx context.Context, q querier, id int64, delta int64) (*models.User, error) {
	u := &models.User{}
	err := q.QueryRow(ctx, `
		UPDATE users
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING id, username, balance, created_at
	`, id, delta).Scan(&u.ID, &u.Username, &u.Balance, &u.CreatedAt)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust balance of user %d: %w", id, err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check user %d: %w", id, err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrInsufficientFunds
}

func (s *PgStore) CreateGame(ctx context.Context, game *models.Game) (*models.Game, error) {
	status := game.Status
	if status == "" {
		status = models.GameWaiting
	}
	drawn := game.DrawnNumbers
	if drawn == nil {
		drawn = []int{}
	}
	sequence := game.DrawSequence
	if sequence == nil {
		sequence = []int{}
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO keno_games (drawn_numbers, draw_sequence, status)
		VALUES ($1, $2, $3)
		RETURNING `+gameColumns, drawn, sequence, string(status))

	g, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return g, nil
}

func (s *PgStore) GetGame(ctx context.Context, id int64) (*models.Game, error) {
	g, err := scanGame(s.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM keno_games WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return g, nil
}

func (s *PgStore) GetCurrentGame(ctx context.Context) (*models.Game, error) {
	g, err := scanGame(s.db.QueryRow(ctx, `
		SELECT `+gameColumns+`
		FROM keno_games
		WHERE status IN ('waiting', 'drawing')
		ORDER BY id DESC
		LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current game: %w", err)
	}
	return g, nil
}

func (s *PgStore) GetUnfinishedGames(ctx context.Context) ([]*models.Game, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+gameColumns+`
		FROM keno_games
		WHERE status IN ('waiting', 'drawing')
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished games: %w", err)
	}
	return collectGames(rows)
}

func (s *PgStore) GetUnsettledGames(ctx context.Context) ([]*models.Game, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+gameColumns+`
		FROM keno_games g
		WHERE g.status = 'completed'
		  AND EXISTS (SELECT 1 FROM keno_bets b WHERE b.game_id = g.id AND b.status = 'active')
		ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled games: %w", err)
	}
	return collectGames(rows)
}

func (s *PgStore) UpdateGame(ctx context.Context, id int64, update GameUpdate) error {
	var status *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE keno_games
		SET status        = COALESCE($2, status),
		    drawn_numbers = COALESCE($3, drawn_numbers),
		    completed_at  = COALESCE($4, completed_at)
		WHERE id = $1
	`, id, status, update.DrawnNumbers, update.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update game %d: %w", id, pgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) GetGameHistory(ctx context.Context, limit int) ([]*models.Game, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+gameColumns+`
		FROM keno_games
		WHERE status = 'completed'
		ORDER BY started_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %w", err)
	}
	return collectGames(rows)
}

func (s *PgStore) CreateBet(ctx context.Context, bet *models.Bet) (*models.Bet, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO keno_bets (user_id, game_id, selected_numbers, wager_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING `+betColumns, bet.UserID, bet.GameID, bet.SelectedNumbers, bet.WagerAmount)

	b, err := scanBet(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", pgError(err))
	}
	return b, nil
}

func (s *PgStore) GetBetsForGame(ctx context.Context, gameID int64) ([]*models.Bet, error) {
	rows, err := s.db.Query(ctx, `SELECT `+betColumns+` FROM keno_bets WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets of game %d: %w", gameID, err)
	}
	return collectBets(rows)
}

func (s *PgStore) GetUserBets(ctx context.Context, userID int64, gameID int64) ([]*models.Bet, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+betColumns+`
		FROM keno_bets
		WHERE user_id = $1 AND ($2::bigint = 0 OR game_id = $2)
		ORDER BY id`, userID, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets of user %d: %w", userID, err)
	}
	return collectBets(rows)
}

func (s *PgStore) UpdateBet(ctx context.Context, id int64, update BetUpdate) error {
	var status *string
	if update.Status != nil {
		v := string(*update.Status)
		status = &v
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE keno_bets
		SET status        = COALESCE($2, status),
		    win_amount    = COALESCE($3, win_amount),
		    matched_count = COALESCE($4, matched_count)
		WHERE id = $1
	`, id, status, update.WinAmount, update.MatchedCount)
	if err != nil {
		return fmt.Errorf("failed to update bet %d: %w", id, pgError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) SettleBet(ctx context.Context, st BetSettlement) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
		UPDATE keno_bets
		SET status = $2, win_amount = $3, matched_count = $4
		WHERE id = $1 AND status = 'active'
		RETURNING user_id
	`, st.BetID, string(st.Status), st.WinAmount, st.MatchedCount).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to settle bet %d: %w", st.BetID, pgError(err))
	}

	if st.WinAmount > 0 {
		if _, err := adjustBalance(ctx, tx, userID, st.WinAmount); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit settlement of bet %d: %w", st.BetID, err)
	}
	return true, nil
}

func (s *PgStore) ListPayoutEntries(ctx context.Context) ([]models.PayoutEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT spots, matches, multiplier::text
		FROM payout_entries
		ORDER BY spots, matches DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PayoutEntry
	for rows.Next() {
		var e models.PayoutEntry
		var multiplier string
		if err := rows.Scan(&e.Spots, &e.Matches, &multiplier); err != nil {
			return nil, err
		}
		if e.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
			return nil, fmt.Errorf("payout %d/%d: %w", e.Matches, e.Spots, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PgStore) UpsertPayoutEntry(ctx context.Context, entry models.PayoutEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payout_entries (spots, matches, multiplier)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (spots, matches)
		DO UPDATE SET multiplier = EXCLUDED.multiplier, updated_at = NOW()
	`, entry.Spots, entry.Matches, entry.Multiplier.String())
	if err != nil {
		return fmt.Errorf("failed to upsert payout %d/%d: %w", entry.Matches, entry.Spots, pgError(err))
	}
	return nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	g := &models.Game{}
	var status string
	err := row.Scan(&g.ID, &g.GameNumber, &g.DrawnNumbers, &g.DrawSequence, &status, &g.StartedAt, &g.CompletedAt)
	if err != nil {
		return nil, err
	}
	g.Status = models.GameStatus(status)
	return g, nil
}

func collectGames(rows pgx.Rows) ([]*models.Game, error) {
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	b := &models.Bet{}
	var status string
	err := row.Scan(&b.ID, &b.UserID, &b.GameID, &b.SelectedNumbers, &b.WagerAmount,
		&b.WinAmount, &b.MatchedCount, &status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = models.BetStatus(status)
	return b, nil
}

func collectBets(rows pgx.Rows) ([]*models.Bet, error) {
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// pgError maps constraint violations onto store errors.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23503": // foreign_key_violation
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrNotFound)
	case "23514": // check_violation
		if pgErr.ConstraintName == "users_balance_check" {
			return ErrInsufficientFunds
		}
	}
	return err
}
