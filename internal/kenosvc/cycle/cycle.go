// Package cycle runs the recurring keno game: countdown, drawing,
// settlement and break, one game at a time.
package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/avvvet/keno-services/internal/kenosvc/broker"
	"github.com/avvvet/keno-services/internal/kenosvc/draw"
	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/service"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	log "github.com/sirupsen/logrus"
)

type Phase string

const (
	Idle      Phase = "idle"
	Countdown Phase = "countdown"
	Drawing   Phase = "drawing"
	Settling  Phase = "settling"
	Break     Phase = "break"
)

// retryDelay is the pause before a failed countdown is attempted again.
const retryDelay = time.Second

type Config struct {
	CountdownDuration time.Duration
	DrawInterval      time.Duration
	BreakDuration     time.Duration
	DrawSize          int
	UniverseSize      int
}

func DefaultConfig() Config {
	return Config{
		CountdownDuration: 50 * time.Second,
		DrawInterval:      1500 * time.Millisecond,
		BreakDuration:     15 * time.Second,
		DrawSize:          20,
		UniverseSize:      80,
	}
}

type Settler interface {
	Settle(ctx context.Context, game *models.Game, drawn []int) (service.SettlementSummary, error)
}

// state is owned by the Run goroutine. Other goroutines only read it
// through Snapshot and WithBettingWindow.
type state struct {
	phase     Phase
	game      *models.Game
	sequence  []int
	drawIndex int
	deadline  time.Time
}

type Cycle struct {
	cfg     Config
	repo    store.Repository
	gen     *draw.Generator
	settler Settler
	out     broker.Broadcaster

	mu sync.RWMutex
	st state

	settleMu sync.Mutex
	settled  map[int64]struct{}
}

func New(cfg Config, repo store.Repository, gen *draw.Generator, settler Settler, out broker.Broadcaster) *Cycle {
	return &Cycle{
		cfg:     cfg,
		repo:    repo,
		gen:     gen,
		settler: settler,
		out:     out,
		st:      state{phase: Idle},
		settled: make(map[int64]struct{}),
	}
}

// Run drives games until ctx is cancelled. A game interrupted by shutdown
// is left for Recover on the next start.
func (c *Cycle) Run(ctx context.Context) error {
	for {
		game, err := c.startCountdown(ctx)
		if err != nil {
			log.Errorf("start countdown: %v", err)
			if !wait(ctx, retryDelay) {
				return ctx.Err()
			}
			continue
		}

		if !wait(ctx, c.cfg.CountdownDuration) {
			return ctx.Err()
		}

		c.startDrawing(ctx)
		if !c.reveal(ctx) {
			return ctx.Err()
		}

		// settlement is not interruptible once all numbers are out
		c.complete(context.WithoutCancel(ctx), game)

		if !wait(ctx, c.cfg.BreakDuration) {
			return ctx.Err()
		}
	}
}

func (c *Cycle) startCountdown(ctx context.Context) (*models.Game, error) {
	sequence, err := c.gen.Draw(c.cfg.DrawSize, c.cfg.UniverseSize)
	if err != nil {
		return nil, err
	}

	game, err := c.repo.CreateGame(ctx, &models.Game{
		Status:       models.GameWaiting,
		DrawnNumbers: []int{},
		DrawSequence: sequence,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.st = state{
		phase:    Countdown,
		game:     game.Clone(),
		sequence: sequence,
		deadline: time.Now().Add(c.cfg.CountdownDuration),
	}
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"game_id":     game.ID,
		"game_number": game.GameNumber,
	}).Info("countdown started")

	c.out.GameState(c.Snapshot())
	return game, nil
}

// startDrawing closes betting for the current game. It reports false and
// does nothing when drawing is already under way or there is no game.
func (c *Cycle) startDrawing(ctx context.Context) bool {
	c.mu.Lock()
	if c.st.phase != Countdown || c.st.game == nil {
		c.mu.Unlock()
		return false
	}
	c.st.phase = Drawing
	c.st.game.Status = models.GameDrawing
	c.st.drawIndex = 0
	c.st.deadline = time.Now().Add(time.Duration(len(c.st.sequence)) * c.cfg.DrawInterval)
	gameID := c.st.game.ID
	c.mu.Unlock()

	status := models.GameDrawing
	if err := c.repo.UpdateGame(ctx, gameID, store.GameUpdate{Status: &status}); err != nil {
		log.WithField("game_id", gameID).Errorf("persist drawing status: %v", err)
	}

	log.WithField("game_id", gameID).Info("drawing started")
	c.out.DrawingStarted(comm.DrawingStarted{GameID: gameID})
	return true
}

// reveal publishes the pre-generated numbers one per DrawInterval, in
// sequence order.
func (c *Cycle) reveal(ctx context.Context) bool {
	ticker := time.NewTicker(c.cfg.DrawInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.st.phase != Drawing || c.st.drawIndex >= len(c.st.sequence) {
			c.mu.Unlock()
			return true
		}
		number := c.st.sequence[c.st.drawIndex]
		c.st.drawIndex++
		ev := comm.NumberDrawn{Number: number, Index: c.st.drawIndex, Total: len(c.st.sequence)}
		c.mu.Unlock()

		c.out.NumberDrawn(ev)
		if ev.Index == ev.Total {
			return true
		}
	}
}

// complete settles the game, marks it completed and announces the result.
// Settlement finishes before gameCompleted is sent.
func (c *Cycle) complete(ctx context.Context, game *models.Game) {
	c.mu.Lock()
	c.st.phase = Settling
	sequence := append([]int(nil), c.st.sequence...)
	c.mu.Unlock()

	c.settleOnce(ctx, game, sequence)

	completedAt := c.persistCompleted(ctx, game.ID, sequence)

	c.mu.Lock()
	c.st.phase = Break
	c.st.game.Status = models.GameCompleted
	c.st.game.DrawnNumbers = sequence
	c.st.game.CompletedAt = &completedAt
	c.st.deadline = time.Now().Add(c.cfg.BreakDuration)
	next := c.st.deadline
	c.mu.Unlock()

	c.out.GameCompleted(comm.GameCompleted{
		GameID:       game.ID,
		GameNumber:   game.GameNumber,
		DrawnNumbers: sequence,
		NextGameTime: next.UnixMilli(),
	})
}

func (c *Cycle) persistCompleted(ctx context.Context, gameID int64, drawn []int) time.Time {
	completedAt := time.Now()
	status := models.GameCompleted
	err := c.repo.UpdateGame(ctx, gameID, store.GameUpdate{
		Status:       &status,
		DrawnNumbers: drawn,
		CompletedAt:  &completedAt,
	})
	if err != nil {
		log.WithField("game_id", gameID).Errorf("persist completed game: %v", err)
	}
	return completedAt
}

// settleOnce runs settlement at most once per game id in this process.
func (c *Cycle) settleOnce(ctx context.Context, game *models.Game, drawn []int) {
	c.settleMu.Lock()
	if _, done := c.settled[game.ID]; done {
		c.settleMu.Unlock()
		log.WithField("game_id", game.ID).Warn("settlement already ran, skipping")
		return
	}
	c.settled[game.ID] = struct{}{}
	if len(c.settled) > 256 {
		for id := range c.settled {
			if id < game.ID-128 {
				delete(c.settled, id)
			}
		}
	}
	c.settleMu.Unlock()

	if _, err := c.settler.Settle(ctx, game, drawn); err != nil {
		log.WithField("game_id", game.ID).Errorf("settlement failed: %v", err)
	}
}

// Recover completes games a previous process left waiting or drawing,
// settling their bets against the stored draw sequence. It then retries
// settlement for completed games whose bets are still active. Call it
// before Run. The count covers both kinds of game.
func (c *Cycle) Recover(ctx context.Context) (int, error) {
	games, err := c.repo.GetUnfinishedGames(ctx)
	if err != nil {
		return 0, err
	}

	for _, g := range games {
		sequence := g.DrawSequence
		if len(sequence) != c.cfg.DrawSize {
			sequence, err = c.gen.Draw(c.cfg.DrawSize, c.cfg.UniverseSize)
			if err != nil {
				return 0, err
			}
		}

		log.WithFields(log.Fields{
			"game_id":     g.ID,
			"game_number": g.GameNumber,
			"status":      g.Status,
		}).Warn("recovering interrupted game")

		c.settleOnce(ctx, g, sequence)
		c.persistCompleted(ctx, g.ID, sequence)
	}

	unsettled, err := c.repo.GetUnsettledGames(ctx)
	if err != nil {
		return len(games), err
	}
	for _, g := range unsettled {
		log.WithFields(log.Fields{
			"game_id":     g.ID,
			"game_number": g.GameNumber,
		}).Warn("retrying settlement of completed game")

		// SettleBet only touches active bets, so a repeat is harmless.
		summary, err := c.settler.Settle(ctx, g, g.DrawnNumbers)
		if err != nil {
			log.WithField("game_id", g.ID).Errorf("settlement retry failed: %v", err)
			continue
		}
		log.WithFields(log.Fields{
			"game_id": g.ID,
			"won":     summary.Won,
			"lost":    summary.Lost,
		}).Info("settlement retry done")
	}
	return len(games) + len(unsettled), nil
}

// WithBettingWindow runs fn while the current game is guaranteed to stay in
// countdown. The switch to drawing waits for fn to return, so a bet accepted
// here is always part of the game's settlement.
func (c *Cycle) WithBettingWindow(fn func(game *models.Game) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.st.phase != Countdown || c.st.game == nil || !c.st.game.Open() {
		return service.ErrBettingClosed
	}
	return fn(c.st.game.Clone())
}

func (c *Cycle) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.st.phase
}

// Snapshot is the full state a client needs to join mid-cycle.
func (c *Cycle) Snapshot() comm.GameState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	drawn := make([]int, c.st.drawIndex)
	copy(drawn, c.st.sequence[:c.st.drawIndex])

	s := comm.GameState{
		Phase:            string(c.st.phase),
		CurrentGame:      c.st.game.Clone(),
		DrawnNumbers:     drawn,
		CurrentDrawIndex: c.st.drawIndex,
		TotalDraws:       c.cfg.DrawSize,
		IsDrawing:        c.st.phase == Drawing,
	}
	if !c.st.deadline.IsZero() {
		s.NextDrawTime = c.st.deadline.UnixMilli()
	}
	return s
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
