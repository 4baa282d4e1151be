// Package robosvc drives robot players that bet on every keno game over
// NATS. It is used to keep a demo table busy and to soak-test the service.
package robosvc

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 5 * time.Second

// Requester is the request/reply part of *nats.Conn.
type Requester interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

type Config struct {
	UserIDs      []int64
	MaxSpots     int
	UniverseSize int
	MinBet       int64
	MaxBet       int64
	// MaxDelay spreads robot bets over the start of the countdown.
	MaxDelay time.Duration
}

type Fleet struct {
	conn Requester
	cfg  Config

	mu       sync.Mutex
	rng      *rand.Rand
	lastGame int64

	// after schedules fn, replaced in tests.
	after func(d time.Duration, fn func())
}

func NewFleet(conn Requester, cfg Config, seed uint64) *Fleet {
	return &Fleet{
		conn:  conn,
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		after: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// HandleEvent reacts to a keno event. A countdown for a game the fleet has
// not bet on yet makes every robot place one bet.
func (f *Fleet) HandleEvent(payload []byte) {
	var msg comm.WSMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Errorf("Failed to unmarshal WSMessage: %v", err)
		return
	}
	if msg.Type != comm.TypeGameState {
		return
	}

	var state comm.GameState
	if err := json.Unmarshal(msg.Data, &state); err != nil {
		log.Errorf("Failed to unmarshal game state: %v", err)
		return
	}
	if state.Phase != "countdown" || state.CurrentGame == nil {
		return
	}

	f.mu.Lock()
	if state.CurrentGame.ID == f.lastGame {
		f.mu.Unlock()
		return
	}
	f.lastGame = state.CurrentGame.ID
	bets := make([]comm.PlaceBet, 0, len(f.cfg.UserIDs))
	delays := make([]time.Duration, 0, len(f.cfg.UserIDs))
	for _, id := range f.cfg.UserIDs {
		bets = append(bets, f.randomBet(id))
		var d time.Duration
		if f.cfg.MaxDelay > 0 {
			d = time.Duration(f.rng.Int64N(int64(f.cfg.MaxDelay)))
		}
		delays = append(delays, d)
	}
	f.mu.Unlock()

	for i := range bets {
		bet := bets[i]
		f.after(delays[i], func() { f.place(bet) })
	}
}

// randomBet must be called with f.mu held.
func (f *Fleet) randomBet(userID int64) comm.PlaceBet {
	spots := 1 + f.rng.IntN(f.cfg.MaxSpots)
	numbers := f.rng.Perm(f.cfg.UniverseSize)[:spots]
	for i := range numbers {
		numbers[i]++
	}

	wager := f.cfg.MinBet
	if span := f.cfg.MaxBet - f.cfg.MinBet; span > 0 {
		// whole tens keep the table readable
		wager += f.rng.Int64N(span/10+1) * 10
		if wager > f.cfg.MaxBet {
			wager = f.cfg.MaxBet
		}
	}
	return comm.PlaceBet{UserID: userID, SelectedNumbers: numbers, WagerAmount: wager}
}

func (f *Fleet) place(bet comm.PlaceBet) {
	msg, err := comm.NewMessage(comm.TypePlaceBet, bet)
	if err != nil {
		log.Errorf("encode bet: %v", err)
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("encode bet: %v", err)
		return
	}

	rsp, err := f.conn.Request(comm.SubjectService, payload, requestTimeout)
	if err != nil {
		log.WithField("user_id", bet.UserID).Errorf("place bet: %v", err)
		return
	}

	var reply comm.Reply
	if err := json.Unmarshal(rsp.Data, &reply); err != nil {
		log.Errorf("decode bet reply: %v", err)
		return
	}
	fields := log.Fields{"user_id": bet.UserID, "spots": len(bet.SelectedNumbers), "wager": bet.WagerAmount}
	if !reply.OK {
		log.WithFields(fields).Infof("robot bet rejected: %s", reply.Error)
		return
	}
	log.WithFields(fields).Info("robot bet placed")
}
