// Package config reads the keno service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/avvvet/keno-services/internal/kenosvc/cycle"
	"github.com/avvvet/keno-services/internal/kenosvc/draw"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/service"
)

type Config struct {
	Port            string
	PostgresURL     string // empty selects the in-memory store
	MongoURI        string // empty disables the draw archive
	ArchiveTTL      time.Duration
	NatsURL         string // empty runs without NATS
	JWTSecret       string
	RateLimit       int // requests per IP per minute
	PayoutTableFile string
	TargetHouseEdge float64

	Cycle cycle.Config
	Bets  service.BetRules
}

func defaults() Config {
	return Config{
		Port:            "8080",
		ArchiveTTL:      30 * 24 * time.Hour,
		RateLimit:       300,
		TargetHouseEdge: 0.25,
		Cycle:           cycle.DefaultConfig(),
		Bets: service.BetRules{
			MaxSpots:     payout.MaxSpots,
			UniverseSize: 80,
			MinBet:       20,
			MaxBet:       5000,
		},
	}
}

// Load reads the environment over the defaults and validates the result.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	c := defaults()
	p := parser{lookup: lookup}

	p.str("KENO_SERVICE_PORT", &c.Port)
	p.str("POSTGRES_URL", &c.PostgresURL)
	p.str("MONGODB_URI", &c.MongoURI)
	p.duration("ARCHIVE_TTL", &c.ArchiveTTL)
	p.str("NATS_URL", &c.NatsURL)
	p.str("JWT_SECRET_KEY", &c.JWTSecret)
	p.integer("RATE_LIMIT", &c.RateLimit)
	p.str("PAYOUT_TABLE_FILE", &c.PayoutTableFile)
	p.float("TARGET_HOUSE_EDGE", &c.TargetHouseEdge)

	p.duration("COUNTDOWN_DURATION", &c.Cycle.CountdownDuration)
	p.duration("DRAW_INTERVAL", &c.Cycle.DrawInterval)
	p.duration("BREAK_DURATION", &c.Cycle.BreakDuration)
	p.integer("DRAW_SIZE", &c.Cycle.DrawSize)
	p.integer("UNIVERSE_SIZE", &c.Cycle.UniverseSize)

	p.integer("MAX_SPOTS", &c.Bets.MaxSpots)
	p.int64("MIN_BET", &c.Bets.MinBet)
	p.int64("MAX_BET", &c.Bets.MaxBet)
	c.Bets.UniverseSize = c.Cycle.UniverseSize

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the game cannot run with.
func (c Config) Validate() error {
	var errs []error
	if err := draw.Validate(c.Cycle.DrawSize, c.Cycle.UniverseSize); err != nil {
		errs = append(errs, err)
	}
	if c.Bets.MaxSpots < 1 || c.Bets.MaxSpots > payout.MaxSpots {
		errs = append(errs, fmt.Errorf("MAX_SPOTS must be between 1 and %d", payout.MaxSpots))
	}
	if c.Bets.MaxSpots > c.Cycle.DrawSize {
		errs = append(errs, errors.New("MAX_SPOTS cannot exceed DRAW_SIZE"))
	}
	if c.Bets.MinBet < 1 {
		errs = append(errs, errors.New("MIN_BET must be positive"))
	}
	if c.Bets.MinBet > c.Bets.MaxBet {
		errs = append(errs, errors.New("MIN_BET cannot exceed MAX_BET"))
	}
	if c.Cycle.CountdownDuration <= 0 || c.Cycle.DrawInterval <= 0 || c.Cycle.BreakDuration <= 0 {
		errs = append(errs, errors.New("cycle durations must be positive"))
	}
	if c.TargetHouseEdge < 0 || c.TargetHouseEdge >= 1 {
		errs = append(errs, errors.New("TARGET_HOUSE_EDGE must be in [0, 1)"))
	}
	if c.RateLimit < 1 {
		errs = append(errs, errors.New("RATE_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	return v, ok && v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
			return
		}
		*dst = n
	}
}

func (p *parser) int64(key string, dst *int64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
			return
		}
		*dst = n
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
			return
		}
		*dst = f
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("invalid %s value %q: %w", key, v, err))
			return
		}
		*dst = d
	}
}
