package service

import (
	"context"
	"fmt"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	log "github.com/sirupsen/logrus"
)

// PayoutOverview is what an operator sees for the whole table.
type PayoutOverview struct {
	PayoutTable     []models.PayoutEntry   `json:"payoutTable"`
	SpotAnalysis    []payout.SpotAnalysis  `json:"spotAnalysis"`
	HouseEdgeReport []payout.HouseEdgeLine `json:"houseEdgeValidation"`
}

type SpotReport struct {
	Spots              int                   `json:"spots"`
	CurrentRTP         float64               `json:"currentRTP"`
	TargetRTP          float64               `json:"targetRTP"`
	HouseEdge          float64               `json:"houseEdge"`
	Classification     payout.Classification `json:"classification"`
	Recommendation     string                `json:"recommendation"`
	RecommendedPayouts []models.PayoutEntry  `json:"recommendedPayouts"`
	Breakdown          []payout.MatchLine    `json:"probabilityBreakdown"`
}

// PayoutService lets operators read and change the live payout table.
// Changes are persisted and take effect on the next settlement lookup.
type PayoutService struct {
	repo            store.Repository
	table           *payout.Table
	analyzer        *payout.Analyzer
	targetHouseEdge float64
}

func NewPayoutService(repo store.Repository, analyzer *payout.Analyzer, targetHouseEdge float64) *PayoutService {
	return &PayoutService{
		repo:            repo,
		table:           analyzer.Table,
		analyzer:        analyzer,
		targetHouseEdge: targetHouseEdge,
	}
}

// LoadStored applies operator edits saved by a previous process on top of
// the table the service was built with.
func (s *PayoutService) LoadStored(ctx context.Context) (int, error) {
	entries, err := s.repo.ListPayoutEntries(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := s.table.SetMultiplier(e.Spots, e.Matches, e.Multiplier); err != nil {
			log.Warnf("ignoring stored payout %d/%d: %v", e.Matches, e.Spots, err)
		}
	}
	return len(entries), nil
}

func (s *PayoutService) Overview() PayoutOverview {
	return PayoutOverview{
		PayoutTable:     s.table.Entries(),
		SpotAnalysis:    s.analyzer.SpotAnalysis(),
		HouseEdgeReport: s.analyzer.HouseEdgeReport(s.targetHouseEdge),
	}
}

func (s *PayoutService) Update(ctx context.Context, entry models.PayoutEntry) (PayoutOverview, error) {
	if err := payout.ValidateEntry(entry.Spots, entry.Matches, entry.Multiplier); err != nil {
		return PayoutOverview{}, err
	}
	if err := s.repo.UpsertPayoutEntry(ctx, entry); err != nil {
		return PayoutOverview{}, fmt.Errorf("persist payout entry: %w", err)
	}
	if err := s.table.SetMultiplier(entry.Spots, entry.Matches, entry.Multiplier); err != nil {
		return PayoutOverview{}, err
	}

	log.WithFields(log.Fields{
		"spots":      entry.Spots,
		"matches":    entry.Matches,
		"multiplier": entry.Multiplier.String(),
	}).Info("payout multiplier updated")
	return s.Overview(), nil
}

func (s *PayoutService) SpotReport(spots int) (SpotReport, error) {
	if spots < 1 || spots > s.analyzer.MaxSpots {
		return SpotReport{}, fmt.Errorf("%w: %d", payout.ErrInvalidSpots, spots)
	}

	target := 1 - s.targetHouseEdge
	rtp := s.analyzer.ExpectedReturn(spots)
	c := payout.Classify(rtp, target)
	return SpotReport{
		Spots:              spots,
		CurrentRTP:         rtp,
		TargetRTP:          target,
		HouseEdge:          1 - rtp,
		Classification:     c,
		Recommendation:     payout.Recommendation(c),
		RecommendedPayouts: s.analyzer.Recommended(spots, target),
		Breakdown:          s.analyzer.MatchBreakdown(spots),
	}, nil
}

// Quote is the player-facing payout calculator.
func (s *PayoutService) Quote(spots int, wager int64) (payout.Quote, error) {
	if spots < 1 || spots > s.analyzer.MaxSpots {
		return payout.Quote{}, fmt.Errorf("%w: %d", payout.ErrInvalidSpots, spots)
	}
	if wager <= 0 {
		return payout.Quote{}, ErrInvalidWager
	}
	return s.analyzer.Quote(spots, wager), nil
}
