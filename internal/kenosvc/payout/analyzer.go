package payout

import (
	"math"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/odds"
	"github.com/shopspring/decimal"
)

type Classification string

const (
	Balanced     Classification = "balanced"
	FavorsPlayer Classification = "favorsPlayer"
	FavorsHouse  Classification = "favorsHouse"
)

// RTPTolerance is the allowed distance between current and target RTP
// before a spot count is flagged.
const RTPTolerance = 0.05

var recommendations = map[Classification]string{
	Balanced:     "Balanced",
	FavorsPlayer: "Reduce payouts - too favorable to players",
	FavorsHouse:  "Increase payouts - too favorable to house",
}

type HouseEdgeLine struct {
	Spots          int            `json:"spot"`
	CurrentRTP     float64        `json:"currentRTP"`
	TargetRTP      float64        `json:"targetRTP"`
	Classification Classification `json:"classification"`
	Recommendation string         `json:"recommendation"`
}

type SpotAnalysis struct {
	Spots             int                  `json:"spots"`
	TotalCombinations string               `json:"totalCombinations"`
	ExpectedRTP       float64              `json:"expectedRTP"`
	HouseEdge         float64              `json:"houseEdge"`
	PayoutEntries     []models.PayoutEntry `json:"payoutEntries"`
}

type MatchLine struct {
	Matches    int             `json:"matches"`
	Multiplier decimal.Decimal `json:"multiplier"`
	odds.ProbabilityDetails
}

type QuoteLine struct {
	Matches    int             `json:"matches"`
	Multiplier decimal.Decimal `json:"multiplier"`
	WinAmount  int64           `json:"winAmount"`
	odds.ProbabilityDetails
}

// Quote is the player-facing payout calculator result.
type Quote struct {
	Spots       int         `json:"spots"`
	BetAmount   int64       `json:"betAmount"`
	Payouts     []QuoteLine `json:"payouts"`
	ExpectedRTP float64     `json:"expectedRTP"`
	HouseEdge   float64     `json:"houseEdge"` // percent
}

// Analyzer combines a payout table with the draw odds. It never mutates the table.
type Analyzer struct {
	Table    *Table
	Odds     odds.Calculator
	MaxSpots int
}

func NewAnalyzer(table *Table, drawSize, universeSize, maxSpots int) *Analyzer {
	return &Analyzer{
		Table:    table,
		Odds:     odds.Calculator{DrawSize: drawSize, UniverseSize: universeSize},
		MaxSpots: maxSpots,
	}
}

// ExpectedReturn is the RTP of a pick size: the sum over every match count
// of its probability times its multiplier.
func (a *Analyzer) ExpectedReturn(spots int) float64 {
	var rtp float64
	for matches := 0; matches <= spots; matches++ {
		p := a.Odds.Probability(spots, matches)
		if p == 0 {
			continue
		}
		rtp += p * a.Table.Multiplier(spots, matches).InexactFloat64()
	}
	return rtp
}

func Recommendation(c Classification) string {
	return recommendations[c]
}

func Classify(currentRTP, targetRTP float64) Classification {
	switch {
	case math.Abs(currentRTP-targetRTP) <= RTPTolerance:
		return Balanced
	case currentRTP > targetRTP+RTPTolerance:
		return FavorsPlayer
	default:
		return FavorsHouse
	}
}

func (a *Analyzer) HouseEdgeReport(targetHouseEdge float64) []HouseEdgeLine {
	target := 1 - targetHouseEdge
	lines := make([]HouseEdgeLine, 0, a.MaxSpots)
	for spots := 1; spots <= a.MaxSpots; spots++ {
		current := a.ExpectedReturn(spots)
		c := Classify(current, target)
		lines = append(lines, HouseEdgeLine{
			Spots:          spots,
			CurrentRTP:     current,
			TargetRTP:      target,
			Classification: c,
			Recommendation: recommendations[c],
		})
	}
	return lines
}

func (a *Analyzer) SpotAnalysis() []SpotAnalysis {
	out := make([]SpotAnalysis, 0, a.MaxSpots)
	for spots := 1; spots <= a.MaxSpots; spots++ {
		rtp := a.ExpectedReturn(spots)
		out = append(out, SpotAnalysis{
			Spots:             spots,
			TotalCombinations: odds.Combinations(a.Odds.UniverseSize, spots).String(),
			ExpectedRTP:       rtp,
			HouseEdge:         1 - rtp,
			PayoutEntries:     a.Table.EntriesFor(spots),
		})
	}
	return out
}

func (a *Analyzer) MatchBreakdown(spots int) []MatchLine {
	lines := make([]MatchLine, 0, spots+1)
	for matches := 0; matches <= spots; matches++ {
		lines = append(lines, MatchLine{
			Matches:            matches,
			Multiplier:         a.Table.Multiplier(spots, matches),
			ProbabilityDetails: a.Odds.Details(spots, matches),
		})
	}
	return lines
}

// Recommended suggests multipliers that spend 60%, 25% and 10% of the target
// RTP on the three best outcomes and pay nothing below them.
func (a *Analyzer) Recommended(spots int, targetRTP float64) []models.PayoutEntry {
	out := make([]models.PayoutEntry, 0, spots+1)
	for matches := 0; matches <= spots; matches++ {
		var share float64
		switch {
		case matches == spots:
			share = 0.6
		case matches == spots-1 && spots > 2:
			share = 0.25
		case matches == spots-2 && spots > 3:
			share = 0.1
		}

		m := decimal.Zero
		if p := a.Odds.Probability(spots, matches); share > 0 && p > 0 {
			m = decimal.NewFromFloat(math.Round(targetRTP * share / p))
		}
		out = append(out, models.PayoutEntry{Spots: spots, Matches: matches, Multiplier: m})
	}
	return out
}

func (a *Analyzer) Quote(spots int, wager int64) Quote {
	q := Quote{Spots: spots, BetAmount: wager}
	for matches := 0; matches <= spots; matches++ {
		q.Payouts = append(q.Payouts, QuoteLine{
			Matches:            matches,
			Multiplier:         a.Table.Multiplier(spots, matches),
			WinAmount:          a.Table.WinAmount(wager, spots, matches),
			ProbabilityDetails: a.Odds.Details(spots, matches),
		})
	}
	q.ExpectedRTP = a.ExpectedReturn(spots)
	q.HouseEdge = (1 - q.ExpectedRTP) * 100
	return q
}
