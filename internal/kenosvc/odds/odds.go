// Package odds computes keno match probabilities.
package odds

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Calculator binds the draw geometry of a keno game.
type Calculator struct {
	DrawSize     int // numbers drawn per game
	UniverseSize int // numbers on the board
}

// ProbabilityDetails is a display form of a single outcome probability.
type ProbabilityDetails struct {
	Probability float64 `json:"probability"`
	Odds        string  `json:"odds"`
	Frequency   string  `json:"frequency"`
}

// Combinations returns n choose k, zero when k is outside [0, n].
func Combinations(n, k int) *big.Int {
	if n < 0 || k < 0 || k > n {
		return big.NewInt(0)
	}
	return new(big.Int).Binomial(int64(n), int64(k))
}

// Probability returns the hypergeometric probability that exactly matches
// of the spots picked by a player are among the drawSize numbers drawn from
// universeSize. Impossible outcomes yield 0.
func Probability(drawSize, universeSize, spots, matches int) float64 {
	if drawSize < 0 || spots < 0 || matches < 0 || universeSize <= 0 {
		return 0
	}
	if drawSize > universeSize || spots > universeSize {
		return 0
	}
	if matches > spots || matches > drawSize || spots-matches > universeSize-drawSize {
		return 0
	}

	ways := new(big.Int).Mul(
		Combinations(drawSize, matches),
		Combinations(universeSize-drawSize, spots-matches),
	)
	total := Combinations(universeSize, spots)

	p, _ := new(big.Rat).SetFrac(ways, total).Float64()
	return p
}

func (c Calculator) Probability(spots, matches int) float64 {
	return Probability(c.DrawSize, c.UniverseSize, spots, matches)
}

// Details formats a probability as odds ("1 in N") and a percentage.
func Details(p float64) ProbabilityDetails {
	d := ProbabilityDetails{
		Probability: p,
		Odds:        "never",
		Frequency:   decimal.NewFromFloat(p * 100).StringFixed(4) + "%",
	}
	if p > 0 {
		d.Odds = fmt.Sprintf("1 in %d", int64(math.Round(1/p)))
	}
	return d
}

func (c Calculator) Details(spots, matches int) ProbabilityDetails {
	return Details(c.Probability(spots, matches))
}
