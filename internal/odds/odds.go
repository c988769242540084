// Package odds converts simulated probabilities into fair odds and screens
// market prices for positive expected value.
package odds

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/podium/internal/simulation"
)

// DefaultThreshold is the minimum probability x odds a bet needs to be reported.
var DefaultThreshold = decimal.RequireFromString("1.15")

var (
	// ErrZeroProbability is returned for outcomes with no simulated mass.
	ErrZeroProbability = errors.New("probability must be positive")
	// ErrInvalidOdds is returned for prices that cannot be parsed or are not above 1.
	ErrInvalidOdds = errors.New("invalid decimal odds")
)

var one = decimal.NewFromInt(1)

// Market is a bet type priced on a race.
type Market string

const (
	Win      Market = "win"
	Place    Market = "place"
	Exacta   Market = "exacta"   // first two in order
	Trifecta Market = "trifecta" // first three in order
	Quinella Market = "quinella" // first two in any order
	Trio     Market = "trio"     // first three in any order
	Wide     Market = "wide"     // two runners both within the simulated depth
)

// size returns the number of runners a selection names and whether order matters.
func (m Market) size() (int, bool, error) {
	switch m {
	case Win, Place:
		return 1, true, nil
	case Exacta:
		return 2, true, nil
	case Quinella, Wide:
		return 2, false, nil
	case Trifecta:
		return 3, true, nil
	case Trio:
		return 3, false, nil
	default:
		return 0, false, fmt.Errorf("unknown market %q", m)
	}
}

// ParseOdds parses a decimal price such as "4.8".
func ParseOdds(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidOdds, s)
	}
	if !d.GreaterThan(one) {
		return decimal.Zero, fmt.Errorf("%w: %s must be above 1", ErrInvalidOdds, d)
	}
	return d, nil
}

// FairOdds returns the decimal price 1/p, rounded to two places.
func FairOdds(p float64) (decimal.Decimal, error) {
	if !(p > 0) || p > 1 {
		return decimal.Zero, fmt.Errorf("%w: got %v", ErrZeroProbability, p)
	}
	return one.DivRound(decimal.NewFromFloat(p), 2), nil
}

// ImpliedProbability returns 1/odds.
func ImpliedProbability(odds decimal.Decimal) float64 {
	if !odds.IsPositive() {
		return 0
	}
	f, _ := one.DivRound(odds, 8).Float64()
	return f
}

// ExpectedValue returns the return per unit staked, p x odds.
func ExpectedValue(p float64, odds decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(p).Mul(odds).Round(4)
}

// Selection is one priced outcome in a market.
type Selection struct {
	Market Market
	IDs    []string
	Odds   decimal.Decimal
}

// ValueBet is a selection whose expected value clears the threshold.
type ValueBet struct {
	Market      Market          `json:"market"`
	IDs         []string        `json:"ids"`
	Probability float64         `json:"probability"`
	Odds        decimal.Decimal `json:"odds"`
	FairOdds    decimal.Decimal `json:"fair_odds"`
	EV          decimal.Decimal `json:"expected_value"`
}

// Probability returns the simulated probability of a selection.
func Probability(result *simulation.Result, market Market, ids ...string) (float64, error) {
	size, ordered, err := market.size()
	if err != nil {
		return 0, err
	}
	if len(ids) != size {
		return 0, fmt.Errorf("%s needs %d runners, got %d", market, size, len(ids))
	}
	if size > result.Metadata.Depth {
		return 0, fmt.Errorf("%s needs a simulated depth of at least %d, got %d", market, size, result.Metadata.Depth)
	}

	switch market {
	case Win:
		return result.Win.Value(ids[0]), nil
	case Place:
		return result.Place.Value(ids[0]), nil
	case Wide:
		return result.Pairs.Value(ids...), nil
	}
	if size == result.Metadata.Depth {
		if ordered {
			return result.Ordered.Value(ids...), nil
		}
		return result.Unordered.Value(ids...), nil
	}
	return prefixProbability(result.Ordered, ids, ordered), nil
}

// prefixProbability sums observed finishing tuples whose first len(ids) places match.
func prefixProbability(table simulation.TupleTable, ids []string, ordered bool) float64 {
	want := make(map[string]int, len(ids))
	for i, id := range ids {
		want[id] = i
	}

	total := 0.0
	for _, row := range table.Top(0) {
		match := true
		for i, id := range row.IDs[:len(ids)] {
			pos, ok := want[id]
			if !ok || (ordered && pos != i) {
				match = false
				break
			}
		}
		if match {
			total += row.Value
		}
	}
	return total
}

// ValueBets prices every selection against the result and returns those with
// EV at or above threshold, highest EV first.
func ValueBets(result *simulation.Result, book []Selection, threshold decimal.Decimal) ([]ValueBet, error) {
	var bets []ValueBet
	for _, sel := range book {
		p, err := Probability(result, sel.Market, sel.IDs...)
		if err != nil {
			return nil, err
		}
		if p <= 0 {
			continue
		}
		ev := ExpectedValue(p, sel.Odds)
		if ev.LessThan(threshold) {
			continue
		}
		fair, err := FairOdds(p)
		if err != nil {
			return nil, err
		}
		bets = append(bets, ValueBet{
			Market:      sel.Market,
			IDs:         append([]string(nil), sel.IDs...),
			Probability: p,
			Odds:        sel.Odds,
			FairOdds:    fair,
			EV:          ev,
		})
	}

	sort.SliceStable(bets, func(i, j int) bool {
		return bets[i].EV.GreaterThan(bets[j].EV)
	})
	return bets, nil
}
