// Package edge quantifies the statistical advantage of a predicted line
// over the market's posted line, weighted by how often final margins
// actually land on the numbers between them.
package edge

import (
	"math"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/keynum"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Recommendation labels.
const (
	RecStrongBet = "STRONG BET"
	RecBet       = "BET"
	RecNoBet     = "NO BET"
)

// Config holds the edge thresholds. Injected so tests can tighten or
// loosen them without touching the algorithm.
type Config struct {
	StrongBetEdge float64 // edge% at or above which the play is a strong bet
	BetEdge       float64 // minimum edge% with any betting value
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() *Config {
	return &Config{StrongBetEdge: 7.0, BetEdge: 5.5}
}

// Result is the outcome of one edge calculation.
type Result struct {
	PredictedLine  float64 `json:"predicted_line"`
	MarketLine     float64 `json:"market_line"`
	KeyNumbers     []int   `json:"key_numbers_crossed"`
	TotalValue     float64 `json:"total_value"`
	EdgePercentage float64 `json:"edge_percentage"`
	Recommendation string  `json:"recommendation"`
	UpsetCall      bool    `json:"upset_call"`
}

// Calculator computes key-number-aware edges.
type Calculator struct {
	cfg *Config
}

// NewCalculator creates a calculator with the given thresholds.
func NewCalculator(cfg *Config) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Calculator{cfg: cfg}
}

const lineEpsilon = 1e-9

// CalculateEdge compares a predicted home-relative line against the
// market's. Every integer margin between the two lines contributes its
// landing frequency; when both lines sit exactly on whole numbers the
// two endpoint margins count at half weight, since half of each is
// already captured by one side (see DESIGN.md on the on-the-number
// tie-break). Lines implying opposite favorites pay a one-default-unit
// upset penalty. Edge is non-negative by construction and symmetric in
// its arguments.
func (c *Calculator) CalculateEdge(predicted, market float64, league model.League) Result {
	result := Result{
		PredictedLine:  predicted,
		MarketLine:     market,
		Recommendation: RecNoBet,
	}
	if math.Abs(predicted-market) < lineEpsilon {
		return result
	}

	table := keynum.For(league)

	lo := math.Min(math.Abs(predicted), math.Abs(market))
	hi := math.Max(math.Abs(predicted), math.Abs(market))
	bothOnNumber := onWholeNumber(lo) && onWholeNumber(hi)

	total := 0.0
	for n := int(math.Ceil(lo - lineEpsilon)); n <= int(math.Floor(hi+lineEpsilon)); n++ {
		value := table.Value(n)
		if value == 0 {
			continue
		}
		weight := 1.0
		if bothOnNumber && (onLine(n, lo) || onLine(n, hi)) {
			weight = 0.5
		}
		total += value * weight
		result.KeyNumbers = append(result.KeyNumbers, n)
	}

	// Opposite favorites means the model is calling an outright upset;
	// discount the edge for the extra uncertainty.
	if predicted*market < 0 {
		result.UpsetCall = true
		total -= table.DefaultValue()
	}
	if total < 0 {
		total = 0
	}

	result.TotalValue = total
	result.EdgePercentage = total * 100

	switch {
	case result.EdgePercentage >= c.cfg.StrongBetEdge:
		result.Recommendation = RecStrongBet
	case result.EdgePercentage >= c.cfg.BetEdge:
		result.Recommendation = RecBet
	}
	return result
}

// HalfPointValue reports the marginal worth of buying or selling a half
// point at a line: on a half point it is the average of the two adjacent
// margins, otherwise the exact margin's frequency.
func (c *Calculator) HalfPointValue(line float64, league model.League) float64 {
	table := keynum.For(league)
	abs := math.Abs(line)

	frac := abs - math.Floor(abs)
	if math.Abs(frac-0.5) < lineEpsilon {
		lower := table.Value(int(math.Floor(abs)))
		upper := table.Value(int(math.Ceil(abs)))
		return (lower + upper) / 2
	}
	return table.Value(int(math.Round(abs)))
}

func onWholeNumber(v float64) bool {
	return math.Abs(v-math.Round(v)) < lineEpsilon
}

func onLine(n int, line float64) bool {
	return math.Abs(float64(n)-line) < lineEpsilon
}
