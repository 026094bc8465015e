package tracker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Summary aggregates results over a set of tracked bets. Money figures
// and rates cover settled bets only; pending bets appear in the counts.
type Summary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Pushes  int `json:"pushes"`

	WinRate     float64         `json:"win_rate"` // wins / (wins + losses), pushes excluded
	AverageCLV  float64         `json:"average_clv_points"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	ROI         float64         `json:"roi"` // profit / staked over settled bets
}

// Performance summarizes every tracked bet.
func (t *Tracker) Performance(ctx context.Context) (Summary, error) {
	bets, err := t.store.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return summarize(bets), nil
}

// PerformanceByStar breaks the summary down by star tier, which is how
// the sizing bands get audited against realized results.
func (t *Tracker) PerformanceByStar(ctx context.Context) (map[int]Summary, error) {
	bets, err := t.store.List(ctx)
	if err != nil {
		return nil, err
	}
	byStar := make(map[int][]model.TrackedBet)
	for _, bet := range bets {
		byStar[bet.StarRating] = append(byStar[bet.StarRating], bet)
	}
	out := make(map[int]Summary, len(byStar))
	for star, group := range byStar {
		out[star] = summarize(group)
	}
	return out, nil
}

func summarize(bets []model.TrackedBet) Summary {
	s := Summary{TotalStaked: decimal.Zero, TotalProfit: decimal.Zero}
	clvSum, clvCount := 0.0, 0

	for _, bet := range bets {
		s.Total++
		switch bet.Result {
		case model.BetWin:
			s.Wins++
		case model.BetLoss:
			s.Losses++
		case model.BetPush:
			s.Pushes++
		default:
			s.Pending++
			continue
		}
		s.TotalStaked = s.TotalStaked.Add(bet.Stake)
		if bet.ProfitLoss != nil {
			s.TotalProfit = s.TotalProfit.Add(*bet.ProfitLoss)
		}
		if bet.CLVPoints != nil {
			clvSum += *bet.CLVPoints
			clvCount++
		}
	}

	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided)
	}
	if clvCount > 0 {
		s.AverageCLV = clvSum / float64(clvCount)
	}
	if s.TotalStaked.Sign() > 0 {
		s.ROI, _ = s.TotalProfit.Div(s.TotalStaked).Float64()
	}
	return s
}
