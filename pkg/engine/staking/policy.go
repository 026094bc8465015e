// Package staking turns a playable evaluation into a bounded stake
// recommendation, enforcing per-bet and portfolio-level risk caps.
package staking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Config holds the staking limits. The 3% per-bet cap is a risk
// invariant, not a tuning knob; tests may lower it but production keeps
// the default.
type Config struct {
	EdgeScale        float64 // stake fraction per unit of edge: edge/100 * scale
	MaxStakeFraction float64 // hard per-bet cap on fraction of bankroll
	PortfolioCap     float64 // hard cap on total open exposure
	PortfolioWarn    float64 // warn level on total open exposure
}

// DefaultConfig returns the production limits.
func DefaultConfig() *Config {
	return &Config{
		EdgeScale:        0.5,
		MaxStakeFraction: 0.03,
		PortfolioCap:     0.25,
		PortfolioWarn:    0.15,
	}
}

// Policy sizes bets from evaluations.
type Policy struct {
	cfg       *Config
	portfolio *Portfolio
}

// NewPolicy creates a staking policy with its own portfolio tracker.
func NewPolicy(cfg *Config) *Policy {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Policy{cfg: cfg, portfolio: NewPortfolio()}
}

// Portfolio exposes the policy's exposure tracker.
func (p *Policy) Portfolio() *Portfolio { return p.portfolio }

// StakeFraction maps a star rating and edge to a bankroll fraction.
// Zero-star evaluations stake nothing; everything else scales linearly
// with edge and is clipped at the per-bet cap.
func (p *Policy) StakeFraction(starRating int, edgePct float64) (float64, error) {
	if edgePct < 0 {
		return 0, model.Validationf("edge_percentage", "negative edge %v", edgePct)
	}
	if starRating == 0 {
		return 0, nil
	}
	frac := edgePct / 100 * p.cfg.EdgeScale
	if frac > p.cfg.MaxStakeFraction {
		frac = p.cfg.MaxStakeFraction
	}
	return frac, nil
}

// BuildRecommendation sizes a bet for one evaluation against the
// current bankroll. Non-playable evaluations still produce a record
// with zero stake and IsPlay false. A stake that would push total open
// exposure past the portfolio cap returns a RiskLimitError and leaves
// the evaluation untouched; exposure between the warn level and the cap
// goes through with a warning attached.
func (p *Policy) BuildRecommendation(ev *model.Evaluation, price int, bankroll decimal.Decimal) (*model.BetRecommendation, error) {
	if ev == nil {
		return nil, model.Validationf("evaluation", "nil")
	}
	if bankroll.Sign() <= 0 {
		return nil, model.Validationf("bankroll", "must be positive, got %s", bankroll)
	}

	frac, err := p.StakeFraction(ev.StarRating, ev.EdgePercentage)
	if err != nil {
		return nil, err
	}

	rec := &model.BetRecommendation{
		ID:           uuid.New().String(),
		EvaluationID: ev.ID,
		GameID:       ev.GameID,
		Side:         ev.Side,
		Line:         sideLine(ev),
		Price:        price,
		StarRating:   ev.StarRating,
		CreatedAt:    time.Now().UTC(),
		Stake:        decimal.Zero,
	}
	if frac == 0 || ev.State != model.EvalPlayable {
		return rec, nil
	}

	stake := bankroll.Mul(decimal.NewFromFloat(frac))
	capAmount := bankroll.Mul(decimal.NewFromFloat(p.cfg.PortfolioCap))
	warnAmount := bankroll.Mul(decimal.NewFromFloat(p.cfg.PortfolioWarn))

	exposure := p.portfolio.Exposure().Add(stake)
	if exposure.GreaterThan(capAmount) {
		return nil, &model.RiskLimitError{
			Limit:  "portfolio_exposure",
			Detail: "open exposure " + exposure.StringFixed(2) + " would exceed cap " + capAmount.StringFixed(2),
		}
	}
	if exposure.GreaterThan(warnAmount) {
		rec.Warning = "open exposure " + exposure.StringFixed(2) + " above warn level " + warnAmount.StringFixed(2)
	}

	rec.StakeFraction = frac
	rec.Stake = stake
	rec.IsPlay = true
	p.portfolio.Add(rec.ID, stake)
	return rec, nil
}

// sideLine is the line from the recommended side's perspective: the
// market line is home-relative, so the away side takes its negation.
func sideLine(ev *model.Evaluation) float64 {
	if ev.Side == model.SideAway {
		return -ev.MarketLine
	}
	return ev.MarketLine
}
