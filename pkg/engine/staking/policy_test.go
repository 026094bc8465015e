package staking

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

func playableEval(edge float64, star int) *model.Evaluation {
	return &model.Evaluation{
		ID: "ev1", GameID: "g1", State: model.EvalPlayable,
		MarketLine: -3.0, Side: model.SideHome,
		EdgePercentage: edge, StarRating: star,
	}
}

func TestStakeFraction_ScalesAndCaps(t *testing.T) {
	p := NewPolicy(nil)

	tests := []struct {
		edge float64
		star int
		want float64
	}{
		{5.5, 1, 0.0275},
		{6.0, 1, 0.03}, // linear scaling hits the cap at 6% edge
		{12.0, 3, 0.03},
		{1000, 3, 0.03}, // never above the cap, no matter the edge
		{19.1, 0, 0},    // zero stars stake nothing
	}
	for _, tt := range tests {
		got, err := p.StakeFraction(tt.star, tt.edge)
		if err != nil {
			t.Fatalf("StakeFraction(%d, %v): %v", tt.star, tt.edge, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("StakeFraction(%d, %v) = %v, want %v", tt.star, tt.edge, got, tt.want)
		}
	}
}

func TestStakeFraction_NegativeEdge(t *testing.T) {
	p := NewPolicy(nil)
	_, err := p.StakeFraction(2, -1)
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestBuildRecommendation_Play(t *testing.T) {
	p := NewPolicy(nil)
	bankroll := decimal.NewFromInt(10000)

	rec, err := p.BuildRecommendation(playableEval(19.1, 3), -110, bankroll)
	if err != nil {
		t.Fatalf("BuildRecommendation: %v", err)
	}
	if !rec.IsPlay {
		t.Fatal("want IsPlay")
	}
	if rec.StakeFraction != 0.03 {
		t.Errorf("StakeFraction = %v, want 0.03", rec.StakeFraction)
	}
	if !rec.Stake.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Stake = %s, want 300", rec.Stake)
	}
	if rec.Line != -3.0 {
		t.Errorf("Line = %v, want -3.0 (home side keeps the market line)", rec.Line)
	}
	if p.Portfolio().OpenCount() != 1 {
		t.Errorf("portfolio open count = %d, want 1", p.Portfolio().OpenCount())
	}
}

func TestBuildRecommendation_ExtremeEdgeClipsAtCap(t *testing.T) {
	p := NewPolicy(nil)

	// An absurd edge still sizes a play at the per-bet cap; the cap is
	// part of the stake formula, not a rejection path.
	rec, err := p.BuildRecommendation(playableEval(1000, 3), -110, decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("BuildRecommendation: %v", err)
	}
	if !rec.IsPlay {
		t.Fatal("want IsPlay")
	}
	if rec.StakeFraction != 0.03 || !rec.Stake.Equal(decimal.NewFromInt(300)) {
		t.Errorf("fraction %v stake %s, want the capped 0.03 / 300", rec.StakeFraction, rec.Stake)
	}
}

func TestBuildRecommendation_AwaySideFlipsLine(t *testing.T) {
	p := NewPolicy(nil)
	ev := playableEval(9.0, 2)
	ev.Side = model.SideAway

	rec, err := p.BuildRecommendation(ev, -110, decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("BuildRecommendation: %v", err)
	}
	if rec.Line != 3.0 {
		t.Errorf("Line = %v, want +3.0 for the away side", rec.Line)
	}
}

func TestBuildRecommendation_ZeroStarNoPlay(t *testing.T) {
	p := NewPolicy(nil)
	ev := playableEval(3.0, 0)
	ev.State = model.EvalRejected

	rec, err := p.BuildRecommendation(ev, -110, decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("BuildRecommendation: %v", err)
	}
	if rec.IsPlay || rec.StakeFraction != 0 || !rec.Stake.IsZero() {
		t.Errorf("zero-star rec = %+v, want no play and zero stake", rec)
	}
	if p.Portfolio().OpenCount() != 0 {
		t.Error("zero-star rec must not add exposure")
	}
}

func TestBuildRecommendation_PortfolioCap(t *testing.T) {
	p := NewPolicy(nil)
	bankroll := decimal.NewFromInt(10000)

	// Eight max-stake plays is 24% exposure; the ninth would cross 25%.
	for i := 0; i < 8; i++ {
		ev := playableEval(19.1, 3)
		if _, err := p.BuildRecommendation(ev, -110, bankroll); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
	}

	_, err := p.BuildRecommendation(playableEval(19.1, 3), -110, bankroll)
	var rl *model.RiskLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("want RiskLimitError, got %v", err)
	}

	// Releasing settled exposure opens room again.
	p.Portfolio().Release(firstKey(p.Portfolio()))
	if _, err := p.BuildRecommendation(playableEval(19.1, 3), -110, bankroll); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestBuildRecommendation_WarnLevel(t *testing.T) {
	p := NewPolicy(nil)
	bankroll := decimal.NewFromInt(10000)

	// Five max plays is 15%; the sixth lands at 18%, above the warn line
	// but under the cap.
	for i := 0; i < 5; i++ {
		if _, err := p.BuildRecommendation(playableEval(19.1, 3), -110, bankroll); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
	}
	rec, err := p.BuildRecommendation(playableEval(19.1, 3), -110, bankroll)
	if err != nil {
		t.Fatalf("warn-level play: %v", err)
	}
	if rec.Warning == "" {
		t.Error("expected a warning above 15% exposure")
	}
	if !rec.IsPlay {
		t.Error("warn level must not block the play")
	}
}

func firstKey(p *Portfolio) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for k := range p.open {
		return k
	}
	return ""
}
