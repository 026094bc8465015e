package edge

import (
	"math"
	"reflect"
	"testing"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

func TestCalculateEdge_NFLScenario(t *testing.T) {
	c := NewCalculator(nil)

	// Home favored by 6.5 in the model, 3.0 at the book: margins 3-6 are
	// all live, worth 0.080 + 0.038 + 0.023 + 0.050.
	got := c.CalculateEdge(-6.5, -3.0, model.LeagueNFL)

	if math.Abs(got.TotalValue-0.191) > 1e-9 {
		t.Errorf("TotalValue = %v, want 0.191", got.TotalValue)
	}
	if math.Abs(got.EdgePercentage-19.1) > 1e-9 {
		t.Errorf("EdgePercentage = %v, want 19.1", got.EdgePercentage)
	}
	if got.Recommendation != RecStrongBet {
		t.Errorf("Recommendation = %q, want %q", got.Recommendation, RecStrongBet)
	}
	if want := []int{3, 4, 5, 6}; !reflect.DeepEqual(got.KeyNumbers, want) {
		t.Errorf("KeyNumbers = %v, want %v", got.KeyNumbers, want)
	}
}

func TestCalculateEdge_IdenticalLines(t *testing.T) {
	c := NewCalculator(nil)
	for _, line := range []float64{-7, -3.5, 0, 2.5, 10} {
		got := c.CalculateEdge(line, line, model.LeagueNFL)
		if got.EdgePercentage != 0 || got.Recommendation != RecNoBet {
			t.Errorf("identical lines %v: edge=%v rec=%q, want 0 / NO BET", line, got.EdgePercentage, got.Recommendation)
		}
	}
}

func TestCalculateEdge_Symmetric(t *testing.T) {
	c := NewCalculator(nil)
	pairs := [][2]float64{
		{-6.5, -3.0},
		{-7.0, -3.0},
		{2.5, -1.5},
		{-10, -13.5},
	}
	for _, p := range pairs {
		ab := c.CalculateEdge(p[0], p[1], model.LeagueNFL)
		ba := c.CalculateEdge(p[1], p[0], model.LeagueNFL)
		if math.Abs(ab.EdgePercentage-ba.EdgePercentage) > 1e-9 {
			t.Errorf("asymmetric edge for %v: %v vs %v", p, ab.EdgePercentage, ba.EdgePercentage)
		}
	}
}

func TestCalculateEdge_BothOnNumberHalvesEndpoints(t *testing.T) {
	c := NewCalculator(nil)

	// 3 and 7 both on the number: endpoints at half weight, 4-6 full.
	got := c.CalculateEdge(-7.0, -3.0, model.LeagueNFL)
	want := 0.080/2 + 0.038 + 0.023 + 0.050 + 0.060/2
	if math.Abs(got.TotalValue-want) > 1e-9 {
		t.Errorf("TotalValue = %v, want %v", got.TotalValue, want)
	}
}

func TestCalculateEdge_UpsetPenalty(t *testing.T) {
	c := NewCalculator(nil)

	// Model flips the favorite: predicted +2.5 vs market -2.5 crosses
	// zero, so one default unit comes off the top.
	got := c.CalculateEdge(2.5, -2.5, model.LeagueNFL)
	if !got.UpsetCall {
		t.Fatal("expected UpsetCall")
	}

	// Margins 1 and 2 within [2.5, 2.5]... range is [lo=2.5, hi=2.5]:
	// no integers between, so the penalty floors the edge at zero.
	if got.EdgePercentage != 0 {
		t.Errorf("EdgePercentage = %v, want 0 (never negative)", got.EdgePercentage)
	}
}

func TestCalculateEdge_NeverNegative(t *testing.T) {
	c := NewCalculator(nil)
	for _, p := range [][2]float64{{0.5, -0.5}, {1.5, -0.5}, {-6.5, -3}, {3, -3}} {
		if got := c.CalculateEdge(p[0], p[1], model.LeagueNFL); got.EdgePercentage < 0 {
			t.Errorf("negative edge for %v: %v", p, got.EdgePercentage)
		}
	}
}

func TestCalculateEdge_Thresholds(t *testing.T) {
	// Inject a config so threshold behavior is exercised without
	// depending on the empirical table.
	c := NewCalculator(&Config{StrongBetEdge: 7.0, BetEdge: 5.5})

	tests := []struct {
		predicted, market float64
		want              string
	}{
		{-6.5, -3.0, RecStrongBet}, // 19.1%
		{-5.4, -3.1, RecBet},       // margins 4 and 5: 6.1%
		{-3.4, -3.3, RecNoBet},     // no whole margin between
	}

	for _, tt := range tests {
		got := c.CalculateEdge(tt.predicted, tt.market, model.LeagueNFL)
		if got.Recommendation != tt.want {
			t.Errorf("CalculateEdge(%v, %v) rec = %q (edge %.1f), want %q",
				tt.predicted, tt.market, got.Recommendation, got.EdgePercentage, tt.want)
		}
	}
}

func TestHalfPointValue(t *testing.T) {
	c := NewCalculator(nil)

	tests := []struct {
		line float64
		want float64
	}{
		{-2.5, (0.025 + 0.080) / 2}, // straddling 2 and 3
		{-3.0, 0.080},               // exactly on 3
		{6.5, (0.050 + 0.060) / 2},  // 6 and 7
		{-11.0, 0.015},              // unlisted margin
	}
	for _, tt := range tests {
		if got := c.HalfPointValue(tt.line, model.LeagueNFL); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("HalfPointValue(%v) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
