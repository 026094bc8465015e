package edge

import (
	"testing"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

func TestOptimalBetTiming(t *testing.T) {
	c := NewCalculator(nil)

	tests := []struct {
		name              string
		predicted, market float64
		wantSide          model.Side
		wantAction        string
		wantUrgency       string
	}{
		{
			name:      "value on home favorite bets early",
			predicted: -6.5, market: -4.5,
			wantSide: model.SideHome, wantAction: TimingBetNow, wantUrgency: UrgencyNormal,
		},
		{
			name:      "value on home dog waits",
			predicted: -1.5, market: 1.5,
			wantSide: model.SideHome, wantAction: TimingWait, wantUrgency: UrgencyNormal,
		},
		{
			name:      "value on away dog waits, key number elevates",
			predicted: -3.5, market: -7.0,
			wantSide: model.SideAway, wantAction: TimingWait, wantUrgency: UrgencyElevated,
		},
		{
			name:      "line next to three is urgent",
			predicted: -6.0, market: -3.5,
			wantSide: model.SideHome, wantAction: TimingBetNow, wantUrgency: UrgencyElevated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.OptimalBetTiming(tt.predicted, tt.market, model.LeagueNFL)
			if got.Side != tt.wantSide {
				t.Errorf("Side = %s, want %s", got.Side, tt.wantSide)
			}
			if got.Action != tt.wantAction {
				t.Errorf("Action = %s, want %s", got.Action, tt.wantAction)
			}
			if got.Urgency != tt.wantUrgency {
				t.Errorf("Urgency = %s, want %s", got.Urgency, tt.wantUrgency)
			}
		})
	}
}

func TestOptimalBetTiming_NoDisagreement(t *testing.T) {
	c := NewCalculator(nil)
	got := c.OptimalBetTiming(-3.0, -3.0, model.LeagueNFL)
	if got.Action != TimingWait || got.Side != "" {
		t.Errorf("no-edge timing = %+v, want wait with no side", got)
	}
}
