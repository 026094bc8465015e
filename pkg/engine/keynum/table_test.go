package keynum

import (
	"testing"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

func TestValue(t *testing.T) {
	nfl := For(model.LeagueNFL)

	tests := []struct {
		margin int
		want   float64
	}{
		{3, 0.080},
		{-3, 0.080}, // symmetric
		{7, 0.060},
		{11, 0.015}, // unlisted falls to default
		{0, 0},
	}
	for _, tt := range tests {
		if got := nfl.Value(tt.margin); got != tt.want {
			t.Errorf("Value(%d) = %v, want %v", tt.margin, got, tt.want)
		}
	}
}

func TestIsKey(t *testing.T) {
	nfl := For(model.LeagueNFL)

	if !nfl.IsKey(3) || !nfl.IsKey(7) {
		t.Error("3 and 7 must be NFL key numbers")
	}
	if nfl.IsKey(11) {
		t.Error("11 is not a key number")
	}
}

func TestUnknownLeague(t *testing.T) {
	tbl := For(model.League("XFL"))
	if got := tbl.Value(3); got != defaultFrequency {
		t.Errorf("unknown league margin 3 = %v, want default %v", got, defaultFrequency)
	}
}
