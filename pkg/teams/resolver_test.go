package teams

import (
	"testing"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

func seeded(t *testing.T) *Resolver {
	t.Helper()
	r := NewResolver()
	entries := []Entry{
		{
			Team:         model.Team{ID: "KC", League: model.LeagueNFL, Name: "Kansas City Chiefs"},
			Abbreviation: "KC",
			Aliases:      []string{"Chiefs"},
		},
		{
			Team:         model.Team{ID: "BUF", League: model.LeagueNFL, Name: "Buffalo Bills"},
			Abbreviation: "BUF",
			Aliases:      []string{"Bills"},
		},
		{
			Team:         model.Team{ID: "SAS", League: model.LeagueNBA, Name: "San Antonio Spurs"},
			Abbreviation: "SAS",
		},
	}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			t.Fatalf("register %s: %v", e.Team.ID, err)
		}
	}
	return r
}

func TestResolve(t *testing.T) {
	r := seeded(t)

	tests := []struct {
		ref    string
		wantID string
	}{
		{"KC", "KC"},
		{"kc", "KC"},
		{"Kansas City Chiefs", "KC"},
		{"kansas  city chiefs", "KC"},
		{"Chiefs", "KC"},
		{"Buffalo Bills", "BUF"},
		{"San Antonio", "SAS"}, // partial containment
	}
	for _, tt := range tests {
		team, ok := r.Resolve(tt.ref)
		if !ok {
			t.Errorf("Resolve(%q): not found", tt.ref)
			continue
		}
		if team.ID != tt.wantID {
			t.Errorf("Resolve(%q) = %s, want %s", tt.ref, team.ID, tt.wantID)
		}
	}

	if _, ok := r.Resolve("Green Bay Packers"); ok {
		t.Error("unregistered team resolved")
	}
}

func TestResolveMatchup(t *testing.T) {
	r := seeded(t)

	tests := []struct {
		ref                string
		wantHome, wantAway string
	}{
		{"BUF @ KC", "KC", "BUF"},
		{"Bills at Chiefs", "KC", "BUF"},
		{"KC vs BUF", "KC", "BUF"},
		{"Kansas City Chiefs vs. Buffalo Bills", "KC", "BUF"},
	}
	for _, tt := range tests {
		home, away, ok := r.ResolveMatchup(tt.ref)
		if !ok {
			t.Errorf("ResolveMatchup(%q): not found", tt.ref)
			continue
		}
		if home.ID != tt.wantHome || away.ID != tt.wantAway {
			t.Errorf("ResolveMatchup(%q) = %s/%s, want %s/%s",
				tt.ref, home.ID, away.ID, tt.wantHome, tt.wantAway)
		}
	}

	if _, _, ok := r.ResolveMatchup("BUF @ GB"); ok {
		t.Error("matchup with an unknown side resolved")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"São Paulo", "sao paulo"},
		{"  Kansas   City  ", "kansas city"},
		{"St. Louis", "st louis"},
		{"LAKERS", "lakers"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
