// evalcycle runs one offline evaluation cycle from a JSON slate file:
// it folds past results into power ratings, evaluates each upcoming
// game against its market line, and sizes stakes for the playable ones.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/decay"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/edge"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/evaluate"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/ratings"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/signalagg"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/staking"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

var (
	slateFile  = flag.String("slate", "", "Path to slate JSON (required)")
	bankroll   = flag.Float64("bankroll", 10000, "Bankroll in dollars")
	outputFile = flag.String("output", "", "Write JSON results to file instead of stdout")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

// Slate is the input document: the teams, the results already played,
// and the upcoming games to evaluate.
type Slate struct {
	Teams   []model.Team       `json:"teams"`
	Results []model.GameResult `json:"results"`
	Games   []SlateGame        `json:"games"`
	AsOf    time.Time          `json:"as_of"`
}

// SlateGame is one upcoming game with its market and signals.
type SlateGame struct {
	GameID      string           `json:"game_id"`
	League      model.League     `json:"league"`
	Season      int              `json:"season"`
	Week        int              `json:"week"`
	HomeTeamID  string           `json:"home_team_id"`
	AwayTeamID  string           `json:"away_team_id"`
	NeutralSite bool             `json:"neutral_site"`
	Signals     []model.Signal   `json:"signals"`
	Market      model.MarketLine `json:"market"`
}

// GameOutcome pairs an evaluation with its sized recommendation.
type GameOutcome struct {
	Evaluation     *model.Evaluation        `json:"evaluation"`
	Recommendation *model.BetRecommendation `json:"recommendation,omitempty"`
	RiskBlocked    string                   `json:"risk_blocked,omitempty"`
}

func main() {
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if *slateFile == "" {
		fmt.Fprintln(os.Stderr, "usage: evalcycle -slate slate.json [-bankroll 10000]")
		os.Exit(2)
	}

	slate, err := loadSlate(*slateFile)
	if err != nil {
		log.Fatal().Err(err).Msg("loading slate")
	}
	if slate.AsOf.IsZero() {
		slate.AsOf = time.Now().UTC()
	}

	ctx := context.Background()
	store := ratings.NewMemoryStore()
	updater := ratings.NewUpdater(store, nil)
	engine := evaluate.New(store, signalagg.New(decay.New(nil)), edge.NewCalculator(nil), nil)
	policy := staking.NewPolicy(nil)
	roll := decimal.NewFromFloat(*bankroll)

	for _, team := range slate.Teams {
		if err := store.RegisterTeam(ctx, team); err != nil {
			log.Fatal().Err(err).Str("team", team.ID).Msg("registering team")
		}
	}
	for _, result := range slate.Results {
		home, away, err := updater.Apply(ctx, result)
		if err != nil {
			log.Fatal().Err(err).Str("game", result.GameID).Msg("applying result")
		}
		log.Debug().Str("game", result.GameID).
			Float64("home", home.Rating).Float64("away", away.Rating).Msg("ratings folded")
	}

	outcomes := make([]GameOutcome, 0, len(slate.Games))
	for _, game := range slate.Games {
		ev, err := engine.Evaluate(ctx, evaluate.Request{
			GameID:      game.GameID,
			League:      game.League,
			Season:      game.Season,
			Week:        game.Week,
			HomeTeamID:  game.HomeTeamID,
			AwayTeamID:  game.AwayTeamID,
			NeutralSite: game.NeutralSite,
			Signals:     game.Signals,
			Market:      game.Market,
			AsOf:        slate.AsOf,
		})
		if err != nil {
			log.Fatal().Err(err).Str("game", game.GameID).Msg("evaluating")
		}

		outcome := GameOutcome{Evaluation: ev}
		rec, err := policy.BuildRecommendation(ev, game.Market.Price, roll)
		if err != nil {
			// Risk caps stop the sizing, not the cycle.
			outcome.RiskBlocked = err.Error()
		} else {
			outcome.Recommendation = rec
		}
		outcomes = append(outcomes, outcome)
	}

	if err := writeResults(outcomes, *outputFile); err != nil {
		log.Fatal().Err(err).Msg("writing results")
	}
	printSummary(outcomes, policy)
}

func loadSlate(path string) (*Slate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var slate Slate
	if err := json.Unmarshal(data, &slate); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &slate, nil
}

func writeResults(outcomes []GameOutcome, path string) error {
	out, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func printSummary(outcomes []GameOutcome, policy *staking.Policy) {
	plays, blocked := 0, 0
	for _, o := range outcomes {
		if o.RiskBlocked != "" {
			blocked++
			continue
		}
		if o.Recommendation != nil && o.Recommendation.IsPlay {
			plays++
		}
	}
	fmt.Fprintf(os.Stderr, "evaluated %d games: %d plays, %d risk-blocked, open exposure %s\n",
		len(outcomes), plays, blocked, policy.Portfolio().Exposure().StringFixed(2))
}
