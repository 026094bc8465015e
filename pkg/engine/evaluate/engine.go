// Package evaluate orchestrates ratings, aggregated signals, and the
// edge calculator into a single structured evaluation of one game
// against its posted market line.
package evaluate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/edge"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/ratings"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/engine/signalagg"
	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Config holds the playability threshold and star bands. Star bands are
// a display/sizing label derived from edge; edge stays authoritative.
type Config struct {
	MinPlayableEdge float64 // below this the evaluation is rejected
	TwoStarEdge     float64
	ThreeStarEdge   float64

	// HomeFieldAdvantage in points per league, applied exactly once when
	// forming the predicted line.
	HomeFieldAdvantage map[model.League]float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() *Config {
	return &Config{
		MinPlayableEdge: 5.5,
		TwoStarEdge:     8.0,
		ThreeStarEdge:   12.0,
		HomeFieldAdvantage: map[model.League]float64{
			model.LeagueNFL:   2.5,
			model.LeagueNCAAF: 3.0,
			model.LeagueNBA:   2.8,
		},
	}
}

// StarRating maps an edge percentage to its sizing tier.
func (c *Config) StarRating(edgePct float64) int {
	switch {
	case edgePct >= c.ThreeStarEdge:
		return 3
	case edgePct >= c.TwoStarEdge:
		return 2
	case edgePct >= c.MinPlayableEdge:
		return 1
	default:
		return 0
	}
}

// Request carries everything needed to evaluate one game.
type Request struct {
	GameID      string
	League      model.League
	Season      int
	Week        int
	HomeTeamID  string
	AwayTeamID  string
	NeutralSite bool
	Signals     []model.Signal // both teams' signals, routed by SubjectTeamID
	Market      model.MarketLine
	AsOf        time.Time
}

// Engine produces evaluations.
type Engine struct {
	store ratings.Store
	agg   *signalagg.Aggregator
	calc  *edge.Calculator
	cfg   *Config
}

// New creates an evaluation engine.
func New(store ratings.Store, agg *signalagg.Aggregator, calc *edge.Calculator, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{store: store, agg: agg, calc: calc, cfg: cfg}
}

// Evaluate walks one game through DRAFT -> EVALUATED -> PLAYABLE or
// REJECTED. The predicted line is the rating differential plus the two
// teams' net signal points, with home-field advantage applied once.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*model.Evaluation, error) {
	if req.HomeTeamID == req.AwayTeamID {
		return nil, model.Validationf("request.teams", "home and away are the same team %q", req.HomeTeamID)
	}

	ev := &model.Evaluation{
		ID:     uuid.New().String(),
		GameID: req.GameID,
		League: req.League,
		State:  model.EvalDraft,
	}

	homeRating, err := e.ratingFor(ctx, req.HomeTeamID, req)
	if err != nil {
		return nil, err
	}
	awayRating, err := e.ratingFor(ctx, req.AwayTeamID, req)
	if err != nil {
		return nil, err
	}

	var homeSignals, awaySignals []model.Signal
	for _, sig := range req.Signals {
		switch sig.SubjectTeamID {
		case req.HomeTeamID:
			homeSignals = append(homeSignals, sig)
		case req.AwayTeamID:
			awaySignals = append(awaySignals, sig)
		default:
			return nil, model.Validationf("signal.subject_team_id", "%q is not in game %s", sig.SubjectTeamID, req.GameID)
		}
	}

	homeAgg := e.agg.Aggregate(homeSignals, req.AsOf)
	awayAgg := e.agg.Aggregate(awaySignals, req.AsOf)

	hfa := e.cfg.HomeFieldAdvantage[req.League]
	if req.NeutralSite {
		hfa = 0
	}

	// Predicted home margin, then the line convention flip: a home team
	// expected to win by 6.5 is quoted at -6.5.
	margin := (homeRating - awayRating) + hfa + homeAgg.NetPoints - awayAgg.NetPoints
	ev.PredictedLine = -margin
	ev.MarketLine = req.Market.Line
	ev.NetSignalPoints = homeAgg.NetPoints - awayAgg.NetPoints
	ev.ConfidenceAdj = combinedConfidence(homeAgg, awayAgg)
	ev.EvaluatedAt = req.AsOf

	if err := transition(ev, model.EvalEvaluated); err != nil {
		return nil, err
	}

	result := e.calc.CalculateEdge(ev.PredictedLine, ev.MarketLine, req.League)
	ev.EdgePercentage = result.EdgePercentage
	ev.KeyNumbers = result.KeyNumbers
	ev.Recommendation = result.Recommendation
	ev.StarRating = e.cfg.StarRating(result.EdgePercentage)
	if ev.PredictedLine < ev.MarketLine {
		ev.Side = model.SideHome
	} else if ev.PredictedLine > ev.MarketLine {
		ev.Side = model.SideAway
	}

	next := model.EvalRejected
	if ev.EdgePercentage >= e.cfg.MinPlayableEdge {
		next = model.EvalPlayable
	}
	if err := transition(ev, next); err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *Engine) ratingFor(ctx context.Context, teamID string, req Request) (float64, error) {
	if _, err := e.store.GetTeam(ctx, teamID); err != nil {
		return 0, err
	}
	snap, ok, err := e.store.LatestRating(ctx, teamID, req.League, req.Season, req.Week)
	if err != nil {
		return 0, err
	}
	if !ok {
		// No history defaults to a zero prior; a modeled business rule,
		// not error suppression.
		return 0, nil
	}
	return snap.Rating, nil
}

// combinedConfidence averages across every contributing signal on both
// sides of the game, not across the two per-team averages, so a team
// with one stale rumor cannot drag down a fully-sourced opponent.
func combinedConfidence(home, away signalagg.Aggregation) float64 {
	n := len(home.Contributing) + len(away.Contributing)
	if n == 0 {
		return 0
	}
	sum := home.ConfidenceAdj*float64(len(home.Contributing)) +
		away.ConfidenceAdj*float64(len(away.Contributing))
	return sum / float64(n)
}

// legal transitions of the evaluation lifecycle.
var legalTransitions = map[model.EvaluationState][]model.EvaluationState{
	model.EvalDraft:     {model.EvalEvaluated},
	model.EvalEvaluated: {model.EvalPlayable, model.EvalRejected},
}

func transition(ev *model.Evaluation, to model.EvaluationState) error {
	for _, allowed := range legalTransitions[ev.State] {
		if allowed == to {
			ev.State = to
			return nil
		}
	}
	return &model.StateError{Op: "evaluation transition to " + string(to), State: string(ev.State)}
}
