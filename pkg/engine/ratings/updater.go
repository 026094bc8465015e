package ratings

import (
	"context"
	"time"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// UpdaterConfig tunes the rating fold.
type UpdaterConfig struct {
	// PriorWeight is the EMA weight on the existing rating; the game's
	// observed performance gets the remainder.
	PriorWeight float64

	// HomeFieldAdvantage per league, in points. Subtracted from the home
	// margin and credited to the away margin so the performance figure is
	// venue-neutral.
	HomeFieldAdvantage map[model.League]float64
}

// DefaultUpdaterConfig returns the standard 0.90/0.10 fold with
// league-typical home-field values.
func DefaultUpdaterConfig() *UpdaterConfig {
	return &UpdaterConfig{
		PriorWeight: 0.90,
		HomeFieldAdvantage: map[model.League]float64{
			model.LeagueNFL:   2.5,
			model.LeagueNCAAF: 3.0,
			model.LeagueNBA:   2.8,
		},
	}
}

// Updater folds completed game results into team power ratings.
type Updater struct {
	store Store
	cfg   *UpdaterConfig
}

// NewUpdater creates an updater backed by the given store.
func NewUpdater(store Store, cfg *UpdaterConfig) *Updater {
	if cfg == nil {
		cfg = DefaultUpdaterConfig()
	}
	return &Updater{store: store, cfg: cfg}
}

// HomeFieldAdvantage returns the configured HFA for a league.
func (u *Updater) HomeFieldAdvantage(league model.League) float64 {
	return u.cfg.HomeFieldAdvantage[league]
}

// Apply folds one completed game into both teams' ratings and writes the
// week's snapshots. Re-applying the same result overwrites the same
// snapshot keys, so the operation is idempotent.
func (u *Updater) Apply(ctx context.Context, result model.GameResult) (home, away model.PowerRatingSnapshot, err error) {
	if result.HomeScore < 0 || result.AwayScore < 0 {
		return home, away, model.Validationf("game_result.scores", "negative score %d-%d", result.HomeScore, result.AwayScore)
	}
	if result.HomeTeamID == result.AwayTeamID {
		return home, away, model.Validationf("game_result.teams", "home and away are the same team %q", result.HomeTeamID)
	}

	if _, err = u.store.GetTeam(ctx, result.HomeTeamID); err != nil {
		return home, away, err
	}
	if _, err = u.store.GetTeam(ctx, result.AwayTeamID); err != nil {
		return home, away, err
	}

	hfa := u.cfg.HomeFieldAdvantage[result.League]
	if result.NeutralSite {
		hfa = 0
	}

	homeMargin := float64(result.HomeScore - result.AwayScore)
	homePerf := homeMargin - hfa
	awayPerf := -homeMargin + hfa

	home, err = u.fold(ctx, result, result.HomeTeamID, homePerf)
	if err != nil {
		return home, away, err
	}
	away, err = u.fold(ctx, result, result.AwayTeamID, awayPerf)
	return home, away, err
}

func (u *Updater) fold(ctx context.Context, result model.GameResult, teamID string, perf float64) (model.PowerRatingSnapshot, error) {
	// Prior is the latest snapshot strictly before this week: a re-run of
	// the same week reads the same prior and lands on the same rating.
	prior := 0.0
	if snap, ok, err := u.store.LatestBefore(ctx, teamID, result.League, result.Season, result.Week); err != nil {
		return model.PowerRatingSnapshot{}, err
	} else if ok {
		prior = snap.Rating
	}

	snap := model.PowerRatingSnapshot{
		TeamID:    teamID,
		League:    result.League,
		Season:    result.Season,
		Week:      result.Week,
		Rating:    u.cfg.PriorWeight*prior + (1-u.cfg.PriorWeight)*perf,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.store.UpsertSnapshot(ctx, snap); err != nil {
		return model.PowerRatingSnapshot{}, err
	}
	return snap, nil
}
