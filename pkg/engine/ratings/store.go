// Package ratings maintains per-team power ratings as an append-only
// sequence of weekly snapshots. The "current" rating is always a query
// for the latest snapshot at or before a point in the schedule, never an
// in-place mutation.
package ratings

import (
	"context"
	"sort"
	"sync"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Store is the snapshot persistence boundary. Writers must be
// serialized per key by the caller; the store only guarantees that
// UpsertSnapshot is an idempotent overwrite for its unique key.
type Store interface {
	RegisterTeam(ctx context.Context, team model.Team) error
	GetTeam(ctx context.Context, teamID string) (model.Team, error)

	// UpsertSnapshot writes the unique snapshot for
	// (team, league, season, week), replacing any prior value.
	UpsertSnapshot(ctx context.Context, snap model.PowerRatingSnapshot) error

	// LatestRating returns the snapshot with the greatest
	// (season, week) <= the given point, if any.
	LatestRating(ctx context.Context, teamID string, league model.League, season, week int) (model.PowerRatingSnapshot, bool, error)

	// LatestBefore is LatestRating with a strict bound, used when
	// folding a week's result so a re-run reads the same prior.
	LatestBefore(ctx context.Context, teamID string, league model.League, season, week int) (model.PowerRatingSnapshot, bool, error)

	// History returns all snapshots for a team in a season, ordered by week.
	History(ctx context.Context, teamID string, league model.League, season int) ([]model.PowerRatingSnapshot, error)
}

type snapKey struct {
	teamID string
	league model.League
	season int
	week   int
}

// MemoryStore is the in-process Store used by the engine when no
// external persistence is configured, and by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	teams map[string]model.Team
	snaps map[snapKey]model.PowerRatingSnapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams: make(map[string]model.Team),
		snaps: make(map[snapKey]model.PowerRatingSnapshot),
	}
}

// RegisterTeam adds or replaces a team record.
func (s *MemoryStore) RegisterTeam(_ context.Context, team model.Team) error {
	if team.ID == "" {
		return model.Validationf("team.id", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.ID] = team
	return nil
}

// GetTeam looks up a team by id.
func (s *MemoryStore) GetTeam(_ context.Context, teamID string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[teamID]
	if !ok {
		return model.Team{}, model.NotFound("team", teamID)
	}
	return team, nil
}

// UpsertSnapshot overwrites the snapshot for its unique key.
func (s *MemoryStore) UpsertSnapshot(_ context.Context, snap model.PowerRatingSnapshot) error {
	if snap.TeamID == "" {
		return model.Validationf("snapshot.team_id", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snapKey{snap.TeamID, snap.League, snap.Season, snap.Week}] = snap
	return nil
}

// LatestRating returns the most recent snapshot at or before (season, week).
func (s *MemoryStore) LatestRating(_ context.Context, teamID string, league model.League, season, week int) (model.PowerRatingSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(teamID, league, season, week, true)
}

// LatestBefore returns the most recent snapshot strictly before (season, week).
func (s *MemoryStore) LatestBefore(_ context.Context, teamID string, league model.League, season, week int) (model.PowerRatingSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(teamID, league, season, week, false)
}

func (s *MemoryStore) latest(teamID string, league model.League, season, week int, inclusive bool) (model.PowerRatingSnapshot, bool, error) {
	var best model.PowerRatingSnapshot
	found := false
	for k, snap := range s.snaps {
		if k.teamID != teamID || k.league != league {
			continue
		}
		if after(k.season, k.week, season, week, inclusive) {
			continue
		}
		if !found || after(k.season, k.week, best.Season, best.Week, false) {
			best = snap
			found = true
		}
	}
	return best, found, nil
}

// after reports whether (s1, w1) is past the (s2, w2) bound.
func after(s1, w1, s2, w2 int, inclusive bool) bool {
	if s1 != s2 {
		return s1 > s2
	}
	if inclusive {
		return w1 > w2
	}
	return w1 >= w2
}

// History returns a team's season snapshots ordered by week.
func (s *MemoryStore) History(_ context.Context, teamID string, league model.League, season int) ([]model.PowerRatingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.PowerRatingSnapshot
	for k, snap := range s.snaps {
		if k.teamID == teamID && k.league == league && k.season == season {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}
