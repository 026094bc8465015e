package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// RatingStore implements ratings.Store on Postgres.
type RatingStore struct {
	db *pgxpool.Pool
}

// NewRatingStore creates a rating store over an existing pool.
func NewRatingStore(db *pgxpool.Pool) *RatingStore {
	return &RatingStore{db: db}
}

// RegisterTeam upserts a team record.
func (s *RatingStore) RegisterTeam(ctx context.Context, team model.Team) error {
	if team.ID == "" {
		return model.Validationf("team.id", "must not be empty")
	}
	query := `
		INSERT INTO teams (id, league, name, power_rating, rating_source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			league = EXCLUDED.league,
			name = EXCLUDED.name,
			power_rating = EXCLUDED.power_rating,
			rating_source = EXCLUDED.rating_source
	`
	_, err := s.db.Exec(ctx, query, team.ID, team.League, team.Name, team.PowerRating, team.RatingSource)
	if err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}
	return nil
}

// GetTeam looks up a team by id.
func (s *RatingStore) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	query := `SELECT id, league, name, power_rating, rating_source FROM teams WHERE id = $1`

	var team model.Team
	err := s.db.QueryRow(ctx, query, teamID).Scan(
		&team.ID, &team.League, &team.Name, &team.PowerRating, &team.RatingSource)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, model.NotFound("team", teamID)
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("select team: %w", err)
	}
	return team, nil
}

// UpsertSnapshot overwrites the snapshot for its unique key.
func (s *RatingStore) UpsertSnapshot(ctx context.Context, snap model.PowerRatingSnapshot) error {
	if snap.TeamID == "" {
		return model.Validationf("snapshot.team_id", "must not be empty")
	}
	query := `
		INSERT INTO rating_snapshots (team_id, league, season, week, rating)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id, league, season, week) DO UPDATE SET
			rating = EXCLUDED.rating,
			created_at = NOW()
	`
	_, err := s.db.Exec(ctx, query, snap.TeamID, snap.League, snap.Season, snap.Week, snap.Rating)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// LatestRating returns the most recent snapshot at or before (season, week).
func (s *RatingStore) LatestRating(ctx context.Context, teamID string, league model.League, season, week int) (model.PowerRatingSnapshot, bool, error) {
	return s.latest(ctx, teamID, league, season, week, "<=")
}

// LatestBefore returns the most recent snapshot strictly before (season, week).
func (s *RatingStore) LatestBefore(ctx context.Context, teamID string, league model.League, season, week int) (model.PowerRatingSnapshot, bool, error) {
	return s.latest(ctx, teamID, league, season, week, "<")
}

func (s *RatingStore) latest(ctx context.Context, teamID string, league model.League, season, week int, cmp string) (model.PowerRatingSnapshot, bool, error) {
	// (season, week) row comparison gives the schedule ordering directly.
	query := fmt.Sprintf(`
		SELECT team_id, league, season, week, rating, created_at
		FROM rating_snapshots
		WHERE team_id = $1 AND league = $2 AND (season, week) %s ($3, $4)
		ORDER BY season DESC, week DESC
		LIMIT 1
	`, cmp)

	var snap model.PowerRatingSnapshot
	err := s.db.QueryRow(ctx, query, teamID, league, season, week).Scan(
		&snap.TeamID, &snap.League, &snap.Season, &snap.Week, &snap.Rating, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PowerRatingSnapshot{}, false, nil
	}
	if err != nil {
		return model.PowerRatingSnapshot{}, false, fmt.Errorf("select latest snapshot: %w", err)
	}
	return snap, true, nil
}

// History returns a team's season snapshots ordered by week.
func (s *RatingStore) History(ctx context.Context, teamID string, league model.League, season int) ([]model.PowerRatingSnapshot, error) {
	query := `
		SELECT team_id, league, season, week, rating, created_at
		FROM rating_snapshots
		WHERE team_id = $1 AND league = $2 AND season = $3
		ORDER BY week
	`
	rows, err := s.db.Query(ctx, query, teamID, league, season)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var out []model.PowerRatingSnapshot
	for rows.Next() {
		var snap model.PowerRatingSnapshot
		if err := rows.Scan(&snap.TeamID, &snap.League, &snap.Season, &snap.Week, &snap.Rating, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
