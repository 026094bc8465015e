// Package postgres persists teams, rating snapshots, and tracked bets
// behind the same store interfaces the in-memory engine uses.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema if it does not exist. Idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id            TEXT PRIMARY KEY,
			league        TEXT NOT NULL,
			name          TEXT NOT NULL,
			power_rating  DOUBLE PRECISION NOT NULL DEFAULT 0,
			rating_source TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS rating_snapshots (
			team_id    TEXT NOT NULL REFERENCES teams(id),
			league     TEXT NOT NULL,
			season     INT NOT NULL,
			week       INT NOT NULL,
			rating     DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (team_id, league, season, week)
		)`,
		`CREATE INDEX IF NOT EXISTS rating_snapshots_lookup
			ON rating_snapshots (team_id, league, season DESC, week DESC)`,
		`CREATE TABLE IF NOT EXISTS tracked_bets (
			id                TEXT PRIMARY KEY,
			recommendation_id TEXT NOT NULL,
			game_id           TEXT NOT NULL,
			side              TEXT NOT NULL,
			line              DOUBLE PRECISION NOT NULL,
			price             INT NOT NULL,
			stake             NUMERIC(14,2) NOT NULL,
			star_rating       INT NOT NULL,
			opened_at         TIMESTAMPTZ NOT NULL,
			closing_line      DOUBLE PRECISION,
			clv_points        DOUBLE PRECISION,
			home_score        INT,
			away_score        INT,
			result            TEXT NOT NULL DEFAULT 'pending',
			profit_loss       NUMERIC(14,2),
			settled_at        TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS tracked_bets_result ON tracked_bets (result)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}
