package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// BetStore implements tracker.Store on Postgres.
type BetStore struct {
	db *pgxpool.Pool
}

// NewBetStore creates a bet store over an existing pool.
func NewBetStore(db *pgxpool.Pool) *BetStore {
	return &BetStore{db: db}
}

const betColumns = `id, recommendation_id, game_id, side, line, price, stake,
	star_rating, opened_at, closing_line, clv_points, home_score, away_score,
	result, profit_loss, settled_at`

// Save upserts a bet by id.
func (s *BetStore) Save(ctx context.Context, bet model.TrackedBet) error {
	if bet.ID == "" {
		return model.Validationf("bet.id", "must not be empty")
	}
	query := `
		INSERT INTO tracked_bets (` + betColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			closing_line = EXCLUDED.closing_line,
			clv_points = EXCLUDED.clv_points,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			result = EXCLUDED.result,
			profit_loss = EXCLUDED.profit_loss,
			settled_at = EXCLUDED.settled_at
	`
	_, err := s.db.Exec(ctx, query,
		bet.ID, bet.RecommendationID, bet.GameID, bet.Side, bet.Line, bet.Price,
		bet.Stake, bet.StarRating, bet.OpenedAt, bet.ClosingLine, bet.CLVPoints,
		bet.HomeScore, bet.AwayScore, bet.Result, bet.ProfitLoss, bet.SettledAt)
	if err != nil {
		return fmt.Errorf("upsert bet: %w", err)
	}
	return nil
}

// Get looks up a bet by id.
func (s *BetStore) Get(ctx context.Context, betID string) (model.TrackedBet, error) {
	query := `SELECT ` + betColumns + ` FROM tracked_bets WHERE id = $1`

	bet, err := scanBet(s.db.QueryRow(ctx, query, betID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TrackedBet{}, model.NotFound("bet", betID)
	}
	if err != nil {
		return model.TrackedBet{}, fmt.Errorf("select bet: %w", err)
	}
	return bet, nil
}

// List returns all tracked bets, oldest first.
func (s *BetStore) List(ctx context.Context) ([]model.TrackedBet, error) {
	query := `SELECT ` + betColumns + ` FROM tracked_bets ORDER BY opened_at`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select bets: %w", err)
	}
	defer rows.Close()

	var out []model.TrackedBet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, bet)
	}
	return out, rows.Err()
}

func scanBet(row pgx.Row) (model.TrackedBet, error) {
	var bet model.TrackedBet
	err := row.Scan(
		&bet.ID, &bet.RecommendationID, &bet.GameID, &bet.Side, &bet.Line,
		&bet.Price, &bet.Stake, &bet.StarRating, &bet.OpenedAt, &bet.ClosingLine,
		&bet.CLVPoints, &bet.HomeScore, &bet.AwayScore, &bet.Result,
		&bet.ProfitLoss, &bet.SettledAt)
	return bet, err
}
