// Package tracker follows accepted recommendations through to the
// closing line and the final score, producing the CLV and profit/loss
// numbers the model is calibrated against.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omalleyandy/billy-walters-sports-analyzer-sub005/pkg/model"
)

// Store is the tracked-bet persistence boundary: an idempotent upsert
// keyed by bet id.
type Store interface {
	Save(ctx context.Context, bet model.TrackedBet) error
	Get(ctx context.Context, betID string) (model.TrackedBet, error)
	List(ctx context.Context) ([]model.TrackedBet, error)
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	bets map[string]model.TrackedBet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bets: make(map[string]model.TrackedBet)}
}

// Save upserts a bet by id.
func (s *MemoryStore) Save(_ context.Context, bet model.TrackedBet) error {
	if bet.ID == "" {
		return model.Validationf("bet.id", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets[bet.ID] = bet
	return nil
}

// Get looks up a bet by id.
func (s *MemoryStore) Get(_ context.Context, betID string) (model.TrackedBet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bet, ok := s.bets[betID]
	if !ok {
		return model.TrackedBet{}, model.NotFound("bet", betID)
	}
	return bet, nil
}

// List returns all tracked bets.
func (s *MemoryStore) List(_ context.Context) ([]model.TrackedBet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TrackedBet, 0, len(s.bets))
	for _, bet := range s.bets {
		out = append(out, bet)
	}
	return out, nil
}

// Tracker runs the bet lifecycle. Callers serialize writes per bet id;
// each write is an overwrite-safe upsert.
type Tracker struct {
	store    Store
	onSettle func(recommendationID string)
}

// New creates a tracker over the given store.
func New(store Store) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{store: store}
}

// OnSettle sets a callback invoked when a bet reaches a terminal
// result, keyed by the originating recommendation (used to release
// portfolio exposure).
func (t *Tracker) OnSettle(fn func(recommendationID string)) {
	t.onSettle = fn
}

// Open accepts a recommendation and starts tracking it.
func (t *Tracker) Open(ctx context.Context, rec *model.BetRecommendation) (*model.TrackedBet, error) {
	if rec == nil {
		return nil, model.Validationf("recommendation", "nil")
	}
	if !rec.IsPlay {
		return nil, model.Validationf("recommendation.is_play", "cannot track a no-play recommendation")
	}
	if rec.Price == 0 {
		return nil, model.Validationf("recommendation.price", "missing American price")
	}

	bet := model.TrackedBet{
		ID:               uuid.New().String(),
		RecommendationID: rec.ID,
		GameID:           rec.GameID,
		Side:             rec.Side,
		Line:             rec.Line,
		Price:            rec.Price,
		Stake:            rec.Stake,
		StarRating:       rec.StarRating,
		OpenedAt:         time.Now().UTC(),
		Result:           model.BetPending,
	}
	if err := t.store.Save(ctx, bet); err != nil {
		return nil, err
	}
	return &bet, nil
}

// RecordClosingLine stores the line at game start and the bet's CLV.
// Positive CLV means the bettor beat the close. The closing line is
// quoted from the bet's side, matching the bet's own line.
func (t *Tracker) RecordClosingLine(ctx context.Context, betID string, closingLine float64) (float64, error) {
	bet, err := t.store.Get(ctx, betID)
	if err != nil {
		return 0, err
	}
	if bet.Terminal() {
		return 0, &model.StateError{Op: "record closing line", State: string(bet.Result)}
	}

	clv := bet.Line - closingLine
	bet.ClosingLine = &closingLine
	bet.CLVPoints = &clv
	if err := t.store.Save(ctx, bet); err != nil {
		return 0, err
	}
	return clv, nil
}

// RecordResult grades the bet against the final score and makes it
// terminal. Calling it again, or recording a closing line afterwards,
// fails with a StateError and leaves the record unchanged.
func (t *Tracker) RecordResult(ctx context.Context, betID string, homeScore, awayScore int) (model.BetResult, decimal.Decimal, error) {
	if homeScore < 0 || awayScore < 0 {
		return "", decimal.Zero, model.Validationf("final_score", "negative score %d-%d", homeScore, awayScore)
	}

	bet, err := t.store.Get(ctx, betID)
	if err != nil {
		return "", decimal.Zero, err
	}
	if bet.Terminal() {
		return "", decimal.Zero, &model.StateError{Op: "record result", State: string(bet.Result)}
	}

	result := grade(bet.Side, bet.Line, homeScore, awayScore)
	pl := profitLoss(result, bet.Stake, bet.Price)
	now := time.Now().UTC()

	bet.HomeScore = &homeScore
	bet.AwayScore = &awayScore
	bet.Result = result
	bet.ProfitLoss = &pl
	bet.SettledAt = &now
	if err := t.store.Save(ctx, bet); err != nil {
		return "", decimal.Zero, err
	}

	if t.onSettle != nil {
		t.onSettle(bet.RecommendationID)
	}
	return result, pl, nil
}

// Get returns one tracked bet.
func (t *Tracker) Get(ctx context.Context, betID string) (model.TrackedBet, error) {
	return t.store.Get(ctx, betID)
}

// PendingCount returns the number of bets still awaiting settlement.
func (t *Tracker) PendingCount(ctx context.Context) (int, error) {
	bets, err := t.store.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, bet := range bets {
		if !bet.Terminal() {
			n++
		}
	}
	return n, nil
}

// grade applies the bet's side and line to the actual scores. The
// adjusted margin is from the bettor's perspective: positive wins,
// exactly zero pushes.
func grade(side model.Side, line float64, homeScore, awayScore int) model.BetResult {
	var adjusted float64
	switch side {
	case model.SideHome:
		adjusted = float64(homeScore-awayScore) + line
	case model.SideAway:
		adjusted = float64(awayScore-homeScore) + line
	case model.SideOver:
		adjusted = float64(homeScore+awayScore) - line
	case model.SideUnder:
		adjusted = line - float64(homeScore+awayScore)
	}

	switch {
	case adjusted > 0:
		return model.BetWin
	case adjusted < 0:
		return model.BetLoss
	default:
		return model.BetPush
	}
}

// profitLoss converts a graded result to money at American odds.
func profitLoss(result model.BetResult, stake decimal.Decimal, price int) decimal.Decimal {
	switch result {
	case model.BetWin:
		if price < 0 {
			return stake.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(-price)))
		}
		return stake.Mul(decimal.NewFromInt(int64(price))).Div(decimal.NewFromInt(100))
	case model.BetLoss:
		return stake.Neg()
	default:
		return decimal.Zero
	}
}
